// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"waveviz/internal/transport"
)

// Publisher defaults.
const (
	DefaultInterval = 16 * time.Millisecond
	MaxBands        = 512
	headerSize      = 4 + 8 + 4 + 4 + 2
)

/*
Packet layout, big endian:

	+----------+-----------+--------+--------+-------+-------------+
	| sequence | timestamp | energy | bass   | count | bands       |
	| uint32   | int64 ns  | f32    | f32    | u16   | count × f32 |
	+----------+-----------+--------+--------+-------+-------------+
*/

// Packet is one decoded band frame.
type Packet struct {
	Sequence  uint32
	Timestamp time.Time
	Energy    float32
	Bass      float32
	Bands     []float32
}

// AppendPacket encodes p onto dst.
func AppendPacket(dst []byte, p Packet) []byte {
	dst = binary.BigEndian.AppendUint32(dst, p.Sequence)
	dst = binary.BigEndian.AppendUint64(dst, uint64(p.Timestamp.UnixNano()))
	dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(p.Energy))
	dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(p.Bass))
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(p.Bands)))
	for _, b := range p.Bands {
		dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(b))
	}
	return dst
}

// ErrShortPacket is returned by ParsePacket for truncated input.
var ErrShortPacket = errors.New("short band packet")

// ParsePacket decodes a packet built by AppendPacket.
func ParsePacket(b []byte) (Packet, error) {
	if len(b) < headerSize {
		return Packet{}, ErrShortPacket
	}
	be := binary.BigEndian
	p := Packet{
		Sequence:  be.Uint32(b[0:]),
		Timestamp: time.Unix(0, int64(be.Uint64(b[4:]))),
		Energy:    math.Float32frombits(be.Uint32(b[12:])),
		Bass:      math.Float32frombits(be.Uint32(b[16:])),
	}
	n := int(be.Uint16(b[20:]))
	body := b[headerSize:]
	if len(body) < n*4 {
		return Packet{}, fmt.Errorf("%w: %d bands need %d bytes, have %d", ErrShortPacket, n, n*4, len(body))
	}
	p.Bands = make([]float32, n)
	for i := range p.Bands {
		p.Bands[i] = math.Float32frombits(be.Uint32(body[i*4:]))
	}
	return p, nil
}

// Publisher periodically snapshots the displayed bands, packs them and
// hands the packet to a sink. It runs in its own goroutine between Start
// and Stop.
type Publisher struct {
	sink     transport.Transport
	source   transport.BandSource
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex // protects ticker and done during Start/Stop
	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	seq    uint32
	bands  []float32
	packet []byte
	failed bool
}

// NewPublisher returns a stopped publisher. An invalid interval defaults to
// DefaultInterval; maxBands is clamped to [1, MaxBands].
func NewPublisher(interval time.Duration, sink transport.Transport, source transport.BandSource, maxBands int) (*Publisher, error) {
	if sink == nil {
		return nil, errors.New("udp publisher: nil sink")
	}
	if source == nil {
		return nil, errors.New("udp publisher: nil band source")
	}
	if interval <= 0 {
		interval = DefaultInterval
		logger.Warnf("invalid publish interval, defaulting to %s", interval)
	}
	maxBands = min(max(maxBands, 1), MaxBands)
	return &Publisher{
		sink:     sink,
		source:   source,
		interval: interval,
		now:      time.Now,
		bands:    make([]float32, maxBands),
		packet:   make([]byte, 0, headerSize+4*maxBands),
	}, nil
}

// Start launches the publishing goroutine. Calling it while running is a
// no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		logger.Warnf("publisher already running")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.done = make(chan struct{})
	p.stopOnce = sync.Once{}
	ticker, done := p.ticker, p.done
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		logger.Infof("publishing bands every %s", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-done:
				return
			}
		}
	}()
}

// Stop signals the goroutine to exit and waits for it. It is safe to call
// more than once.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.done)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()
	p.wg.Wait()
	logger.Debugf("publisher stopped after %d packets", p.seq)
	return nil
}

// publish builds and sends one packet.
func (p *Publisher) publish() {
	n, energy, bass := p.source.SnapshotBands(p.bands)
	p.seq++
	p.packet = AppendPacket(p.packet[:0], Packet{
		Sequence:  p.seq,
		Timestamp: p.now(),
		Energy:    float32(energy),
		Bass:      float32(bass),
		Bands:     p.bands[:n],
	})
	err := p.sink.Send(p.packet)
	switch {
	case err != nil && !p.failed:
		logger.Warnf("send packet %d: %v", p.seq, err)
		p.failed = true
	case err == nil && p.failed:
		logger.Infof("sending recovered at packet %d", p.seq)
		p.failed = false
	}
}

// Close stops the publisher.
func (p *Publisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*Publisher)(nil)
