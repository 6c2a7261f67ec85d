// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// pumpInterval is how often the headless pump feeds the ring.
const pumpInterval = 10 * time.Millisecond

// edge is an active connection from a source into the sample ring.
type edge interface {
	disconnect() error
}

// teeReader feeds the output player and copies a mono downmix of every
// block it hands out into the ring.
type teeReader struct {
	src      MediaStream
	ring     *SampleRing
	channels int
	buf      []float32
	mono     []float32
	done     chan struct{}
	once     sync.Once
}

func newTeeReader(src MediaStream, ring *SampleRing) *teeReader {
	return &teeReader{
		src:      src,
		ring:     ring,
		channels: src.Channels(),
		done:     make(chan struct{}),
	}
}

// Read fills p with float32 LE stereo frames.
func (t *teeReader) Read(p []byte) (int, error) {
	frames := len(p) / (4 * OutputChannels)
	if frames == 0 {
		return 0, nil
	}
	need := frames * t.channels
	if cap(t.buf) < need {
		t.buf = make([]float32, need)
		t.mono = make([]float32, frames)
	}
	n, err := t.src.Read(t.buf[:need])
	got := n / t.channels

	for i := range got {
		frame := t.buf[i*t.channels : (i+1)*t.channels]
		l, r := frame[0], frame[0]
		if t.channels > 1 {
			r = frame[1]
		}
		binary.LittleEndian.PutUint32(p[i*8:], math.Float32bits(l))
		binary.LittleEndian.PutUint32(p[i*8+4:], math.Float32bits(r))
	}
	if got > 0 {
		m := downmix(t.mono, t.buf[:got*t.channels], t.channels)
		t.ring.Write(t.mono[:m])
	}
	if err != nil {
		t.end()
		if !errors.Is(err, io.EOF) {
			logger.Warnf("media %q read failed: %v", t.src.Name(), err)
		}
		return got * 8, io.EOF
	}
	return got * 8, nil
}

// end clears the ring so the spectrum falls to silence.
func (t *teeReader) end() {
	t.once.Do(func() {
		t.ring.Clear()
		close(t.done)
	})
}

// playbackEdge routes a media stream through the output device.
type playbackEdge struct {
	player *oto.Player
	tee    *teeReader
}

func connectPlayback(c *Context, src MediaStream, ring *SampleRing) *playbackEdge {
	tee := newTeeReader(src, ring)
	player := c.newPlayer(tee)
	player.Play()
	return &playbackEdge{player: player, tee: tee}
}

func (e *playbackEdge) disconnect() error {
	e.player.Pause()
	err := e.player.Close()
	e.tee.end()
	return err
}

// pumpEdge paces a media stream by wall-clock time when there is no output
// device to pull it.
type pumpEdge struct {
	ctx      *Context
	src      MediaStream
	ring     *SampleRing
	channels int
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

func connectPump(c *Context, src MediaStream, ring *SampleRing) *pumpEdge {
	e := &pumpEdge{
		ctx:      c,
		src:      src,
		ring:     ring,
		channels: src.Channels(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go e.run()
	return e
}

func (e *pumpEdge) run() {
	defer close(e.done)

	ticker := time.NewTicker(pumpInterval)
	defer ticker.Stop()

	rate := float64(e.ctx.SampleRate())
	maxFrames := int(rate * 4 * pumpInterval.Seconds())
	buf := make([]float32, maxFrames*e.channels)
	mono := make([]float32, maxFrames)

	var owed float64 // frames due but not yet read
	last := time.Now()
	for {
		select {
		case <-e.stop:
			return
		case now := <-ticker.C:
			elapsed := now.Sub(last).Seconds()
			last = now
			if !e.ctx.Running() {
				continue
			}
			owed = math.Min(owed+elapsed*rate, float64(maxFrames))
			frames := int(owed)
			if frames == 0 {
				continue
			}
			owed -= float64(frames)

			n, err := e.src.Read(buf[:frames*e.channels])
			if n > 0 {
				m := downmix(mono, buf[:n-n%e.channels], e.channels)
				e.ring.Write(mono[:m])
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					logger.Warnf("media %q read failed: %v", e.src.Name(), err)
				}
				logger.Debugf("media %q ended", e.src.Name())
				e.ring.Clear()
				return
			}
		}
	}
}

func (e *pumpEdge) disconnect() error {
	e.once.Do(func() { close(e.stop) })
	<-e.done
	return nil
}

// captureEdge points a microphone capture at the ring.
type captureEdge struct {
	capture *Capture
}

func connectCapture(c *Context, capture *Capture, ring *SampleRing) *captureEdge {
	capture.attach(&captureSink{ring: ring, ctx: c})
	return &captureEdge{capture: capture}
}

func (e *captureEdge) disconnect() error {
	e.capture.attach(nil)
	return nil
}
