// SPDX-License-Identifier: MIT
package visualizer

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"waveviz/internal/audio"
	"waveviz/internal/draw"
	"waveviz/internal/options"
)

// manualScheduler runs frames only when the test calls frame.
type manualScheduler struct {
	next    uint64
	pending []frameRequest
	tasks   []func()
}

func (s *manualScheduler) RequestFrame(cb func(time.Time)) uint64 {
	s.next++
	s.pending = append(s.pending, frameRequest{id: s.next, cb: cb})
	return s.next
}

func (s *manualScheduler) CancelFrame(id uint64) {
	for i, r := range s.pending {
		if r.id == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

func (s *manualScheduler) Post(fn func()) { s.tasks = append(s.tasks, fn) }

func (s *manualScheduler) frame(now time.Time) {
	tasks := s.tasks
	s.tasks = nil
	for _, fn := range tasks {
		fn()
	}
	run := s.pending
	s.pending = nil
	for _, r := range run {
		r.cb(now)
	}
}

type fakeSurface struct {
	w, h, dpr  float64
	backW      int
	backH      int
	presents   int
	lastCmds   int
	presentErr error
	listeners  []func()
	detached   int
}

func (s *fakeSurface) Size() (float64, float64, float64) { return s.w, s.h, s.dpr }
func (s *fakeSurface) SetBackingSize(w, h int)          { s.backW, s.backH = w, h }

func (s *fakeSurface) Present(l *draw.List) error {
	s.presents++
	s.lastCmds = l.Len()
	return s.presentErr
}

func (s *fakeSurface) OnResize(fn func()) func() {
	s.listeners = append(s.listeners, fn)
	return func() { s.detached++ }
}

func (s *fakeSurface) resize(w, h, dpr float64) {
	s.w, s.h, s.dpr = w, h, dpr
	for _, fn := range s.listeners {
		fn()
	}
}

type fakeBridge struct {
	spectrum   []byte
	sampleRate int
	fftSize    int
	connectErr error
	connected  audio.Source
	resumed    int
	closed     int

	// When set, SetFFTSize closes resizing and waits for resizeGate.
	resizing   chan struct{}
	resizeGate chan struct{}
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{spectrum: make([]byte, 1024), sampleRate: 44100, fftSize: 2048}
}

func (b *fakeBridge) ConnectSource(_ context.Context, src audio.Source) error {
	if b.connectErr != nil {
		return b.connectErr
	}
	b.connected = src
	return nil
}

func (b *fakeBridge) ConnectMicrophone(context.Context) (*audio.Capture, error) {
	return nil, audio.ErrPermissionDenied
}

func (b *fakeBridge) Resume(context.Context) error { b.resumed++; return nil }
func (b *fakeBridge) ReadSpectrum() []byte         { return b.spectrum }
func (b *fakeBridge) SampleRate() int              { return b.sampleRate }
func (b *fakeBridge) FFTSize() int                 { return b.fftSize }

func (b *fakeBridge) SetFFTSize(n int) error {
	if b.resizeGate != nil {
		close(b.resizing)
		<-b.resizeGate
	}
	b.fftSize = n
	b.spectrum = make([]byte, n/2)
	return nil
}

func (b *fakeBridge) Close() error {
	b.closed++
	if b.closed > 1 {
		return errors.New("already closed")
	}
	return nil
}

type harness struct {
	v      *Visualizer
	sched  *manualScheduler
	surf   *fakeSurface
	bridge *fakeBridge
	now    time.Time
}

func newHarness(o options.Options, extra ...Option) *harness {
	h := &harness{
		sched:  &manualScheduler{},
		surf:   &fakeSurface{w: 400, h: 300, dpr: 1},
		bridge: newFakeBridge(),
		now:    time.Unix(1000, 0),
	}
	h.v = New(h.surf, o, append([]Option{
		WithScheduler(h.sched),
		WithBridge(h.bridge),
		WithRand(rand.New(rand.NewPCG(1, 2))),
	}, extra...)...)
	return h
}

// advance runs one frame dt seconds after the previous one.
func (h *harness) advance(dt float64) {
	h.now = h.now.Add(time.Duration(dt * float64(time.Second)))
	h.sched.frame(h.now)
}

type namedSource struct{ name string }

func (s namedSource) Name() string    { return s.name }
func (s namedSource) SampleRate() int { return 44100 }
func (s namedSource) Channels() int   { return 2 }
