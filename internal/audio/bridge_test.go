// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"waveviz/internal/analysis"
)

// toneStream is an in-memory MediaStream playing a sine for a fixed number
// of frames (0 for endless).
type toneStream struct {
	mu       sync.Mutex
	name     string
	rate     int
	channels int
	freq     float64
	frames   int
	pos      int
	closed   bool
}

func newTone(rate, channels int, frames int) *toneStream {
	return &toneStream{name: "tone", rate: rate, channels: channels, freq: 1000, frames: frames}
}

func (s *toneStream) Name() string    { return s.name }
func (s *toneStream) SampleRate() int { return s.rate }
func (s *toneStream) Channels() int   { return s.channels }

func (s *toneStream) Read(p []float32) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for n+s.channels <= len(p) {
		if s.frames > 0 && s.pos >= s.frames {
			return n, io.EOF
		}
		v := float32(0.8 * math.Sin(2*math.Pi*s.freq*float64(s.pos)/float64(s.rate)))
		for c := range s.channels {
			p[n+c] = v
		}
		n += s.channels
		s.pos++
	}
	return n, nil
}

func (s *toneStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

type oddSource struct{}

func (oddSource) Name() string    { return "odd" }
func (oddSource) SampleRate() int { return 44100 }
func (oddSource) Channels() int   { return 1 }

func newHeadlessBridge() *Bridge {
	return NewBridge(BridgeConfig{FFTSize: 1024, Window: analysis.Blackman})
}

func nonZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBridgeSilentWithoutSource(t *testing.T) {
	b := newHeadlessBridge()
	defer b.Close()

	spec := b.ReadSpectrum()
	if len(spec) != 512 {
		t.Fatalf("spectrum length = %d, want 512", len(spec))
	}
	if nonZero(spec) {
		t.Error("spectrum without source should be all zeros")
	}
	if err := b.Resume(context.Background()); err != nil {
		t.Errorf("Resume without source: %v", err)
	}
	if b.SampleRate() != DefaultSampleRate {
		t.Errorf("SampleRate before connect = %d", b.SampleRate())
	}

	allocs := testing.AllocsPerRun(100, func() {
		b.ReadSpectrum()
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations reading an idle bridge, got %.1f", allocs)
	}
}

func TestBridgeRejectsUnsupportedSources(t *testing.T) {
	ctx := context.Background()
	b := newHeadlessBridge()
	defer b.Close()

	tests := []struct {
		name string
		src  Source
	}{
		{"Nil", nil},
		{"Unknown Type", oddSource{}},
		{"No Channels", newTone(44100, 0, 0)},
		{"Zero Rate", newTone(0, 2, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := b.ConnectSource(ctx, tt.src); !errors.Is(err, ErrUnsupportedMedia) {
				t.Errorf("ConnectSource error = %v, want ErrUnsupportedMedia", err)
			}
		})
	}

	if err := b.ConnectSource(ctx, newTone(44100, 2, 0)); err != nil {
		t.Fatalf("ConnectSource: %v", err)
	}
	if err := b.ConnectSource(ctx, newTone(48000, 2, 0)); !errors.Is(err, ErrUnsupportedMedia) {
		t.Errorf("mismatched rate error = %v, want ErrUnsupportedMedia", err)
	}
	if b.SampleRate() != 44100 {
		t.Errorf("context rate = %d, want 44100", b.SampleRate())
	}
}

func TestBridgeHeadlessFlow(t *testing.T) {
	ctx := context.Background()
	b := newHeadlessBridge()
	defer b.Close()

	tone := newTone(44100, 2, 0)
	if err := b.ConnectSource(ctx, tone); err != nil {
		t.Fatalf("ConnectSource: %v", err)
	}
	if err := b.ConnectSource(ctx, tone); err != nil {
		t.Fatalf("reconnecting the same source: %v", err)
	}

	time.Sleep(3 * pumpInterval)
	if nonZero(b.ReadSpectrum()) {
		t.Fatal("samples flowed before Resume")
	}

	if err := b.Resume(ctx); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if err := b.Resume(ctx); err != nil {
		t.Fatalf("second Resume: %v", err)
	}
	waitFor(t, "spectrum", func() bool { return nonZero(b.ReadSpectrum()) })

	// Suspend to hold the ring steady while counting allocations.
	b.actx.Suspend()
	b.ReadSpectrum()
	allocs := testing.AllocsPerRun(50, func() {
		b.ReadSpectrum()
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in ReadSpectrum, got %.1f", allocs)
	}
}

func TestBridgeStreamEndFallsSilent(t *testing.T) {
	ctx := context.Background()
	b := newHeadlessBridge()
	defer b.Close()

	if err := b.ConnectSource(ctx, newTone(44100, 1, 2205)); err != nil { // 50ms
		t.Fatalf("ConnectSource: %v", err)
	}
	if err := b.Resume(ctx); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	waitFor(t, "silence after end of stream", func() bool { return !nonZero(b.ReadSpectrum()) && b.ring.Len() == 0 })
}

func TestBridgeSwitchSource(t *testing.T) {
	ctx := context.Background()
	b := newHeadlessBridge()
	defer b.Close()

	first, second := newTone(44100, 2, 0), newTone(44100, 1, 0)
	if err := b.ConnectSource(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := b.ConnectSource(ctx, second); err != nil {
		t.Fatal(err)
	}
	if b.Source() != Source(second) {
		t.Errorf("active source = %v, want second", b.Source())
	}
	if first.closed {
		t.Error("bridge closed a caller-owned stream")
	}
}

func TestBridgeSetFFTSize(t *testing.T) {
	ctx := context.Background()
	b := newHeadlessBridge()
	defer b.Close()

	if err := b.SetFFTSize(4096); err != nil {
		t.Fatalf("SetFFTSize before connect: %v", err)
	}
	if got := len(b.ReadSpectrum()); got != 2048 {
		t.Errorf("spectrum length = %d, want 2048", got)
	}
	if err := b.ConnectSource(ctx, newTone(44100, 2, 0)); err != nil {
		t.Fatal(err)
	}
	if err := b.SetFFTSize(1000); err == nil {
		t.Error("non power of two size accepted")
	}
	if b.FFTSize() != 4096 {
		t.Errorf("failed resize changed FFTSize to %d", b.FFTSize())
	}
	if err := b.SetFFTSize(512); err != nil {
		t.Fatalf("SetFFTSize while connected: %v", err)
	}
	if err := b.Resume(ctx); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "spectrum at new size", func() bool {
		s := b.ReadSpectrum()
		return len(s) == 256 && nonZero(s)
	})
}

func TestBridgeClose(t *testing.T) {
	ctx := context.Background()
	b := newHeadlessBridge()
	if err := b.ConnectSource(ctx, newTone(44100, 2, 0)); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if nonZero(b.ReadSpectrum()) {
		t.Error("closed bridge returned a spectrum")
	}
	if err := b.ConnectSource(ctx, newTone(44100, 2, 0)); !errors.Is(err, ErrClosed) {
		t.Errorf("connect after Close: got %v, want ErrClosed", err)
	}
	if _, err := b.ConnectMicrophone(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("microphone after Close: got %v, want ErrClosed", err)
	}
}

// stallStream is a MediaStream whose first Read hangs until released.
type stallStream struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newStallStream() *stallStream {
	return &stallStream{entered: make(chan struct{}), release: make(chan struct{})}
}

func (s *stallStream) Name() string    { return "stall" }
func (s *stallStream) SampleRate() int { return 44100 }
func (s *stallStream) Channels() int   { return 1 }
func (s *stallStream) Close() error    { return nil }

func (s *stallStream) Read(p []float32) (int, error) {
	s.once.Do(func() { close(s.entered) })
	<-s.release
	return 0, io.EOF
}

func TestBridgeReadsWhileConnectBlocks(t *testing.T) {
	ctx := context.Background()
	b := newHeadlessBridge()
	defer b.Close()

	stall := newStallStream()
	var released sync.Once
	release := func() { released.Do(func() { close(stall.release) }) }
	defer release()

	if err := b.ConnectSource(ctx, stall); err != nil {
		t.Fatal(err)
	}
	if err := b.Resume(ctx); err != nil {
		t.Fatal(err)
	}
	select {
	case <-stall.entered:
	case <-time.After(3 * time.Second):
		t.Fatal("stream never read")
	}

	// Switching sources waits for the stalled pump to stop.
	connected := make(chan error, 1)
	go func() { connected <- b.ConnectSource(ctx, newTone(44100, 1, 0)) }()
	time.Sleep(20 * time.Millisecond)

	read := make(chan struct{})
	go func() {
		defer close(read)
		for range 10 {
			b.ReadSpectrum()
			b.SampleRate()
			b.FFTSize()
		}
	}()
	select {
	case <-read:
	case <-time.After(time.Second):
		t.Fatal("ReadSpectrum blocked behind a pending connect")
	}

	select {
	case err := <-connected:
		t.Fatalf("connect finished while the old stream was stalled: %v", err)
	default:
	}

	release()
	select {
	case err := <-connected:
		if err != nil {
			t.Fatalf("connect: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("connect did not finish after release")
	}
	waitFor(t, "tone spectrum", func() bool { return nonZero(b.ReadSpectrum()) })
}
