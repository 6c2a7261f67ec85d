// SPDX-License-Identifier: MIT
/*
Package visualizer ties the analysis pipeline to a drawing surface.

A Visualizer owns a signal bridge, the bin map, the envelope smoother, the
per-frame state and a renderer. Each frame requested from its
FrameScheduler it pulls a spectrum, shapes it into bands, advances motion
and particles, records a draw.List and presents it.

Lifecycle:

	Idle --Start--> Running --Stop--> Idle --Destroy--> Destroyed

Every method that acts on a destroyed visualizer returns ErrDisposed; a
second Destroy returns nil. State and Stats keep reporting.
*/
package visualizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"waveviz/internal/analysis"
	"waveviz/internal/audio"
	"waveviz/internal/draw"
	"waveviz/internal/log"
	"waveviz/internal/options"
	"waveviz/internal/particle"
	"waveviz/internal/render"
)

var logger = log.Named("visualizer")

// ErrDisposed is returned by every operation on a destroyed Visualizer.
var ErrDisposed = errors.New("visualizer disposed")

// MaxFrameDelta caps the time step of one frame, in seconds.
const MaxFrameDelta = 0.06

// State is the lifecycle state.
type State int

const (
	Idle State = iota
	Running
	Destroyed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Destroyed:
		return "destroyed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Surface is the drawing target.
type Surface interface {
	// Size reports the displayed size in CSS pixels and the device pixel
	// ratio.
	Size() (width, height, pixelRatio float64)
	// SetBackingSize sets the resolution frames are drawn at.
	SetBackingSize(width, height int)
	// Present shows a finished frame. The list is reused after it returns.
	Present(l *draw.List) error
	// OnResize registers fn to be called when Size changes and returns a
	// function that removes it.
	OnResize(fn func()) (detach func())
}

// SignalBridge is the audio side of the visualizer. *audio.Bridge
// implements it.
type SignalBridge interface {
	ConnectSource(ctx context.Context, src audio.Source) error
	ConnectMicrophone(ctx context.Context) (*audio.Capture, error)
	Resume(ctx context.Context) error
	ReadSpectrum() []byte
	SetFFTSize(n int) error
	SampleRate() int
	FFTSize() int
	Close() error
}

var _ SignalBridge = (*audio.Bridge)(nil)

// FrameState is the mutable state carried from frame to frame.
type FrameState struct {
	Params options.Params
	Motion render.Motion
	Field  particle.Field
}

// Stats summarizes the frames produced so far.
type Stats struct {
	Frames    uint64
	LastDT    float64
	Bands     int
	Particles int
	Energy    float64
	Bass      float64
	Beats     uint64 // onsets detected in the bass level
}

// Option configures a Visualizer.
type Option func(*Visualizer)

// WithScheduler replaces the default Loop.
func WithScheduler(s FrameScheduler) Option {
	return func(v *Visualizer) { v.sched = s }
}

// WithBridge replaces the default audio.Bridge.
func WithBridge(b SignalBridge) Option {
	return func(v *Visualizer) { v.bridge = b }
}

// WithRand sets the random source used for particles and shake.
func WithRand(r *rand.Rand) Option {
	return func(v *Visualizer) { v.rng = r }
}

// WithBeatHandler calls fn with the bass level whenever a beat is detected.
// fn runs on the frame goroutine with the visualizer locked and must not
// call back into it.
func WithBeatHandler(fn func(bass float64)) Option {
	return func(v *Visualizer) { v.onBeat = fn }
}

// Visualizer renders live audio onto a Surface.
type Visualizer struct {
	mu     sync.Mutex
	fftMu  sync.Mutex // orders bridge resizes; taken before mu
	state  State
	opts   options.Options
	stats  Stats
	last   time.Time
	tickFn func(time.Time) // frame callback of the current generation
	gen    uint64           // bumped by every Start

	surface      Surface
	sched        FrameScheduler
	bridge       SignalBridge
	rng          *rand.Rand
	beat         *analysis.BeatDetector
	onBeat       func(bass float64)
	stopLoop     context.CancelFunc // set when the visualizer runs its own Loop
	detachResize func()
	frameID      uint64

	width, height, scale float64 // backing size
	binmap               analysis.BinMap
	smoother             analysis.Smoother
	fs                   FrameState
	renderer             render.Renderer
	frame                render.Frame
	list                 draw.List
	presentFailed        bool
}

// New builds a visualizer drawing on surface. Without WithBridge it creates
// an audio.Bridge sized from opts; without WithScheduler it runs its own
// Loop at DefaultFPS until Destroy. New panics if surface is nil.
func New(surface Surface, opts options.Options, optFns ...Option) *Visualizer {
	if surface == nil {
		panic("visualizer: nil surface")
	}
	v := &Visualizer{
		surface: surface,
		opts:    opts.Normalize(),
		scale:   1,
	}
	for _, fn := range optFns {
		fn(v)
	}
	if v.bridge == nil {
		v.bridge = audio.NewBridge(audio.BridgeConfig{
			FFTSize:     v.opts.FFTSize,
			Window:      analysis.DefaultWindow,
			MinDecibels: analysis.DefaultMinDecibels,
			MaxDecibels: analysis.DefaultMaxDecibels,
			Playback:    true,
		})
	}
	if v.sched == nil {
		loop := NewLoop(DefaultFPS)
		ctx, cancel := context.WithCancel(context.Background())
		go loop.Run(ctx)
		v.sched, v.stopLoop = loop, cancel
	}
	if v.rng == nil {
		v.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))
	}

	v.beat = analysis.NewBeatDetector(0, 0, 0)
	v.fs.Params = options.ParamsFrom(v.opts)
	v.fs.Field.Pool().SetCap(v.opts.ParticleCap)
	v.renderer = render.For(v.opts.Mode, &v.fs.Field)
	v.frame = render.Frame{
		Options: &v.opts,
		Palette: v.opts.Palette(),
		Motion:  &v.fs.Motion,
	}
	v.detachResize = surface.OnResize(v.resizeLater)
	v.resizeLocked()

	logger.Debugf("created: mode=%s bars=%d fft=%d", v.opts.Mode, v.opts.Bars, v.opts.FFTSize)
	return v
}

// State returns the lifecycle state.
func (v *Visualizer) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Stats returns counters for the frames produced so far.
func (v *Visualizer) Stats() Stats {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stats
}

// Options returns the current normalized options.
func (v *Visualizer) Options() (options.Options, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == Destroyed {
		return options.Options{}, ErrDisposed
	}
	return v.opts, nil
}

// Start begins requesting frames. It is a no-op while running.
func (v *Visualizer) Start() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch v.state {
	case Destroyed:
		return ErrDisposed
	case Running:
		return nil
	}
	v.state = Running
	v.last = time.Time{}
	v.gen++
	gen := v.gen
	v.tickFn = func(now time.Time) { v.tick(gen, now) }
	v.frameID = v.sched.RequestFrame(v.tickFn)
	logger.Debugf("started")
	return nil
}

// Stop cancels the pending frame. Smoothed bands, particles and motion are
// kept so a later Start resumes without a jump. A frame already running
// completes.
func (v *Visualizer) Stop() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == Destroyed {
		return ErrDisposed
	}
	v.stopLocked()
	return nil
}

func (v *Visualizer) stopLocked() {
	if v.frameID != 0 {
		v.sched.CancelFrame(v.frameID)
		v.frameID = 0
	}
	if v.state == Running {
		v.state = Idle
		logger.Debugf("stopped after %d frames", v.stats.Frames)
	}
}

// Destroy stops the visualizer, detaches the resize listener, closes the
// bridge and releases the surface. A second call returns nil.
func (v *Visualizer) Destroy() error {
	v.mu.Lock()
	if v.state == Destroyed {
		v.mu.Unlock()
		return nil
	}
	v.stopLocked()
	if v.detachResize != nil {
		v.detachResize()
		v.detachResize = nil
	}
	if v.stopLoop != nil {
		v.stopLoop()
		v.stopLoop = nil
	}
	v.surface = nil
	v.fs.Field.Reset()
	v.state = Destroyed
	b := v.bridge
	v.mu.Unlock()

	if err := b.Close(); err != nil {
		logger.Debugf("bridge teardown: %v", err)
	}
	logger.Debugf("destroyed")
	return nil
}

// SetOptions merges p into the options. Changes to the band count,
// frequency range or FFT size rebuild the bin map on the next frame and
// start a cross-fade; a mode change clears the particles.
func (v *Visualizer) SetOptions(p options.Partial) error {
	v.mu.Lock()
	if v.state == Destroyed {
		v.mu.Unlock()
		return ErrDisposed
	}
	v.applyLocked(v.opts.Merge(p))
	v.mu.Unlock()
	v.syncFFTSize()
	return nil
}

// ReplaceOptions swaps the whole option set.
func (v *Visualizer) ReplaceOptions(o options.Options) error {
	v.mu.Lock()
	if v.state == Destroyed {
		v.mu.Unlock()
		return ErrDisposed
	}
	v.applyLocked(o.Normalize())
	v.mu.Unlock()
	v.syncFFTSize()
	return nil
}

func (v *Visualizer) applyLocked(n options.Options) {
	old := v.opts
	v.opts = n
	v.frame.Palette = n.Palette()

	if n.Mode != old.Mode {
		v.fs.Field.Reset()
		v.renderer = render.For(n.Mode, &v.fs.Field)
	}
	if !n.ParticleEnabled {
		v.fs.Field.Reset()
	}
	if old.MapperChanged(n) {
		logger.Debugf("bin map dirty: bars=%d range=%.0f-%.0fHz fft=%d", n.Bars, n.MinHz, n.MaxHz, n.FFTSize)
	}
}

// syncFFTSize resizes the bridge to the current option outside mu.
func (v *Visualizer) syncFFTSize() {
	v.fftMu.Lock()
	defer v.fftMu.Unlock()

	v.mu.Lock()
	n, b := v.opts.FFTSize, v.bridge
	v.mu.Unlock()
	if b.FFTSize() == n {
		return
	}
	if err := b.SetFFTSize(n); err != nil {
		logger.Warnf("fft size %d: %v", n, err)
	}
}

// ConnectSource attaches src to the bridge. A failure leaves the
// visualizer state untouched.
func (v *Visualizer) ConnectSource(ctx context.Context, src audio.Source) error {
	b, err := v.liveBridge()
	if err != nil {
		return err
	}
	return b.ConnectSource(ctx, src)
}

// ConnectMicrophone opens the configured input device and attaches it.
func (v *Visualizer) ConnectMicrophone(ctx context.Context) (*audio.Capture, error) {
	b, err := v.liveBridge()
	if err != nil {
		return nil, err
	}
	return b.ConnectMicrophone(ctx)
}

// ResumeAudioContext lets samples flow. Contexts start suspended.
func (v *Visualizer) ResumeAudioContext(ctx context.Context) error {
	b, err := v.liveBridge()
	if err != nil {
		return err
	}
	return b.Resume(ctx)
}

// liveBridge returns the bridge for calls made outside the lock; connecting
// may block on device setup.
func (v *Visualizer) liveBridge() (SignalBridge, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == Destroyed {
		return nil, ErrDisposed
	}
	return v.bridge, nil
}

// Resize recomputes the backing size from the surface's displayed size and
// pixel ratio. Zero sizes are accepted; frames are then not drawn.
func (v *Visualizer) Resize() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == Destroyed {
		return ErrDisposed
	}
	v.resizeLocked()
	return nil
}

func (v *Visualizer) resizeLocked() {
	w, h, dpr := v.surface.Size()
	if !(dpr > 0) || math.IsInf(dpr, 0) {
		dpr = 1
	}
	bw := backing(w, dpr)
	bh := backing(h, dpr)
	v.surface.SetBackingSize(bw, bh)
	if float64(bw) != v.width || float64(bh) != v.height {
		logger.Debugf("resize: %dx%d @%.2f", bw, bh, dpr)
	}
	v.width, v.height, v.scale = float64(bw), float64(bh), dpr
}

func backing(size, dpr float64) int {
	if !(size > 0) || math.IsInf(size, 0) {
		return 0
	}
	return int(math.Floor(size * dpr))
}

// resizeLater is the surface listener. It may fire on any goroutine, so the
// resize is posted to the loop.
func (v *Visualizer) resizeLater() {
	v.sched.Post(func() {
		if err := v.Resize(); err != nil && !errors.Is(err, ErrDisposed) {
			logger.Warnf("resize: %v", err)
		}
	})
}

// SnapshotBands copies the displayed bands of the last frame into dst and
// returns how many were copied with the frame's energy and bass. It is safe
// to call from any goroutine; a destroyed visualizer reports nothing.
func (v *Visualizer) SnapshotBands(dst []float32) (n int, energy, bass float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == Destroyed {
		return 0, 0, 0
	}
	bands := v.smoother.Bands()
	n = min(len(dst), len(bands))
	for i := range n {
		dst[i] = float32(bands[i])
	}
	return n, v.smoother.Energy(), v.smoother.Bass()
}
