// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"
)

// CaptureConfig selects and configures the input device.
type CaptureConfig struct {
	DeviceID        int // -1 for the system default
	Channels        int
	SampleRate      int // 0 uses the device default
	FramesPerBuffer int
	LowLatency      bool
	GateThreshold   float64
	GateEnabled     bool
}

// captureSink is where a capture delivers samples while connected.
type captureSink struct {
	ring *SampleRing
	ctx  *Context
}

// Capture is a live microphone stream opened through PortAudio.
type Capture struct {
	name       string
	sampleRate int
	channels   int

	stream *portaudio.Stream
	gate   *Gate
	sink   atomic.Pointer[captureSink]
	mono   []float32 // callback scratch, frames per buffer
	closed atomic.Bool
}

var _ Source = (*Capture)(nil)

// OpenCapture opens and starts an input stream. PortAudio must be
// initialized. Host refusals map to ErrPermissionDenied; a missing device or
// unsupported format maps to ErrUnsupportedMedia.
func OpenCapture(cfg CaptureConfig) (*Capture, error) {
	device, err := InputDevice(cfg.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedMedia, err)
	}
	if device.MaxInputChannels < 1 {
		return nil, fmt.Errorf("%w: device %q has no input channels", ErrUnsupportedMedia, device.Name)
	}

	channels := max(1, min(cfg.Channels, device.MaxInputChannels))
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = int(device.DefaultSampleRate)
	}
	frames := cfg.FramesPerBuffer
	if frames <= 0 {
		frames = 512
	}

	latency := device.DefaultHighInputLatency
	if cfg.LowLatency {
		latency = device.DefaultLowInputLatency
	}

	c := &Capture{
		name:       device.Name,
		sampleRate: rate,
		channels:   channels,
		gate:       NewGate(cfg.GateThreshold),
		mono:       make([]float32, frames),
	}
	if !cfg.GateEnabled {
		c.gate.Disable()
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: channels,
			Device:   device,
			Latency:  latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: frames,
		SampleRate:      float64(rate),
	}

	stream, err := portaudio.OpenStream(params, c.process)
	if err != nil {
		return nil, mapHostError("open input stream", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, mapHostError("start input stream", err)
	}
	c.stream = stream

	logger.Infof("capturing from %q (%d ch, %d Hz, %d frames, latency %s)",
		c.name, channels, rate, frames, latency.Round(time.Microsecond))
	return c, nil
}

// mapHostError classifies a PortAudio failure.
func mapHostError(op string, err error) error {
	var hostErr portaudio.UnanticipatedHostError
	switch {
	case errors.Is(err, portaudio.DeviceUnavailable), errors.As(err, &hostErr):
		return fmt.Errorf("%w: %s: %v", ErrPermissionDenied, op, err)
	case errors.Is(err, portaudio.InvalidSampleRate),
		errors.Is(err, portaudio.InvalidChannelCount),
		errors.Is(err, portaudio.SampleFormatNotSupported),
		errors.Is(err, portaudio.InvalidDevice):
		return fmt.Errorf("%w: %s: %v", ErrUnsupportedMedia, op, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// process is the PortAudio callback.
// Performance Critical:
// - Runs on the PortAudio thread
// - Uses pre-allocated buffers only
func (c *Capture) process(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	sink := c.sink.Load()
	if sink == nil || !sink.ctx.Running() {
		return
	}
	n := downmix(c.mono, in, c.channels)
	block := c.mono[:n]
	if !c.gate.Open(block) {
		clear(block)
	}
	sink.ring.Write(block)
}

func (c *Capture) attach(s *captureSink) { c.sink.Store(s) }

// Name returns the input device name.
func (c *Capture) Name() string { return c.name }

// SampleRate returns the stream sample rate in Hz.
func (c *Capture) SampleRate() int { return c.sampleRate }

// Channels returns the number of captured channels.
func (c *Capture) Channels() int { return c.channels }

// Gate returns the noise gate applied to captured blocks.
func (c *Capture) Gate() *Gate { return c.gate }

// Close stops and closes the input stream. Closing twice is a no-op.
func (c *Capture) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.attach(nil)
	if c.stream == nil {
		return nil
	}
	if err := c.stream.Stop(); err != nil {
		c.stream.Close()
		return fmt.Errorf("failed to stop input stream: %w", err)
	}
	if err := c.stream.Close(); err != nil {
		return fmt.Errorf("failed to close input stream: %w", err)
	}
	return nil
}
