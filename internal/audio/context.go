// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
)

// OutputChannels is the channel count of the playback device.
const OutputChannels = 2

// oto allows a single context per process.
var (
	otoOnce    sync.Once
	otoCtx     *oto.Context
	otoRate    int
	otoInitErr error
)

func outputContext(ctx context.Context, sampleRate int) (*oto.Context, error) {
	otoOnce.Do(func() {
		var ready chan struct{}
		otoCtx, ready, otoInitErr = oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: OutputChannels,
			Format:       oto.FormatFloat32LE,
		})
		if otoInitErr != nil {
			return
		}
		otoRate = sampleRate
		select {
		case <-ready:
		case <-ctx.Done():
			otoInitErr = ctx.Err()
		}
	})
	if otoInitErr != nil {
		return nil, fmt.Errorf("failed to open audio output: %w", otoInitErr)
	}
	if otoRate != sampleRate {
		return nil, fmt.Errorf("%w: output already running at %d Hz, got %d Hz", ErrUnsupportedMedia, otoRate, sampleRate)
	}
	return otoCtx, nil
}

// Context is the audio graph clock. It fixes the sample rate of every
// source connected to it and gates sample flow: a new Context is suspended
// and nothing reaches the analyser until Resume.
type Context struct {
	sampleRate int
	running    atomic.Bool
	out        *oto.Context // nil when headless
}

// NewContext creates a suspended context. With playback the context owns
// the process-wide output device.
func NewContext(ctx context.Context, sampleRate int, playback bool) (*Context, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrUnsupportedMedia, sampleRate)
	}
	c := &Context{sampleRate: sampleRate}
	if playback {
		out, err := outputContext(ctx, sampleRate)
		if err != nil {
			return nil, err
		}
		if err := out.Suspend(); err != nil {
			return nil, fmt.Errorf("failed to suspend audio output: %w", err)
		}
		c.out = out
	}
	return c, nil
}

// SampleRate returns the context sample rate in Hz.
func (c *Context) SampleRate() int { return c.sampleRate }

// Running reports whether samples are flowing.
func (c *Context) Running() bool { return c.running.Load() }

// Playback reports whether media is routed to the output device.
func (c *Context) Playback() bool { return c.out != nil }

// Resume starts sample flow. It is a no-op when already running.
func (c *Context) Resume(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.running.Load() {
		return nil
	}
	if c.out != nil {
		if err := c.out.Resume(); err != nil {
			return fmt.Errorf("failed to resume audio output: %w", err)
		}
	}
	c.running.Store(true)
	return nil
}

// Suspend stops sample flow.
func (c *Context) Suspend() error {
	if !c.running.Swap(false) {
		return nil
	}
	if c.out != nil {
		if err := c.out.Suspend(); err != nil {
			return fmt.Errorf("failed to suspend audio output: %w", err)
		}
	}
	return nil
}

func (c *Context) newPlayer(r *teeReader) *oto.Player {
	return c.out.NewPlayer(r)
}
