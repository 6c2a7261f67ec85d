// SPDX-License-Identifier: MIT
/*
Package render turns smoothed bands into draw commands.

Each visual mode is a Renderer. The scheduler owns the mutable pieces
(Motion, the particle Field) and hands them in through a Frame, so a
renderer can be driven from a test with nothing but a draw.List.
*/
package render

import (
	"math"

	"waveviz/internal/draw"
	"waveviz/internal/options"
	"waveviz/internal/particle"
)

// Frame is everything a renderer reads for one frame.
type Frame struct {
	Width, Height float64 // backing pixels
	Scale         float64 // device pixel ratio; geometry options are in CSS pixels

	Bands  []float64
	Energy float64
	Bass   float64

	Params  options.Params
	Options *options.Options
	Palette options.Palette
	Motion  *Motion
}

func (f *Frame) scale() float64 {
	if f.Scale <= 0 {
		return 1
	}
	return f.Scale
}

// Renderer draws one visual mode.
type Renderer interface {
	Mode() options.Mode
	// Render records the frame into l, background and vignette excluded.
	Render(l *draw.List, f *Frame)
}

// For returns the renderer of mode. Circular renderers draw the particles
// of field.
func For(mode options.Mode, field *particle.Field) Renderer {
	if mode == options.ModeLinear {
		return &Linear{}
	}
	return &Circular{Field: field}
}

// Background starts a frame: a full clear, or with trails enabled a
// low-alpha black fill that leaves the previous frames showing through.
func Background(l *draw.List, f *Frame) {
	if f.Options.TrailsEnabled {
		l.SetFill(draw.RGBA(0, 0, 0, f.Options.TrailAlpha))
		l.FillRect(0, 0, f.Width, f.Height)
		return
	}
	l.ClearRect(0, 0, f.Width, f.Height)
}

// VignetteInner is the share of the half diagonal left untouched by the
// vignette.
const VignetteInner = 0.45

// Vignette darkens the frame edges with a radial gradient. A strength of
// zero draws nothing.
func Vignette(l *draw.List, width, height, strength float64) {
	if strength <= 0 || width <= 0 || height <= 0 {
		return
	}
	cx, cy := width/2, height/2
	outer := math.Hypot(width, height) / 2
	l.FillRadialGradient(cx, cy, outer*VignetteInner, cx, cy, outer,
		draw.Stop{Offset: 0, Color: draw.Transparent},
		draw.Stop{Offset: 1, Color: draw.RGBA(0, 0, 0, strength)},
	)
}

func rgba(c options.RGB, a float64) draw.Color {
	return draw.RGBA(c.R, c.G, c.B, a)
}
