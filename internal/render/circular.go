// SPDX-License-Identifier: MIT
package render

import (
	"math"

	"waveviz/internal/draw"
	"waveviz/internal/options"
	"waveviz/internal/particle"
)

// Circular stroke styling.
const (
	GlowWidth    = 7.0
	GlowAlpha    = 0.18
	CoreWidth    = 1.8
	CoreAlpha    = 0.95
	OutlineWidth = 2.0
	OutlineAlpha = 0.7
	BorderAlpha  = 0.35
	SolidAlpha   = 0.12
	CenterGlowA  = 0.35
)

// Circular draws bands as radial segments around a rotating ring with a
// smoothed outline through the segment tips and the particle halo beneath.
type Circular struct {
	Field *particle.Field

	tipX, tipY []float64
}

func (c *Circular) Mode() options.Mode { return options.ModeCircular }

func (c *Circular) Render(l *draw.List, f *Frame) {
	if len(f.Bands) == 0 {
		return
	}
	o, p, pal := f.Options, f.Params, f.Palette
	s := f.scale()
	shakeX, shakeY := 0.0, 0.0
	rotation := 0.0
	if f.Motion != nil {
		shakeX, shakeY, rotation = f.Motion.ShakeX, f.Motion.ShakeY, f.Motion.Rotation
	}

	l.Save()
	l.Translate(f.Width/2+shakeX*s, f.Height/2+shakeY*s)
	l.Scale(s, s)

	if o.ParticleEnabled && c.Field != nil && c.Field.Len() > 0 {
		l.SetComposite(draw.CompositeLighter)
		c.Field.Draw(l, rgba(pal.Particle, 1), rgba(pal.Glow, 1))
		l.SetComposite(draw.CompositeNormal)
	}

	r := p.Radius
	c.centerFill(l, o.CenterFill, r, pal)

	n := len(f.Bands)
	c.tipX = resize(c.tipX, n)
	c.tipY = resize(c.tipY, n)
	step := 2 * math.Pi / float64(n)

	l.BeginPath()
	for i, v := range f.Bands {
		a := rotation + float64(i)*step - math.Pi/2
		cos, sin := math.Cos(a), math.Sin(a)
		tip := r + v*p.MaxBarLength
		l.MoveTo(cos*r, sin*r)
		l.LineTo(cos*tip, sin*tip)
		c.tipX[i], c.tipY[i] = cos*tip, sin*tip
	}
	l.SetLineCap("round")
	l.SetStroke(rgba(pal.Glow, GlowAlpha))
	l.SetLineWidth(GlowWidth)
	l.Stroke()
	l.SetStroke(rgba(pal.Spectrum, CoreAlpha))
	l.SetLineWidth(CoreWidth)
	l.Stroke()

	c.outline(l, n)
	l.SetStroke(rgba(pal.Spectrum, OutlineAlpha))
	l.SetLineWidth(OutlineWidth)
	l.Stroke()

	if o.Border {
		l.BeginPath()
		l.Circle(0, 0, r)
		l.SetStroke(rgba(pal.Spectrum, BorderAlpha))
		l.SetLineWidth(1)
		l.Stroke()
	}
	l.Restore()
}

// outline traces a closed curve through the tips: each tip is a quadratic
// control point between the midpoints of its neighbouring segments.
func (c *Circular) outline(l *draw.List, n int) {
	midX := func(i int) float64 { return (c.tipX[i] + c.tipX[(i+1)%n]) / 2 }
	midY := func(i int) float64 { return (c.tipY[i] + c.tipY[(i+1)%n]) / 2 }

	l.BeginPath()
	l.MoveTo(midX(n-1), midY(n-1))
	for i := range n {
		l.QuadTo(c.tipX[i], c.tipY[i], midX(i), midY(i))
	}
	l.ClosePath()
}

func (c *Circular) centerFill(l *draw.List, mode options.CenterFill, r float64, pal options.Palette) {
	if r <= 0 {
		return
	}
	switch mode {
	case options.CenterSolid:
		l.SetFill(rgba(pal.Spectrum, SolidAlpha))
		l.BeginPath()
		l.Circle(0, 0, r)
		l.Fill()
	case options.CenterGlow:
		l.FillRadialGradient(0, 0, 0, 0, 0, r,
			draw.Stop{Offset: 0, Color: rgba(pal.Glow, CenterGlowA)},
			draw.Stop{Offset: 1, Color: rgba(pal.Glow, 0)},
		)
	}
}

func resize(s []float64, n int) []float64 {
	if cap(s) < n {
		return make([]float64, n)
	}
	return s[:n]
}
