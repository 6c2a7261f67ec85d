// SPDX-License-Identifier: MIT
package render

import (
	"waveviz/internal/draw"
	"waveviz/internal/options"
)

// Linear bar styling.
const (
	LinearHeightScale = 2.0 // bar height per unit band value, in MaxBarLength
	BarShadowBlur     = 14.0
	BarAlpha          = 0.95
	MinBarHeight      = 0.5
)

// Linear is the bottom-anchored "monstercat" bar mode. It samples up to
// LinearBars of the bands evenly and draws no particles.
type Linear struct{}

func (Linear) Mode() options.Mode { return options.ModeLinear }

func (Linear) Render(l *draw.List, f *Frame) {
	o, p, pal := f.Options, f.Params, f.Palette
	count := min(o.LinearBars, len(f.Bands))
	if count <= 0 {
		return
	}
	s := f.scale()
	w, h := f.Width/s, f.Height/s
	total := float64(count)*o.BarWidth + float64(count-1)*o.BarSpacing
	x0 := (w - total) / 2
	base := h - o.BarOffset
	maxH := base

	shakeX, shakeY := 0.0, 0.0
	if f.Motion != nil {
		shakeX, shakeY = f.Motion.ShakeX, f.Motion.ShakeY
	}

	l.Save()
	l.Translate(shakeX*s, shakeY*s)
	l.Scale(s, s)
	l.SetShadow(BarShadowBlur, rgba(pal.Glow, 0.8))
	l.SetFill(rgba(pal.Spectrum, BarAlpha))
	for i := range count {
		v := f.Bands[BarIndex(i, count, len(f.Bands))]
		bh := min(v*p.MaxBarLength*LinearHeightScale, maxH)
		if bh < MinBarHeight {
			continue
		}
		x := x0 + float64(i)*(o.BarWidth+o.BarSpacing)
		l.FillRect(x, base-bh, o.BarWidth, bh)
	}
	l.SetShadow(0, draw.Transparent)

	if o.Border {
		l.BeginPath()
		l.MoveTo(x0, base+2)
		l.LineTo(x0+total, base+2)
		l.SetStroke(rgba(pal.Spectrum, BorderAlpha))
		l.SetLineWidth(1)
		l.Stroke()
	}
	l.Restore()
}

// BarIndex returns the band sampled for bar i of count over n bands.
func BarIndex(i, count, n int) int {
	if count <= 0 {
		return 0
	}
	return i * n / count
}
