// SPDX-License-Identifier: MIT
package analysis

import "math"

// MinBands is the smallest band count a BinMap is built with.
const MinBands = 8

// BinRange is a half-open range [Start, End) of FFT bin indices.
type BinRange struct {
	Start int
	End   int
}

// Width returns the number of bins covered by r.
func (r BinRange) Width() int { return r.End - r.Start }

// BinMapParams are the inputs of a bin map. Two maps built from equal params
// are identical.
type BinMapParams struct {
	Bands      int
	MinHz      float64
	MaxHz      float64
	SampleRate float64
	FFTSize    int
}

// Normalize clamps p into a buildable set: Bands >= MinBands, MaxHz in
// (0, Nyquist] and 0 < MinHz < MaxHz.
func (p BinMapParams) Normalize() BinMapParams {
	if p.Bands < MinBands {
		p.Bands = MinBands
	}
	if p.FFTSize < 2 {
		p.FFTSize = 2
	}
	if p.SampleRate <= 0 || math.IsNaN(p.SampleRate) {
		p.SampleRate = 44100
	}
	nyquist := p.SampleRate / 2
	if p.MaxHz <= 0 || p.MaxHz > nyquist || math.IsNaN(p.MaxHz) {
		p.MaxHz = nyquist
	}
	if p.MinHz <= 0 || p.MinHz >= p.MaxHz || math.IsNaN(p.MinHz) {
		p.MinHz = math.Min(20, p.MaxHz/2)
	}
	return p
}

// BuildBinMap splits the FFTSize/2 magnitude bins into p.Bands log-spaced
// ranges between MinHz and MaxHz, reusing dst when it has room.
//
// Every range is non-empty and starts at or after the end of the previous
// one. When there are more bands than distinct bins the ranges run past the
// last bin; readers treat those bins as silent.
func BuildBinMap(dst []BinRange, p BinMapParams) []BinRange {
	p = p.Normalize()
	if cap(dst) < p.Bands {
		dst = make([]BinRange, p.Bands)
	}
	dst = dst[:p.Bands]

	nyquist := p.SampleRate / 2
	bins := float64(p.FFTSize / 2)
	logMin := math.Log10(p.MinHz)
	logSpan := math.Log10(p.MaxHz) - logMin
	toBin := func(t float64) int {
		hz := math.Pow(10, logMin+t*logSpan)
		return int(math.Floor(hz / nyquist * bins))
	}

	prevEnd := 0
	n := float64(p.Bands)
	for i := range dst {
		start := toBin(float64(i) / n)
		end := toBin(float64(i+1) / n)
		if start < prevEnd {
			start = prevEnd
		}
		if end < start+1 {
			end = start + 1
		}
		dst[i] = BinRange{Start: start, End: end}
		prevEnd = end
	}
	return dst
}

// BinMap caches a built map and rebuilds it only when its params change.
type BinMap struct {
	params BinMapParams
	ranges []BinRange
	built  bool
}

// Update rebuilds the map if p differs from the params it was last built
// with and reports whether it did.
func (m *BinMap) Update(p BinMapParams) bool {
	p = p.Normalize()
	if m.built && p == m.params {
		return false
	}
	m.ranges = BuildBinMap(m.ranges, p)
	m.params = p
	m.built = true
	return true
}

// Invalidate forces the next Update to rebuild.
func (m *BinMap) Invalidate() { m.built = false }

// Ranges returns the current ranges. The slice is reused across rebuilds.
func (m *BinMap) Ranges() []BinRange { return m.ranges }

// Len returns the current band count.
func (m *BinMap) Len() int { return len(m.ranges) }

// Params returns the normalized params of the current map.
func (m *BinMap) Params() BinMapParams { return m.params }
