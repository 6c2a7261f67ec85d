// SPDX-License-Identifier: MIT
package analysis

import "math"

// Smoother constants.
const (
	CrossfadeSeconds = 0.22 // length of the band-count cross-fade
	MaxBandValue     = 1.6  // upper clamp of a shaped band
	BassFraction     = 0.2  // share of the lowest bands averaged into Bass
)

// Shaping holds the per-band transfer settings applied before smoothing.
type Shaping struct {
	Attack     float64 // blend rate while rising, [0, 1]
	Release    float64 // blend rate while falling, [0, 1]
	NoiseFloor float64 // subtracted from the normalized magnitude
	Curve      float64 // exponent applied after the noise floor
	Gain       float64
}

// Smoother turns raw band magnitudes into stable display values: fast attack,
// slow release, and a short cross-fade whenever the band count changes.
//
// The zero value is ready to use; Resize sets the band count.
type Smoother struct {
	values  []float64 // smoothed values for the current band count
	display []float64 // values as drawn, cross-fade applied
	prev    []float64 // displayed sequence before the last band-count change
	weight  float64   // share of prev in display, 1 -> 0 over CrossfadeSeconds

	energy float64
	bass   float64
}

// Resize sets the band count. When the count changes the current displayed
// sequence becomes the cross-fade source and the smoothed values restart
// from silence.
func (s *Smoother) Resize(n int) {
	if n < 0 {
		n = 0
	}
	if n == len(s.values) {
		return
	}
	if len(s.display) > 0 {
		s.prev = append(s.prev[:0], s.display...)
		s.weight = 1
	}
	s.values = make([]float64, n)
	s.display = make([]float64, n)
	if s.weight > 0 {
		for i := range s.display {
			s.display[i] = resampleAt(s.prev, i, n)
		}
	}
}

// Reset drops all history: values, the cross-fade and the aggregates.
func (s *Smoother) Reset() {
	clear(s.values)
	clear(s.display)
	s.prev = s.prev[:0]
	s.weight = 0
	s.energy, s.bass = 0, 0
}

// Update shapes one frame of spectrum into the bands described by ranges and
// recomputes Energy and Bass. Bins past the end of spectrum read as zero.
// len(ranges) must equal the size set by Resize; Update resizes otherwise.
func (s *Smoother) Update(spectrum []byte, ranges []BinRange, sh Shaping) {
	if len(ranges) != len(s.values) {
		s.Resize(len(ranges))
	}
	floor := math.Max(0, sh.NoiseFloor)
	curve := sh.Curve
	if curve <= 0 {
		curve = 1
	}
	n := len(s.values)
	var sum, bassSum float64
	bassN := BassBands(n)

	for i, r := range ranges {
		target := shape(bandAverage(spectrum, r), floor, curve, sh.Gain)

		v := s.values[i]
		if target > v {
			v += (target - v) * sh.Attack
		} else {
			v += (target - v) * sh.Release
		}
		s.values[i] = v

		if s.weight > 0 && len(s.prev) > 0 {
			w := s.weight
			v = resampleAt(s.prev, i, n)*w + v*(1-w)
		}
		s.display[i] = v
		sum += v
		if i < bassN {
			bassSum += v
		}
	}

	s.energy, s.bass = 0, 0
	if n > 0 {
		s.energy = sum / float64(n)
		s.bass = bassSum / float64(bassN)
	}
}

// Advance moves the cross-fade forward by dt seconds. Once the weight reaches
// zero the previous sequence is dropped.
func (s *Smoother) Advance(dt float64) {
	if s.weight <= 0 || dt <= 0 {
		return
	}
	s.weight -= dt / CrossfadeSeconds
	if s.weight <= 0 {
		s.weight = 0
		s.prev = s.prev[:0]
	}
}

// Bands returns the displayed band values. The slice is owned by the
// Smoother and valid until the next Update or Resize.
func (s *Smoother) Bands() []float64 { return s.display }

// Values returns the smoothed values without the cross-fade applied.
func (s *Smoother) Values() []float64 { return s.values }

// Energy is the mean of the displayed bands.
func (s *Smoother) Energy() float64 { return s.energy }

// Bass is the mean of the lowest BassFraction of the displayed bands.
func (s *Smoother) Bass() float64 { return s.bass }

// Weight is the current cross-fade weight in [0, 1].
func (s *Smoother) Weight() float64 { return s.weight }

// Len returns the band count.
func (s *Smoother) Len() int { return len(s.values) }

// BassBands returns how many of n bands count as bass, at least one.
func BassBands(n int) int {
	b := int(float64(n) * BassFraction)
	if b < 1 {
		b = 1
	}
	if b > n && n > 0 {
		b = n
	}
	return b
}

func bandAverage(spectrum []byte, r BinRange) float64 {
	w := r.End - r.Start
	if w <= 0 {
		return 0
	}
	var sum int
	for b := r.Start; b < r.End && b < len(spectrum); b++ {
		if b >= 0 {
			sum += int(spectrum[b])
		}
	}
	return float64(sum) / float64(w)
}

func shape(raw, floor, curve, gain float64) float64 {
	v := raw/255 - floor
	if v <= 0 {
		return 0
	}
	v = math.Pow(v, curve) * gain
	if v > MaxBandValue || math.IsInf(v, 1) {
		return MaxBandValue
	}
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

// resampleAt linearly interpolates src at the position of index i in a
// sequence of length n stretched over the same span.
func resampleAt(src []float64, i, n int) float64 {
	switch len(src) {
	case 0:
		return 0
	case 1:
		return src[0]
	}
	if n <= 1 {
		return src[0]
	}
	pos := float64(i) * float64(len(src)-1) / float64(n-1)
	lo := int(pos)
	if lo >= len(src)-1 {
		return src[len(src)-1]
	}
	frac := pos - float64(lo)
	return src[lo]*(1-frac) + src[lo+1]*frac
}

// Resample fills dst with src linearly resampled to len(dst).
func Resample(dst, src []float64) {
	for i := range dst {
		dst[i] = resampleAt(src, i, len(dst))
	}
}
