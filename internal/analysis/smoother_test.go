// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"

	"waveviz/pkg/utils"
)

var testShaping = Shaping{Attack: 0.55, Release: 0.12, NoiseFloor: 0.08, Curve: 1.35, Gain: 1.2}

func testRanges(bands int) []BinRange {
	return BuildBinMap(nil, BinMapParams{Bands: bands, MinHz: 30, MaxHz: 16000, SampleRate: 44100, FFTSize: 2048})
}

func TestSmootherAttackFasterThanRelease(t *testing.T) {
	ranges := testRanges(16)
	full := utils.ConstantSpectrum(1024, 255)
	silent := make([]byte, 1024)
	target := shape(255, testShaping.NoiseFloor, testShaping.Curve, testShaping.Gain)

	var s Smoother
	rise := 0
	prev := 0.0
	for s.Len() == 0 || s.Values()[0] < 0.9*target {
		s.Update(full, ranges, testShaping)
		v := s.Values()[0]
		if v < prev || v > target+1e-9 {
			t.Fatalf("rise not monotonic toward %v: %v after %v", target, v, prev)
		}
		prev = v
		rise++
		if rise > 1000 {
			t.Fatal("never reached target")
		}
	}

	fall := 0
	for s.Values()[0] > 0.1*target {
		s.Update(silent, ranges, testShaping)
		v := s.Values()[0]
		if v > prev {
			t.Fatalf("fall not monotonic: %v after %v", v, prev)
		}
		prev = v
		fall++
		if fall > 1000 {
			t.Fatal("never decayed")
		}
	}

	if rise >= fall {
		t.Errorf("attack took %d frames, release %d; attack should be faster", rise, fall)
	}
}

func TestSmootherEnergyAndBass(t *testing.T) {
	ranges := testRanges(10)
	spec := make([]byte, 1024)
	// Only the lowest two bands (20% of 10) see signal.
	for b := ranges[0].Start; b < ranges[1].End; b++ {
		spec[b] = 255
	}
	s := Smoother{}
	sh := testShaping
	sh.Attack = 1
	s.Update(spec, ranges, sh)

	bands := s.Bands()
	if bands[0] == 0 || bands[2] != 0 {
		t.Fatalf("unexpected bands %v", bands)
	}
	wantBass := (bands[0] + bands[1]) / 2
	if math.Abs(s.Bass()-wantBass) > 1e-12 {
		t.Errorf("Bass = %v, want %v", s.Bass(), wantBass)
	}
	if math.Abs(s.Energy()-(bands[0]+bands[1])/10) > 1e-12 {
		t.Errorf("Energy = %v", s.Energy())
	}
	if BassBands(3) != 1 || BassBands(128) != 25 {
		t.Errorf("BassBands(3)=%d BassBands(128)=%d", BassBands(3), BassBands(128))
	}
}

func TestSmootherClampsAndReadsPastSpectrum(t *testing.T) {
	var s Smoother
	ranges := []BinRange{{0, 2}, {2, 4}, {4, 8}, {8, 10}, {10, 12}, {12, 14}, {14, 16}, {16, 20}}
	spec := utils.ConstantSpectrum(12, 255) // ranges run past the end
	sh := testShaping
	sh.Attack, sh.Gain = 1, 100
	s.Update(spec, ranges, sh)

	for i, v := range s.Bands() {
		if v < 0 || v > MaxBandValue {
			t.Errorf("band %d = %v outside [0, %v]", i, v, MaxBandValue)
		}
	}
	if s.Bands()[7] != 0 {
		t.Errorf("band past the spectrum = %v, want 0", s.Bands()[7])
	}
}

func TestSmootherCrossfade(t *testing.T) {
	full := utils.ConstantSpectrum(1024, 255)
	silent := make([]byte, 1024)

	var s Smoother
	old := testRanges(8)
	for i := range 4 {
		// Uneven history so the resample is not trivially constant.
		spec := silent
		if i%2 == 0 {
			spec = full
		}
		s.Update(spec, old, testShaping)
	}
	prev := append([]float64(nil), s.Bands()...)

	next := testRanges(20)
	s.Resize(len(next))
	if s.Weight() != 1 {
		t.Fatalf("weight after resize = %v, want 1", s.Weight())
	}

	s.Update(full, next, testShaping)
	want := make([]float64, len(next))
	Resample(want, prev)
	for i, v := range s.Bands() {
		if math.Abs(v-want[i]) > 1e-12 {
			t.Fatalf("band %d at weight 1 = %v, want resampled %v", i, v, want[i])
		}
	}

	s.Advance(CrossfadeSeconds / 2)
	if w := s.Weight(); math.Abs(w-0.5) > 1e-9 {
		t.Errorf("weight halfway = %v, want 0.5", w)
	}
	s.Advance(CrossfadeSeconds)
	if s.Weight() != 0 {
		t.Fatalf("weight after fade = %v, want 0", s.Weight())
	}

	s.Update(full, next, testShaping)
	for i, v := range s.Bands() {
		if v != s.Values()[i] {
			t.Fatalf("band %d at weight 0 = %v, want pure %v", i, v, s.Values()[i])
		}
	}
}

func TestResample(t *testing.T) {
	dst := make([]float64, 5)
	Resample(dst, []float64{0, 1})
	want := []float64{0, 0.25, 0.5, 0.75, 1}
	for i := range dst {
		if math.Abs(dst[i]-want[i]) > 1e-12 {
			t.Errorf("Resample[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
	one := make([]float64, 1)
	Resample(one, []float64{3, 4})
	if one[0] != 3 {
		t.Errorf("Resample to one value = %v, want 3", one[0])
	}
}

func TestSmootherImpulse(t *testing.T) {
	ranges := testRanges(128)
	silent := make([]byte, 1024)
	impulse := utils.ConstantSpectrum(1024, 255)

	var s Smoother
	for range 10 {
		s.Update(silent, ranges, testShaping)
	}
	s.Update(impulse, ranges, testShaping)
	peak := s.Values()[64]
	target := shape(255, testShaping.NoiseFloor, testShaping.Curve, testShaping.Gain)
	if peak < 0.5*target {
		t.Fatalf("impulse frame reached %v, want a sharp rise toward %v", peak, target)
	}

	prev := peak
	for i := range 5 {
		s.Update(silent, ranges, testShaping)
		v := s.Values()[64]
		if v >= prev || v == 0 {
			t.Fatalf("frame %d after impulse: %v, want gradual decay below %v", i, v, prev)
		}
		prev = v
	}
}

func TestSmootherUpdateZeroAllocs(t *testing.T) {
	ranges := testRanges(96)
	spec := utils.ConstantSpectrum(1024, 128)
	var s Smoother
	s.Update(spec, ranges, testShaping)

	allocs := testing.AllocsPerRun(100, func() {
		s.Update(spec, ranges, testShaping)
		s.Advance(1.0 / 60)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Smoother.Update, got %.1f", allocs)
	}
}
