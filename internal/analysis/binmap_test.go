// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"testing"
)

func checkRanges(t *testing.T, ranges []BinRange, bands int) {
	t.Helper()
	if len(ranges) != bands {
		t.Fatalf("got %d ranges, want %d", len(ranges), bands)
	}
	for i, r := range ranges {
		if r.End <= r.Start {
			t.Fatalf("range %d empty: %+v", i, r)
		}
		if i > 0 && r.Start < ranges[i-1].End {
			t.Fatalf("range %d %+v overlaps previous %+v", i, r, ranges[i-1])
		}
	}
}

func TestBuildBinMapShape(t *testing.T) {
	tests := []struct {
		bands   int
		fftSize int
		minHz   float64
		maxHz   float64
	}{
		{8, 2048, 30, 16000},
		{16, 512, 20, 20000},
		{64, 2048, 30, 16000},
		{128, 2048, 30, 16000},
		{128, 256, 30, 16000}, // more bands than bins
		{512, 32768, 30, 16000},
		{512, 32, 1, 22050},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dx%d", tt.bands, tt.fftSize), func(t *testing.T) {
			ranges := BuildBinMap(nil, BinMapParams{
				Bands: tt.bands, MinHz: tt.minHz, MaxHz: tt.maxHz,
				SampleRate: 44100, FFTSize: tt.fftSize,
			})
			checkRanges(t, ranges, tt.bands)
		})
	}
}

func TestBuildBinMapClamps(t *testing.T) {
	ranges := BuildBinMap(nil, BinMapParams{Bands: 3, MinHz: -10, MaxHz: 1e9, SampleRate: 48000, FFTSize: 1024})
	checkRanges(t, ranges, MinBands)

	p := BinMapParams{Bands: 3, MinHz: 500, MaxHz: 100, SampleRate: 48000, FFTSize: 1024}.Normalize()
	if p.MaxHz != 100 || p.MinHz <= 0 || p.MinHz >= p.MaxHz {
		t.Errorf("inverted bounds not repaired: %+v", p)
	}
	p = BinMapParams{Bands: 16, MinHz: 30, MaxHz: 30000, SampleRate: 44100, FFTSize: 1024}.Normalize()
	if p.MaxHz != 22050 {
		t.Errorf("MaxHz = %v, want Nyquist 22050", p.MaxHz)
	}
}

func TestBuildBinMapMinHz(t *testing.T) {
	base := BinMapParams{Bands: 32, MinHz: 30, MaxHz: 16000, SampleRate: 44100, FFTSize: 4096}
	prev := BuildBinMap(nil, base)
	prevStart := prev[0].Start

	for _, minHz := range []float64{60, 120, 250, 500, 1000} {
		p := base
		p.MinHz = minHz
		got := BuildBinMap(nil, p)
		checkRanges(t, got, base.Bands)

		if got[0].Start < prevStart {
			t.Errorf("minHz %v: first start %d decreased from %d", minHz, got[0].Start, prevStart)
		}
		same := true
		for i := range got {
			if got[i] != prev[i] {
				same = false
				break
			}
		}
		if same {
			t.Errorf("minHz %v: ranges unchanged", minHz)
		}
		prev, prevStart = got, got[0].Start
	}
}

func TestBinMapUpdate(t *testing.T) {
	var m BinMap
	p := BinMapParams{Bands: 24, MinHz: 30, MaxHz: 16000, SampleRate: 44100, FFTSize: 2048}

	if !m.Update(p) {
		t.Fatal("first update should build")
	}
	if m.Update(p) {
		t.Error("identical params should not rebuild")
	}
	p.Bands = 48
	if !m.Update(p) || m.Len() != 48 {
		t.Errorf("band change: rebuilt with %d ranges, want 48", m.Len())
	}
	m.Invalidate()
	if !m.Update(p) {
		t.Error("invalidated map should rebuild")
	}

	allocs := testing.AllocsPerRun(100, func() {
		m.Update(p)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations for an unchanged map, got %.1f", allocs)
	}
}
