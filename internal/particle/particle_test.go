// SPDX-License-Identifier: MIT
package particle

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"waveviz/internal/draw"
)

func testConfig() Config {
	return Config{BaseRate: 18, MaxRate: 220, Speed: 60, LifeMin: 0.8, LifeMax: 2.2, Radius: 140, Cap: 700}
}

func TestPoolOverwritesOldest(t *testing.T) {
	p := NewPool(3)
	for i := range 5 {
		evicted := p.Add(Particle{X: float64(i), Life: 1})
		if want := i >= 3; evicted != want {
			t.Errorf("Add #%d evicted = %v, want %v", i, evicted, want)
		}
	}
	if p.Len() != 3 {
		t.Fatalf("Len = %d, want 3", p.Len())
	}
	for i, want := range []float64{2, 3, 4} {
		if got := p.At(i).X; got != want {
			t.Errorf("At(%d).X = %v, want %v", i, got, want)
		}
	}
}

func TestPoolSweepKeepsOrder(t *testing.T) {
	p := NewPool(4)
	for i := range 6 { // wraps the ring
		life := 1.0
		if i%2 == 1 {
			life = 0
		}
		p.Add(Particle{X: float64(i), Life: life})
	}
	p.Sweep()
	if p.Len() != 2 {
		t.Fatalf("Len after Sweep = %d, want 2", p.Len())
	}
	if p.At(0).X != 2 || p.At(1).X != 4 {
		t.Errorf("survivors = %v, %v; want 2, 4", p.At(0).X, p.At(1).X)
	}
}

func TestPoolSetCapKeepsNewest(t *testing.T) {
	p := NewPool(5)
	for i := range 5 {
		p.Add(Particle{X: float64(i), Life: 1})
	}
	p.SetCap(2)
	if p.Len() != 2 || p.Cap() != 2 {
		t.Fatalf("Len/Cap = %d/%d, want 2/2", p.Len(), p.Cap())
	}
	if p.At(0).X != 3 || p.At(1).X != 4 {
		t.Errorf("kept %v, %v; want 3, 4", p.At(0).X, p.At(1).X)
	}
	p.SetCap(0)
	if p.Cap() != 1 {
		t.Errorf("Cap after SetCap(0) = %d, want 1", p.Cap())
	}
}

func TestFieldNeverExceedsCap(t *testing.T) {
	caps := []int{1, 10, 700}
	for _, c := range caps {
		t.Run(fmt.Sprintf("cap=%d", c), func(t *testing.T) {
			cfg := testConfig()
			cfg.Cap = c
			cfg.BaseRate, cfg.MaxRate = 5000, 50000
			cfg.LifeMin, cfg.LifeMax = 100, 100
			rng := rand.New(rand.NewPCG(1, 2))

			var f Field
			for range 300 {
				f.Step(0.06, 1, cfg, rng)
				if f.Len() > c {
					t.Fatalf("pool holds %d particles, cap %d", f.Len(), c)
				}
			}
			if f.Len() != c {
				t.Errorf("saturated pool holds %d, want %d", f.Len(), c)
			}
		})
	}
}

func TestSpawnAccounting(t *testing.T) {
	tests := []struct {
		energy float64
		dt     float64
		frames int
	}{
		{0, 1.0 / 60, 600},
		{0.3, 1.0 / 60, 1000},
		{1, 1.0 / 144, 2000},
		{0.5, 0.037, 777},
	}
	cfg := testConfig()
	cfg.Cap = 1 << 16
	for _, tt := range tests {
		t.Run(fmt.Sprintf("e=%v/dt=%.4f", tt.energy, tt.dt), func(t *testing.T) {
			rng := rand.New(rand.NewPCG(7, 7))
			var f Field
			for range tt.frames {
				f.Spawn(tt.dt, tt.energy, cfg, rng)
			}
			want := Rate(cfg.BaseRate, cfg.MaxRate, tt.energy) * tt.dt * float64(tt.frames)
			if d := math.Abs(float64(f.Spawned()) - want); d > 1 {
				t.Errorf("spawned %d, want %.2f ± 1", f.Spawned(), want)
			}
		})
	}
}

func TestRate(t *testing.T) {
	tests := []struct {
		energy, want float64
	}{
		{0, 18},
		{0.4, 18 + 202*0.5},
		{0.8, 220},
		{5, 220},
		{-1, 18},
	}
	for _, tt := range tests {
		if got := Rate(18, 220, tt.energy); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Rate(energy=%v) = %v, want %v", tt.energy, got, tt.want)
		}
	}
}

func TestSpawnOnRing(t *testing.T) {
	cfg := testConfig()
	rng := rand.New(rand.NewPCG(3, 4))
	var f Field
	f.Pool().SetCap(cfg.Cap)
	f.Spawn(1, 1, cfg, rng)
	if f.Len() == 0 {
		t.Fatal("nothing spawned")
	}
	for i := range f.Len() {
		p := f.Pool().At(i)
		if r := math.Hypot(p.X, p.Y); math.Abs(r-cfg.Radius) > 1e-9 {
			t.Fatalf("particle %d spawned at radius %v", i, r)
		}
		// outward component stays within the radial jitter band
		radial := (p.X*p.VX + p.Y*p.VY) / cfg.Radius
		if radial < cfg.Speed*(1-RadialJitter)-1e-9 || radial > cfg.Speed*(1+RadialJitter)+1e-9 {
			t.Fatalf("particle %d radial speed %v out of range", i, radial)
		}
		if p.Life < cfg.LifeMin || p.Life > cfg.LifeMax {
			t.Fatalf("particle %d life %v out of bounds", i, p.Life)
		}
	}
}

func TestUpdateDragAndDeath(t *testing.T) {
	var f Field
	f.pool.SetCap(4)
	f.pool.Add(Particle{VX: 10, Life: 0.05, MaxLife: 1})
	f.pool.Add(Particle{VX: 10, Life: 1, MaxLife: 1})

	f.Update(0.1)
	if f.Len() != 1 {
		t.Fatalf("Len = %d, want 1 after the short-lived particle died", f.Len())
	}
	p := f.Pool().At(0)
	if math.Abs(p.X-1) > 1e-9 || math.Abs(p.VX-10*Drag) > 1e-9 {
		t.Errorf("after update: x=%v vx=%v", p.X, p.VX)
	}
}

func TestAlphaTriangle(t *testing.T) {
	tests := []struct {
		age, want float64
	}{
		{0, 0},
		{0.425, 0.5},
		{0.85, 1},
		{0.925, 0.5},
		{1, 0},
	}
	for _, tt := range tests {
		got := Alpha(1-tt.age, 1)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Alpha at age %v = %v, want %v", tt.age, got, tt.want)
		}
	}
	if Alpha(1, 0) != 0 {
		t.Error("zero max life should be invisible")
	}
}

func TestDrawSkipsInvisible(t *testing.T) {
	var f Field
	f.pool.SetCap(4)
	f.pool.Add(Particle{Life: 1, MaxLife: 1}) // just born, alpha 0
	f.pool.Add(Particle{Life: 0.5, MaxLife: 1})

	var l draw.List
	f.Draw(&l, draw.RGBA(255, 255, 255, 1), draw.RGBA(0, 0, 255, 1))
	if got := l.Count(draw.OpFill); got != 2 {
		t.Errorf("fills = %d, want 2 (glow and dot of one particle)", got)
	}
}

func TestStepZeroAllocs(t *testing.T) {
	cfg := testConfig()
	rng := rand.New(rand.NewPCG(1, 1))
	var f Field
	for range 200 {
		f.Step(1.0/60, 0.7, cfg, rng)
	}
	allocs := testing.AllocsPerRun(100, func() {
		f.Step(1.0/60, 0.7, cfg, rng)
	})
	if allocs != 0 {
		t.Errorf("Step allocates %v times per frame, want 0", allocs)
	}
}

func BenchmarkStep(b *testing.B) {
	cfg := testConfig()
	rng := rand.New(rand.NewPCG(1, 1))
	var f Field
	for b.Loop() {
		f.Step(1.0/60, 0.9, cfg, rng)
	}
}
