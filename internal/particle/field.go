// SPDX-License-Identifier: MIT
/*
Package particle simulates the energy driven particle halo drawn around the
circular spectrum.

A Field owns a bounded Pool and the fractional spawn remainder carried from
frame to frame, so the long run spawn count matches rate × time exactly.
*/
package particle

import (
	"math"
	"math/rand/v2"

	"waveviz/internal/draw"
)

// Physics and appearance constants.
const (
	Drag             = 0.985 // velocity multiplier per frame
	EnergySpawnScale = 1.25  // energy at 0.8 reaches the maximum spawn rate
	RadialJitter     = 0.3   // ± share of the particle speed
	TangentialJitter = 0.25  // ± share of the particle speed, sideways
	FadeIn           = 0.85  // share of the life spent fading in

	GlowRadius = 5.0
	DotRadius  = 1.4
	GlowAlpha  = 0.22
)

// Config is the per-frame spawn and physics input.
type Config struct {
	BaseRate float64 // particles per second at silence
	MaxRate  float64 // particles per second at full energy
	Speed    float64 // pixels per second
	LifeMin  float64 // seconds
	LifeMax  float64
	Radius   float64 // ring radius particles spawn on
	Cap      int
}

// Field is the particle system state: the pool and the spawn carry.
type Field struct {
	pool    Pool
	carry   float64
	spawned int
}

// Rate returns the spawn rate for energy: linear from base to max over
// min(1, energy·EnergySpawnScale).
func Rate(base, max, energy float64) float64 {
	t := math.Min(1, math.Max(0, energy*EnergySpawnScale))
	return base + (max-base)*t
}

// Step spawns the particles due over dt at the given energy and advances
// the whole field by dt. It returns the number spawned this frame.
func (f *Field) Step(dt, energy float64, cfg Config, rng *rand.Rand) int {
	if cfg.Cap > 0 && cfg.Cap != f.pool.Cap() {
		f.pool.SetCap(cfg.Cap)
	}
	n := f.Spawn(dt, energy, cfg, rng)
	f.Update(dt)
	return n
}

// Spawn adds floor(rate·dt + carry) particles on the ring and keeps the
// fractional remainder for the next frame.
func (f *Field) Spawn(dt, energy float64, cfg Config, rng *rand.Rand) int {
	if dt <= 0 {
		return 0
	}
	due := Rate(cfg.BaseRate, cfg.MaxRate, energy)*dt + f.carry
	n := int(math.Floor(due))
	f.carry = due - float64(n)
	if n <= 0 {
		return 0
	}

	lifeMin := math.Max(0.01, cfg.LifeMin)
	lifeMax := math.Max(lifeMin, cfg.LifeMax)
	for range n {
		a := rng.Float64() * 2 * math.Pi
		cos, sin := math.Cos(a), math.Sin(a)
		radial := cfg.Speed * (1 + (rng.Float64()*2-1)*RadialJitter)
		tangent := cfg.Speed * (rng.Float64()*2 - 1) * TangentialJitter
		life := lifeMin + rng.Float64()*(lifeMax-lifeMin)
		f.pool.Add(Particle{
			X:       cos * cfg.Radius,
			Y:       sin * cfg.Radius,
			VX:      cos*radial - sin*tangent,
			VY:      sin*radial + cos*tangent,
			Life:    life,
			MaxLife: life,
		})
	}
	f.spawned += n
	return n
}

// Update integrates every particle over dt and sweeps the dead.
func (f *Field) Update(dt float64) {
	if dt <= 0 {
		return
	}
	for i := range f.pool.Len() {
		p := f.pool.At(i)
		p.X += p.VX * dt
		p.Y += p.VY * dt
		p.VX *= Drag
		p.VY *= Drag
		p.Life -= dt
	}
	f.pool.Sweep()
}

// Reset removes all particles and the spawn carry.
func (f *Field) Reset() {
	f.pool.Clear()
	f.carry = 0
}

// Len returns the number of live particles.
func (f *Field) Len() int { return f.pool.Len() }

// Pool exposes the particle storage.
func (f *Field) Pool() *Pool { return &f.pool }

// Spawned returns the total number of particles spawned since creation.
func (f *Field) Spawned() int { return f.spawned }

// Alpha is the triangular fade of a particle: rising over the first FadeIn
// share of its life, falling over the rest.
func Alpha(life, maxLife float64) float64 {
	if maxLife <= 0 || life <= 0 {
		return 0
	}
	age := 1 - life/maxLife
	var a float64
	if age < FadeIn {
		a = age / FadeIn
	} else {
		a = (1 - age) / (1 - FadeIn)
	}
	return math.Min(1, math.Max(0, a))
}

// Draw records every particle as a soft glow disc under a sharp dot. The
// list should already be translated to the ring centre.
func (f *Field) Draw(l *draw.List, dot, glow draw.Color) {
	for i := range f.pool.Len() {
		p := f.pool.At(i)
		a := Alpha(p.Life, p.MaxLife)
		if a <= 0 {
			continue
		}
		l.SetFill(draw.RGBA(glow.R, glow.G, glow.B, a*GlowAlpha))
		l.BeginPath()
		l.Circle(p.X, p.Y, GlowRadius)
		l.Fill()

		l.SetFill(draw.RGBA(dot.R, dot.G, dot.B, a))
		l.BeginPath()
		l.Circle(p.X, p.Y, DotRadius)
		l.Fill()
	}
}
