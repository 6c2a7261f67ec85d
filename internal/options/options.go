// SPDX-License-Identifier: MIT
/*
Package options holds every tunable of the visualizer and the runtime
parameters interpolated from them.

Options is treated as immutable by convention: callers replace it wholesale
or merge a Partial into a copy. Normalize clamps out-of-range values instead
of failing.
*/
package options

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"waveviz/pkg/bitint"
)

// Mode selects the rendering strategy.
type Mode string

const (
	ModeCircular Mode = "circular"
	ModeLinear   Mode = "linear"
)

// CenterFill selects how the inside of the circular ring is painted.
type CenterFill string

const (
	CenterNone  CenterFill = "none"
	CenterSolid CenterFill = "solid"
	CenterGlow  CenterFill = "glow"
)

// Defaults and hard limits for the visualizer options.
const (
	DefaultFFTSize         = 2048
	DefaultMinHz           = 30.0
	DefaultMaxHz           = 16000.0
	DefaultBars            = 96
	DefaultAttack          = 0.55
	DefaultRelease         = 0.12
	DefaultNoiseFloor      = 0.08
	DefaultCurve           = 1.35
	DefaultGain            = 1.2
	DefaultRadius          = 140.0
	DefaultMaxBarLength    = 120.0
	DefaultRotateSpeed     = 0.15 // radians per second
	DefaultBaseSpawnRate   = 18.0 // particles per second
	DefaultMaxSpawnRate    = 220.0
	DefaultParticleSpeed   = 60.0 // pixels per second
	DefaultParticleLifeMin = 0.8  // seconds
	DefaultParticleLifeMax = 2.2
	DefaultParticleCap     = 700
	DefaultSpectrumColor   = "90, 160, 255"
	DefaultParticleColor   = "180, 220, 255"
	DefaultGlowColor       = "90, 160, 255"
	DefaultTrailAlpha      = 0.18
	DefaultShakeIntensity  = 6.0
	DefaultShakeThreshold  = 0.45
	DefaultShakeDecay      = 9.0 // 1/s
	DefaultVignette        = 0.55
	DefaultBarWidth        = 6.0
	DefaultBarSpacing      = 3.0
	DefaultBarOffset       = 24.0
	DefaultLinearBars      = 64

	MinBars    = 8
	MaxBars    = 512
	MinFFTSize = 32
	MaxFFTSize = 32768
	MaxBand    = 1.6 // upper clamp of a smoothed band value
)

// Options is the full set of visualizer tunables.
type Options struct {
	// Analysis
	FFTSize    int     `yaml:"fft_size" json:"fftSize"`
	MinHz      float64 `yaml:"min_hz" json:"minHz"`
	MaxHz      float64 `yaml:"max_hz" json:"maxHz"`
	Bars       int     `yaml:"bars" json:"bars"`
	Attack     float64 `yaml:"attack" json:"attack"`
	Release    float64 `yaml:"release" json:"release"`
	NoiseFloor float64 `yaml:"noise_floor" json:"noiseFloor"`
	Curve      float64 `yaml:"curve" json:"curve"`
	Gain       float64 `yaml:"gain" json:"gain"`

	// Geometry
	Mode         Mode       `yaml:"mode" json:"mode"`
	Radius       float64    `yaml:"radius" json:"radius"`
	MaxBarLength float64    `yaml:"max_bar_length" json:"maxBarLength"`
	RotateSpeed  float64    `yaml:"rotate_speed" json:"rotateSpeed"`
	Border       bool       `yaml:"border" json:"border"`
	CenterFill   CenterFill `yaml:"center_fill" json:"centerFill"`
	BarWidth     float64    `yaml:"bar_width" json:"barWidth"`
	BarSpacing   float64    `yaml:"bar_spacing" json:"barSpacing"`
	BarOffset    float64    `yaml:"bar_offset" json:"barOffset"`
	LinearBars   int        `yaml:"linear_bars" json:"linearBars"`

	// Particles
	ParticleEnabled bool    `yaml:"particle_enabled" json:"particleEnabled"`
	BaseSpawnRate   float64 `yaml:"base_spawn_rate" json:"baseSpawnRate"`
	MaxSpawnRate    float64 `yaml:"max_spawn_rate" json:"maxSpawnRate"`
	ParticleSpeed   float64 `yaml:"particle_speed" json:"particleSpeed"`
	ParticleLifeMin float64 `yaml:"particle_life_min" json:"particleLifeMin"`
	ParticleLifeMax float64 `yaml:"particle_life_max" json:"particleLifeMax"`
	ParticleCap     int     `yaml:"particle_cap" json:"particleCap"`

	// Colors and post effects
	SpectrumColor  string  `yaml:"spectrum_color" json:"spectrumColor"`
	ParticleColor  string  `yaml:"particle_color" json:"particleColor"`
	GlowColor      string  `yaml:"glow_color" json:"glowColor"`
	TrailsEnabled  bool    `yaml:"trails_enabled" json:"trailsEnabled"`
	TrailAlpha     float64 `yaml:"trail_alpha" json:"trailAlpha"`
	ShakeIntensity float64 `yaml:"shake_intensity" json:"shakeIntensity"`
	ShakeThreshold float64 `yaml:"shake_threshold" json:"shakeThreshold"`
	ShakeDecay     float64 `yaml:"shake_decay" json:"shakeDecay"`
	Vignette       float64 `yaml:"vignette" json:"vignette"`
}

// Defaults returns the stock option set.
func Defaults() Options {
	return Options{
		FFTSize:         DefaultFFTSize,
		MinHz:           DefaultMinHz,
		MaxHz:           DefaultMaxHz,
		Bars:            DefaultBars,
		Attack:          DefaultAttack,
		Release:         DefaultRelease,
		NoiseFloor:      DefaultNoiseFloor,
		Curve:           DefaultCurve,
		Gain:            DefaultGain,
		Mode:            ModeCircular,
		Radius:          DefaultRadius,
		MaxBarLength:    DefaultMaxBarLength,
		RotateSpeed:     DefaultRotateSpeed,
		Border:          true,
		CenterFill:      CenterGlow,
		BarWidth:        DefaultBarWidth,
		BarSpacing:      DefaultBarSpacing,
		BarOffset:       DefaultBarOffset,
		LinearBars:      DefaultLinearBars,
		ParticleEnabled: true,
		BaseSpawnRate:   DefaultBaseSpawnRate,
		MaxSpawnRate:    DefaultMaxSpawnRate,
		ParticleSpeed:   DefaultParticleSpeed,
		ParticleLifeMin: DefaultParticleLifeMin,
		ParticleLifeMax: DefaultParticleLifeMax,
		ParticleCap:     DefaultParticleCap,
		SpectrumColor:   DefaultSpectrumColor,
		ParticleColor:   DefaultParticleColor,
		GlowColor:       DefaultGlowColor,
		TrailAlpha:      DefaultTrailAlpha,
		ShakeIntensity:  DefaultShakeIntensity,
		ShakeThreshold:  DefaultShakeThreshold,
		ShakeDecay:      DefaultShakeDecay,
		Vignette:        DefaultVignette,
	}
}

// Normalize returns a copy with every field clamped into its usable range.
// The frequency bounds are clamped against Nyquist separately by the bin
// mapper, which knows the sample rate.
func (o Options) Normalize() Options {
	o.FFTSize = bitint.ClampPowerOfTwo(o.FFTSize, MinFFTSize, MaxFFTSize)
	o.Bars = clampInt(o.Bars, MinBars, MaxBars)
	if o.MinHz <= 0 || math.IsNaN(o.MinHz) {
		o.MinHz = DefaultMinHz
	}
	if o.MaxHz <= o.MinHz || math.IsNaN(o.MaxHz) {
		o.MaxHz = math.Max(DefaultMaxHz, o.MinHz*2)
	}
	o.Attack = clamp(o.Attack, 0, 1)
	o.Release = clamp(o.Release, 0, 1)
	o.NoiseFloor = clamp(o.NoiseFloor, 0, 0.99)
	if o.Curve <= 0 {
		o.Curve = DefaultCurve
	}
	o.Gain = math.Max(0, o.Gain)

	switch o.Mode {
	case ModeCircular, ModeLinear:
	default:
		o.Mode = ModeCircular
	}
	switch o.CenterFill {
	case CenterNone, CenterSolid, CenterGlow:
	default:
		o.CenterFill = CenterNone
	}
	o.Radius = math.Max(0, o.Radius)
	o.MaxBarLength = math.Max(0, o.MaxBarLength)
	o.BarWidth = math.Max(1, o.BarWidth)
	o.BarSpacing = math.Max(0, o.BarSpacing)
	if o.LinearBars < 1 {
		o.LinearBars = DefaultLinearBars
	}

	o.BaseSpawnRate = math.Max(0, o.BaseSpawnRate)
	o.MaxSpawnRate = math.Max(o.BaseSpawnRate, o.MaxSpawnRate)
	o.ParticleSpeed = math.Max(0, o.ParticleSpeed)
	o.ParticleLifeMin = math.Max(0.01, o.ParticleLifeMin)
	o.ParticleLifeMax = math.Max(o.ParticleLifeMin, o.ParticleLifeMax)
	if o.ParticleCap < 1 {
		o.ParticleCap = DefaultParticleCap
	}

	o.TrailAlpha = clamp(o.TrailAlpha, 0, 1)
	o.ShakeIntensity = math.Max(0, o.ShakeIntensity)
	o.ShakeThreshold = math.Max(0, o.ShakeThreshold)
	o.ShakeDecay = math.Max(0, o.ShakeDecay)
	o.Vignette = clamp(o.Vignette, 0, 1)
	return o
}

// MapperChanged reports whether switching from o to n requires the bin map
// to be rebuilt.
func (o Options) MapperChanged(n Options) bool {
	return o.Bars != n.Bars || o.MinHz != n.MinHz || o.MaxHz != n.MaxHz || o.FFTSize != n.FFTSize
}

// RGB is an 8-bit color triple.
type RGB struct {
	R, G, B uint8
}

// ParseRGB parses a "r, g, b" triple. Components are clamped to 0-255.
func ParseRGB(s string) (RGB, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return RGB{}, fmt.Errorf("color %q: expected 3 components, got %d", s, len(parts))
	}
	var c [3]uint8
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return RGB{}, fmt.Errorf("color %q: %w", s, err)
		}
		c[i] = uint8(clamp(math.Round(v), 0, 255))
	}
	return RGB{R: c[0], G: c[1], B: c[2]}, nil
}

// MustRGB parses s and falls back to fallback when s is malformed.
func MustRGB(s, fallback string) RGB {
	if c, err := ParseRGB(s); err == nil {
		return c
	}
	c, _ := ParseRGB(fallback)
	return c
}

// Palette is the parsed color set used by the renderers.
type Palette struct {
	Spectrum RGB
	Particle RGB
	Glow     RGB
}

// Palette parses the three configured colors, substituting defaults for
// malformed entries.
func (o Options) Palette() Palette {
	return Palette{
		Spectrum: MustRGB(o.SpectrumColor, DefaultSpectrumColor),
		Particle: MustRGB(o.ParticleColor, DefaultParticleColor),
		Glow:     MustRGB(o.GlowColor, DefaultGlowColor),
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
