// SPDX-License-Identifier: MIT
package options

// Partial is a sparse update to Options. Nil fields are left untouched by
// Merge. Settings forms send these as JSON over the preview socket.
type Partial struct {
	FFTSize    *int     `yaml:"fft_size,omitempty" json:"fftSize,omitempty"`
	MinHz      *float64 `yaml:"min_hz,omitempty" json:"minHz,omitempty"`
	MaxHz      *float64 `yaml:"max_hz,omitempty" json:"maxHz,omitempty"`
	Bars       *int     `yaml:"bars,omitempty" json:"bars,omitempty"`
	Attack     *float64 `yaml:"attack,omitempty" json:"attack,omitempty"`
	Release    *float64 `yaml:"release,omitempty" json:"release,omitempty"`
	NoiseFloor *float64 `yaml:"noise_floor,omitempty" json:"noiseFloor,omitempty"`
	Curve      *float64 `yaml:"curve,omitempty" json:"curve,omitempty"`
	Gain       *float64 `yaml:"gain,omitempty" json:"gain,omitempty"`

	Mode         *Mode       `yaml:"mode,omitempty" json:"mode,omitempty"`
	Radius       *float64    `yaml:"radius,omitempty" json:"radius,omitempty"`
	MaxBarLength *float64    `yaml:"max_bar_length,omitempty" json:"maxBarLength,omitempty"`
	RotateSpeed  *float64    `yaml:"rotate_speed,omitempty" json:"rotateSpeed,omitempty"`
	Border       *bool       `yaml:"border,omitempty" json:"border,omitempty"`
	CenterFill   *CenterFill `yaml:"center_fill,omitempty" json:"centerFill,omitempty"`
	BarWidth     *float64    `yaml:"bar_width,omitempty" json:"barWidth,omitempty"`
	BarSpacing   *float64    `yaml:"bar_spacing,omitempty" json:"barSpacing,omitempty"`
	BarOffset    *float64    `yaml:"bar_offset,omitempty" json:"barOffset,omitempty"`
	LinearBars   *int        `yaml:"linear_bars,omitempty" json:"linearBars,omitempty"`

	ParticleEnabled *bool    `yaml:"particle_enabled,omitempty" json:"particleEnabled,omitempty"`
	BaseSpawnRate   *float64 `yaml:"base_spawn_rate,omitempty" json:"baseSpawnRate,omitempty"`
	MaxSpawnRate    *float64 `yaml:"max_spawn_rate,omitempty" json:"maxSpawnRate,omitempty"`
	ParticleSpeed   *float64 `yaml:"particle_speed,omitempty" json:"particleSpeed,omitempty"`
	ParticleLifeMin *float64 `yaml:"particle_life_min,omitempty" json:"particleLifeMin,omitempty"`
	ParticleLifeMax *float64 `yaml:"particle_life_max,omitempty" json:"particleLifeMax,omitempty"`
	ParticleCap     *int     `yaml:"particle_cap,omitempty" json:"particleCap,omitempty"`

	SpectrumColor  *string  `yaml:"spectrum_color,omitempty" json:"spectrumColor,omitempty"`
	ParticleColor  *string  `yaml:"particle_color,omitempty" json:"particleColor,omitempty"`
	GlowColor      *string  `yaml:"glow_color,omitempty" json:"glowColor,omitempty"`
	TrailsEnabled  *bool    `yaml:"trails_enabled,omitempty" json:"trailsEnabled,omitempty"`
	TrailAlpha     *float64 `yaml:"trail_alpha,omitempty" json:"trailAlpha,omitempty"`
	ShakeIntensity *float64 `yaml:"shake_intensity,omitempty" json:"shakeIntensity,omitempty"`
	ShakeThreshold *float64 `yaml:"shake_threshold,omitempty" json:"shakeThreshold,omitempty"`
	ShakeDecay     *float64 `yaml:"shake_decay,omitempty" json:"shakeDecay,omitempty"`
	Vignette       *float64 `yaml:"vignette,omitempty" json:"vignette,omitempty"`
}

// Merge returns o with every non-nil field of p applied, normalized.
func (o Options) Merge(p Partial) Options {
	set(&o.FFTSize, p.FFTSize)
	set(&o.MinHz, p.MinHz)
	set(&o.MaxHz, p.MaxHz)
	set(&o.Bars, p.Bars)
	set(&o.Attack, p.Attack)
	set(&o.Release, p.Release)
	set(&o.NoiseFloor, p.NoiseFloor)
	set(&o.Curve, p.Curve)
	set(&o.Gain, p.Gain)

	set(&o.Mode, p.Mode)
	set(&o.Radius, p.Radius)
	set(&o.MaxBarLength, p.MaxBarLength)
	set(&o.RotateSpeed, p.RotateSpeed)
	set(&o.Border, p.Border)
	set(&o.CenterFill, p.CenterFill)
	set(&o.BarWidth, p.BarWidth)
	set(&o.BarSpacing, p.BarSpacing)
	set(&o.BarOffset, p.BarOffset)
	set(&o.LinearBars, p.LinearBars)

	set(&o.ParticleEnabled, p.ParticleEnabled)
	set(&o.BaseSpawnRate, p.BaseSpawnRate)
	set(&o.MaxSpawnRate, p.MaxSpawnRate)
	set(&o.ParticleSpeed, p.ParticleSpeed)
	set(&o.ParticleLifeMin, p.ParticleLifeMin)
	set(&o.ParticleLifeMax, p.ParticleLifeMax)
	set(&o.ParticleCap, p.ParticleCap)

	set(&o.SpectrumColor, p.SpectrumColor)
	set(&o.ParticleColor, p.ParticleColor)
	set(&o.GlowColor, p.GlowColor)
	set(&o.TrailsEnabled, p.TrailsEnabled)
	set(&o.TrailAlpha, p.TrailAlpha)
	set(&o.ShakeIntensity, p.ShakeIntensity)
	set(&o.ShakeThreshold, p.ShakeThreshold)
	set(&o.ShakeDecay, p.ShakeDecay)
	set(&o.Vignette, p.Vignette)
	return o.Normalize()
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
