// SPDX-License-Identifier: MIT
package options

import "math"

// ParamConvergence is the rate (1/s) at which Params chase their targets.
const ParamConvergence = 10.0

// Params is the runtime shadow of the continuous options. Each frame it
// moves exponentially toward the configured values so a slider change never
// produces a jump cut.
type Params struct {
	Gain           float64
	Radius         float64
	MaxBarLength   float64
	RotateSpeed    float64
	ParticleSpeed  float64
	ShakeIntensity float64
}

// ParamsFrom returns Params already settled on the values in o.
func ParamsFrom(o Options) Params {
	return Params{
		Gain:           o.Gain,
		Radius:         o.Radius,
		MaxBarLength:   o.MaxBarLength,
		RotateSpeed:    o.RotateSpeed,
		ParticleSpeed:  o.ParticleSpeed,
		ShakeIntensity: o.ShakeIntensity,
	}
}

// Approach advances every parameter toward its target in o over dt seconds.
func (p *Params) Approach(o Options, dt float64) {
	if dt <= 0 {
		return
	}
	k := 1 - math.Exp(-ParamConvergence*dt)
	p.Gain += (o.Gain - p.Gain) * k
	p.Radius += (o.Radius - p.Radius) * k
	p.MaxBarLength += (o.MaxBarLength - p.MaxBarLength) * k
	p.RotateSpeed += (o.RotateSpeed - p.RotateSpeed) * k
	p.ParticleSpeed += (o.ParticleSpeed - p.ParticleSpeed) * k
	p.ShakeIntensity += (o.ShakeIntensity - p.ShakeIntensity) * k
}
