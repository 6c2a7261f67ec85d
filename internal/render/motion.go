// SPDX-License-Identifier: MIT
package render

import (
	"math"
	"math/rand/v2"

	"waveviz/internal/options"
)

// Motion constants.
const (
	EnergySpin = 0.6 // extra radians per second at energy 1
	ShakeGain  = 4.0
)

// Motion is the camera state carried between frames: ring rotation and the
// shake offset applied to the drawing origin.
type Motion struct {
	Rotation       float64 // radians
	ShakeX, ShakeY float64 // CSS pixels
}

// Advance moves rotation and shake forward by dt. Above the shake threshold
// the offset jumps to a random point within (bass-threshold)·intensity·4;
// below it the offset decays exponentially at the configured rate.
func (m *Motion) Advance(dt, energy, bass float64, p options.Params, o *options.Options, rng *rand.Rand) {
	if dt <= 0 {
		return
	}
	m.Rotation = math.Mod(m.Rotation+(p.RotateSpeed+energy*EnergySpin)*dt, 2*math.Pi)

	if bass > o.ShakeThreshold && p.ShakeIntensity > 0 {
		amp := (bass - o.ShakeThreshold) * p.ShakeIntensity * ShakeGain
		m.ShakeX = (rng.Float64()*2 - 1) * amp
		m.ShakeY = (rng.Float64()*2 - 1) * amp
		return
	}
	k := math.Exp(-o.ShakeDecay * dt)
	m.ShakeX *= k
	m.ShakeY *= k
}

// Reset zeroes rotation and shake.
func (m *Motion) Reset() { *m = Motion{} }
