// SPDX-License-Identifier: MIT
package visualizer

import (
	"time"

	"waveviz/internal/analysis"
	"waveviz/internal/options"
	"waveviz/internal/particle"
	"waveviz/internal/render"
)

// tick is the frame callback of the chain started as generation gen. It
// computes the clamped time step, runs one frame and requests the next while
// still running. A callback left over from an earlier Start does nothing.
func (v *Visualizer) tick(gen uint64, now time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen || v.state != Running {
		return
	}
	v.frameID = 0
	dt := 0.0
	if !v.last.IsZero() {
		dt = min(max(now.Sub(v.last).Seconds(), 0), MaxFrameDelta)
	}
	v.last = now

	v.step(dt)

	if v.state == Running {
		v.frameID = v.sched.RequestFrame(v.tickFn)
	}
}

// step runs one frame of the pipeline over dt seconds.
func (v *Visualizer) step(dt float64) {
	o := &v.opts
	fs := &v.fs

	spectrum := v.bridge.ReadSpectrum()
	v.binmap.Update(analysis.BinMapParams{
		Bands:      o.Bars,
		MinHz:      o.MinHz,
		MaxHz:      o.MaxHz,
		SampleRate: float64(v.bridge.SampleRate()),
		FFTSize:    2 * len(spectrum),
	})
	v.smoother.Update(spectrum, v.binmap.Ranges(), analysis.Shaping{
		Attack:     o.Attack,
		Release:    o.Release,
		NoiseFloor: o.NoiseFloor,
		Curve:      o.Curve,
		Gain:       fs.Params.Gain,
	})
	fs.Params.Approach(*o, dt)

	energy, bass := v.smoother.Energy(), v.smoother.Bass()
	fs.Motion.Advance(dt, energy, bass, fs.Params, o, v.rng)
	if v.beat.Detect(bass, dt) {
		v.stats.Beats++
		if v.onBeat != nil {
			v.onBeat(bass)
		}
	}

	if o.Mode == options.ModeCircular && o.ParticleEnabled {
		fs.Field.Step(dt, energy, particleConfig(o, &fs.Params), v.rng)
	}

	if v.width > 0 && v.height > 0 {
		v.draw(energy, bass)
	}

	v.smoother.Advance(dt)

	v.stats.Frames++
	v.stats.LastDT = dt
	v.stats.Bands = v.smoother.Len()
	v.stats.Particles = fs.Field.Len()
	v.stats.Energy, v.stats.Bass = energy, bass
}

func (v *Visualizer) draw(energy, bass float64) {
	f := &v.frame
	f.Width, f.Height, f.Scale = v.width, v.height, v.scale
	f.Bands = v.smoother.Bands()
	f.Energy, f.Bass = energy, bass
	f.Params = v.fs.Params

	v.list.Reset(v.width, v.height)
	render.Background(&v.list, f)
	v.renderer.Render(&v.list, f)
	render.Vignette(&v.list, v.width, v.height, v.opts.Vignette)

	err := v.surface.Present(&v.list)
	switch {
	case err != nil && !v.presentFailed:
		logger.Debugf("present: %v", err)
		v.presentFailed = true
	case err == nil && v.presentFailed:
		logger.Debugf("present recovered")
		v.presentFailed = false
	}
}

func particleConfig(o *options.Options, p *options.Params) particle.Config {
	return particle.Config{
		BaseRate: o.BaseSpawnRate,
		MaxRate:  o.MaxSpawnRate,
		Speed:    p.ParticleSpeed,
		LifeMin:  o.ParticleLifeMin,
		LifeMax:  o.ParticleLifeMax,
		Radius:   p.Radius,
		Cap:      o.ParticleCap,
	}
}
