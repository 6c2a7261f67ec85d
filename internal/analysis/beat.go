// SPDX-License-Identifier: MIT
package analysis

import "math"

// Beat detector defaults, tuned for the smoothed bass level in [0, 1.6].
const (
	DefaultBeatThreshold = 0.35
	DefaultBeatRatio     = 1.3
	DefaultBeatCooldown  = 0.18 // seconds
	beatAverageWindow    = 0.5  // seconds, time constant of the baseline
)

// BeatDetector flags kick-like onsets: frames where a level crosses above
// both an absolute threshold and a multiple of its recent average.
type BeatDetector struct {
	threshold float64 // level a beat must exceed
	minRatio  float64 // rise over the baseline needed to trigger
	cooldown  float64 // minimum seconds between beats
	average   float64 // exponential moving average of the level
	above     bool    // previous frame was over both limits
	since     float64 // seconds since the last beat
}

// NewBeatDetector returns a detector. Non-positive arguments take the
// defaults.
func NewBeatDetector(threshold, minRatio, cooldown float64) *BeatDetector {
	if threshold <= 0 {
		threshold = DefaultBeatThreshold
	}
	if minRatio <= 0 {
		minRatio = DefaultBeatRatio
	}
	if cooldown <= 0 {
		cooldown = DefaultBeatCooldown
	}
	logger.Debugf("beat detector: threshold=%.2f ratio=%.2f cooldown=%.2fs", threshold, minRatio, cooldown)
	return &BeatDetector{
		threshold: threshold,
		minRatio:  minRatio,
		cooldown:  cooldown,
		since:     cooldown,
	}
}

// Detect feeds the level of one frame lasting dt seconds and reports
// whether it is an onset.
func (d *BeatDetector) Detect(level, dt float64) bool {
	if math.IsNaN(level) || dt < 0 {
		return false
	}
	d.since += dt
	above := level > d.threshold && level > d.average*d.minRatio
	beat := above && !d.above && d.since >= d.cooldown
	d.above = above
	if beat {
		d.since = 0
	}
	d.average += (level - d.average) * (1 - math.Exp(-dt/beatAverageWindow))
	return beat
}

// Reset forgets the baseline.
func (d *BeatDetector) Reset() {
	d.average, d.above = 0, false
	d.since = d.cooldown
}
