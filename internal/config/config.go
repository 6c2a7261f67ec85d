// SPDX-License-Identifier: MIT
package config

import "time"

// Core configuration constants that define the boundaries and defaults of
// the visualizer process.
const (
	DefaultLogLevel        = "info"
	DefaultSampleRate      = 44100
	DefaultFFTWindow       = "Blackman"
	DefaultMinDecibels     = -90.0
	DefaultMaxDecibels     = -10.0
	DefaultSmoothing       = 0.0
	DefaultPlayback        = true
	DefaultDeviceID        = MinDeviceID // system default input
	DefaultInputChannels   = 1
	DefaultFramesPerBuffer = 512
	DefaultLowLatency      = false
	DefaultGateEnabled     = false
	DefaultGateThreshold   = 0.001

	DefaultPreviewAddr = "127.0.0.1:8080"
	DefaultFPS         = 60

	DefaultUDPTarget   = "127.0.0.1:9090"
	DefaultUDPInterval = 33 * time.Millisecond // ~30Hz
	DefaultUDPBands    = 64

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents the system default device
	MinSampleRate   = 8000   // Hz
	MaxSampleRate   = 192000 // Hz
	MaxBufferFrames = 8192
	MaxFPS          = 240
)
