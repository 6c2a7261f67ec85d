// SPDX-License-Identifier: MIT
/*
Package config loads the process configuration: a YAML file (or built-in
defaults when none exists), then ENV_* overrides, then validation.
*/
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"waveviz/internal/analysis"
	"waveviz/internal/log"
	"waveviz/internal/options"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	LogLevel   string          `yaml:"log_level"`  // "debug", "info", "warn" or "error"
	Audio      AudioConfig     `yaml:"audio"`      // analysis and capture settings
	Preview    PreviewConfig   `yaml:"preview"`    // browser preview server
	Transport  TransportConfig `yaml:"transport"`  // band stream for external consumers
	Visualizer options.Options `yaml:"visualizer"` // visual tunables, fft_size included
}

// AudioConfig holds settings related to audio input/output and analysis.
type AudioConfig struct {
	SampleRate      int     `yaml:"sample_rate"`       // reported before a source is connected
	FFTWindow       string  `yaml:"fft_window"`        // window function name, e.g. "Blackman", "Hann"
	MinDecibels     float64 `yaml:"min_decibels"`      // maps to byte 0
	MaxDecibels     float64 `yaml:"max_decibels"`      // maps to byte 255
	Smoothing       float64 `yaml:"smoothing"`         // analyser time constant in [0, 1)
	Playback        bool    `yaml:"playback"`          // play files through the output device
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for default)
	InputChannels   int     `yaml:"input_channels"`    // channels captured from the microphone
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // PortAudio buffer size
	LowLatency      bool    `yaml:"low_latency"`       // request the device's low input latency
	GateEnabled     bool    `yaml:"gate_enabled"`      // silence microphone buffers below the threshold
	GateThreshold   float64 `yaml:"gate_threshold"`    // peak amplitude in [0, 1]
}

// PreviewConfig holds the preview server settings.
type PreviewConfig struct {
	Addr string `yaml:"addr"` // listen address, "host:port"
	FPS  int    `yaml:"fps"`  // frame rate of the render loop
}

// TransportConfig holds settings related to sending band data over the network.
type TransportConfig struct {
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"` // "host:port", or "log" to log packets instead
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
	UDPMaxBands      int           `yaml:"udp_max_bands"`
}

// LogTarget selects the logging transport in place of a UDP socket.
const LogTarget = "log"

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			SampleRate:      DefaultSampleRate,
			FFTWindow:       DefaultFFTWindow,
			MinDecibels:     DefaultMinDecibels,
			MaxDecibels:     DefaultMaxDecibels,
			Smoothing:       DefaultSmoothing,
			Playback:        DefaultPlayback,
			InputDevice:     DefaultDeviceID,
			InputChannels:   DefaultInputChannels,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			GateEnabled:     DefaultGateEnabled,
			GateThreshold:   DefaultGateThreshold,
		},
		Preview: PreviewConfig{
			Addr: DefaultPreviewAddr,
			FPS:  DefaultFPS,
		},
		Transport: TransportConfig{
			UDPEnabled:       false,
			UDPTargetAddress: DefaultUDPTarget,
			UDPSendInterval:  DefaultUDPInterval,
			UDPMaxBands:      DefaultUDPBands,
		},
		Visualizer: options.Defaults(),
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		for _, candidate := range []string{"waveviz.yaml", "config.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.Visualizer = cfg.Visualizer.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate reports the first setting that cannot be used. Visualizer
// options are clamped by Normalize instead.
func (c *Config) Validate() error {
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}

	a := c.Audio
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %d outside [%d, %d]", a.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if _, err := analysis.ParseWindowFunc(a.FFTWindow); err != nil {
		return fmt.Errorf("audio.fft_window: %w", err)
	}
	if a.MinDecibels >= a.MaxDecibels {
		return fmt.Errorf("audio.min_decibels (%v) must be below max_decibels (%v)", a.MinDecibels, a.MaxDecibels)
	}
	if a.Smoothing < 0 || a.Smoothing >= 1 {
		return fmt.Errorf("audio.smoothing %v outside [0, 1)", a.Smoothing)
	}
	if a.InputDevice < MinDeviceID {
		return fmt.Errorf("audio.input_device %d is invalid", a.InputDevice)
	}
	if a.InputChannels < 1 {
		return fmt.Errorf("audio.input_channels must be at least 1")
	}
	if a.FramesPerBuffer < 0 || a.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("audio.frames_per_buffer %d outside [0, %d]", a.FramesPerBuffer, MaxBufferFrames)
	}
	if a.GateThreshold < 0 || a.GateThreshold > 1 {
		return fmt.Errorf("audio.gate_threshold %v outside [0, 1]", a.GateThreshold)
	}

	if c.Preview.Addr == "" {
		return errors.New("preview.addr must be set")
	}
	if c.Preview.FPS < 1 || c.Preview.FPS > MaxFPS {
		return fmt.Errorf("preview.fps %d outside [1, %d]", c.Preview.FPS, MaxFPS)
	}

	t := c.Transport
	if t.UDPEnabled {
		if t.UDPTargetAddress != LogTarget {
			if _, _, err := net.SplitHostPort(t.UDPTargetAddress); err != nil {
				return fmt.Errorf("transport.udp_target_address %q: %w", t.UDPTargetAddress, err)
			}
		}
		if t.UDPSendInterval <= 0 {
			return errors.New("transport.udp_send_interval must be positive when UDP is enabled")
		}
		if t.UDPMaxBands < 1 {
			return errors.New("transport.udp_max_bands must be at least 1")
		}
	}
	return nil
}

// applyEnvOverrides applies ENV_* variables on top of the file settings.
// Unparseable values are ignored with a warning.
func (c *Config) applyEnvOverrides() {
	envString("ENV_LOG_LEVEL", &c.LogLevel)
	envString("ENV_PREVIEW_ADDR", &c.Preview.Addr)
	envInt("ENV_FPS", &c.Preview.FPS)
	envInt("ENV_INPUT_DEVICE", &c.Audio.InputDevice)
	envBool("ENV_PLAYBACK", &c.Audio.Playback)

	// ENV_UDP_{...}
	// These are specific to the transport layer.
	envBool("ENV_UDP_ENABLED", &c.Transport.UDPEnabled)
	envString("ENV_UDP_TARGET_ADDRESS", &c.Transport.UDPTargetAddress)
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if d, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = d
			log.Debugf("config: transport.udp_send_interval from env: %s", d)
		} else {
			log.Warnf("config: ignoring ENV_UDP_SEND_INTERVAL=%q: %v", val, err)
		}
	}

	// ENV_VIS_{...}
	// A few visual options for quick experiments.
	if val, ok := os.LookupEnv("ENV_VIS_MODE"); ok {
		c.Visualizer.Mode = options.Mode(val)
	}
	envInt("ENV_VIS_BARS", &c.Visualizer.Bars)
}

func envString(name string, dst *string) {
	if val, ok := os.LookupEnv(name); ok {
		*dst = val
		log.Debugf("config: %s from env: %s", name, val)
	}
}

func envInt(name string, dst *int) {
	if val, ok := os.LookupEnv(name); ok {
		n, err := strconv.Atoi(val)
		if err != nil {
			log.Warnf("config: ignoring %s=%q: %v", name, val, err)
			return
		}
		*dst = n
		log.Debugf("config: %s from env: %d", name, n)
	}
}

func envBool(name string, dst *bool) {
	if val, ok := os.LookupEnv(name); ok {
		b, err := strconv.ParseBool(val)
		if err != nil {
			log.Warnf("config: ignoring %s=%q: %v", name, val, err)
			return
		}
		*dst = b
		log.Debugf("config: %s from env: %v", name, b)
	}
}
