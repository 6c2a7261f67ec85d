// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"waveviz/internal/analysis"
	"waveviz/internal/audio"
	"waveviz/internal/config"
	"waveviz/internal/log"
	"waveviz/internal/media"
	"waveviz/internal/options"
	"waveviz/internal/transport"
	"waveviz/internal/transport/udp"
	"waveviz/internal/visualizer"
)

var logger = log.Named("cmd")

// statsInterval is how often a running session logs frame statistics.
const statsInterval = 10 * time.Second

// session wires a preview surface, a visualizer and the optional band
// publisher around one render loop.
type session struct {
	cfg       *config.Config
	loop      *visualizer.Loop
	stopLoop  context.CancelFunc
	preview   *transport.Preview
	vis       *visualizer.Visualizer
	publisher *udp.Publisher
	sink      transport.Transport
}

// bridgeConfig translates the audio section into a bridge configuration.
func bridgeConfig(cfg *config.Config) (audio.BridgeConfig, error) {
	window, err := analysis.ParseWindowFunc(cfg.Audio.FFTWindow)
	if err != nil {
		return audio.BridgeConfig{}, err
	}
	return audio.BridgeConfig{
		FFTSize:     cfg.Visualizer.FFTSize,
		Window:      window,
		MinDecibels: cfg.Audio.MinDecibels,
		MaxDecibels: cfg.Audio.MaxDecibels,
		Smoothing:   cfg.Audio.Smoothing,
		Playback:    cfg.Audio.Playback,
		SampleRate:  cfg.Audio.SampleRate,
		Capture: audio.CaptureConfig{
			DeviceID:        cfg.Audio.InputDevice,
			Channels:        cfg.Audio.InputChannels,
			SampleRate:      cfg.Audio.SampleRate,
			FramesPerBuffer: cfg.Audio.FramesPerBuffer,
			LowLatency:      cfg.Audio.LowLatency,
			GateEnabled:     cfg.Audio.GateEnabled,
			GateThreshold:   cfg.Audio.GateThreshold,
		},
	}, nil
}

// newSession starts the preview server and builds an idle visualizer on it.
func newSession(cfg *config.Config) (*session, error) {
	bcfg, err := bridgeConfig(cfg)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, loop: visualizer.NewLoop(cfg.Preview.FPS)}
	loopCtx, cancel := context.WithCancel(context.Background())
	s.stopLoop = cancel
	go s.loop.Run(loopCtx)

	// Network handlers only post work; the loop goroutine applies it.
	s.preview = transport.NewPreview(cfg.Preview.Addr, transport.PreviewHandlers{
		OnOptions: func(p options.Partial) {
			s.loop.Post(func() {
				if err := s.vis.SetOptions(p); err != nil {
					logger.Debugf("options from preview: %v", err)
				}
			})
		},
		OnResume: func() {
			s.loop.Post(func() {
				if err := s.vis.ResumeAudioContext(loopCtx); err != nil {
					logger.Warnf("resume: %v", err)
				}
			})
		},
	})

	s.vis = visualizer.New(s.preview, cfg.Visualizer,
		visualizer.WithScheduler(s.loop),
		visualizer.WithBridge(audio.NewBridge(bcfg)),
		visualizer.WithBeatHandler(s.beat),
	)

	if err := s.preview.Start(); err != nil {
		s.close()
		return nil, err
	}
	logger.Infof("preview at http://%s/", s.preview.Addr())

	if cfg.Transport.UDPEnabled {
		if err := s.startPublisher(); err != nil {
			s.close()
			return nil, err
		}
	}
	return s, nil
}

// announce tells preview clients what is playing.
func (s *session) announce(track any) {
	if err := s.preview.Send(track); err != nil {
		logger.Debugf("track event: %v", err)
	}
}

// beatEvent is sent to preview clients on every detected beat.
type beatEvent struct {
	Beat bool    `json:"beat"`
	Bass float64 `json:"bass"`
}

func (s *session) beat(bass float64) {
	if err := s.preview.Send(beatEvent{Beat: true, Bass: bass}); err != nil {
		logger.Debugf("beat event: %v", err)
	}
}

func (s *session) startPublisher() error {
	t := s.cfg.Transport
	if t.UDPTargetAddress == config.LogTarget {
		s.sink = transport.NewLoggingTransport()
	} else {
		sender, err := udp.NewSender(t.UDPTargetAddress)
		if err != nil {
			return fmt.Errorf("udp transport: %w", err)
		}
		s.sink = sender
	}

	pub, err := udp.NewPublisher(t.UDPSendInterval, s.sink, s.vis, t.UDPMaxBands)
	if err != nil {
		return err
	}
	s.publisher = pub
	s.publisher.Start()
	return nil
}

// run starts the visualizer and blocks until ctx is done.
func (s *session) run(ctx context.Context) error {
	if err := s.vis.Start(); err != nil {
		return err
	}

	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			st := s.vis.Stats()
			logger.Debugf("frames=%d dt=%.4f particles=%d energy=%.2f bass=%.2f clients=%d",
				st.Frames, st.LastDT, st.Particles, st.Energy, st.Bass, s.preview.Clients())
		}
	}
}

// close tears everything down in reverse order of construction.
func (s *session) close() error {
	var errs []error
	if s.publisher != nil {
		errs = append(errs, s.publisher.Close())
	}
	if s.sink != nil {
		errs = append(errs, s.sink.Close())
	}
	if s.vis != nil {
		errs = append(errs, s.vis.Destroy())
		logger.Infof("rendered %d frames", s.vis.Stats().Frames)
	}
	if s.preview != nil {
		errs = append(errs, s.preview.Close())
	}
	s.stopLoop()
	return errors.Join(errs...)
}

// runFile visualizes a decoded audio file.
func runFile(ctx context.Context, cfg *config.Config, path string) error {
	file, err := media.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	s, err := newSession(cfg)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.vis.ConnectSource(ctx, file); err != nil {
		return err
	}
	meta := file.Metadata()
	logger.Infof("playing %s (%d Hz, %d ch)", file.Name(), file.SampleRate(), file.Channels())
	s.announce(map[string]string{
		"title":  file.Name(),
		"artist": meta.Artist,
		"album":  meta.Album,
	})

	if err := s.vis.ResumeAudioContext(ctx); err != nil {
		return err
	}
	return s.run(ctx)
}

// runMicrophone visualizes the configured input device.
func runMicrophone(ctx context.Context, cfg *config.Config) error {
	s, err := newSession(cfg)
	if err != nil {
		return err
	}
	defer s.close()

	capture, err := s.vis.ConnectMicrophone(ctx)
	if err != nil {
		switch {
		case errors.Is(err, audio.ErrPermissionDenied):
			return fmt.Errorf("microphone access refused: %w", err)
		case errors.Is(err, audio.ErrUnsupportedMedia):
			return fmt.Errorf("input device %d unusable: %w", cfg.Audio.InputDevice, err)
		}
		return err
	}
	logger.Infof("listening on %s (%d Hz, %d ch)", capture.Name(), capture.SampleRate(), capture.Channels())
	s.announce(map[string]string{"title": capture.Name()})

	if err := s.vis.ResumeAudioContext(ctx); err != nil {
		return err
	}
	return s.run(ctx)
}
