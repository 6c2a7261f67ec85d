// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"waveviz/internal/audio"
	"waveviz/internal/config"
	"waveviz/internal/log"
	"waveviz/internal/media"
	"waveviz/internal/options"
	"waveviz/internal/tui"
	"waveviz/pkg/build"
)

// cliFlags are the persistent flags layered over the loaded configuration.
type cliFlags struct {
	configPath string
	logLevel   string
	addr       string
	mode       string
	bars       int
	fps        int
	noPlayback bool
	udp        string
}

// Execute runs the CLI until ctx is cancelled or the command returns.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand builds the waveviz command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&cliFlags{})
}

func newRootCommand(flags *cliFlags) *cobra.Command {
	buildInfo := build.GetBuildFlags()

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
	}
	rootCmd.SetVersionTemplate(buildInfo.String() + "\n")

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "f", "",
		"Configuration file. Defaults to ./waveviz.yaml or ./config.yaml when present")
	pf.StringVar(&flags.logLevel, "log-level", config.DefaultLogLevel,
		"Log level: debug, info, warn or error")
	pf.StringVarP(&flags.addr, "addr", "a", config.DefaultPreviewAddr,
		"Preview server listen address")
	pf.StringVarP(&flags.mode, "mode", "m", string(options.ModeCircular),
		"Render mode: circular or linear")
	pf.IntVarP(&flags.bars, "bars", "n", options.DefaultBars,
		"Number of frequency bands")
	pf.IntVar(&flags.fps, "fps", config.DefaultFPS,
		"Render loop frame rate")
	pf.BoolVar(&flags.noPlayback, "no-playback", false,
		"Analyse files without playing them through the output device")
	pf.StringVar(&flags.udp, "udp", "",
		"Publish bands over UDP to host:port, or \"log\" to log packets")

	// Play command
	playCmd := &cobra.Command{
		Use:   "play <file>",
		Short: "Visualize an audio file (" + strings.Join(media.Formats(), ", ") + ")",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			return runFile(cmd.Context(), cfg, args[0])
		},
	}
	rootCmd.AddCommand(playCmd)

	// Microphone command
	var pick bool
	micCmd := &cobra.Command{
		Use:   "mic",
		Short: "Visualize the microphone",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			if pick {
				ok, err := pickDevice(cfg)
				if err != nil || !ok {
					return err
				}
			}
			return runMicrophone(cmd.Context(), cfg)
		},
	}
	micCmd.Flags().BoolVarP(&pick, "pick", "p", false, "Choose the input device interactively")
	micCmd.Flags().IntP("device", "d", config.DefaultDeviceID,
		"Input device ID. Use the 'devices' command to see available devices")
	rootCmd.AddCommand(micCmd)

	// Devices command
	var browse bool
	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "List available audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := flags.load(cmd); err != nil {
				return err
			}
			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()

			if browse {
				_, err := tui.RunDevicePicker(audio.HostDevices, false)
				return err
			}
			return audio.ListDevices(cmd.OutOrStdout())
		},
	}
	devicesCmd.Flags().BoolVarP(&browse, "tui", "t", false, "Browse devices interactively")
	rootCmd.AddCommand(devicesCmd)

	return rootCmd
}

// load reads the configuration file and applies every flag the user set.
func (f *cliFlags) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(f.configPath)
	if err != nil {
		return nil, err
	}
	if err := f.apply(cmd, cfg); err != nil {
		return nil, err
	}
	level, _ := log.ParseLevel(cfg.LogLevel)
	log.SetLevel(level)
	return cfg, nil
}

// apply overrides cfg with the flags changed on the command line.
func (f *cliFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}

	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("addr") {
		cfg.Preview.Addr = f.addr
	}
	if changed("fps") {
		cfg.Preview.FPS = f.fps
	}
	if changed("no-playback") {
		cfg.Audio.Playback = !f.noPlayback
	}
	if changed("udp") {
		cfg.Transport.UDPEnabled = f.udp != ""
		if f.udp != "" {
			cfg.Transport.UDPTargetAddress = f.udp
		}
	}
	if changed("device") {
		id, err := cmd.Flags().GetInt("device")
		if err != nil {
			return err
		}
		cfg.Audio.InputDevice = id
	}

	var p options.Partial
	if changed("mode") {
		mode := options.Mode(f.mode)
		if mode != options.ModeCircular && mode != options.ModeLinear {
			return fmt.Errorf("invalid mode %q: want %s or %s", f.mode, options.ModeCircular, options.ModeLinear)
		}
		p.Mode = &mode
	}
	if changed("bars") {
		p.Bars = &f.bars
	}
	cfg.Visualizer = cfg.Visualizer.Merge(p)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

// pickDevice runs the device picker and stores the choice in cfg. It
// reports false when the user quit without choosing.
func pickDevice(cfg *config.Config) (bool, error) {
	if err := audio.Initialize(); err != nil {
		return false, err
	}
	defer audio.Terminate()

	m, err := tui.RunDevicePicker(audio.HostDevices, true)
	if err != nil {
		return false, err
	}
	sel, ok := m.Selection()
	if !ok {
		fmt.Fprintln(os.Stderr, "No device selected.")
		return false, nil
	}
	cfg.Audio.InputDevice = sel.Device.ID
	cfg.Audio.SampleRate = int(sel.SampleRate)
	cfg.Audio.InputChannels = min(max(cfg.Audio.InputChannels, 1), sel.Device.MaxInputChannels)
	return true, nil
}
