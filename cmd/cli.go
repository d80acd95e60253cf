// SPDX-License-Identifier: MIT

// Package cmd defines the command line interface.
package cmd

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"spectrum/internal/config"
	"spectrum/pkg/build"
)

// Command selects what the host runs.
type Command int

const (
	CommandLive Command = iota // capture from an input device
	CommandFile                // stream a WAV file
	CommandList                // list devices and exit
)

// Options are the parsed command line. Only flags the user actually set
// override the configuration file.
type Options struct {
	Command    Command
	ConfigPath string
	File       string

	DeviceID  int
	Bars      int
	FFTSize   int
	Window    string
	BandScale string
	WSAddress string
	UDPTarget string
	Headless  bool
	Verbose   bool
	Pick      bool // live: choose the device interactively
	Realtime  bool // file: pace playback to the sample rate

	changed map[string]bool
}

// Changed reports whether the named flag was given.
func (o *Options) Changed(name string) bool {
	return o.changed[name]
}

// Apply writes every flag the user set into cfg.
func (o *Options) Apply(cfg *config.Config) {
	if o.Changed("device") {
		cfg.Audio.InputDevice = o.DeviceID
	}
	if o.Changed("bars") {
		cfg.Visualizer.BarCount = o.Bars
	}
	if o.Changed("fft-size") {
		cfg.Visualizer.FFTSize = o.FFTSize
	}
	if o.Changed("window") {
		cfg.Visualizer.Window = o.Window
	}
	if o.Changed("scale") {
		cfg.Visualizer.BandScale = o.BandScale
	}
	if o.Changed("ws") {
		cfg.Transport.WebSocketEnabled = o.WSAddress != ""
		cfg.Transport.WebSocketAddress = o.WSAddress
	}
	if o.Changed("udp") {
		cfg.Transport.UDPEnabled = o.UDPTarget != ""
		cfg.Transport.UDPTargetAddress = o.UDPTarget
	}
	if o.Verbose {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
}

// ParseArgs parses args (without the program name). A nil Options with a
// nil error means help or version output was printed and nothing should
// run.
func ParseArgs(args []string, out io.Writer) (*Options, error) {
	info := build.Get()
	options := &Options{
		DeviceID:  config.DefaultInputDevice,
		WSAddress: config.DefaultWebSocketAddress,
		UDPTarget: config.DefaultUDPTargetAddress,
		Realtime:  true,
		changed:   map[string]bool{},
	}
	ran := false

	rootCmd := &cobra.Command{
		Use:           info.Name,
		Short:         info.Description,
		Long:          info.Description + ".\n\nWithout a subcommand, captures from the input device and draws the bars in the terminal.",
		Version:       info.String(),
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = CommandLive
			ran = true
			return nil
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)

	fileCmd := &cobra.Command{
		Use:   "file <path.wav>",
		Short: "Visualize a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = CommandFile
			options.File = args[0]
			ran = true
			return nil
		},
	}
	fileCmd.Flags().BoolVar(&options.Realtime, "realtime", true,
		"Pace the file at its sample rate (false streams as fast as possible)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = CommandList
			ran = true
			return nil
		},
	}

	rootCmd.AddCommand(fileCmd, listCmd)
	rootCmd.Flags().BoolVarP(&options.Pick, "pick", "p", false,
		"Choose the input device and sample rate interactively")

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&options.ConfigPath, "config", "c", "",
		"Path to a YAML configuration file (default: ./config.yaml if present)")
	flags.IntVarP(&options.DeviceID, "device", "d", config.DefaultInputDevice,
		"Input device ID. Use the 'list' command to see available devices.")
	flags.IntVarP(&options.Bars, "bars", "n", 0,
		"Number of bars")
	flags.IntVarP(&options.FFTSize, "fft-size", "f", 0,
		"Transform length in samples (power of two)")
	flags.StringVar(&options.Window, "window", "",
		"Window function (blackman-harris, hann, hamming, blackman, nuttall, ...)")
	flags.StringVar(&options.BandScale, "scale", "",
		"Band distribution (log, segmented, warped)")
	flags.StringVar(&options.WSAddress, "ws", config.DefaultWebSocketAddress,
		"Serve bars over WebSocket on this address")
	flags.StringVar(&options.UDPTarget, "udp", config.DefaultUDPTargetAddress,
		"Publish bars as UDP datagrams to this host:port")
	flags.BoolVar(&options.Headless, "headless", false,
		"Do not draw in the terminal; log frames instead")
	flags.BoolVarP(&options.Verbose, "verbose", "v", false,
		"Show verbose output")

	// An explicit --ws or --udp without a value enables the default address.
	flags.Lookup("ws").NoOptDefVal = config.DefaultWebSocketAddress
	flags.Lookup("udp").NoOptDefVal = config.DefaultUDPTargetAddress

	rootCmd.SetArgs(args)
	executed, err := rootCmd.ExecuteC()
	if err != nil {
		return nil, err
	}
	if !ran {
		return nil, nil
	}

	executed.Flags().Visit(func(f *pflag.Flag) {
		options.changed[f.Name] = true
	})
	return options, nil
}
