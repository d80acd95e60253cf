// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"spectrum/cmd"
	"spectrum/internal/audio"
	"spectrum/internal/config"
	"spectrum/internal/log"
	"spectrum/internal/tui"
	"spectrum/pkg/build"
)

// debugLogFile receives logs while the terminal screen is in use.
const debugLogFile = "spectrum.log"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	buildErr := build.Initialize()

	opts, err := cmd.ParseArgs(args, os.Stdout)
	if err != nil || opts == nil {
		return err
	}

	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	opts.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	closeLog, err := setupLogging(cfg, !opts.Headless && opts.Command != cmd.CommandList)
	if err != nil {
		return err
	}
	defer closeLog()
	if buildErr != nil {
		log.Debugf("build: %v", buildErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch opts.Command {
	case cmd.CommandList:
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
		return audio.ListDevices(os.Stdout)
	case cmd.CommandFile:
		return runFile(ctx, cfg, opts)
	default:
		return runLive(ctx, cfg, opts)
	}
}

// setupLogging applies the configured level. While the terminal screen is
// up, log lines would corrupt it, so they go to a file in debug mode and
// are dropped otherwise.
func setupLogging(cfg *config.Config, screen bool) (func(), error) {
	level, _ := log.ParseLevel(cfg.LogLevel)
	if cfg.Debug {
		level = log.LevelDebug
	}
	log.SetLevel(level)

	if !screen {
		return func() {}, nil
	}
	if !cfg.Debug {
		log.SetOutput(io.Discard)
		return func() { log.SetOutput(os.Stderr) }, nil
	}

	f, err := os.OpenFile(debugLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	log.SetOutput(f)
	return func() {
		log.SetOutput(os.Stderr)
		f.Close()
	}, nil
}

func runLive(ctx context.Context, cfg *config.Config, opts *cmd.Options) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	if opts.Pick {
		sel, ok, err := tui.PickDevice(audio.HostDevices)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		cfg.Audio.InputDevice = sel.Device.ID
		cfg.Audio.SampleRate = sel.SampleRate
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	s, err := newSession(cfg, opts.Headless)
	if err != nil {
		return err
	}
	defer s.Close()

	engine, err := audio.NewEngine(cfg.Audio, cfg.Visualizer.FFTSize, s.vis)
	if err != nil {
		return err
	}
	if err := engine.StartInputStream(); err != nil {
		return err
	}
	defer func() {
		if err := engine.StopInputStream(); err != nil {
			log.Errorf("stopping input stream: %v", err)
		}
	}()

	return s.run(ctx, engine.DeviceName(), nil)
}

func runFile(ctx context.Context, cfg *config.Config, opts *cmd.Options) error {
	src, err := audio.OpenWAV(opts.File)
	if err != nil {
		return err
	}
	defer src.Close()

	info := src.Info()
	cfg.Audio.SampleRate = float64(info.SampleRate)
	if err := cfg.Validate(); err != nil {
		return err
	}

	s, err := newSession(cfg, opts.Headless)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	finished := make(chan struct{})
	var streamErr error
	go func() {
		defer close(finished)
		n, err := src.Stream(ctx, audio.StreamOptions{
			FrameSize: cfg.Visualizer.FFTSize,
			HopSize:   cfg.Audio.FramesPerBuffer,
			Realtime:  opts.Realtime,
		}, s.vis)
		if err != nil && !errors.Is(err, context.Canceled) {
			streamErr = err
		}
		log.Component("main").WithFields(log.Fields{
			"file":    info.Path,
			"samples": n,
		}).Info("file finished")
	}()

	err = s.run(ctx, filepath.Base(info.Path), finished)
	cancel()
	<-finished
	return errors.Join(err, streamErr)
}
