// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"spectrum/internal/analysis"
	"spectrum/internal/log"
	"spectrum/internal/visualizer"
	"spectrum/pkg/bitint"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug      bool             `yaml:"debug"`     // Enable debug logging.
	LogLevel   string           `yaml:"log_level"` // "debug", "info", "warn" or "error".
	Visualizer VisualizerConfig `yaml:"visualizer"`
	Audio      AudioConfig      `yaml:"audio"`
	Transport  TransportConfig  `yaml:"transport"`
}

// VisualizerConfig shapes the analysis and the smoothing.
type VisualizerConfig struct {
	FFTSize         int           `yaml:"fft_size"`         // power of two
	BarCount        int           `yaml:"bar_count"`        // number of bars
	MaxBarHeight    float64       `yaml:"max_bar_height"`   // height ceiling
	MinFrequency    float64       `yaml:"min_frequency"`    // Hz
	MaxFrequency    float64       `yaml:"max_frequency"`    // Hz, clamped to Nyquist
	Window          string        `yaml:"window"`           // e.g. "blackman-harris", "hann"
	BandScale       string        `yaml:"band_scale"`       // "log", "segmented" or "warped"
	AttackRate      float64       `yaml:"attack_rate"`      // smoothing factor when rising
	DecayRate       float64       `yaml:"decay_rate"`       // smoothing factor when falling
	MinHeight       float64       `yaml:"min_height"`       // bar floor
	UpdateThreshold float64       `yaml:"update_threshold"` // dead zone
	FrameInterval   time.Duration `yaml:"frame_interval"`   // minimum time between updates

	FlatWeighting bool                `yaml:"flat_weighting"`      // disable perceptual weighting
	Weighting     *analysis.Weighting `yaml:"weighting,omitempty"` // perceptual curves; keys not set keep their defaults
}

// AudioConfig holds settings related to audio input.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per PortAudio callback.
	InputChannels   int     `yaml:"input_channels"`    // Channels captured; downmixed to mono.
	LowLatency      bool    `yaml:"low_latency"`       // Prefer the device's low latency setting.
	GateThreshold   float64 `yaml:"gate_threshold"`    // RMS below which a buffer counts as silence (0 disables).
}

// TransportConfig holds settings for the network renderers.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`
	WebSocketAddress string        `yaml:"websocket_address"`
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"`
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	a := analysis.DefaultConfig()
	weighting := analysis.DefaultWeighting()
	return &Config{
		LogLevel: DefaultLogLevel,
		Visualizer: VisualizerConfig{
			FFTSize:         a.TransformLength,
			BarCount:        a.BarCount,
			MaxBarHeight:    a.MaxBarHeight,
			MinFrequency:    a.LoFreq,
			MaxFrequency:    a.HiFreq,
			Window:          a.Window.String(),
			BandScale:       a.Scale.String(),
			AttackRate:      DefaultAttackRate,
			DecayRate:       DefaultDecayRate,
			MinHeight:       DefaultMinHeight,
			UpdateThreshold: DefaultUpdateThreshold,
			FrameInterval:   DefaultFrameInterval,
			Weighting:       &weighting,
		},
		Audio: AudioConfig{
			InputDevice:     DefaultInputDevice,
			SampleRate:      a.SampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			InputChannels:   DefaultInputChannels,
			LowLatency:      DefaultLowLatency,
			GateThreshold:   DefaultGateThreshold,
		},
		Transport: TransportConfig{
			WebSocketAddress: DefaultWebSocketAddress,
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
		},
	}
}

// LoadConfig reads the YAML file at path over the defaults, applies ENV_*
// overrides and validates the result. An empty path searches the working
// directory for config.yaml and falls back to the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfig("config.yaml", "spectrum.yaml")
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		log.Debugf("configuration: loaded %s", path)
	}

	// Environment overrides win over the file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func findConfig(candidates ...string) string {
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Validate checks every section. Analysis and smoothing parameters are
// validated by building their component configurations.
func (c *Config) Validate() error {
	if c.LogLevel != "" {
		if _, ok := log.ParseLevel(c.LogLevel); !ok {
			return fmt.Errorf("%w: unknown log_level %q", ErrInvalid, c.LogLevel)
		}
	}

	v := c.Visualizer
	if v.FFTSize < MinFFTSize || v.FFTSize > MaxFFTSize || !bitint.IsPowerOfTwo(v.FFTSize) {
		return fmt.Errorf("%w: visualizer.fft_size must be a power of two in [%d, %d], got %d (nearest: %d)",
			ErrInvalid, MinFFTSize, MaxFFTSize, v.FFTSize, bitint.NearestPowerOfTwo(v.FFTSize))
	}
	if v.BarCount < 1 || v.BarCount > MaxBarCount {
		return fmt.Errorf("%w: visualizer.bar_count must be in [1, %d], got %d", ErrInvalid, MaxBarCount, v.BarCount)
	}

	a := c.Audio
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return fmt.Errorf("%w: audio.sample_rate must be in [%d, %d], got %g", ErrInvalid, MinSampleRate, MaxSampleRate, a.SampleRate)
	}
	if a.InputDevice < MinDeviceID {
		return fmt.Errorf("%w: audio.input_device must be >= %d, got %d", ErrInvalid, MinDeviceID, a.InputDevice)
	}
	if a.FramesPerBuffer < 1 || a.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("%w: audio.frames_per_buffer must be in [1, %d], got %d", ErrInvalid, MaxBufferFrames, a.FramesPerBuffer)
	}
	if a.InputChannels < 1 {
		return fmt.Errorf("%w: audio.input_channels must be at least 1, got %d", ErrInvalid, a.InputChannels)
	}
	if a.GateThreshold < 0 || a.GateThreshold > 1 {
		return fmt.Errorf("%w: audio.gate_threshold must be in [0, 1], got %g", ErrInvalid, a.GateThreshold)
	}

	t := c.Transport
	if t.WebSocketEnabled && t.WebSocketAddress == "" {
		return fmt.Errorf("%w: transport.websocket_address must be set when the websocket is enabled", ErrInvalid)
	}
	if t.UDPEnabled {
		if t.UDPTargetAddress == "" {
			return fmt.Errorf("%w: transport.udp_target_address must be set when UDP is enabled", ErrInvalid)
		}
		if !strings.Contains(t.UDPTargetAddress, ":") {
			return fmt.Errorf("%w: transport.udp_target_address %q appears invalid (missing port?)", ErrInvalid, t.UDPTargetAddress)
		}
		if t.UDPSendInterval <= 0 {
			return fmt.Errorf("%w: transport.udp_send_interval must be positive when UDP is enabled", ErrInvalid)
		}
	}

	opts, err := c.Options()
	if err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Options converts the file representation into a visualizer.Config.
func (c *Config) Options() (visualizer.Config, error) {
	v := c.Visualizer

	window, err := analysis.ParseWindowFunc(v.Window)
	if err != nil {
		return visualizer.Config{}, fmt.Errorf("%w: visualizer.window: %w", ErrInvalid, err)
	}
	scale, err := analysis.ParseBandScale(v.BandScale)
	if err != nil {
		return visualizer.Config{}, fmt.Errorf("%w: visualizer.band_scale: %w", ErrInvalid, err)
	}

	weighting := analysis.DefaultWeighting()
	switch {
	case v.FlatWeighting:
		weighting = analysis.FlatWeighting()
	case v.Weighting != nil:
		weighting = *v.Weighting
	}

	return visualizer.Config{
		Analysis: analysis.Config{
			TransformLength: v.FFTSize,
			BarCount:        v.BarCount,
			MaxBarHeight:    v.MaxBarHeight,
			SampleRate:      c.Audio.SampleRate,
			LoFreq:          v.MinFrequency,
			HiFreq:          v.MaxFrequency,
			Scale:           scale,
			Window:          window,
			Weighting:       weighting,
		},
		AttackRate:       v.AttackRate,
		DecayRate:        v.DecayRate,
		MinHeight:        v.MinHeight,
		UpdateThreshold:  v.UpdateThreshold,
		MinFrameInterval: v.FrameInterval,
	}, nil
}

// applyEnvOverrides applies ENV_* variables on top of the loaded values.
// Values that do not parse are ignored with a warning.
func (c *Config) applyEnvOverrides() {
	envBool("ENV_DEBUG", "debug", &c.Debug)
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
		log.Infof("configuration: overriding log_level from env: %s", val)
	}

	envInt("ENV_BAR_COUNT", "visualizer.bar_count", &c.Visualizer.BarCount)
	envInt("ENV_FFT_SIZE", "visualizer.fft_size", &c.Visualizer.FFTSize)

	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		c.Transport.WebSocketEnabled = val != ""
		c.Transport.WebSocketAddress = val
		log.Infof("configuration: overriding transport.websocket_address from env: %s", val)
	}

	envBool("ENV_UDP_ENABLED", "transport.udp_enabled", &c.Transport.UDPEnabled)
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		log.Infof("configuration: overriding transport.udp_target_address from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = dur
			log.Infof("configuration: overriding transport.udp_send_interval from env: %s", dur)
		} else {
			log.Warnf("configuration: ignoring ENV_UDP_SEND_INTERVAL=%q: %v", val, err)
		}
	}
}

func envBool(key, field string, dst *bool) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		log.Warnf("configuration: ignoring %s=%q: %v", key, val, err)
		return
	}
	*dst = b
	log.Infof("configuration: overriding %s from env: %v", field, b)
}

func envInt(key, field string, dst *int) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		log.Warnf("configuration: ignoring %s=%q: %v", key, val, err)
		return
	}
	*dst = n
	log.Infof("configuration: overriding %s from env: %d", field, n)
}
