// SPDX-License-Identifier: MIT

// Package config loads runtime settings from YAML, applies ENV_*
// overrides and converts the result into component configurations.
package config

import "time"

// Defaults and limits. Analysis defaults live in the analysis package;
// these cover the host around it.
const (
	DefaultLogLevel = "info"

	// Audio input
	DefaultInputDevice     = MinDeviceID // system default device
	DefaultInputChannels   = 2           // downmixed to mono before analysis
	DefaultFramesPerBuffer = 1024        // balanced latency/performance
	DefaultLowLatency      = false
	DefaultGateThreshold   = 0.0 // gate disabled

	// Smoothing
	DefaultAttackRate      = 0.5
	DefaultDecayRate       = 0.1
	DefaultMinHeight       = 2.0
	DefaultUpdateThreshold = 2.0
	DefaultFrameInterval   = 33 * time.Millisecond // ~30 fps

	// Transport
	DefaultWebSocketAddress = "localhost:8080"
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 33 * time.Millisecond

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents the system default device
	MinSampleRate   = 8000   // Hz
	MaxSampleRate   = 192000 // Hz
	MaxBufferFrames = 8192
	MaxBarCount     = 1024
	MinFFTSize      = 8
	MaxFFTSize      = 65536
)
