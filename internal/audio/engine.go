// SPDX-License-Identifier: MIT
/*
Package audio supplies mono frames to the visualizer:
- Live capture from a PortAudio input device
- Streaming of WAV files
- A sliding frame assembler that always exposes the latest window
- An RMS noise gate

Thread Safety:
- The capture callback only touches buffers owned by the Engine
- Pre-allocates buffers to avoid GC in the hot path
- Gate state is atomic and may be changed from any goroutine
*/
package audio

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"spectrum/internal/config"
	"spectrum/internal/log"
)

// Engine captures audio from an input device, downmixes it to mono and
// feeds the frame assembler.
type Engine struct {
	cfg      config.AudioConfig
	channels int

	// Audio input handling.
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	mono      []float64
	gate      *Gate
	assembler *Assembler

	buffers atomic.Uint64 // callbacks processed
	gated   atomic.Uint64 // callbacks silenced by the gate
}

// NewEngine opens nothing yet; it resolves the input device and prepares
// the buffers. PortAudio must be initialized.
func NewEngine(cfg config.AudioConfig, frameSize int, sink FrameSink) (*Engine, error) {
	device, err := InputDevice(cfg.InputDevice)
	if err != nil {
		return nil, err
	}
	if device.MaxInputChannels < 1 {
		return nil, fmt.Errorf("device %q has no input channels", device.Name)
	}

	e, err := newEngine(cfg, min(cfg.InputChannels, device.MaxInputChannels), frameSize, sink)
	if err != nil {
		return nil, err
	}
	e.inputDevice = device
	if cfg.LowLatency {
		e.inputLatency = device.DefaultLowInputLatency
	} else {
		e.inputLatency = device.DefaultHighInputLatency
	}
	return e, nil
}

func newEngine(cfg config.AudioConfig, channels, frameSize int, sink FrameSink) (*Engine, error) {
	assembler, err := NewAssembler(frameSize, sink)
	if err != nil {
		return nil, err
	}
	if channels < 1 {
		channels = 1
	}
	return &Engine{
		cfg:       cfg,
		channels:  channels,
		mono:      make([]float64, cfg.FramesPerBuffer),
		gate:      NewGate(cfg.GateThreshold),
		assembler: assembler,
	}, nil
}

// Gate exposes the noise gate for runtime adjustment.
func (e *Engine) Gate() *Gate {
	return e.gate
}

// DeviceName returns the name of the capture device.
func (e *Engine) DeviceName() string {
	if e.inputDevice == nil {
		return ""
	}
	return e.inputDevice.Name
}

func (e *Engine) StartInputStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.channels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: e.cfg.FramesPerBuffer,
		SampleRate:      e.cfg.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		return fmt.Errorf("opening input stream: %w", err)
	}
	e.inputStream = stream

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		e.inputStream = nil
		return fmt.Errorf("starting input stream: %w", err)
	}

	log.Component("audio").WithFields(log.Fields{
		"device":   e.DeviceName(),
		"channels": e.channels,
		"rate":     e.cfg.SampleRate,
		"buffer":   e.cfg.FramesPerBuffer,
		"latency":  e.inputLatency,
	}).Info("capture started")
	return nil
}

func (e *Engine) StopInputStream() error {
	if e.inputStream != nil {
		if err := e.inputStream.Stop(); err != nil {
			return err
		}

		if err := e.inputStream.Close(); err != nil {
			return err
		}

		e.inputStream = nil
		log.Component("audio").Infof("capture stopped after %d buffers (%d gated)", e.buffers.Load(), e.gated.Load())
	}

	return nil
}

// processInputStream is the PortAudio callback.
// Performance Critical:
// - Uses pre-allocated buffers only
// - Hands off to the visualizer without blocking
func (e *Engine) processInputStream(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e.processBuffer(in)
}

// processBuffer downmixes, gates and forwards one callback's worth of
// interleaved samples.
func (e *Engine) processBuffer(in []float32) {
	e.mono = Downmix(e.mono, in, e.channels)
	e.buffers.Add(1)
	if !e.gate.Apply(e.mono) {
		e.gated.Add(1)
	}
	e.assembler.Write(e.mono)
}
