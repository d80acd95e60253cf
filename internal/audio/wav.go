// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"spectrum/internal/log"
)

// ErrUnsupportedFile is returned for files the WAV source cannot stream.
var ErrUnsupportedFile = errors.New("unsupported audio file")

const wavFormatPCM = 1

// FileInfo describes an opened WAV file.
type FileInfo struct {
	Path       string
	SampleRate int
	Channels   int
	BitDepth   int
}

// StreamOptions controls how a file is fed to the sink.
type StreamOptions struct {
	FrameSize int  // analysis window in samples
	HopSize   int  // samples read per step
	Realtime  bool // pace reads to the file's sample rate
}

// WAVSource streams integer PCM WAV files as mono frames.
type WAVSource struct {
	file *os.File
	dec  *wav.Decoder
	info FileInfo
}

// OpenWAV opens path and reads its header.
func OpenWAV(path string) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is not a valid WAV file", ErrUnsupportedFile, path)
	}
	if dec.WavAudioFormat != wavFormatPCM {
		f.Close()
		return nil, fmt.Errorf("%w: %s uses audio format %d, only integer PCM is supported",
			ErrUnsupportedFile, path, dec.WavAudioFormat)
	}
	switch dec.BitDepth {
	case 8, 16, 24, 32:
	default:
		f.Close()
		return nil, fmt.Errorf("%w: %s has bit depth %d", ErrUnsupportedFile, path, dec.BitDepth)
	}

	return &WAVSource{
		file: f,
		dec:  dec,
		info: FileInfo{
			Path:       path,
			SampleRate: int(dec.SampleRate),
			Channels:   int(dec.NumChans),
			BitDepth:   int(dec.BitDepth),
		},
	}, nil
}

// Info returns the header fields.
func (s *WAVSource) Info() FileInfo {
	return s.info
}

// Close releases the file.
func (s *WAVSource) Close() error {
	return s.file.Close()
}

// Stream decodes the file hop by hop, downmixes to mono and writes it
// through a frame assembler into sink. It returns the number of mono
// samples streamed, stopping early with ctx.Err() when ctx is done.
func (s *WAVSource) Stream(ctx context.Context, opts StreamOptions, sink FrameSink) (int64, error) {
	if opts.HopSize < 1 {
		opts.HopSize = opts.FrameSize
	}
	assembler, err := NewAssembler(opts.FrameSize, sink)
	if err != nil {
		return 0, err
	}

	channels := max(1, s.info.Channels)
	buf := &goaudio.IntBuffer{
		Format:         s.dec.Format(),
		Data:           make([]int, opts.HopSize*channels),
		SourceBitDepth: s.info.BitDepth,
	}
	mono := make([]float64, opts.HopSize)

	var tick <-chan time.Time
	if opts.Realtime && s.info.SampleRate > 0 {
		step := time.Duration(float64(opts.HopSize) / float64(s.info.SampleRate) * float64(time.Second))
		ticker := time.NewTicker(step)
		defer ticker.Stop()
		tick = ticker.C
	}

	logger := log.Component("wav").WithFields(log.Fields{
		"file":     s.info.Path,
		"rate":     s.info.SampleRate,
		"channels": s.info.Channels,
		"bits":     s.info.BitDepth,
	})
	logger.Info("streaming")

	var streamed int64
	for {
		if err := ctx.Err(); err != nil {
			return streamed, err
		}

		n, err := s.dec.PCMBuffer(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return streamed, fmt.Errorf("decoding %s: %w", s.info.Path, err)
		}
		frames := n / channels
		if frames == 0 {
			break
		}

		mono = pcmToMono(mono, buf.Data[:frames*channels], channels, s.info.BitDepth)
		assembler.Write(mono)
		streamed += int64(frames)

		if tick != nil {
			select {
			case <-ctx.Done():
				return streamed, ctx.Err()
			case <-tick:
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
	}

	logger.Debugf("finished after %d samples", streamed)
	return streamed, nil
}

// pcmToMono converts interleaved integer PCM to mono floats in [-1, 1).
// 8-bit WAV data is unsigned.
func pcmToMono(dst []float64, data []int, channels, bitDepth int) []float64 {
	frames := len(data) / channels
	if cap(dst) < frames {
		dst = make([]float64, frames)
	}
	dst = dst[:frames]

	offset := 0
	scale := 1 / float64(int64(1)<<(bitDepth-1))
	if bitDepth == 8 {
		offset = 128
	}
	scale /= float64(channels)

	for i := range dst {
		var sum int
		for _, v := range data[i*channels : (i+1)*channels] {
			sum += v - offset
		}
		dst[i] = float64(sum) * scale
	}
	return dst
}
