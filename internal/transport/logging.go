// SPDX-License-Identifier: MIT
package transport

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"spectrum/internal/log"
)

// LoggingTransport writes a summary of every Nth frame to the debug log.
// It is the renderer used in headless mode.
type LoggingTransport struct {
	every  uint64
	frames atomic.Uint64
	log    *logrus.Entry
}

// NewLoggingTransport logs one frame out of every. Values below 1 log
// every frame.
func NewLoggingTransport(every int) *LoggingTransport {
	if every < 1 {
		every = 1
	}
	lt := &LoggingTransport{
		every: uint64(every),
		log:   log.Component("transport.log"),
	}
	lt.log.Infof("using logging transport (every %d frames)", every)
	return lt
}

// Render logs the peak bar of sampled frames. It never fails.
func (lt *LoggingTransport) Render(heights []float64) error {
	n := lt.frames.Add(1)
	if (n-1)%lt.every != 0 {
		return nil
	}
	peak, idx := 0.0, -1
	for i, h := range heights {
		if h > peak {
			peak, idx = h, i
		}
	}
	lt.log.WithFields(log.Fields{
		"frame": n,
		"bars":  len(heights),
		"peak":  peak,
		"bar":   idx,
	}).Debug("frame")
	return nil
}

// Frames returns the number of frames seen.
func (lt *LoggingTransport) Frames() uint64 {
	return lt.frames.Load()
}

// Close is a no-op.
func (lt *LoggingTransport) Close() error {
	lt.log.Debugf("closed after %d frames", lt.frames.Load())
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
