// SPDX-License-Identifier: MIT

// Package transport ships bar heights out of the process. Every transport
// is a visualizer renderer: Render is called on the analysis goroutine
// after each accepted update and must not block it.
package transport

import "time"

// Transport is a rendering collaborator that owns an external resource.
// Implementations must be safe for concurrent use.
type Transport interface {
	Render(heights []float64) error
	Close() error
}

// Frame is the JSON message broadcast to WebSocket clients.
type Frame struct {
	Type      string    `json:"type"` // always "bars"
	Seq       uint64    `json:"seq"`
	Timestamp int64     `json:"ts"` // unix milliseconds
	Bars      []float64 `json:"bars"`
}

func newFrame(seq uint64, heights []float64) Frame {
	bars := make([]float64, len(heights))
	copy(bars, heights)
	return Frame{
		Type:      "bars",
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		Bars:      bars,
	}
}
