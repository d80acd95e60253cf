// SPDX-License-Identifier: MIT
package visualizer

import "sync"

// mailbox is a single-slot, latest-wins hand-off between the frame
// producer and the analysis worker. put never blocks; a frame that has not
// been taken yet is overwritten. Buffers are swapped rather than
// reallocated, so steady-state operation does not allocate.
type mailbox struct {
	mu      sync.Mutex
	pending []float64
	full    bool
	ready   chan struct{}
}

func newMailbox(capacity int) *mailbox {
	return &mailbox{
		pending: make([]float64, 0, capacity),
		ready:   make(chan struct{}, 1),
	}
}

// put stores a copy of frame and reports whether an untaken frame was
// replaced.
func (m *mailbox) put(frame []float64) (replaced bool) {
	m.mu.Lock()
	replaced = m.full
	m.pending = append(m.pending[:0], frame...)
	m.full = true
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
	return replaced
}

// take swaps the pending frame with buf. It returns the frame and true, or
// buf unchanged and false when the slot is empty.
func (m *mailbox) take(buf []float64) ([]float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.full {
		return buf, false
	}
	frame := m.pending
	m.pending = buf[:0]
	m.full = false
	return frame, true
}

// drop discards the pending frame and reports whether there was one.
func (m *mailbox) drop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	had := m.full
	m.full = false
	m.pending = m.pending[:0]
	return had
}

// release frees the buffer.
func (m *mailbox) release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.full = false
	m.pending = nil
}
