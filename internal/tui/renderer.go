// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

type sender interface {
	Send(msg tea.Msg)
}

// Renderer hands frames to the running bars program. It exists before the
// program does so it can be given to the visualizer first; frames that
// arrive while no program is attached are dropped. Each frame is copied
// because the caller reuses its slice.
type Renderer struct {
	mu      sync.RWMutex
	program sender
}

// NewRenderer returns a detached renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) attach(s sender) {
	r.mu.Lock()
	r.program = s
	r.mu.Unlock()
}

// Render implements visualizer.Renderer.
func (r *Renderer) Render(heights []float64) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.program == nil {
		return nil
	}
	frame := make(HeightsMsg, len(heights))
	copy(frame, heights)
	r.program.Send(frame)
	return nil
}

// Run shows the bars screen for ctrl, feeding it from r, and blocks until
// the user quits or ctx is done.
func Run(ctx context.Context, ctrl Controller, r *Renderer, title string, maxHeight float64) error {
	p := tea.NewProgram(NewBarsModel(ctrl, title, maxHeight), tea.WithAltScreen(), tea.WithContext(ctx))
	r.attach(p)
	defer r.attach(nil)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
