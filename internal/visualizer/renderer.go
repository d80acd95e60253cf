// SPDX-License-Identifier: MIT
package visualizer

import (
	"errors"
	"fmt"
)

// Renderer receives bar heights after every accepted update. The slice is
// only valid for the duration of the call; implementations that keep it
// must copy. Renderers that draw on a specific thread (a UI loop, a
// network writer) are responsible for handing the data over themselves.
type Renderer interface {
	Render(heights []float64) error
}

// RendererFunc adapts a plain function to the Renderer interface.
type RendererFunc func(heights []float64) error

// Render calls f(heights).
func (f RendererFunc) Render(heights []float64) error {
	return f(heights)
}

// MultiRenderer fans heights out to several renderers. A failing or
// panicking renderer does not stop the others; their errors are joined.
type MultiRenderer []Renderer

// Render delivers heights to every renderer in order.
func (m MultiRenderer) Render(heights []float64) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := safeRender(r, heights); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// safeRender converts a renderer panic into an error.
func safeRender(r Renderer, heights []float64) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrRendererPanic, p)
		}
	}()
	return r.Render(heights)
}
