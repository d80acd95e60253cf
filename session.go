// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"

	"spectrum/internal/config"
	"spectrum/internal/log"
	"spectrum/internal/transport"
	"spectrum/internal/transport/udp"
	"spectrum/internal/tui"
	"spectrum/internal/visualizer"
)

// headlessLogEvery is how many frames the logging renderer skips between
// log lines (about once a second at the default frame interval).
const headlessLogEvery = 30

// session owns a visualizer and every rendering collaborator attached to it.
type session struct {
	vis       *visualizer.Visualizer
	screen    *tui.Renderer
	maxHeight float64

	ws        *transport.WebSocketTransport
	publisher *udp.UDPPublisher
	closers   []func() error
}

func newSession(cfg *config.Config, headless bool) (_ *session, err error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}

	s := &session{maxHeight: opts.Analysis.MaxBarHeight}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	var renderers visualizer.MultiRenderer
	if headless {
		lt := transport.NewLoggingTransport(headlessLogEvery)
		renderers = append(renderers, lt)
		s.closers = append(s.closers, lt.Close)
	} else {
		s.screen = tui.NewRenderer()
		renderers = append(renderers, s.screen)
	}

	if cfg.Transport.WebSocketEnabled {
		ws, err := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress)
		if err != nil {
			return nil, err
		}
		renderers = append(renderers, ws)
		s.ws = ws
		s.closers = append(s.closers, ws.Close)
	}

	s.vis, err = visualizer.New(opts, renderers)
	if err != nil {
		return nil, err
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, sender.Close)

		s.publisher, err = udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender, s.vis)
		if err != nil {
			return nil, err
		}
		s.publisher.Start()
	}
	return s, nil
}

// run blocks until the user quits the screen, ctx is done, or finished
// is closed in headless mode.
func (s *session) run(ctx context.Context, title string, finished <-chan struct{}) error {
	if s.screen != nil {
		return tui.Run(ctx, s.vis, s.screen, title, s.maxHeight)
	}
	select {
	case <-ctx.Done():
	case <-finished:
	}
	return nil
}

// Close stops the publisher before the visualizer it reads from, then
// releases the transports.
func (s *session) Close() error {
	var errs []error
	if s.publisher != nil {
		errs = append(errs, s.publisher.Stop())
	}
	if s.vis != nil {
		st := s.vis.Stats()
		s.vis.Dispose()
		log.Component("main").WithFields(log.Fields{
			"submitted": st.Submitted,
			"replaced":  st.Replaced,
			"analyzed":  st.Analyzed,
			"rendered":  st.Rendered,
			"errors":    st.Errors,
		}).Info("visualizer disposed")
	}
	if s.ws != nil {
		log.Component("main").WithField("dropped", s.ws.Dropped()).Info("websocket transport closed")
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, fmt.Errorf("closing transport: %w", err))
		}
	}
	return errors.Join(errs...)
}
