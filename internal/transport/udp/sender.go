// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	applog "spectrum/internal/log"
)

// ErrSenderClosed is returned by Send after Close.
var ErrSenderClosed = errors.New("udp: sender closed")

// UDPSender writes datagrams to one connected peer.
type UDPSender struct {
	mu     sync.Mutex
	conn   *net.UDPConn
	sent   uint64
	failed uint64
	log    *logrus.Entry
}

// NewUDPSender resolves and connects to target ("host:port"). Nothing is
// sent until the first Send, so an absent receiver is not an error here.
func NewUDPSender(target string) (*UDPSender, error) {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("resolving udp target %q: %w", target, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dialing udp target %q: %w", target, err)
	}

	s := &UDPSender{
		conn: conn,
		log:  applog.Component("udp").WithField("target", conn.RemoteAddr().String()),
	}
	s.log.Info("sender ready")
	return s, nil
}

// Send writes data as a single datagram. Safe for concurrent use.
func (s *UDPSender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrSenderClosed
	}
	if _, err := s.conn.Write(data); err != nil {
		// A receiver that is not listening yet makes this fail on some
		// platforms; the next tick tries again.
		s.failed++
		return fmt.Errorf("udp send: %w", err)
	}
	s.sent++
	return nil
}

// Close releases the socket. Further calls are no-ops.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.log.WithFields(logrus.Fields{"sent": s.sent, "failed": s.failed}).Debug("sender closed")
	if err != nil {
		return fmt.Errorf("closing udp socket: %w", err)
	}
	return nil
}
