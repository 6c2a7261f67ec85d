// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"waveviz/internal/log"
	"waveviz/internal/transport"
)

var logger = log.Named("udp")

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("udp sender closed")

// Sender handles sending data packets over UDP.
type Sender struct {
	mu     sync.Mutex // protects conn during Close
	conn   *net.UDPConn
	target *net.UDPAddr
	closed bool
}

// NewSender creates a Sender targeting address ("host:port").
func NewSender(address string) (*Sender, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("resolve UDP target %q: %w", address, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial UDP target %q: %w", address, err)
	}
	logger.Infof("sending to %s", conn.RemoteAddr())
	return &Sender{conn: conn, target: addr}, nil
}

// Target returns the resolved destination.
func (s *Sender) Target() *net.UDPAddr { return s.target }

// Send transmits a []byte payload as one datagram.
func (s *Sender) Send(data any) error {
	b, ok := data.([]byte)
	if !ok {
		return fmt.Errorf("udp sender: unsupported payload %T", data)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, err := s.conn.Write(b); err != nil {
		return fmt.Errorf("send UDP packet: %w", err)
	}
	return nil
}

// Close closes the underlying connection. Later calls return nil.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	logger.Debugf("closing connection to %s", s.conn.RemoteAddr())
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("close UDP connection: %w", err)
	}
	return nil
}

var _ transport.Transport = (*Sender)(nil)
