// SPDX-License-Identifier: MIT
package transport

import (
	"sync/atomic"

	"waveviz/internal/log"
)

var logger = log.Named("transport")

// LoggingTransport implements the Transport interface by logging what it
// receives at debug level. It stands in for a network sink during
// development.
type LoggingTransport struct {
	sent   atomic.Uint64
	closed atomic.Bool
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	logger.Infof("using logging transport")
	return &LoggingTransport{}
}

// Send logs the size of packets and the type of anything else.
func (lt *LoggingTransport) Send(data any) error {
	n := lt.sent.Add(1)
	switch d := data.(type) {
	case []byte:
		logger.Debugf("packet %d: %d bytes", n, len(d))
	default:
		logger.Debugf("message %d: %T", n, d)
	}
	return nil
}

// Sent returns the number of Send calls.
func (lt *LoggingTransport) Sent() uint64 { return lt.sent.Load() }

// Close reports the total once.
func (lt *LoggingTransport) Close() error {
	if lt.closed.CompareAndSwap(false, true) {
		logger.Infof("logging transport closed after %d messages", lt.sent.Load())
	}
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
