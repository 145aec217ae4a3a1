// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"sync/atomic"

	"pocket/internal/log"
)

// LoggingTransport implements the Transport interface by logging data at
// INFO. Identical consecutive messages are collapsed so a held note does not
// flood the log.
type LoggingTransport struct {
	last   atomic.Value // string
	closed atomic.Bool
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	log.Debugf("LoggingTransport: Created")
	return &LoggingTransport{}
}

// Send logs the received data using its String method when it has one.
func (lt *LoggingTransport) Send(data any) error {
	if lt.closed.Load() {
		return ErrClosed
	}

	msg := fmt.Sprint(data)
	if prev, _ := lt.last.Load().(string); prev == msg {
		return nil
	}
	lt.last.Store(msg)
	log.Info(msg)
	return nil
}

// Close stops further logging.
func (lt *LoggingTransport) Close() error {
	lt.closed.Store(true)
	log.Debugf("LoggingTransport: Closed")
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
