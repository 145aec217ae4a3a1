// SPDX-License-Identifier: MIT
package transport

import "errors"

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport closed")

// Transport defines a generic interface for publishing readings or events.
// Implementations must be safe for concurrent use and must not block the
// caller for long: Send is called once per analysed frame.
type Transport interface {
	Send(data any) error
	Close() error
}
