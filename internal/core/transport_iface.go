package core

import "errors"

var (
	ErrBackpressure     = errors.New("backpressure")
	ErrConnectionClosed = errors.New("connection closed")
)

// Frame is one encoded outbound message.
type Frame []byte

// Transport abstracts a live client messaging endpoint.
// Owned by the adapter; the adapter must Close() it.
// TrySend either queues the whole frame or fails without side effects.
type Transport interface {
	TrySend(Frame) error
	Close()
}
