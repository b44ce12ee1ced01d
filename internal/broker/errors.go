package broker

import (
	"errors"
	"fmt"
)

var (
	// ErrDisconnected is returned by a Driver whose connection is down.
	ErrDisconnected = errors.New("broker: disconnected")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("broker: closed")

	// ErrInvalidRoutingKey is returned for keys the transport cannot address.
	ErrInvalidRoutingKey = errors.New("broker: invalid routing key")
)

// PublishErrorKind classifies a failed publish.
type PublishErrorKind int

const (
	// ConnectFailed means the broker could not be reached.
	ConnectFailed PublishErrorKind = iota + 1

	// ChannelFailed means the connection was up but the publish failed.
	ChannelFailed
)

// String returns the kind's name.
func (k PublishErrorKind) String() string {
	switch k {
	case ConnectFailed:
		return "connect_failed"
	case ChannelFailed:
		return "channel_failed"
	default:
		return "unknown"
	}
}

// PublishError is returned by Publish for every failure.
type PublishError struct {
	Kind       PublishErrorKind
	RoutingKey string
	Err        error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("broker: publish to %q: %s: %v", e.RoutingKey, e.Kind, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// KindOf returns the PublishErrorKind carried by err, or 0.
func KindOf(err error) PublishErrorKind {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}
