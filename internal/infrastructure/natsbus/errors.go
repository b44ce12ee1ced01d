package natsbus

import "errors"

// Domain-specific errors for NATS operations.
var (
	ErrNotConnected     = errors.New("nats: not connected")
	ErrConnectionFailed = errors.New("nats: connection failed")
	ErrPublishFailed    = errors.New("nats: publish failed")
	ErrSubscribeFailed  = errors.New("nats: subscribe failed")
	ErrInvalidSubject   = errors.New("nats: invalid subject")
)
