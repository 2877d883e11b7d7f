package serialdiag

import "errors"

// Fatal open failures. Nothing is held when either is returned.
var (
	ErrPortNotFound    = errors.New("serial: port not found")
	ErrPortUnavailable = errors.New("serial: port unavailable")
)

// Step failures. These are reported and the session carries on.
var (
	ErrQueryStateFailed = errors.New("serial: get comm state failed")
	ErrSetStateFailed   = errors.New("serial: set comm state failed")
	ErrSetTimeoutFailed = errors.New("serial: set timeouts failed")
	ErrWriteFailed      = errors.New("serial: write failed")
	ErrReadFailed       = errors.New("serial: read failed")
)

var (
	ErrClosed           = errors.New("serial: port closed")
	ErrWriteTimeout     = errors.New("serial: write timed out")
	ErrInvalidBuffer    = errors.New("serial: invalid buffer")
	ErrBufferTooLarge   = errors.New("serial: buffer exceeds maximum size")
	ErrInvalidPortName  = errors.New("serial: invalid port name")
	ErrStateUnsupported = errors.New("serial: driver cannot report line state")
)

// IsFatal reports whether err ends a diagnostic run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrPortNotFound) || errors.Is(err, ErrPortUnavailable)
}
