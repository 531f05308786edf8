package socket

import (
	"errors"
	"fmt"
)

var (
	// ErrIOPending is returned by asynchronous operations whose result will
	// be delivered later through a completion callback
	ErrIOPending = errors.New("io pending")

	// ErrSocketNotConnected is returned by I/O on a client socket that was
	// never connected
	ErrSocketNotConnected = errors.New("socket is not connected")

	// ErrFailed is a generic failure used by factories and fakes
	ErrFailed = errors.New("socket operation failed")

	// ErrAddressInvalid is returned when an address cannot be used for the
	// requested operation
	ErrAddressInvalid = errors.New("address invalid")
)

// Error describes a failed socket operation
type Error struct {
	Op      string
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
