package client

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport matches every failure of the underlying stream.
	ErrTransport = errors.New("pixelflut: transport failure")
	// ErrPrecondition matches caller data that violates a protocol
	// invariant. No byte has been sent when it is returned.
	ErrPrecondition = errors.New("pixelflut: precondition violated")

	ErrColorCount = errors.New("color buffer length does not match rect area")
	ErrClosed     = errors.New("client closed")
)

type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("pixelflut %s: transport: %v", e.Op, e.Err)
}
func (e *TransportError) Unwrap() error        { return e.Err }
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

type PreconditionError struct {
	Op  string
	Err error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("pixelflut %s: precondition: %v", e.Op, e.Err)
}
func (e *PreconditionError) Unwrap() error        { return e.Err }
func (e *PreconditionError) Is(target error) bool { return target == ErrPrecondition }

func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPrecondition):
		return "precondition"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "other"
	}
}
