package sleigh

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode marks bytes that do not form an instruction.
	ErrDecode = errors.New("cannot decode instruction")
	// ErrOutOfRange marks a byte request outside the loaded image.
	ErrOutOfRange = errors.New("address out of range")
	// ErrAdjustUnsupported is returned by images that cannot be rebased.
	ErrAdjustUnsupported = errors.New("vma adjustment not supported")
	// ErrUnknownBackend is returned by Open for unregistered names.
	ErrUnknownBackend = errors.New("unknown backend")
)

// DecodeError reports a failed decode at Addr. It matches ErrDecode as well
// as its cause.
type DecodeError struct {
	Addr uint64
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v at %#x", ErrDecode, e.Addr)
	}
	return fmt.Sprintf("%v at %#x: %v", ErrDecode, e.Addr, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDecode}
	}
	return []error{ErrDecode, e.Err}
}
