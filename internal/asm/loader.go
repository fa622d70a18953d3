package asm

import (
	"fmt"

	"lifter/internal/sleigh"
)

// RangeError reports a byte request outside the bound buffer.
type RangeError struct {
	Addr uint64 // first byte requested
	Size int    // bytes requested
	Base uint64 // address of the bound buffer
	Len  int    // length of the bound buffer
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("read of %d bytes at %#x outside [%#x, %#x)", e.Size, e.Addr, e.Base, e.Base+uint64(e.Len))
}

func (e *RangeError) Unwrap() error { return sleigh.ErrOutOfRange }

// LoadImage serves instruction bytes to the engine from a caller buffer
// bound to a base address. It is rebound before every call.
type LoadImage struct {
	base uint64
	buf  []byte
}

// Reset binds buf at base. The buffer is not copied and must stay unchanged
// until the next Reset.
func (l *LoadImage) Reset(base uint64, buf []byte) {
	l.base, l.buf = base, buf
}

// LoadFill copies len(dst) bytes starting at addr.
func (l *LoadImage) LoadFill(dst []byte, addr uint64) error {
	if addr < l.base || addr-l.base > uint64(len(l.buf)) || uint64(len(dst)) > uint64(len(l.buf))-(addr-l.base) {
		return &RangeError{Addr: addr, Size: len(dst), Base: l.base, Len: len(l.buf)}
	}
	copy(dst, l.buf[addr-l.base:])
	return nil
}

// AdjustVMA is not supported; the image has no sections to relocate.
func (l *LoadImage) AdjustVMA(int64) error { return sleigh.ErrAdjustUnsupported }

func (l *LoadImage) ArchType() string { return "lifter" }
