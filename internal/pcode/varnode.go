package pcode

import "fmt"

// SpaceType classifies an address space.
type SpaceType uint8

const (
	SpaceConstant  SpaceType = iota // immediate values
	SpaceProcessor                  // main memory
	SpaceRegister                   // processor registers
	SpaceInternal                   // engine scratch ("unique")
	SpaceOther
)

// Space is an address space as described by the engine.
type Space struct {
	Name  string
	Type  SpaceType
	Index int
}

func (s *Space) String() string {
	if s == nil {
		return "<nil>"
	}
	return s.Name
}

// Varnode is the engine's raw description of a storage location.
type Varnode struct {
	Space  *Space
	Offset uint64
	Size   uint32
}

func (v Varnode) String() string {
	return fmt.Sprintf("(%s, %#x, %d)", v.Space, v.Offset, v.Size)
}
