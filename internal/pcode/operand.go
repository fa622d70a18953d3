// Package pcode is the typed intermediate representation produced by the
// lifter: operands, micro-operations and the builder that assembles them
// from engine emission callbacks.
package pcode

import "fmt"

// Kind discriminates the four operand variants.
type Kind uint8

const (
	KindRegister Kind = iota
	KindMemory
	KindConstant
	KindTemporary
)

func (k Kind) String() string {
	switch k {
	case KindRegister:
		return "register"
	case KindMemory:
		return "memory"
	case KindConstant:
		return "constant"
	case KindTemporary:
		return "temporary"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Operand is one input or output of an Op. It is a closed set: Register,
// Memory, Constant and Temporary are the only implementations.
type Operand interface {
	Kind() Kind
	// Equal compares by value. Operands of different kinds are never equal.
	Equal(Operand) bool
	String() string

	operand()
}

// NoDef marks a Temporary without a defining op.
const NoDef = -1

// Register is a named processor register. Name is canonical (lowercase).
type Register struct {
	Name string
	Bits uint32
}

// Memory is a location in a processor address space.
type Memory struct {
	Addr uint64
	Size uint32 // bytes
}

// Constant is an immediate value.
type Constant struct {
	Value uint64
}

// Temporary is a value in the engine's scratch space.
//
// Def is the index, within the enclosing Seq, of the Op that wrote this
// value, or NoDef. It is only meaningful inside that Seq and is ignored by
// Equal.
type Temporary struct {
	Offset uint64
	Size   uint32 // bytes
	Def    int
}

func (Register) operand()  {}
func (Memory) operand()    {}
func (Constant) operand()  {}
func (Temporary) operand() {}

func (Register) Kind() Kind  { return KindRegister }
func (Memory) Kind() Kind    { return KindMemory }
func (Constant) Kind() Kind  { return KindConstant }
func (Temporary) Kind() Kind { return KindTemporary }

func (r Register) Equal(o Operand) bool {
	x, ok := o.(Register)
	return ok && x.Name == r.Name
}

func (m Memory) Equal(o Operand) bool {
	x, ok := o.(Memory)
	return ok && x.Addr == m.Addr && x.Size == m.Size
}

func (c Constant) Equal(o Operand) bool {
	x, ok := o.(Constant)
	return ok && x.Value == c.Value
}

func (t Temporary) Equal(o Operand) bool {
	x, ok := o.(Temporary)
	return ok && x.Offset == t.Offset && x.Size == t.Size
}

func (r Register) String() string { return r.Name }

func (m Memory) String() string { return fmt.Sprintf("ram[%#x]:%d", m.Addr, m.Size) }

func (c Constant) String() string { return fmt.Sprintf("#%#x", c.Value) }

func (t Temporary) String() string { return fmt.Sprintf("u%#x:%d", t.Offset, t.Size) }

// HasDef reports whether t carries a back-reference to its defining op.
func (t Temporary) HasDef() bool { return t.Def >= 0 }

// NewTemporary returns a Temporary without a back-reference.
func NewTemporary(offset uint64, size uint32) Temporary {
	return Temporary{Offset: offset, Size: size, Def: NoDef}
}

func IsRegister(o Operand) bool {
	_, ok := o.(Register)
	return ok
}

func IsMemory(o Operand) bool {
	_, ok := o.(Memory)
	return ok
}

func IsConstant(o Operand) bool {
	_, ok := o.(Constant)
	return ok
}

func IsTemporary(o Operand) bool {
	_, ok := o.(Temporary)
	return ok
}

// Equal compares two possibly absent operands.
func Equal(a, b Operand) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}
