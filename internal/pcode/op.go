package pcode

import (
	"fmt"
	"strings"
)

// Op is one micro-operation. Each slot is nil when the operation does not
// use it. Slots follow the engine's input order: an operation with three
// inputs keeps the third in Out. For a STORE, In0 and In1 are the address
// space and the pointer and Out is the value written, so Out is an input
// here rather than the stored-to location.
type Op struct {
	Addr uint64
	Code OpCode
	In0  Operand
	In1  Operand
	Out  Operand
}

// Inputs returns the populated input slots in order.
func (o Op) Inputs() []Operand {
	var in []Operand
	if o.In0 != nil {
		in = append(in, o.In0)
	}
	if o.In1 != nil {
		in = append(in, o.In1)
	}
	return in
}

// Arity is the number of populated input slots.
func (o Op) Arity() int {
	n := 0
	if o.In0 != nil {
		n++
	}
	if o.In1 != nil {
		n++
	}
	return n
}

// Equal compares two ops operand by operand.
func (o Op) Equal(x Op) bool {
	return o.Addr == x.Addr && o.Code == x.Code &&
		Equal(o.In0, x.In0) && Equal(o.In1, x.In1) && Equal(o.Out, x.Out)
}

func (o Op) String() string {
	var b strings.Builder
	if o.Out != nil && o.Code != Store {
		b.WriteString(o.Out.String())
		b.WriteString(" = ")
	}
	b.WriteString(o.Code.String())
	sep := " "
	for _, in := range o.Inputs() {
		b.WriteString(sep)
		b.WriteString(in.String())
		sep = ", "
	}
	if o.Out != nil && o.Code == Store {
		b.WriteString(sep)
		b.WriteString(o.Out.String())
	}
	return b.String()
}

// Seq is the ordered translation of one instruction.
type Seq []Op

// Equal compares two sequences op by op.
func (s Seq) Equal(t Seq) bool {
	if len(s) != len(t) {
		return false
	}
	for i := range s {
		if !s[i].Equal(t[i]) {
			return false
		}
	}
	return true
}

// Def returns the op that defined t within s.
func (s Seq) Def(t Temporary) (Op, bool) {
	if !t.HasDef() || t.Def >= len(s) {
		return Op{}, false
	}
	return s[t.Def], true
}

func (s Seq) String() string {
	var b strings.Builder
	for i, op := range s {
		fmt.Fprintf(&b, "%3d  %s\n", i, op)
	}
	return b.String()
}
