package pcode

import "fmt"

// RegisterResolver names register-space varnodes. Implementations return the
// canonical (host) name.
type RegisterResolver interface {
	RegisterName(v Varnode) string
}

// ContractError reports emission the builder cannot represent. It means the
// engine and the lifter disagree about the callback protocol, so the builder
// panics with it instead of returning it.
type ContractError struct {
	Addr   uint64
	Code   OpCode
	Inputs int
	Reason string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("pcode: %s at %#x (%s, %d inputs)", e.Reason, e.Addr, e.Code, e.Inputs)
}

type tempKey struct {
	offset uint64
	size   uint32
}

// Builder collects the micro-operations emitted for one instruction. It
// implements the engine's pcode emission callback.
type Builder struct {
	regs RegisterResolver
	ops  Seq
	defs map[tempKey]int
}

func NewBuilder(regs RegisterResolver) *Builder {
	return &Builder{regs: regs, defs: make(map[tempKey]int)}
}

// Dump receives one emitted operation.
func (b *Builder) Dump(addr uint64, opc OpCode, out *Varnode, in []Varnode) {
	isize := len(in)
	if opc == CallOther && isize > 2 {
		isize = 2
	}

	op := Op{Addr: addr, Code: opc}
	switch isize {
	case 3:
		// STORE: the value lands in the output slot.
		op.Out = b.use(addr, opc, in[2])
		fallthrough
	case 2:
		op.In1 = b.use(addr, opc, in[1])
		fallthrough
	case 1:
		op.In0 = b.use(addr, opc, in[0])
	case 0:
	default:
		panic(&ContractError{Addr: addr, Code: opc, Inputs: isize, Reason: "unexpected input count"})
	}

	if out != nil {
		op.Out = b.def(addr, opc, *out)
	}
	b.ops = append(b.ops, op)
}

// Seq returns the operations collected so far. The builder gives up the
// slice; later calls to Dump start a new one.
func (b *Builder) Seq() Seq {
	s := b.ops
	b.ops = nil
	clear(b.defs)
	return s
}

// Reset drops everything collected so far.
func (b *Builder) Reset() {
	b.ops = nil
	clear(b.defs)
}

func (b *Builder) use(addr uint64, opc OpCode, v Varnode) Operand {
	o := b.operand(addr, opc, v)
	if t, ok := o.(Temporary); ok {
		if d, ok := b.defs[tempKey{t.Offset, t.Size}]; ok {
			t.Def = d
		}
		return t
	}
	return o
}

func (b *Builder) def(addr uint64, opc OpCode, v Varnode) Operand {
	o := b.operand(addr, opc, v)
	if t, ok := o.(Temporary); ok {
		t.Def = len(b.ops)
		b.defs[tempKey{t.Offset, t.Size}] = t.Def
		return t
	}
	return o
}

func (b *Builder) operand(addr uint64, opc OpCode, v Varnode) Operand {
	if v.Space == nil {
		panic(&ContractError{Addr: addr, Code: opc, Reason: "varnode without address space"})
	}
	switch v.Space.Type {
	case SpaceConstant:
		return Constant{Value: v.Offset}
	case SpaceRegister:
		return Register{Name: b.regs.RegisterName(v), Bits: v.Size * 8}
	case SpaceInternal:
		return NewTemporary(v.Offset, v.Size)
	default:
		return Memory{Addr: v.Offset, Size: v.Size}
	}
}
