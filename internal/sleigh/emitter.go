package sleigh

import "lifter/internal/pcode"

const uniqueBase = 0x1000

// Emitter builds the micro-operations of one instruction and hands them to
// a PcodeEmit. Temporaries are allocated fresh for every instruction.
type Emitter struct {
	b    *Base
	out  PcodeEmit
	addr uint64
	next uint64
	n    int
}

// Emitter starts emission for the instruction at addr.
func (b *Base) Emitter(out PcodeEmit, addr uint64) *Emitter {
	return &Emitter{b: b, out: out, addr: addr, next: uniqueBase}
}

// Addr is the address of the instruction being emitted.
func (e *Emitter) Addr() uint64 { return e.addr }

// Count is the number of operations emitted so far.
func (e *Emitter) Count() int { return e.n }

// PtrSize is the byte width of a code or data address.
func (e *Emitter) PtrSize() uint32 { return e.b.Reg(e.b.spec.PC).Size }

func (e *Emitter) Unique(size uint32) pcode.Varnode {
	v := pcode.Varnode{Space: e.b.spaces.Unique, Offset: e.next, Size: size}
	step := (uint64(size) + 0xf) &^ 0xf
	if step == 0 {
		step = 0x10
	}
	e.next += step
	return v
}

func (e *Emitter) Const(v uint64, size uint32) pcode.Varnode {
	if size < 8 {
		v &= 1<<(8*size) - 1
	}
	return pcode.Varnode{Space: e.b.spaces.Const, Offset: v, Size: size}
}

func (e *Emitter) RAM(addr uint64, size uint32) pcode.Varnode {
	return pcode.Varnode{Space: e.b.spaces.RAM, Offset: addr, Size: size}
}

func (e *Emitter) Reg(name string) pcode.Varnode { return e.b.Reg(name) }

// Op emits one raw operation.
func (e *Emitter) Op(opc pcode.OpCode, out *pcode.Varnode, in ...pcode.Varnode) {
	e.out.Dump(e.addr, opc, out, in)
	e.n++
}

func (e *Emitter) Copy(dst, src pcode.Varnode) {
	e.Op(pcode.Copy, &dst, src)
}

// Binary emits a two-input operation into a new temporary. Comparisons and
// boolean operations produce one byte; everything else the width of a.
func (e *Emitter) Binary(opc pcode.OpCode, a, b pcode.Varnode) pcode.Varnode {
	size := a.Size
	if boolResult(opc) {
		size = 1
	}
	t := e.Unique(size)
	e.Op(opc, &t, a, b)
	return t
}

// BinaryTo emits a two-input operation into dst.
func (e *Emitter) BinaryTo(opc pcode.OpCode, dst, a, b pcode.Varnode) {
	e.Op(opc, &dst, a, b)
}

// Unary emits a one-input operation into a new temporary of a's width.
func (e *Emitter) Unary(opc pcode.OpCode, a pcode.Varnode) pcode.Varnode {
	size := a.Size
	if boolResult(opc) {
		size = 1
	}
	t := e.Unique(size)
	e.Op(opc, &t, a)
	return t
}

// Extend widens a to size bytes with INT_ZEXT or INT_SEXT.
func (e *Emitter) Extend(opc pcode.OpCode, a pcode.Varnode, size uint32) pcode.Varnode {
	t := e.Unique(size)
	e.Op(opc, &t, a)
	return t
}

// Trunc keeps the low size bytes of a.
func (e *Emitter) Trunc(a pcode.Varnode, size uint32) pcode.Varnode {
	t := e.Unique(size)
	e.Op(pcode.SubPiece, &t, a, e.Const(0, 4))
	return t
}

func (e *Emitter) spaceID() pcode.Varnode {
	return e.Const(uint64(e.b.spaces.RAM.Index), 4)
}

// Load reads size bytes of ram at ptr into a new temporary.
func (e *Emitter) Load(size uint32, ptr pcode.Varnode) pcode.Varnode {
	t := e.Unique(size)
	e.Op(pcode.Load, &t, e.spaceID(), ptr)
	return t
}

// LoadTo reads dst.Size bytes of ram at ptr into dst.
func (e *Emitter) LoadTo(dst, ptr pcode.Varnode) {
	e.Op(pcode.Load, &dst, e.spaceID(), ptr)
}

// Store writes val to ram at ptr.
func (e *Emitter) Store(ptr, val pcode.Varnode) {
	e.Op(pcode.Store, nil, e.spaceID(), ptr, val)
}

func (e *Emitter) Branch(target uint64) {
	e.Op(pcode.Branch, nil, e.RAM(target, e.PtrSize()))
}

func (e *Emitter) CBranch(target uint64, cond pcode.Varnode) {
	e.Op(pcode.CBranch, nil, e.RAM(target, e.PtrSize()), cond)
}

func (e *Emitter) BranchInd(v pcode.Varnode) { e.Op(pcode.BranchInd, nil, v) }

func (e *Emitter) Call(target uint64) {
	e.Op(pcode.Call, nil, e.RAM(target, e.PtrSize()))
}

func (e *Emitter) CallInd(v pcode.Varnode) { e.Op(pcode.CallInd, nil, v) }

func (e *Emitter) Return(v pcode.Varnode) { e.Op(pcode.Return, nil, v) }

// CallOther invokes a user-defined operation by name.
func (e *Emitter) CallOther(name string, args ...pcode.Varnode) {
	in := append([]pcode.Varnode{e.Const(e.b.UserOp(name), 4)}, args...)
	e.Op(pcode.CallOther, nil, in...)
}

func boolResult(opc pcode.OpCode) bool {
	switch opc {
	case pcode.IntEqual, pcode.IntNotEqual, pcode.IntSLess, pcode.IntSLessEqual,
		pcode.IntLess, pcode.IntLessEqual, pcode.IntCarry, pcode.IntSCarry, pcode.IntSBorrow,
		pcode.BoolNegate, pcode.BoolXor, pcode.BoolAnd, pcode.BoolOr,
		pcode.FloatEqual, pcode.FloatNotEqual, pcode.FloatLess, pcode.FloatLessEqual, pcode.FloatNaN:
		return true
	}
	return false
}
