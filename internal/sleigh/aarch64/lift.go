package aarch64

import (
	"fmt"

	"golang.org/x/arch/arm64/arm64asm"

	"lifter/internal/pcode"
	"lifter/internal/sleigh"
)

// lifter emits the semantics of one decoded instruction. The first problem
// it meets is kept in err; the caller then discards everything emitted.
type lifter struct {
	t    *Translator
	e    *sleigh.Emitter
	inst arm64asm.Inst
	addr uint64
	err  error
}

func (l *lifter) fail(format string, args ...any) {
	if l.err == nil {
		l.err = fmt.Errorf("%s: "+format, append([]any{l.inst.Op}, args...)...)
	}
}

func (l *lifter) lift() {
	a := l.inst.Args
	switch l.inst.Op {
	case arm64asm.NOP:

	case arm64asm.MOV, arm64asm.MOVZ:
		l.write(a[0], l.read(a[1], l.width(a[0])))
	case arm64asm.MOVN:
		w := l.width(a[0])
		c := l.read(a[1], w)
		l.write(a[0], l.e.Const(^c.Offset, w))
	case arm64asm.MOVK:
		l.movk(a[0], a[1])

	case arm64asm.ADD:
		l.arith(pcode.IntAdd, a[0], a[1], a[2], false)
	case arm64asm.ADDS:
		l.arith(pcode.IntAdd, a[0], a[1], a[2], true)
	case arm64asm.SUB:
		l.arith(pcode.IntSub, a[0], a[1], a[2], false)
	case arm64asm.SUBS:
		l.arith(pcode.IntSub, a[0], a[1], a[2], true)
	case arm64asm.CMP:
		l.compare(pcode.IntSub, a[0], a[1])
	case arm64asm.CMN:
		l.compare(pcode.IntAdd, a[0], a[1])
	case arm64asm.NEG:
		w := l.width(a[0])
		l.write(a[0], l.e.Binary(pcode.IntSub, l.e.Const(0, w), l.read(a[1], w)))
	case arm64asm.MUL:
		l.arith(pcode.IntMult, a[0], a[1], a[2], false)
	case arm64asm.UDIV:
		l.arith(pcode.IntDiv, a[0], a[1], a[2], false)
	case arm64asm.SDIV:
		l.arith(pcode.IntSDiv, a[0], a[1], a[2], false)

	case arm64asm.AND:
		l.logic(pcode.IntAnd, a[0], a[1], a[2], false, false)
	case arm64asm.ANDS:
		l.logic(pcode.IntAnd, a[0], a[1], a[2], true, false)
	case arm64asm.ORR:
		l.logic(pcode.IntOr, a[0], a[1], a[2], false, false)
	case arm64asm.EOR:
		l.logic(pcode.IntXor, a[0], a[1], a[2], false, false)
	case arm64asm.BIC:
		l.logic(pcode.IntAnd, a[0], a[1], a[2], false, true)
	case arm64asm.TST:
		w := l.width(a[0])
		r := l.e.Binary(pcode.IntAnd, l.read(a[0], w), l.read(a[1], w))
		l.flags(pcode.IntAnd, r, r, r)
	case arm64asm.MVN:
		w := l.width(a[0])
		l.write(a[0], l.e.Unary(pcode.IntNegate, l.read(a[1], w)))

	case arm64asm.LSL:
		l.shift(pcode.IntLeft, a[0], a[1], a[2])
	case arm64asm.LSR:
		l.shift(pcode.IntRight, a[0], a[1], a[2])
	case arm64asm.ASR:
		l.shift(pcode.IntSRight, a[0], a[1], a[2])

	case arm64asm.ADR, arm64asm.ADRP:
		l.write(a[0], l.e.Const(l.pcrel(a[1]), 8))

	case arm64asm.LDR, arm64asm.LDUR:
		l.load(a[0], a[1], l.width(a[0]), false)
	case arm64asm.LDRB, arm64asm.LDURB:
		l.load(a[0], a[1], 1, false)
	case arm64asm.LDRH, arm64asm.LDURH:
		l.load(a[0], a[1], 2, false)
	case arm64asm.LDRSB:
		l.load(a[0], a[1], 1, true)
	case arm64asm.LDRSH:
		l.load(a[0], a[1], 2, true)
	case arm64asm.LDRSW:
		l.load(a[0], a[1], 4, true)
	case arm64asm.STR, arm64asm.STUR:
		l.store(a[0], a[1], l.width(a[0]))
	case arm64asm.STRB, arm64asm.STURB:
		l.store(a[0], a[1], 1)
	case arm64asm.STRH, arm64asm.STURH:
		l.store(a[0], a[1], 2)
	case arm64asm.LDP:
		l.pair(true)
	case arm64asm.STP:
		l.pair(false)

	case arm64asm.B:
		if c, ok := a[0].(arm64asm.Cond); ok {
			l.e.CBranch(l.pcrel(a[1]), l.cond(c))
			return
		}
		l.e.Branch(l.pcrel(a[0]))
	case arm64asm.BL:
		l.e.Copy(l.e.Reg("X30"), l.e.Const(l.addr+instLen, 8))
		l.e.Call(l.pcrel(a[0]))
	case arm64asm.BR:
		l.e.BranchInd(l.read(a[0], 8))
	case arm64asm.BLR:
		dst := l.e.Unique(8)
		l.e.Copy(dst, l.read(a[0], 8))
		l.e.Copy(l.e.Reg("X30"), l.e.Const(l.addr+instLen, 8))
		l.e.CallInd(dst)
	case arm64asm.RET:
		l.e.Return(l.read(a[0], 8))
	case arm64asm.CBZ, arm64asm.CBNZ:
		v := l.read(a[0], l.width(a[0]))
		opc := pcode.IntEqual
		if l.inst.Op == arm64asm.CBNZ {
			opc = pcode.IntNotEqual
		}
		l.e.CBranch(l.pcrel(a[1]), l.e.Binary(opc, v, l.e.Const(0, v.Size)))
	case arm64asm.TBZ, arm64asm.TBNZ:
		l.testBit(a[0], a[1], a[2], l.inst.Op == arm64asm.TBNZ)

	case arm64asm.CSEL:
		w := l.width(a[0])
		l.write(a[0], l.sel(l.condArg(a[3]), l.read(a[1], w), l.read(a[2], w)))
	case arm64asm.CSINC:
		w := l.width(a[0])
		inc := l.e.Binary(pcode.IntAdd, l.read(a[2], w), l.e.Const(1, w))
		l.write(a[0], l.sel(l.condArg(a[3]), l.read(a[1], w), inc))
	case arm64asm.CSET:
		w := l.width(a[0])
		l.write(a[0], l.e.Extend(pcode.IntZExt, l.condArg(a[1]), w))

	case arm64asm.SVC:
		l.e.CallOther("svc", l.read(a[0], 2))
	case arm64asm.BRK:
		l.e.CallOther("brk", l.read(a[0], 2))
	case arm64asm.HLT:
		l.e.CallOther("hlt", l.read(a[0], 2))

	default:
		l.fail("no semantics")
	}
}

func (l *lifter) pcrel(a arm64asm.Arg) uint64 {
	rel, ok := a.(arm64asm.PCRel)
	if !ok {
		l.fail("operand %v is not a label", a)
		return l.addr
	}
	return target(l.inst, l.addr, rel)
}

func (l *lifter) condArg(a arm64asm.Arg) pcode.Varnode {
	c, ok := a.(arm64asm.Cond)
	if !ok {
		l.fail("operand %v is not a condition", a)
		return l.e.Const(1, 1)
	}
	return l.cond(c)
}

// cond evaluates a condition code over the NZCV flags to a boolean.
func (l *lifter) cond(c arm64asm.Cond) pcode.Varnode {
	ng, zr, cy, ov := l.e.Reg("NG"), l.e.Reg("ZR"), l.e.Reg("CY"), l.e.Reg("OV")
	var v pcode.Varnode
	switch c.Value >> 1 {
	case 0:
		v = zr
	case 1:
		v = cy
	case 2:
		v = ng
	case 3:
		v = ov
	case 4:
		v = l.e.Binary(pcode.BoolAnd, cy, l.e.Unary(pcode.BoolNegate, zr))
	case 5:
		v = l.e.Binary(pcode.IntEqual, ng, ov)
	case 6:
		v = l.e.Binary(pcode.BoolAnd, l.e.Unary(pcode.BoolNegate, zr), l.e.Binary(pcode.IntEqual, ng, ov))
	default:
		return l.e.Const(1, 1)
	}
	if (c.Value&1 == 1) != c.Invert {
		v = l.e.Unary(pcode.BoolNegate, v)
	}
	return v
}

// sel picks a when c holds, else b, without branching.
func (l *lifter) sel(c, a, b pcode.Varnode) pcode.Varnode {
	mask := l.e.Unary(pcode.Int2Comp, l.e.Extend(pcode.IntZExt, c, a.Size))
	diff := l.e.Binary(pcode.IntAnd, l.e.Binary(pcode.IntXor, a, b), mask)
	return l.e.Binary(pcode.IntXor, b, diff)
}

func (l *lifter) arith(opc pcode.OpCode, d, n, m arm64asm.Arg, setFlags bool) {
	w := l.width(d)
	a := l.read(n, w)
	b := l.read(m, w)
	r := l.e.Binary(opc, a, b)
	if setFlags {
		l.flags(opc, a, b, r)
	}
	l.write(d, r)
}

func (l *lifter) compare(opc pcode.OpCode, n, m arm64asm.Arg) {
	w := l.width(n)
	a := l.read(n, w)
	b := l.read(m, w)
	l.flags(opc, a, b, l.e.Binary(opc, a, b))
}

func (l *lifter) logic(opc pcode.OpCode, d, n, m arm64asm.Arg, setFlags, invert bool) {
	w := l.width(d)
	a := l.read(n, w)
	b := l.read(m, w)
	if invert {
		b = l.e.Unary(pcode.IntNegate, b)
	}
	r := l.e.Binary(opc, a, b)
	if setFlags {
		l.flags(pcode.IntAnd, a, b, r)
	}
	l.write(d, r)
}

// flags sets NZCV from the operands and result of opc.
func (l *lifter) flags(opc pcode.OpCode, a, b, r pcode.Varnode) {
	zero := l.e.Const(0, r.Size)
	l.e.BinaryTo(pcode.IntSLess, l.e.Reg("NG"), r, zero)
	l.e.BinaryTo(pcode.IntEqual, l.e.Reg("ZR"), r, zero)
	switch opc {
	case pcode.IntAdd:
		l.e.BinaryTo(pcode.IntCarry, l.e.Reg("CY"), a, b)
		l.e.BinaryTo(pcode.IntSCarry, l.e.Reg("OV"), a, b)
	case pcode.IntSub:
		l.e.BinaryTo(pcode.IntLessEqual, l.e.Reg("CY"), b, a)
		l.e.BinaryTo(pcode.IntSBorrow, l.e.Reg("OV"), a, b)
	default:
		l.e.Copy(l.e.Reg("CY"), l.e.Const(0, 1))
		l.e.Copy(l.e.Reg("OV"), l.e.Const(0, 1))
	}
}

func (l *lifter) shift(opc pcode.OpCode, d, n, m arm64asm.Arg) {
	w := l.width(d)
	a := l.read(n, w)
	var amt pcode.Varnode
	if _, ok := regName(m); ok {
		amt = l.e.Binary(pcode.IntAnd, l.read(m, w), l.e.Const(uint64(w)*8-1, w))
	} else {
		amt = l.read(m, w)
	}
	l.write(d, l.e.Binary(opc, a, amt))
}

func (l *lifter) movk(d, imm arm64asm.Arg) {
	w := l.width(d)
	v, sh, ok := parseImmShift(imm.String())
	if !ok {
		l.fail("immediate %q", imm.String())
		return
	}
	kept := l.e.Binary(pcode.IntAnd, l.read(d, w), l.e.Const(^(uint64(0xffff) << sh), w))
	l.write(d, l.e.Binary(pcode.IntOr, kept, l.e.Const(v<<sh, w)))
}

func (l *lifter) load(rt, mem arm64asm.Arg, size uint32, signed bool) {
	w := l.width(rt)
	ea, writeback := l.address(mem)
	v := l.e.Load(size, ea)
	if size < w {
		v = l.resize(v, w, signed)
	}
	l.write(rt, v)
	writeback()
}

func (l *lifter) store(rt, mem arm64asm.Arg, size uint32) {
	v := l.read(rt, l.width(rt))
	if v.Size > size {
		v = l.e.Trunc(v, size)
	}
	ea, writeback := l.address(mem)
	l.e.Store(ea, v)
	writeback()
}

func (l *lifter) pair(load bool) {
	a := l.inst.Args
	w := l.width(a[0])
	ea, writeback := l.address(a[2])
	ea2 := l.e.Binary(pcode.IntAdd, ea, l.e.Const(uint64(w), ea.Size))
	if load {
		first := l.e.Load(w, ea)
		second := l.e.Load(w, ea2)
		l.write(a[0], first)
		l.write(a[1], second)
	} else {
		l.e.Store(ea, l.read(a[0], w))
		l.e.Store(ea2, l.read(a[1], w))
	}
	writeback()
}

func (l *lifter) testBit(rt, bit, label arm64asm.Arg, nonZero bool) {
	v := l.read(rt, l.width(rt))
	n, ok := bit.(arm64asm.Imm)
	if !ok {
		l.fail("bit operand %v", bit)
		return
	}
	shifted := l.e.Binary(pcode.IntRight, v, l.e.Const(uint64(n.Imm), v.Size))
	masked := l.e.Binary(pcode.IntAnd, shifted, l.e.Const(1, v.Size))
	opc := pcode.IntEqual
	if nonZero {
		opc = pcode.IntNotEqual
	}
	l.e.CBranch(l.pcrel(label), l.e.Binary(opc, masked, l.e.Const(0, v.Size)))
}
