package arm

import (
	"fmt"
	"math/bits"

	"golang.org/x/arch/arm/armasm"

	"lifter/internal/pcode"
	"lifter/internal/sleigh"
)

const word = 4

type lifter struct {
	t    *Translator
	e    *sleigh.Emitter
	inst armasm.Inst
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
	switch l.inst.Op &^ 15 {
	case armasm.NOP_EQ:

	case armasm.MOV_EQ, armasm.MOVW_EQ:
		l.write(a[0], l.read(a[1]))
	case armasm.MOV_S_EQ:
		r := l.read(a[1])
		l.nz(r)
		l.write(a[0], r)
	case armasm.MVN_EQ:
		l.write(a[0], l.e.Unary(pcode.IntNegate, l.read(a[1])))
	case armasm.MVN_S_EQ:
		r := l.e.Unary(pcode.IntNegate, l.read(a[1]))
		l.nz(r)
		l.write(a[0], r)
	case armasm.MOVT_EQ:
		lo := l.e.Binary(pcode.IntAnd, l.read(a[0]), l.e.Const(0xffff, word))
		l.write(a[0], l.e.Binary(pcode.IntOr, lo, l.e.Const(uint64(l.imm(a[1]))<<16, word)))

	case armasm.ADD_EQ:
		l.arith(pcode.IntAdd, false, false)
	case armasm.ADD_S_EQ:
		l.arith(pcode.IntAdd, false, true)
	case armasm.SUB_EQ:
		l.arith(pcode.IntSub, false, false)
	case armasm.SUB_S_EQ:
		l.arith(pcode.IntSub, false, true)
	case armasm.RSB_EQ:
		l.arith(pcode.IntSub, true, false)
	case armasm.RSB_S_EQ:
		l.arith(pcode.IntSub, true, true)
	case armasm.MUL_EQ:
		l.arith(pcode.IntMult, false, false)
	case armasm.MUL_S_EQ:
		l.arith(pcode.IntMult, false, true)
	case armasm.AND_EQ:
		l.arith(pcode.IntAnd, false, false)
	case armasm.AND_S_EQ:
		l.arith(pcode.IntAnd, false, true)
	case armasm.ORR_EQ:
		l.arith(pcode.IntOr, false, false)
	case armasm.ORR_S_EQ:
		l.arith(pcode.IntOr, false, true)
	case armasm.EOR_EQ:
		l.arith(pcode.IntXor, false, false)
	case armasm.EOR_S_EQ:
		l.arith(pcode.IntXor, false, true)
	case armasm.BIC_EQ, armasm.BIC_S_EQ:
		r := l.e.Binary(pcode.IntAnd, l.read(a[1]), l.e.Unary(pcode.IntNegate, l.read(a[2])))
		if l.inst.Op&^15 == armasm.BIC_S_EQ {
			l.nz(r)
		}
		l.write(a[0], r)

	case armasm.LSL_EQ:
		l.shift(pcode.IntLeft)
	case armasm.LSR_EQ:
		l.shift(pcode.IntRight)
	case armasm.ASR_EQ:
		l.shift(pcode.IntSRight)

	case armasm.CMP_EQ:
		x, y := l.read(a[0]), l.read(a[1])
		l.flags(pcode.IntSub, x, y, l.e.Binary(pcode.IntSub, x, y))
	case armasm.CMN_EQ:
		x, y := l.read(a[0]), l.read(a[1])
		l.flags(pcode.IntAdd, x, y, l.e.Binary(pcode.IntAdd, x, y))
	case armasm.TST_EQ:
		l.nz(l.e.Binary(pcode.IntAnd, l.read(a[0]), l.read(a[1])))
	case armasm.TEQ_EQ:
		l.nz(l.e.Binary(pcode.IntXor, l.read(a[0]), l.read(a[1])))

	case armasm.LDR_EQ:
		l.load(4, false)
	case armasm.LDRB_EQ:
		l.load(1, false)
	case armasm.LDRH_EQ:
		l.load(2, false)
	case armasm.LDRSB_EQ:
		l.load(1, true)
	case armasm.LDRSH_EQ:
		l.load(2, true)
	case armasm.STR_EQ:
		l.store(4)
	case armasm.STRB_EQ:
		l.store(1)
	case armasm.STRH_EQ:
		l.store(2)
	case armasm.PUSH_EQ:
		l.push(l.regs(a[0]))
	case armasm.POP_EQ:
		l.pop(l.regs(a[0]))

	case armasm.B_EQ:
		l.e.Branch(l.label(a[0]))
	case armasm.BL_EQ:
		l.e.Copy(l.e.Reg("LR"), l.e.Const(l.addr+instLen, word))
		l.e.Call(l.label(a[0]))
	case armasm.BX_EQ:
		if r, ok := a[0].(armasm.Reg); ok && r == armasm.LR {
			l.e.Return(l.read(a[0]))
			return
		}
		l.e.BranchInd(l.read(a[0]))
	case armasm.BLX_EQ:
		if rel, ok := a[0].(armasm.PCRel); ok {
			l.e.Copy(l.e.Reg("LR"), l.e.Const(l.addr+instLen, word))
			l.e.Call(target(l.addr, rel))
			return
		}
		dst := l.e.Unique(word)
		l.e.Copy(dst, l.read(a[0]))
		l.e.Copy(l.e.Reg("LR"), l.e.Const(l.addr+instLen, word))
		l.e.CallInd(dst)

	case armasm.SVC_EQ:
		l.e.CallOther("svc", l.e.Const(uint64(l.imm(a[0])), word))
	case armasm.BKPT_EQ:
		l.e.CallOther("bkpt", l.e.Const(uint64(l.imm(a[0])), 2))

	default:
		l.fail("no semantics")
	}
}

func (l *lifter) imm(a armasm.Arg) uint32 {
	switch a := a.(type) {
	case armasm.Imm:
		return uint32(a)
	case armasm.ImmAlt:
		return uint32(a.Imm())
	}
	l.fail("operand %v is not an immediate", a)
	return 0
}

func (l *lifter) label(a armasm.Arg) uint64 {
	rel, ok := a.(armasm.PCRel)
	if !ok {
		l.fail("operand %v is not a label", a)
		return l.addr
	}
	return target(l.addr, rel)
}

// reg reads a core register. PC reads as the instruction address plus 8.
func (l *lifter) reg(r armasm.Reg) pcode.Varnode {
	if r == armasm.PC {
		return l.e.Const(l.addr+8, word)
	}
	name := r.String()
	if !l.t.HasReg(name) {
		l.fail("register %s is not modelled", name)
		return l.e.Const(0, word)
	}
	return l.e.Reg(name)
}

// read evaluates a data-processing operand.
func (l *lifter) read(a armasm.Arg) pcode.Varnode {
	switch a := a.(type) {
	case armasm.Reg:
		return l.reg(a)
	case armasm.Imm, armasm.ImmAlt:
		return l.e.Const(uint64(l.imm(a)), word)
	case armasm.RegShift:
		return l.shifted(l.reg(a.Reg), a.Shift, l.e.Const(uint64(a.Count), word), a.Count)
	case armasm.RegShiftReg:
		amt := l.e.Binary(pcode.IntAnd, l.reg(a.RegCount), l.e.Const(0xff, word))
		return l.shifted(l.reg(a.Reg), a.Shift, amt, 1)
	}
	l.fail("operand %v", a)
	return l.e.Const(0, word)
}

func (l *lifter) shifted(v pcode.Varnode, sh armasm.Shift, amt pcode.Varnode, count uint8) pcode.Varnode {
	if count == 0 && sh == armasm.ShiftLeft {
		return v
	}
	switch sh {
	case armasm.ShiftLeft:
		return l.e.Binary(pcode.IntLeft, v, amt)
	case armasm.ShiftRight:
		return l.e.Binary(pcode.IntRight, v, amt)
	case armasm.ShiftRightSigned:
		return l.e.Binary(pcode.IntSRight, v, amt)
	case armasm.RotateRight:
		if amt.Space.Type != pcode.SpaceConstant {
			l.fail("rotate by register")
			return v
		}
		lo := l.e.Binary(pcode.IntRight, v, amt)
		hi := l.e.Binary(pcode.IntLeft, v, l.e.Const(32-amt.Offset, word))
		return l.e.Binary(pcode.IntOr, lo, hi)
	}
	l.fail("shift %s", sh)
	return v
}

// write stores into a core register. A write to PC is a jump; moving LR
// into PC is a return.
func (l *lifter) write(a armasm.Arg, v pcode.Varnode) {
	r, ok := a.(armasm.Reg)
	if !ok {
		l.fail("destination %v is not a register", a)
		return
	}
	if r == armasm.PC {
		if l.t.RegisterName(v) == "LR" {
			l.e.Return(v)
			return
		}
		l.e.BranchInd(v)
		return
	}
	name := r.String()
	if !l.t.HasReg(name) {
		l.fail("register %s is not modelled", name)
		return
	}
	l.e.Copy(l.e.Reg(name), v)
}

func (l *lifter) arith(opc pcode.OpCode, reverse, setFlags bool) {
	a := l.inst.Args
	x, y := l.read(a[1]), l.read(a[2])
	if reverse {
		x, y = y, x
	}
	r := l.e.Binary(opc, x, y)
	if setFlags {
		l.flags(opc, x, y, r)
	}
	l.write(a[0], r)
}

func (l *lifter) shift(opc pcode.OpCode) {
	a := l.inst.Args
	v := l.reg(l.asReg(a[1]))
	var amt pcode.Varnode
	if r, ok := a[2].(armasm.Reg); ok {
		amt = l.e.Binary(pcode.IntAnd, l.reg(r), l.e.Const(0xff, word))
	} else {
		amt = l.e.Const(uint64(l.imm(a[2])), word)
	}
	l.write(a[0], l.e.Binary(opc, v, amt))
}

func (l *lifter) asReg(a armasm.Arg) armasm.Reg {
	r, ok := a.(armasm.Reg)
	if !ok {
		l.fail("operand %v is not a register", a)
	}
	return r
}

// nz sets the N and Z flags from r. C and V keep their values.
func (l *lifter) nz(r pcode.Varnode) {
	zero := l.e.Const(0, r.Size)
	l.e.BinaryTo(pcode.IntSLess, l.e.Reg("NG"), r, zero)
	l.e.BinaryTo(pcode.IntEqual, l.e.Reg("ZR"), r, zero)
}

func (l *lifter) flags(opc pcode.OpCode, x, y, r pcode.Varnode) {
	l.nz(r)
	switch opc {
	case pcode.IntAdd:
		l.e.BinaryTo(pcode.IntCarry, l.e.Reg("CY"), x, y)
		l.e.BinaryTo(pcode.IntSCarry, l.e.Reg("OV"), x, y)
	case pcode.IntSub:
		l.e.BinaryTo(pcode.IntLessEqual, l.e.Reg("CY"), y, x)
		l.e.BinaryTo(pcode.IntSBorrow, l.e.Reg("OV"), x, y)
	}
}

// cond evaluates an A32 condition field over the flags.
func (l *lifter) cond(c uint8) pcode.Varnode {
	ng, zr, cy, ov := l.e.Reg("NG"), l.e.Reg("ZR"), l.e.Reg("CY"), l.e.Reg("OV")
	var v pcode.Varnode
	switch c >> 1 {
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
	if c&1 == 1 {
		v = l.e.Unary(pcode.BoolNegate, v)
	}
	return v
}

// address computes the effective address of a memory operand. The returned
// func performs base register writeback and must run after the access.
func (l *lifter) address(a armasm.Arg) (pcode.Varnode, func()) {
	nop := func() {}
	m, ok := a.(armasm.Mem)
	if !ok {
		l.fail("memory operand %v", a)
		return l.e.Const(0, word), nop
	}
	base := l.reg(m.Base)

	var delta pcode.Varnode
	opc := pcode.IntAdd
	if m.Sign != 0 {
		delta = l.shifted(l.reg(m.Index), m.Shift, l.e.Const(uint64(m.Count), word), m.Count)
		if m.Sign < 0 {
			opc = pcode.IntSub
		}
	} else {
		delta = l.e.Const(uint64(int64(m.Offset)), word)
	}
	if m.Base == armasm.PC && m.Sign == 0 {
		return l.e.Const(l.addr+8+uint64(int64(m.Offset)), word), nop
	}

	switch m.Mode {
	case armasm.AddrOffset:
		if m.Sign == 0 && m.Offset == 0 {
			return base, nop
		}
		return l.e.Binary(opc, base, delta), nop
	case armasm.AddrPreIndex:
		ea := l.e.Binary(opc, base, delta)
		return ea, func() { l.e.Copy(base, ea) }
	case armasm.AddrPostIndex:
		ea := l.e.Unique(word)
		l.e.Copy(ea, base)
		return ea, func() { l.e.BinaryTo(opc, base, ea, delta) }
	}
	l.fail("addressing mode %d", m.Mode)
	return base, nop
}

func (l *lifter) load(size uint32, signed bool) {
	a := l.inst.Args
	ea, writeback := l.address(a[1])
	v := l.e.Load(size, ea)
	switch {
	case size == word:
	case signed:
		v = l.e.Extend(pcode.IntSExt, v, word)
	default:
		v = l.e.Extend(pcode.IntZExt, v, word)
	}
	if r, ok := a[0].(armasm.Reg); ok && r == armasm.PC {
		writeback()
		l.write(a[0], v)
		return
	}
	l.write(a[0], v)
	writeback()
}

func (l *lifter) store(size uint32) {
	a := l.inst.Args
	v := l.read(a[0])
	if size < word {
		v = l.e.Trunc(v, size)
	}
	ea, writeback := l.address(a[1])
	l.e.Store(ea, v)
	writeback()
}

// regs reads a register list operand; single-register PUSH and POP carry a
// plain register instead.
func (l *lifter) regs(a armasm.Arg) []armasm.Reg {
	switch a := a.(type) {
	case armasm.Reg:
		return []armasm.Reg{a}
	case armasm.RegList:
		out := make([]armasm.Reg, 0, bits.OnesCount16(uint16(a)))
		for i := 0; i < 16; i++ {
			if a&(1<<uint(i)) != 0 {
				out = append(out, armasm.Reg(i))
			}
		}
		return out
	}
	l.fail("operand %v is not a register list", a)
	return nil
}

// push stores the lowest-numbered register at the lowest address.
func (l *lifter) push(regs []armasm.Reg) {
	sp := l.e.Reg("SP")
	l.e.BinaryTo(pcode.IntSub, sp, sp, l.e.Const(uint64(len(regs))*word, word))
	for i, r := range regs {
		ea := sp
		if i > 0 {
			ea = l.e.Binary(pcode.IntAdd, sp, l.e.Const(uint64(i)*word, word))
		}
		l.e.Store(ea, l.reg(r))
	}
}

// pop loads registers upward from SP. Popping PC returns through the
// loaded value.
func (l *lifter) pop(regs []armasm.Reg) {
	sp := l.e.Reg("SP")
	var pc *pcode.Varnode
	for i, r := range regs {
		ea := sp
		if i > 0 {
			ea = l.e.Binary(pcode.IntAdd, sp, l.e.Const(uint64(i)*word, word))
		}
		v := l.e.Load(word, ea)
		if r == armasm.PC {
			pc = &v
			continue
		}
		l.write(r, v)
	}
	l.e.BinaryTo(pcode.IntAdd, sp, sp, l.e.Const(uint64(len(regs))*word, word))
	if pc != nil {
		l.e.Return(*pc)
	}
}
