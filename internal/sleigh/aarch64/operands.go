package aarch64

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/arch/arm64/arm64asm"

	"lifter/internal/pcode"
)

// regName returns the native name of a register argument.
func regName(a arm64asm.Arg) (string, bool) {
	switch r := a.(type) {
	case arm64asm.Reg:
		return r.String(), true
	case arm64asm.RegSP:
		return r.String(), true
	}
	return "", false
}

func isZeroReg(name string) bool { return name == "XZR" || name == "WZR" }

// wide names the 64-bit register a 32-bit write lands in.
func wide(name string) (string, bool) {
	switch {
	case name == "WSP":
		return "SP", true
	case name == "WZR":
		return "", false
	case len(name) > 1 && name[0] == 'W' && name[1] >= '0' && name[1] <= '9':
		return "X" + name[1:], true
	}
	return "", false
}

// width is the byte width of a register argument.
func (l *lifter) width(a arm64asm.Arg) uint32 {
	name, ok := regName(a)
	if !ok {
		l.fail("operand %v is not a register", a)
		return 8
	}
	if !l.t.HasReg(name) {
		l.fail("register %s is not modelled", name)
		return 8
	}
	return l.t.Reg(name).Size
}

// reg reads a register by native name. The zero registers read as
// constants.
func (l *lifter) reg(name string) pcode.Varnode {
	switch name {
	case "XZR":
		return l.e.Const(0, 8)
	case "WZR":
		return l.e.Const(0, 4)
	}
	if !l.t.HasReg(name) {
		l.fail("register %s is not modelled", name)
		return l.e.Const(0, 8)
	}
	return l.e.Reg(name)
}

// read evaluates a source operand at w bytes.
func (l *lifter) read(a arm64asm.Arg, w uint32) pcode.Varnode {
	switch a := a.(type) {
	case arm64asm.Reg, arm64asm.RegSP:
		name, _ := regName(a)
		return l.resize(l.reg(name), w, false)
	case arm64asm.Imm:
		return l.e.Const(uint64(a.Imm), w)
	case arm64asm.Imm64:
		return l.e.Const(a.Imm, w)
	case arm64asm.ImmShift:
		v, sh, ok := parseImmShift(a.String())
		if !ok {
			l.fail("immediate %q", a.String())
		}
		return l.e.Const(v<<sh, w)
	case arm64asm.RegExtshiftAmount:
		return l.extended(a.String(), w)
	}
	l.fail("operand %T", a)
	return l.e.Const(0, w)
}

// write stores v into a destination register. Writes to a W register zero
// the upper half of the X register; writes to a zero register vanish.
func (l *lifter) write(a arm64asm.Arg, v pcode.Varnode) {
	name, ok := regName(a)
	if !ok {
		l.fail("destination %v is not a register", a)
		return
	}
	if isZeroReg(name) {
		return
	}
	if !l.t.HasReg(name) {
		l.fail("register %s is not modelled", name)
		return
	}
	dst := l.e.Reg(name)
	if v.Size != dst.Size {
		l.fail("writing %d bytes to %s", v.Size, name)
		return
	}
	if x, ok := wide(name); ok {
		xv := l.e.Reg(x)
		l.e.Op(pcode.IntZExt, &xv, v)
		return
	}
	l.e.Copy(dst, v)
}

func (l *lifter) resize(v pcode.Varnode, w uint32, signed bool) pcode.Varnode {
	switch {
	case v.Size == w:
		return v
	case v.Size > w:
		return l.e.Trunc(v, w)
	case signed:
		return l.e.Extend(pcode.IntSExt, v, w)
	default:
		return l.e.Extend(pcode.IntZExt, v, w)
	}
}

// extended evaluates a shifted or extended register such as "X2, LSL #3"
// or "W2, SXTW".
func (l *lifter) extended(s string, w uint32) pcode.Varnode {
	name, rest, _ := strings.Cut(s, ", ")
	v := l.reg(name)
	if rest == "" {
		return l.resize(v, w, false)
	}
	kind, amt, _ := strings.Cut(rest, " #")
	var n uint64
	if amt != "" {
		var err error
		if n, err = strconv.ParseUint(amt, 10, 8); err != nil {
			l.fail("shift amount %q", amt)
		}
	}

	switch kind {
	case "LSL", "LSR", "ASR", "ROR":
		v = l.resize(v, w, false)
	case "UXTB":
		v = l.resize(l.resize(v, 1, false), w, false)
	case "UXTH":
		v = l.resize(l.resize(v, 2, false), w, false)
	case "UXTW":
		v = l.resize(l.resize(v, 4, false), w, false)
	case "UXTX", "SXTX":
		v = l.resize(v, w, false)
	case "SXTB":
		v = l.resize(l.resize(v, 1, false), w, true)
	case "SXTH":
		v = l.resize(l.resize(v, 2, false), w, true)
	case "SXTW":
		v = l.resize(l.resize(v, 4, false), w, true)
	default:
		l.fail("shift %q", kind)
		return v
	}
	if n == 0 {
		return v
	}

	amount := l.e.Const(n, w)
	switch kind {
	case "LSR":
		return l.e.Binary(pcode.IntRight, v, amount)
	case "ASR":
		return l.e.Binary(pcode.IntSRight, v, amount)
	case "ROR":
		lo := l.e.Binary(pcode.IntRight, v, amount)
		hi := l.e.Binary(pcode.IntLeft, v, l.e.Const(uint64(w)*8-n, w))
		return l.e.Binary(pcode.IntOr, lo, hi)
	}
	return l.e.Binary(pcode.IntLeft, v, amount)
}

// parseImmShift reads the text of an immediate with optional shift,
// "#0x10" or "#0x10, LSL #12".
func parseImmShift(s string) (uint64, uint, bool) {
	imm, rest, _ := strings.Cut(s, ", ")
	v, err := strconv.ParseUint(strings.TrimPrefix(imm, "#"), 0, 64)
	if err != nil {
		return 0, 0, false
	}
	if rest == "" {
		return v, 0, true
	}
	n, ok := strings.CutPrefix(rest, "LSL #")
	if !ok {
		return 0, 0, false
	}
	sh, err := strconv.ParseUint(n, 10, 8)
	if err != nil {
		return 0, 0, false
	}
	return v, uint(sh), true
}

// memOffset reads the byte offset of an immediate memory operand from its
// text, e.g. "[X1,#-16]!".
func memOffset(m arm64asm.MemImmediate) (int64, error) {
	s := m.String()
	i := strings.IndexByte(s, '#')
	if i < 0 {
		return 0, nil
	}
	s = s[i+1:]
	if j := strings.IndexByte(s, ']'); j >= 0 {
		s = s[:j]
	}
	off, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("memory offset %q: %w", m.String(), err)
	}
	return off, nil
}

// address computes the effective address of a memory operand. The returned
// func performs base register writeback and must run after the access.
func (l *lifter) address(a arm64asm.Arg) (pcode.Varnode, func()) {
	nop := func() {}
	switch m := a.(type) {
	case arm64asm.MemImmediate:
		base := l.reg(m.Base.String())
		off, err := memOffset(m)
		if err != nil {
			l.fail("%v", err)
			return base, nop
		}
		delta := l.e.Const(uint64(off), 8)
		switch m.Mode {
		case arm64asm.AddrOffset:
			if off == 0 {
				return base, nop
			}
			return l.e.Binary(pcode.IntAdd, base, delta), nop
		case arm64asm.AddrPreIndex:
			ea := l.e.Binary(pcode.IntAdd, base, delta)
			return ea, func() { l.e.Copy(base, ea) }
		case arm64asm.AddrPostIndex:
			ea := l.e.Unique(base.Size)
			l.e.Copy(ea, base)
			return ea, func() { l.e.BinaryTo(pcode.IntAdd, base, ea, delta) }
		}
		l.fail("addressing mode %d", m.Mode)
		return base, nop

	case arm64asm.MemExtend:
		base := l.reg(m.Base.String())
		idx := l.extended(m.Index.String()+", "+m.Extend.String(), 8)
		shift := m.Amount
		if m.ShiftMustBeZero {
			shift = 0
		}
		if shift > 0 {
			idx = l.e.Binary(pcode.IntLeft, idx, l.e.Const(uint64(shift), 8))
		}
		return l.e.Binary(pcode.IntAdd, base, idx), nop

	case arm64asm.PCRel:
		return l.e.Const(target(l.inst, l.addr, m), 8), nop
	}
	l.fail("memory operand %T", a)
	return l.e.Const(0, 8), nop
}
