// Package aarch64 is the A64 backend. It decodes with arm64asm and lifts a
// practical subset of the integer instruction set; instructions outside
// that subset become a single CALLOTHER named after the mnemonic.
package aarch64

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/arch/arm64/arm64asm"

	"lifter/internal/sleigh"
)

const instLen = 4

func init() {
	sleigh.Register("aarch64", New)
}

// Translator decodes A64 instructions.
type Translator struct {
	*sleigh.Base
	buf sleigh.Buffer
}

// New builds an A64 translator. Only little-endian instruction streams are
// supported.
func New(opts sleigh.Options) (sleigh.Translator, error) {
	if opts.BigEndian {
		return nil, errors.New("aarch64: big-endian code is not supported")
	}
	if opts.Alignment == 0 {
		opts.Alignment = instLen
	}
	return &Translator{Base: sleigh.NewBase(opts)}, nil
}

func (t *Translator) decode(addr uint64) (arm64asm.Inst, error) {
	w, err := t.Word(addr)
	if err != nil {
		return arm64asm.Inst{}, err
	}
	inst, err := arm64asm.Decode(w)
	if err != nil {
		return arm64asm.Inst{}, &sleigh.DecodeError{Addr: addr, Err: err}
	}
	return inst, nil
}

// PrintAssembly emits "mnemonic" and the operand text with native register
// names. PC-relative operands are printed as absolute addresses.
func (t *Translator) PrintAssembly(emit sleigh.AssemblyEmit, addr uint64) (int, error) {
	inst, err := t.decode(addr)
	if err != nil {
		return 0, err
	}
	mnem, body := format(inst, addr)
	emit.Dump(addr, mnem, body)
	return instLen, nil
}

// OneInstruction emits the micro-operations of the instruction at addr.
func (t *Translator) OneInstruction(emit sleigh.PcodeEmit, addr uint64) (int, error) {
	inst, err := t.decode(addr)
	if err != nil {
		return 0, err
	}
	t.buf.Reset()
	l := &lifter{t: t, e: t.Emitter(&t.buf, addr), inst: inst, addr: addr}
	l.lift()
	if l.err != nil {
		t.buf.Reset()
		e := t.Emitter(emit, addr)
		e.CallOther(strings.ToLower(inst.Op.String()))
		return instLen, nil
	}
	t.buf.Flush(emit)
	return instLen, nil
}

func format(inst arm64asm.Inst, addr uint64) (string, string) {
	mnem := strings.ToLower(inst.Op.String())
	if inst.Op == arm64asm.RET && inst.Args[0] == arm64asm.X30 {
		return mnem, ""
	}
	var args []string
	for i, a := range inst.Args {
		if a == nil {
			break
		}
		switch a := a.(type) {
		case arm64asm.Cond:
			if i == 0 && inst.Op == arm64asm.B {
				mnem += "." + strings.ToLower(a.String())
				continue
			}
			args = append(args, a.String())
		case arm64asm.PCRel:
			args = append(args, fmt.Sprintf("%#x", target(inst, addr, a)))
		default:
			if s := a.String(); s != "" {
				args = append(args, s)
			}
		}
	}
	return mnem, strings.Join(args, ", ")
}

func target(inst arm64asm.Inst, addr uint64, rel arm64asm.PCRel) uint64 {
	if inst.Op == arm64asm.ADRP {
		return addr&^0xfff + uint64(rel)
	}
	return addr + uint64(rel)
}
