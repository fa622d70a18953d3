// Package arm is the A32 backend. It decodes ARM-mode instructions with
// armasm, in either byte order, and lifts the common integer subset.
package arm

import (
	"fmt"
	"strings"

	"golang.org/x/arch/arm/armasm"

	"lifter/internal/pcode"
	"lifter/internal/sleigh"
)

const instLen = 4

// condAL is the condition field of an unconditional instruction.
const condAL = 14

func init() {
	sleigh.Register("arm", New)
}

// Translator decodes A32 instructions.
type Translator struct {
	*sleigh.Base
	buf sleigh.Buffer
}

// New builds an A32 translator.
func New(opts sleigh.Options) (sleigh.Translator, error) {
	if opts.Alignment == 0 {
		opts.Alignment = instLen
	}
	return &Translator{Base: sleigh.NewBase(opts)}, nil
}

func (t *Translator) decode(addr uint64) (armasm.Inst, error) {
	w, err := t.Word(addr)
	if err != nil {
		return armasm.Inst{}, err
	}
	inst, err := armasm.Decode(w, armasm.ModeARM)
	if err != nil {
		return armasm.Inst{}, &sleigh.DecodeError{Addr: addr, Err: err}
	}
	return inst, nil
}

// PrintAssembly emits the GNU mnemonic, condition and flag suffixes
// included, and the operands with native register names.
func (t *Translator) PrintAssembly(emit sleigh.AssemblyEmit, addr uint64) (int, error) {
	inst, err := t.decode(addr)
	if err != nil {
		return 0, err
	}
	mnem, _, _ := strings.Cut(armasm.GNUSyntax(inst), " ")
	emit.Dump(addr, mnem, operands(inst, addr))
	return instLen, nil
}

// OneInstruction emits the micro-operations of the instruction at addr.
// A conditional instruction is guarded by a branch past its body.
func (t *Translator) OneInstruction(emit sleigh.PcodeEmit, addr uint64) (int, error) {
	inst, err := t.decode(addr)
	if err != nil {
		return 0, err
	}
	t.buf.Reset()
	l := &lifter{t: t, e: t.Emitter(&t.buf, addr), inst: inst, addr: addr}
	if c := uint8(inst.Op & 15); c < condAL {
		l.e.CBranch(addr+instLen, l.e.Unary(pcode.BoolNegate, l.cond(c)))
	}
	l.lift()
	if l.err != nil {
		t.buf.Reset()
		t.Emitter(emit, addr).CallOther(strings.ToLower(baseName(inst.Op)))
		return instLen, nil
	}
	t.buf.Flush(emit)
	return instLen, nil
}

// baseName strips the condition and flag suffixes from an opcode name.
func baseName(op armasm.Op) string {
	name, _, _ := strings.Cut(op.String(), ".")
	return name
}

func operands(inst armasm.Inst, addr uint64) string {
	var args []string
	for _, a := range inst.Args {
		if a == nil {
			break
		}
		switch a := a.(type) {
		case armasm.PCRel:
			args = append(args, fmt.Sprintf("%#x", target(addr, a)))
		case armasm.ImmAlt:
			args = append(args, a.Imm().String())
		case armasm.RegShift:
			if a.Shift == armasm.ShiftLeft && a.Count == 0 {
				args = append(args, a.Reg.String())
				continue
			}
			args = append(args, fmt.Sprintf("%s, %s #%d", a.Reg, a.Shift, a.Count))
		default:
			args = append(args, a.String())
		}
	}
	return strings.Join(args, ", ")
}

// target resolves a branch offset. Reads of PC see the address of the
// instruction plus 8.
func target(addr uint64, rel armasm.PCRel) uint64 {
	return uint64(uint32(int64(addr) + 8 + int64(rel)))
}
