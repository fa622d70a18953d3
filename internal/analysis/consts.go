package analysis

import (
	"lifter/internal/pcode"
)

// Tracker propagates constants through consecutive lifted instructions.
// Registers keep their values across instructions until overwritten with
// something unknown or until control flow leaves straight-line code.
type Tracker struct {
	regs map[string]uint64
}

func NewTracker() *Tracker {
	return &Tracker{regs: make(map[string]uint64)}
}

// Reset forgets every known register.
func (t *Tracker) Reset() { clear(t.regs) }

// Reg returns the known value of a register.
func (t *Tracker) Reg(name string) (uint64, bool) {
	v, ok := t.regs[name]
	return v, ok
}

// Step folds one instruction's sequence and returns the constants it wrote
// to registers, in op order.
func (t *Tracker) Step(seq pcode.Seq) []uint64 {
	temps := make(map[uint64]uint64)
	value := func(o pcode.Operand) (uint64, bool) {
		switch o := o.(type) {
		case pcode.Constant:
			return o.Value, true
		case pcode.Register:
			v, ok := t.regs[o.Name]
			return v, ok
		case pcode.Temporary:
			v, ok := temps[o.Offset]
			return v, ok
		}
		return 0, false
	}

	var wrote []uint64
	flow := false
	for _, op := range seq {
		if op.Code.IsBranch() || op.Code == pcode.CallOther {
			flow = flow || op.Code != pcode.CBranch
			continue
		}
		if op.Out == nil || op.Code == pcode.Store {
			continue
		}
		v, ok := fold(op, value)
		switch out := op.Out.(type) {
		case pcode.Temporary:
			if ok {
				temps[out.Offset] = v
			} else {
				delete(temps, out.Offset)
			}
		case pcode.Register:
			if ok {
				v &= mask(out.Bits)
				t.regs[out.Name] = v
				wrote = append(wrote, v)
			} else {
				delete(t.regs, out.Name)
			}
		}
	}
	if flow {
		t.Reset()
	}
	return wrote
}

// fold evaluates op when every input is known.
func fold(op pcode.Op, value func(pcode.Operand) (uint64, bool)) (uint64, bool) {
	a, ok := value(op.In0)
	if !ok {
		return 0, false
	}
	switch op.Code {
	case pcode.Copy, pcode.IntZExt:
		return a, true
	case pcode.IntNegate:
		return ^a, true
	case pcode.Int2Comp:
		return -a, true
	}
	if op.In1 == nil {
		return 0, false
	}
	b, ok := value(op.In1)
	if !ok {
		return 0, false
	}
	switch op.Code {
	case pcode.IntAdd:
		return a + b, true
	case pcode.IntSub:
		return a - b, true
	case pcode.IntAnd:
		return a & b, true
	case pcode.IntOr:
		return a | b, true
	case pcode.IntXor:
		return a ^ b, true
	case pcode.IntLeft:
		return a << (b & 63), true
	case pcode.IntRight:
		return a >> (b & 63), true
	case pcode.IntMult:
		return a * b, true
	}
	return 0, false
}

func mask(bits uint32) uint64 {
	if bits == 0 || bits >= 64 {
		return ^uint64(0)
	}
	return 1<<bits - 1
}
