package sleigh

import "lifter/internal/pcode"

type bufferedOp struct {
	addr   uint64
	opc    pcode.OpCode
	out    pcode.Varnode
	hasOut bool
	in     []pcode.Varnode
}

// Buffer holds emitted operations until the backend knows the whole
// instruction can be lifted. Flush replays them.
type Buffer struct {
	ops []bufferedOp
}

func (b *Buffer) Dump(addr uint64, opc pcode.OpCode, out *pcode.Varnode, in []pcode.Varnode) {
	op := bufferedOp{addr: addr, opc: opc, in: append([]pcode.Varnode(nil), in...)}
	if out != nil {
		op.out, op.hasOut = *out, true
	}
	b.ops = append(b.ops, op)
}

// Reset drops the buffered operations.
func (b *Buffer) Reset() { b.ops = b.ops[:0] }

// Flush sends the buffered operations to emit in order and empties b.
func (b *Buffer) Flush(emit PcodeEmit) {
	for _, op := range b.ops {
		var out *pcode.Varnode
		if op.hasOut {
			v := op.out
			out = &v
		}
		emit.Dump(op.addr, op.opc, out, op.in)
	}
	b.Reset()
}
