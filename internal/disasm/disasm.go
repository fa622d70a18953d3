// Package disasm defines the instruction representation shared by the
// session and the command line.
package disasm

import "lifter/internal/pcode"

// InvalidOp is the mnemonic of bytes that did not decode.
const InvalidOp = "invalid"

// Inst is one decoded instruction.
type Inst struct {
	VA    uint64    // virtual address of instruction
	Text  string    // mnemonic and operands, canonical register names
	Op    string    // mnemonic in lowercase
	Len   int       // length in bytes
	Raw   []byte    // raw encoding
	Pcode pcode.Seq // lifted semantics, when requested
}

// Invalid reports whether the bytes at VA failed to decode.
func (i Inst) Invalid() bool { return i.Op == InvalidOp }

// Stream is a linear sequence of instructions.
type Stream []Inst

// Size is the number of bytes the stream covers.
func (s Stream) Size() int {
	n := 0
	for _, i := range s {
		n += i.Len
	}
	return n
}
