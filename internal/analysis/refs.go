package analysis

import (
	"strconv"

	"lifter/internal/disasm"
)

// StringRefs scans a lifted listing for instructions that put the address
// of a C string into a register and returns a quoted annotation per
// instruction address. Instructions without p-code break the chain.
func StringRefs(mem Memory, stream disasm.Stream) map[uint64]string {
	refs := make(map[uint64]string)
	t := NewTracker()
	for _, in := range stream {
		if in.Invalid() || in.Pcode == nil {
			t.Reset()
			continue
		}
		for _, v := range t.Step(in.Pcode) {
			raw, ok := ReadCString(mem, v, MaxStringLength)
			if !ok || !isText(raw) {
				continue
			}
			refs[in.VA] = strconv.Quote(EscapeUnprintable(raw))
		}
	}
	return refs
}
