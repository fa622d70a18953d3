package canon

import (
	"fmt"
	"strings"
)

// profileType maps a register group to its profile type column.
func profileType(group string) string {
	switch group {
	case "flags":
		return "flg"
	case "vector":
		return "vec"
	case "fpu":
		return "fpu"
	}
	return "gpr"
}

// Profile renders the table as a register profile: role aliases first, then
// one line per register with its bit width and byte offset.
func (t *Table) Profile() string {
	var b strings.Builder
	fmt.Fprintf(&b, "=PC\t%s\n", t.pc)
	fmt.Fprintf(&b, "=SP\t%s\n", t.sp)
	for i, a := range t.args {
		fmt.Fprintf(&b, "=A%d\t%s\n", i, a)
	}
	for i, r := range t.rets {
		fmt.Fprintf(&b, "=R%d\t%s\n", i, r)
	}
	for _, r := range t.regs {
		fmt.Fprintf(&b, "%s\t%s\t.%d\t%d\t0\n", profileType(r.Group), r.Name, r.Size*8, r.Offset)
	}
	return b.String()
}
