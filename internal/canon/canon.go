// Package canon maps an engine's native register names onto the canonical,
// lowercase names used everywhere outside the engine.
package canon

import (
	"maps"
	"slices"
	"strings"

	"lifter/internal/sleigh"
)

// Canonical returns the canonical spelling of a register name.
func Canonical(name string) string { return strings.ToLower(name) }

// Descriptor describes one declared register.
type Descriptor struct {
	Name   string // canonical
	Native string
	Size   uint32
	Offset uint64
	Group  string
}

// Table holds the canonicalized register data of one architecture.
type Table struct {
	regs   []Descriptor
	native map[string]string
	groups map[string]string
	pc, sp string
	args   []string
	rets   []string
}

// Build canonicalizes a registration. When two native names lowercase to
// the same canonical name the one declared last wins.
func Build(reg sleigh.Registration) *Table {
	t := &Table{
		regs:   make([]Descriptor, 0, len(reg.Registers)),
		native: make(map[string]string, len(reg.Registers)),
		groups: make(map[string]string, len(reg.Registers)),
		pc:     Canonical(reg.PC),
		sp:     Canonical(reg.SP),
		args:   canonicalAll(reg.Args),
		rets:   canonicalAll(reg.Rets),
	}
	for _, r := range reg.Registers {
		name := Canonical(r.Name)
		t.regs = append(t.regs, Descriptor{
			Name:   name,
			Native: r.Name,
			Size:   r.Size,
			Offset: r.Offset,
			Group:  r.Group,
		})
		t.native[r.Name] = name
		t.groups[name] = r.Group
	}
	return t
}

func canonicalAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = Canonical(n)
	}
	return out
}

// Registers returns every declared register in declaration order.
func (t *Table) Registers() []Descriptor { return slices.Clone(t.regs) }

// Native maps a native register name to its canonical name.
func (t *Table) Native(name string) (string, bool) {
	c, ok := t.native[name]
	return c, ok
}

// Map returns a copy of the native to canonical map.
func (t *Table) Map() map[string]string { return maps.Clone(t.native) }

// Group returns the group of a canonical register name.
func (t *Table) Group(name string) (string, bool) {
	g, ok := t.groups[name]
	return g, ok
}

// Groups returns a copy of the canonical name to group map.
func (t *Table) Groups() map[string]string { return maps.Clone(t.groups) }

func (t *Table) PC() string     { return t.pc }
func (t *Table) SP() string     { return t.sp }
func (t *Table) Args() []string { return slices.Clone(t.args) }
func (t *Table) Rets() []string { return slices.Clone(t.rets) }
