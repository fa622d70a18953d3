package sleigh

import (
	"fmt"

	"lifter/internal/ldefs"
	"lifter/internal/pcode"
)

// Spaces are the address spaces an engine emits varnodes in.
type Spaces struct {
	Const    *pcode.Space
	Unique   *pcode.Space
	Register *pcode.Space
	RAM      *pcode.Space
}

// NewSpaces builds the standard four spaces. Empty names get defaults.
func NewSpaces(names ldefs.SpaceNames) Spaces {
	or := func(s, def string) string {
		if s == "" {
			return def
		}
		return s
	}
	return Spaces{
		Const:    &pcode.Space{Name: or(names.Const, "const"), Type: pcode.SpaceConstant, Index: 0},
		Unique:   &pcode.Space{Name: or(names.Unique, "unique"), Type: pcode.SpaceInternal, Index: 1},
		Register: &pcode.Space{Name: or(names.Register, "register"), Type: pcode.SpaceRegister, Index: 2},
		RAM:      &pcode.Space{Name: or(names.RAM, "ram"), Type: pcode.SpaceProcessor, Index: 3},
	}
}

type regKey struct {
	offset uint64
	size   uint32
}

// Base holds the processor spec, the loader and register tables. Backends
// embed it.
type Base struct {
	spec      *ldefs.Spec
	loader    LoadImage
	bigEndian bool
	align     int
	spaces    Spaces

	regs   []RegisterDef
	byName map[string]RegisterDef
	exact  map[regKey]string

	userops []string
	userIdx map[string]int
}

// NewBase indexes the registers of opts.Spec.
func NewBase(opts Options) *Base {
	b := &Base{
		spec:      opts.Spec,
		loader:    opts.Loader,
		bigEndian: opts.BigEndian,
		align:     opts.Alignment,
		spaces:    NewSpaces(opts.Spec.Spaces),
		byName:    make(map[string]RegisterDef),
		exact:     make(map[regKey]string),
		userIdx:   make(map[string]int),
	}
	if b.align <= 0 {
		b.align = 1
	}
	for _, r := range opts.Spec.Regs() {
		d := RegisterDef{Name: r.Name, Offset: r.Offset, Size: r.Size, Group: r.Group}
		b.regs = append(b.regs, d)
		b.byName[d.Name] = d
		k := regKey{d.Offset, d.Size}
		if _, ok := b.exact[k]; !ok {
			b.exact[k] = d.Name
		}
	}
	for i, n := range opts.Spec.UserOps {
		b.userops = append(b.userops, n)
		b.userIdx[n] = i
	}
	return b
}

func (b *Base) Spaces() Spaces { return b.spaces }

func (b *Base) BigEndian() bool { return b.bigEndian }

func (b *Base) Alignment() int { return b.align }

func (b *Base) Spec() *ldefs.Spec { return b.spec }

// Registration reports the declared registers and ABI roles.
func (b *Base) Registration() Registration {
	regs := make([]RegisterDef, len(b.regs))
	copy(regs, b.regs)
	return Registration{
		Registers: regs,
		PC:        b.spec.PC,
		SP:        b.spec.SP,
		Args:      append([]string(nil), b.spec.ABI.Args...),
		Rets:      append([]string(nil), b.spec.ABI.Rets...),
		Alignment: b.align,
	}
}

// RegisterName names a register varnode: the register declared with the
// same offset and size, else the smallest register containing it.
func (b *Base) RegisterName(v pcode.Varnode) string {
	if v.Space == nil || v.Space.Type != pcode.SpaceRegister {
		return ""
	}
	if n, ok := b.exact[regKey{v.Offset, v.Size}]; ok {
		return n
	}
	best := -1
	for i, r := range b.regs {
		if r.Offset > v.Offset || v.Offset+uint64(v.Size) > r.Offset+uint64(r.Size) {
			continue
		}
		if best < 0 || r.Size < b.regs[best].Size {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return b.regs[best].Name
}

// Reg returns the varnode of a declared register. Asking for an undeclared
// one is a bug in the backend.
func (b *Base) Reg(name string) pcode.Varnode {
	r, ok := b.byName[name]
	if !ok {
		panic(fmt.Sprintf("sleigh: register %q not declared", name))
	}
	return pcode.Varnode{Space: b.spaces.Register, Offset: r.Offset, Size: r.Size}
}

// HasReg reports whether name is declared.
func (b *Base) HasReg(name string) bool {
	_, ok := b.byName[name]
	return ok
}

// Fetch reads n bytes at addr through the loader.
func (b *Base) Fetch(addr uint64, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := b.loader.LoadFill(buf, addr); err != nil {
		return nil, err
	}
	return buf, nil
}

// Word fetches one 32-bit instruction word and returns it in little-endian
// byte order, swapping when the image is big endian.
func (b *Base) Word(addr uint64) ([]byte, error) {
	if b.align > 1 && addr%uint64(b.align) != 0 {
		return nil, &DecodeError{Addr: addr, Err: fmt.Errorf("misaligned, want %d-byte alignment", b.align)}
	}
	buf, err := b.Fetch(addr, 4)
	if err != nil {
		return nil, err
	}
	if b.bigEndian {
		buf[0], buf[1], buf[2], buf[3] = buf[3], buf[2], buf[1], buf[0]
	}
	return buf, nil
}

// UserOp returns the index of a user-defined operation. Names the processor
// spec does not list get the next free index.
func (b *Base) UserOp(name string) uint64 {
	if i, ok := b.userIdx[name]; ok {
		return uint64(i)
	}
	i := len(b.userops)
	b.userops = append(b.userops, name)
	b.userIdx[name] = i
	return uint64(i)
}

// UserOpName is the inverse of UserOp.
func (b *Base) UserOpName(i uint64) (string, bool) {
	if i >= uint64(len(b.userops)) {
		return "", false
	}
	return b.userops[i], true
}
