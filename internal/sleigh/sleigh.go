// Package sleigh is the contract between the lifter and an instruction
// semantics engine. An engine decodes the bytes it fetches through a
// LoadImage and reports results by calling back into an AssemblyEmit or a
// PcodeEmit. Engines register themselves by name, the way database/sql
// drivers do, and are picked by the backend field of a language definition.
package sleigh

import (
	"fmt"
	"sort"
	"sync"

	"lifter/internal/ldefs"
	"lifter/internal/pcode"
)

// LoadImage supplies instruction bytes to the engine.
type LoadImage interface {
	// LoadFill fills dst with the bytes at addr.
	LoadFill(dst []byte, addr uint64) error
	// AdjustVMA rebases the image.
	AdjustVMA(delta int64) error
	ArchType() string
}

// AssemblyEmit receives the text of one instruction.
type AssemblyEmit interface {
	Dump(addr uint64, mnem, body string)
}

// PcodeEmit receives the micro-operations of one instruction, one call per
// operation, in execution order.
type PcodeEmit interface {
	Dump(addr uint64, opc pcode.OpCode, out *pcode.Varnode, in []pcode.Varnode)
}

// Translator is one configured engine instance.
type Translator interface {
	// PrintAssembly decodes the instruction at addr and emits its text.
	// It returns the instruction length.
	PrintAssembly(emit AssemblyEmit, addr uint64) (int, error)
	// OneInstruction decodes the instruction at addr and emits its
	// micro-operations. It returns the instruction length.
	OneInstruction(emit PcodeEmit, addr uint64) (int, error)
	// RegisterName returns the native name of a register-space varnode, or
	// "" when no declared register covers it.
	RegisterName(v pcode.Varnode) string
	Registration() Registration
	Spaces() Spaces
}

// RegisterDef is one register as the engine declares it.
type RegisterDef struct {
	Name   string
	Offset uint64
	Size   uint32
	Group  string
}

// Registration is the architecture data an engine exposes after setup.
type Registration struct {
	Registers []RegisterDef
	PC        string
	SP        string
	Args      []string
	Rets      []string
	Alignment int
}

// Options configures a Translator.
type Options struct {
	Spec      *ldefs.Spec
	Loader    LoadImage
	BigEndian bool
	Alignment int
}

// Factory builds a Translator.
type Factory func(Options) (Translator, error)

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]Factory)
)

// Register makes a backend available by name. It panics if the name is
// taken or f is nil.
func Register(name string, f Factory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if f == nil {
		panic("sleigh: Register factory is nil")
	}
	if _, dup := backends[name]; dup {
		panic("sleigh: Register called twice for backend " + name)
	}
	backends[name] = f
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for n := range backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Open builds a Translator with the named backend.
func Open(name string, opts Options) (Translator, error) {
	backendsMu.RLock()
	f, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownBackend, name)
	}
	if opts.Spec == nil {
		return nil, fmt.Errorf("sleigh: %s: no spec", name)
	}
	if opts.Loader == nil {
		return nil, fmt.Errorf("sleigh: %s: no loader", name)
	}
	return f(opts)
}
