// Package elfx provides helpers for opening ELF binaries, locating code, and mapping virtual addresses to file offsets.
package elfx

import (
	"debug/elf"
	"errors"
	"fmt"
	"os"
	"sort"
	"syscall"
)

// ErrUnsupportedMachine means the ELF header names a machine no language
// definition covers.
var ErrUnsupportedMachine = errors.New("unsupported ELF machine")

type Image struct {
	Path    string
	File    *elf.File
	All     []byte
	Loads   []Seg
	Text    Section
	Symbols []Symbol // defined symbols, sorted by address
	f       *os.File
}

type Seg struct {
	Vaddr, Off, Filesz uint64
	Flags              elf.ProgFlag
}

type Section struct {
	Name          string
	VA, Off, Size uint64
}

type Symbol struct {
	Name string
	Addr uint64
	Size uint64
	Func bool
}

func Open(path string) (*Image, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open elf: %w", err)
	}

	of, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open file: %w", err)
	}

	fi, err := of.Stat()
	if err != nil {
		of.Close()
		f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}

	all, err := syscall.Mmap(int(of.Fd()), 0, int(fi.Size()), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		of.Close()
		f.Close()
		return nil, fmt.Errorf("mmap file: %w", err)
	}

	im := &Image{Path: path, File: f, All: all, f: of}
	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		im.Loads = append(im.Loads, Seg{
			Vaddr:  p.Vaddr,
			Off:    p.Off,
			Filesz: p.Filesz,
			Flags:  p.Flags,
		})
	}

	for _, s := range f.Sections {
		if s.Name == ".text" {
			im.Text = Section{s.Name, s.Addr, s.Offset, s.Size}
		}
	}

	im.loadSymbols()

	// Fallback if stripped of section headers.
	if im.Text.Size == 0 {
		for _, l := range im.Loads {
			if l.Flags&elf.PF_X != 0 && l.Filesz > 0 {
				im.Text = Section{"LOAD(exec)", l.Vaddr, l.Off, l.Filesz}
				break
			}
		}
	}
	return im, nil
}

// Close unmaps the memory and closes the underlying files.
func (im *Image) Close() error {
	var err1, err2 error
	if im.All != nil {
		err1 = syscall.Munmap(im.All)
		im.All = nil
	}
	if im.f != nil {
		err2 = im.f.Close()
		im.f = nil
	}
	if im.File != nil {
		err3 := im.File.Close()
		if err3 != nil && err2 == nil {
			err2 = err3
		}
		im.File = nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}

// Arch maps the ELF header to the cpu name, bit width and byte order a
// language definition is resolved with.
func (im *Image) Arch() (cpu string, bits int, bigEndian bool, err error) {
	return archOf(im.File.Machine, im.File.Class, im.File.Data)
}

func archOf(m elf.Machine, class elf.Class, data elf.Data) (string, int, bool, error) {
	big := data == elf.ELFDATA2MSB
	switch m {
	case elf.EM_AARCH64:
		return "aarch64", 64, big, nil
	case elf.EM_ARM:
		return "arm", 32, big, nil
	}
	bits := 32
	if class == elf.ELFCLASS64 {
		bits = 64
	}
	return "", bits, big, fmt.Errorf("%w: %s", ErrUnsupportedMachine, m)
}

// VA2Off translates a virtual address into a file offset
// using PT_LOAD segments. It returns false if VA is unmapped.
func (im *Image) VA2Off(va uint64) (uint64, bool) {
	for _, l := range im.Loads {
		if va >= l.Vaddr && va < l.Vaddr+l.Filesz {
			return l.Off + (va - l.Vaddr), true
		}
	}
	return 0, false
}

// SliceVA returns a subslice of the mapped file corresponding to the virtual address range [va, va+size).
// It returns (nil, false) if the VA is unmapped or the range is out of bounds.
func (im *Image) SliceVA(va uint64, size uint64) ([]byte, bool) {
	off, ok := im.VA2Off(va)
	if !ok {
		return nil, false
	}
	if size == 0 {
		return []byte{}, true
	}
	end := off + size
	if end > uint64(len(im.All)) {
		return nil, false
	}
	return im.All[off:end], true
}

// TextBytes is the code of .text, or of the first executable segment when
// the section headers are gone.
func (im *Image) TextBytes() ([]byte, bool) {
	if im.Text.Size == 0 {
		return nil, false
	}
	return im.SliceVA(im.Text.VA, im.Text.Size)
}

// loadSymbols merges .symtab and .dynsym. Undefined symbols are skipped.
func (im *Image) loadSymbols() {
	seen := make(map[string]bool)
	add := func(syms []elf.Symbol) {
		for _, s := range syms {
			if s.Value == 0 || s.Section == elf.SHN_UNDEF || s.Name == "" || seen[s.Name] {
				continue
			}
			seen[s.Name] = true
			im.Symbols = append(im.Symbols, Symbol{
				Name: s.Name,
				Addr: s.Value,
				Size: s.Size,
				Func: elf.ST_TYPE(s.Info) == elf.STT_FUNC,
			})
		}
	}
	if syms, err := im.File.Symbols(); err == nil {
		add(syms)
	}
	if syms, err := im.File.DynamicSymbols(); err == nil {
		add(syms)
	}
	sort.SliceStable(im.Symbols, func(i, j int) bool { return im.Symbols[i].Addr < im.Symbols[j].Addr })
}

// Symbol looks a symbol up by name.
func (im *Image) Symbol(name string) (Symbol, bool) {
	for _, s := range im.Symbols {
		if s.Name == name {
			return s, true
		}
	}
	return Symbol{}, false
}

// SymbolAt returns the symbol that starts exactly at va.
func (im *Image) SymbolAt(va uint64) (Symbol, bool) {
	i := sort.Search(len(im.Symbols), func(i int) bool { return im.Symbols[i].Addr >= va })
	if i < len(im.Symbols) && im.Symbols[i].Addr == va {
		return im.Symbols[i], true
	}
	return Symbol{}, false
}
