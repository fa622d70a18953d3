package elfx

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	loadVA  = 0x400000
	codeOff = 64 + 56
)

var code = []byte{
	0x1f, 0x20, 0x03, 0xd5, // nop
	0xc0, 0x03, 0x5f, 0xd6, // ret
}

// writeELF writes a minimal little-endian AArch64 executable: a header, one
// PT_LOAD covering the whole file and no section headers.
func writeELF(t *testing.T) string {
	t.Helper()
	var b bytes.Buffer
	le := binary.LittleEndian
	size := uint64(codeOff + len(code))

	b.Write([]byte{0x7f, 'E', 'L', 'F', byte(elf.ELFCLASS64), byte(elf.ELFDATA2LSB), byte(elf.EV_CURRENT)})
	b.Write(make([]byte, 9))
	binary.Write(&b, le, uint16(elf.ET_EXEC))
	binary.Write(&b, le, uint16(elf.EM_AARCH64))
	binary.Write(&b, le, uint32(elf.EV_CURRENT))
	binary.Write(&b, le, uint64(loadVA+codeOff)) // entry
	binary.Write(&b, le, uint64(64))             // phoff
	binary.Write(&b, le, uint64(0))              // shoff
	binary.Write(&b, le, uint32(0))              // flags
	binary.Write(&b, le, uint16(64))             // ehsize
	binary.Write(&b, le, uint16(56))             // phentsize
	binary.Write(&b, le, uint16(1))              // phnum
	binary.Write(&b, le, uint16(64))             // shentsize
	binary.Write(&b, le, uint16(0))              // shnum
	binary.Write(&b, le, uint16(0))              // shstrndx

	binary.Write(&b, le, uint32(elf.PT_LOAD))
	binary.Write(&b, le, uint32(elf.PF_R|elf.PF_X))
	binary.Write(&b, le, uint64(0))      // offset
	binary.Write(&b, le, uint64(loadVA)) // vaddr
	binary.Write(&b, le, uint64(loadVA)) // paddr
	binary.Write(&b, le, size)           // filesz
	binary.Write(&b, le, size)           // memsz
	binary.Write(&b, le, uint64(0x1000)) // align

	b.Write(code)

	path := filepath.Join(t.TempDir(), "tiny")
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o755))
	return path
}

func TestOpen(t *testing.T) {
	im, err := Open(writeELF(t))
	require.NoError(t, err)
	defer im.Close()

	cpu, bits, big, err := im.Arch()
	require.NoError(t, err)
	assert.Equal(t, "aarch64", cpu)
	assert.Equal(t, 64, bits)
	assert.False(t, big)

	require.Len(t, im.Loads, 1)
	assert.Equal(t, "LOAD(exec)", im.Text.Name)

	got, ok := im.SliceVA(loadVA+codeOff, uint64(len(code)))
	require.True(t, ok)
	assert.Equal(t, code, got)

	_, ok = im.SliceVA(loadVA+codeOff, 0x1000)
	assert.False(t, ok)
	_, ok = im.VA2Off(0x10)
	assert.False(t, ok)

	text, ok := im.TextBytes()
	require.True(t, ok)
	assert.True(t, bytes.HasSuffix(text, code))

	assert.Empty(t, im.Symbols)
	_, ok = im.Symbol("main")
	assert.False(t, ok)

	require.NoError(t, im.Close())
	assert.Nil(t, im.All)
}

func TestOpenNotELF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk")
	require.NoError(t, os.WriteFile(path, []byte("not an elf"), 0o644))
	_, err := Open(path)
	assert.Error(t, err)
}

func TestArchOf(t *testing.T) {
	tests := []struct {
		m     elf.Machine
		class elf.Class
		data  elf.Data
		cpu   string
		bits  int
		big   bool
	}{
		{elf.EM_AARCH64, elf.ELFCLASS64, elf.ELFDATA2LSB, "aarch64", 64, false},
		{elf.EM_AARCH64, elf.ELFCLASS64, elf.ELFDATA2MSB, "aarch64", 64, true},
		{elf.EM_ARM, elf.ELFCLASS32, elf.ELFDATA2LSB, "arm", 32, false},
		{elf.EM_ARM, elf.ELFCLASS32, elf.ELFDATA2MSB, "arm", 32, true},
	}
	for _, tt := range tests {
		t.Run(tt.m.String(), func(t *testing.T) {
			cpu, bits, big, err := archOf(tt.m, tt.class, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.cpu, cpu)
			assert.Equal(t, tt.bits, bits)
			assert.Equal(t, tt.big, big)
		})
	}

	_, _, _, err := archOf(elf.EM_X86_64, elf.ELFCLASS64, elf.ELFDATA2LSB)
	assert.ErrorIs(t, err, ErrUnsupportedMachine)
}

func TestSymbolAt(t *testing.T) {
	im := &Image{Symbols: []Symbol{
		{Name: "a", Addr: 0x100, Func: true},
		{Name: "b", Addr: 0x200, Func: true},
	}}
	s, ok := im.SymbolAt(0x200)
	require.True(t, ok)
	assert.Equal(t, "b", s.Name)
	_, ok = im.SymbolAt(0x180)
	assert.False(t, ok)

	s, ok = im.Symbol("a")
	require.True(t, ok)
	assert.Equal(t, uint64(0x100), s.Addr)
}
