package cmd

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifter/internal/config"
	"lifter/internal/ldefs"
	"lifter/internal/ui/colorize"
)

func plain(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvNoColor, "1")
	t.Setenv(config.EnvSpecHome, "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg = config.Default()
	colorize.NoColor = true
}

func TestParseAddr(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"0x1000", 0x1000},
		{"1000", 0x1000},
		{"", 0},
		{"0XfF", 0xff},
	}
	for _, tt := range tests {
		got, err := parseAddr(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := parseAddr("zz")
	assert.Error(t, err)
}

func TestReadInput(t *testing.T) {
	got, err := readInput("0x1f20 03d5")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1f, 0x20, 0x03, 0xd5}, got)

	path := filepath.Join(t.TempDir(), "code.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2}, 0o644))
	got, err = readInput(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, got)

	_, err = readInput("not hex")
	assert.Error(t, err)
}

func TestRunDisasm(t *testing.T) {
	plain(t)

	var buf bytes.Buffer
	code := []byte{0x1f, 0x20, 0x03, 0xd5, 0xc0, 0x03, 0x5f, 0xd6, 0x00, 0x00, 0x00, 0x00}
	require.NoError(t, runDisasm(&buf, code, disasmOptions{cpu: "aarch64", bits: 64, addr: 0x1000}))

	out := buf.String()
	assert.Contains(t, out, "    1000  1f2003d5  nop\n")
	assert.Contains(t, out, "    1004  c0035fd6  ret\n")
	assert.Contains(t, out, "    1008  00000000  invalid\n")
}

func TestRunDisasmPcode(t *testing.T) {
	plain(t)

	var buf bytes.Buffer
	require.NoError(t, runDisasm(&buf, []byte{0x20, 0x04, 0x00, 0x91}, disasmOptions{cpu: "aarch64", bits: 64, addr: 0x1000, pcode: true}))
	out := buf.String()
	assert.Contains(t, out, "add x0, x1, #0x1")
	assert.Contains(t, out, "INT_ADD x1, #0x1")
	assert.Contains(t, out, "x0 = COPY")
}

func TestRunDisasmCount(t *testing.T) {
	plain(t)

	var buf bytes.Buffer
	code := []byte{0x1f, 0x20, 0x03, 0xd5, 0x1f, 0x20, 0x03, 0xd5}
	require.NoError(t, runDisasm(&buf, code, disasmOptions{cpu: "aarch64", bits: 64, count: 1}))
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("nop")))
}

func TestRunDisasmUnknownLanguage(t *testing.T) {
	plain(t)
	err := runDisasm(&bytes.Buffer{}, []byte{0}, disasmOptions{cpu: "z80", bits: 8})
	assert.ErrorIs(t, err, ldefs.ErrNoLanguage)
}

func TestRunRegs(t *testing.T) {
	plain(t)

	var buf bytes.Buffer
	require.NoError(t, runRegs(&buf, regsOptions{cpu: "arm", bits: 32, profile: true}))
	assert.Contains(t, buf.String(), "=PC\tpc\n")
	assert.Contains(t, buf.String(), "=SP\tsp\n")

	buf.Reset()
	require.NoError(t, runRegs(&buf, regsOptions{cpu: "arm", bits: 32, markdown: true}))
	assert.Contains(t, buf.String(), "# ARM:LE:32:v8")
	assert.Contains(t, buf.String(), "| `r0` |")

	buf.Reset()
	require.NoError(t, runRegs(&buf, regsOptions{cpu: "arm", bits: 32}))
	assert.Contains(t, buf.String(), "r0")
}

func TestRunLangs(t *testing.T) {
	plain(t)

	var buf bytes.Buffer
	require.NoError(t, runLangs(&buf))
	assert.Contains(t, buf.String(), "AARCH64:LE:64:v8A *")
	assert.Contains(t, buf.String(), "ARM:BE:32:v8")
}

func TestRootCommand(t *testing.T) {
	plain(t)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"schema", "--no-color"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "specDir")
	assert.True(t, cfg.NoColor)
}

const (
	loadVA  = 0x400000
	codeOff = 64 + 56
)

// writeELF writes a little-endian AArch64 executable with one PT_LOAD and
// no section headers.
func writeELF(t *testing.T, code []byte) string {
	t.Helper()
	var b bytes.Buffer
	le := binary.LittleEndian
	size := uint64(codeOff + len(code))

	b.Write([]byte{0x7f, 'E', 'L', 'F', byte(elf.ELFCLASS64), byte(elf.ELFDATA2LSB), byte(elf.EV_CURRENT)})
	b.Write(make([]byte, 9))
	for _, v := range []any{
		uint16(elf.ET_EXEC), uint16(elf.EM_AARCH64), uint32(elf.EV_CURRENT),
		uint64(loadVA + codeOff), uint64(64), uint64(0), uint32(0),
		uint16(64), uint16(56), uint16(1), uint16(64), uint16(0), uint16(0),
		uint32(elf.PT_LOAD), uint32(elf.PF_R | elf.PF_X),
		uint64(0), uint64(loadVA), uint64(loadVA), size, size, uint64(0x1000),
	} {
		require.NoError(t, binary.Write(&b, le, v))
	}
	b.Write(code)

	path := filepath.Join(t.TempDir(), "tiny")
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o755))
	return path
}

func TestRunELF(t *testing.T) {
	plain(t)
	path := writeELF(t, []byte{0x1f, 0x20, 0x03, 0xd5, 0xc0, 0x03, 0x5f, 0xd6})

	var buf bytes.Buffer
	require.NoError(t, runELF(&buf, path, elfOptions{addr: loadVA + codeOff, pcode: true}))
	out := buf.String()
	assert.Contains(t, out, "  400078  1f2003d5  nop\n")
	assert.Contains(t, out, "  40007c  c0035fd6  ret\n")
	assert.Contains(t, out, "RETURN x30")

	buf.Reset()
	require.NoError(t, runELF(&buf, path, elfOptions{addr: loadVA + codeOff + 4}))
	assert.NotContains(t, buf.String(), "nop")
	assert.Contains(t, buf.String(), "ret")

	err := runELF(&buf, path, elfOptions{symbol: "main"})
	assert.ErrorIs(t, err, ErrNoSymbol)
}

func TestRunELFStrings(t *testing.T) {
	plain(t)
	code := []byte{
		0x40, 0x00, 0x00, 0x10, // adr x0, .+8
		0xc0, 0x03, 0x5f, 0xd6, // ret
	}
	path := writeELF(t, append(code, "hello!\x00"...))

	var buf bytes.Buffer
	require.NoError(t, runELF(&buf, path, elfOptions{addr: loadVA + codeOff, count: 2, strings: true}))
	out := buf.String()
	assert.Contains(t, out, "  400078  40000010  adr x0, 0x400080  ; \"hello!\"\n")
	assert.NotContains(t, out, "COPY")
}
