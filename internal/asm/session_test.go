package asm

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifter/internal/config"
	"lifter/internal/ldefs"
	"lifter/internal/pcode"
	"lifter/internal/sleigh"
)

// scripted is a backend whose every instruction is a four-byte store of R0
// to ram 0x2000. A word with a 0xff top byte does not decode.
type scripted struct{ *sleigh.Base }

func newScripted(opts sleigh.Options) (sleigh.Translator, error) {
	return &scripted{Base: sleigh.NewBase(opts)}, nil
}

func (s *scripted) word(addr uint64) error {
	w, err := s.Word(addr)
	if err != nil {
		return err
	}
	if w[3] == 0xff {
		return &sleigh.DecodeError{Addr: addr, Err: errors.New("reserved opcode")}
	}
	return nil
}

func (s *scripted) PrintAssembly(emit sleigh.AssemblyEmit, addr uint64) (int, error) {
	if err := s.word(addr); err != nil {
		return 0, err
	}
	emit.Dump(addr, "str", "R0, [0x2000]")
	return 4, nil
}

func (s *scripted) OneInstruction(emit sleigh.PcodeEmit, addr uint64) (int, error) {
	if err := s.word(addr); err != nil {
		return 0, err
	}
	e := s.Emitter(emit, addr)
	e.Op(pcode.Store, nil, e.Const(uint64(s.Spaces().RAM.Index), 4), e.Reg("R0"), e.RAM(0x2000, 4))
	return 4, nil
}

func init() {
	sleigh.Register("scripted", newScripted)
}

const toyDefs = `
languages:
  - id: TOY:LE:32:default
    processor: toy
    endian: little
    size: 32
    alignment: 4
    backend: scripted
    spec: toy.spec.yaml
    default: true
  - id: TOY:BE:32:broken
    processor: toy
    endian: big
    size: 32
    backend: scripted
    spec: missing.spec.yaml
  - id: TOY:LE:16:nobackend
    processor: toy
    endian: little
    size: 16
    backend: nosuch
    spec: toy.spec.yaml
`

const toySpec = `
name: TOY
pc: PC
sp: SP
registers:
  - {name: "R%d", offset: 0x0, size: 4, count: 4, stride: 4, group: gpr}
  - {name: SP, offset: 0x10, size: 4, group: gpr}
  - {name: PC, offset: 0x14, size: 4}
abi:
  args: [R0, R1]
  rets: [R0]
`

func toyConfig() *config.Config {
	return &config.Config{SpecFS: fstest.MapFS{
		"toy/toy.ldefs.yaml": {Data: []byte(toyDefs)},
		"toy/toy.spec.yaml":  {Data: []byte(toySpec)},
	}}
}

func toySession(t *testing.T) *Session {
	t.Helper()
	s := New()
	require.NoError(t, s.Init("toy", 32, false, toyConfig()))
	require.True(t, s.Ready())
	return s
}

func TestStoreTranslation(t *testing.T) {
	s := toySession(t)
	seq, n, err := s.Translate(0x1000, []byte{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.Len(t, seq, 1)

	op := seq[0]
	assert.Equal(t, pcode.Store, op.Code)
	assert.Equal(t, 2, op.Arity())
	assert.Equal(t, pcode.Constant{Value: 3}, op.In0)
	assert.Equal(t, pcode.Register{Name: "r0", Bits: 32}, op.In1)
	assert.True(t, pcode.IsMemory(op.Out))
	assert.Equal(t, pcode.Memory{Addr: 0x2000, Size: 4}, op.Out)
}

func TestTranslateTwiceIsIndependent(t *testing.T) {
	s := toySession(t)
	buf := []byte{1, 2, 3, 4}
	a, _, err := s.Translate(0x1000, buf)
	require.NoError(t, err)
	b, _, err := s.Translate(0x1000, buf)
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(a, b))
	assert.True(t, a.Equal(b))

	a[0].Out = pcode.Constant{Value: 0}
	assert.Equal(t, pcode.Memory{Addr: 0x2000, Size: 4}, b[0].Out)
}

func TestOutOfRangeKeepsSessionReady(t *testing.T) {
	s := toySession(t)
	buf := []byte{1, 2, 3, 4}

	_, err := s.Disassemble(0x1000, buf[:2])
	assert.ErrorIs(t, err, sleigh.ErrOutOfRange)
	var rerr *RangeError
	assert.ErrorAs(t, err, &rerr)
	assert.True(t, s.Ready())

	_, _, err = s.Translate(0x1000, buf[:2])
	assert.ErrorIs(t, err, sleigh.ErrOutOfRange)
	assert.ErrorAs(t, err, &rerr)

	assert.True(t, s.Ready())
	inst, err := s.Disassemble(0x1000, buf)
	require.NoError(t, err)
	assert.Equal(t, "str r0, [0x2000]", inst.Text)
	assert.Equal(t, 4, inst.Len)
	assert.Equal(t, buf, inst.Raw)
}

func TestDecodeFailureKeepsSessionReady(t *testing.T) {
	s := toySession(t)
	_, err := s.Disassemble(0x1000, []byte{0, 0, 0, 0xff})
	assert.ErrorIs(t, err, sleigh.ErrDecode)
	_, _, err = s.Translate(0x1000, []byte{0, 0, 0, 0xff})
	assert.ErrorIs(t, err, sleigh.ErrDecode)
	assert.True(t, s.Ready())
}

func TestInitFailures(t *testing.T) {
	tests := []struct {
		name string
		cpu  string
		bits int
		big  bool
		want error
	}{
		{"unknown cpu", "z80", 8, false, ldefs.ErrNoLanguage},
		{"missing spec document", "toy", 32, true, ldefs.ErrSpecLoad},
		{"unknown backend", "toy", 16, false, ldefs.ErrSpecLoad},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := toySession(t)
			err := s.Init(tt.cpu, tt.bits, tt.big, toyConfig())
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, s.Ready())

			_, err = s.Disassemble(0, []byte{0, 0, 0, 0})
			assert.ErrorIs(t, err, ErrNotReady)
			_, _, err = s.Translate(0, []byte{0, 0, 0, 0})
			assert.ErrorIs(t, err, ErrNotReady)
		})
	}
}

func TestQueriesBeforeInit(t *testing.T) {
	s := New()
	assert.False(t, s.Ready())
	assert.Empty(t, s.SP())
	assert.Nil(t, s.Registers())
	assert.Equal(t, 1, s.Alignment())
	_, err := s.Listing(0, nil, ListOptions{})
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestARMLittleEndian(t *testing.T) {
	s := New()
	require.NoError(t, s.Init("arm", 32, false, nil))

	assert.Equal(t, "ARM:LE:32:v8", s.Language().ID)
	assert.Equal(t, "sp", s.SP())
	assert.Equal(t, "pc", s.PC())
	assert.Equal(t, []string{"r0", "r1", "r2", "r3"}, s.Args())
	assert.Equal(t, []string{"r0"}, s.Rets())
	assert.Equal(t, 4, s.Alignment())
	assert.Equal(t, "flags", s.Groups()["ng"])
	assert.Contains(t, s.Profile(), "=SP\tsp")

	for _, r := range s.Registers() {
		assert.Equal(t, r.Name, strings.ToLower(r.Native))
	}

	inst, err := s.Disassemble(0x8000, []byte{0x00, 0x00, 0x81, 0xe5})
	require.NoError(t, err)
	assert.Equal(t, "str r0, [r1]", inst.Text)
	assert.Equal(t, "str", inst.Op)
}

func TestRegisterFallbackName(t *testing.T) {
	s := toySession(t)
	r := resolver{s}
	v := pcode.Varnode{Space: s.tr.Spaces().Register, Offset: 0x900, Size: 2}
	assert.Equal(t, "reg_900_2", r.RegisterName(v))

	v = pcode.Varnode{Space: s.tr.Spaces().Register, Offset: 0x10, Size: 4}
	assert.Equal(t, "sp", r.RegisterName(v))
}

func TestListing(t *testing.T) {
	s := New()
	require.NoError(t, s.Init("arm64", 64, false, nil))

	buf := []byte{
		0x1f, 0x20, 0x03, 0xd5, // nop
		0x00, 0x00, 0x00, 0x00, // undecodable
		0xe0, 0x03, 0x01, 0xaa, // mov x0, x1
		0xc0, 0x03, 0x5f, 0xd6, // ret
		0x1f, 0x20,             // truncated
	}
	got, err := s.Listing(0x4000, buf, ListOptions{Pcode: true})
	require.NoError(t, err)
	require.Len(t, got, 5)

	assert.Equal(t, "nop", got[0].Text)
	assert.Empty(t, got[0].Pcode)
	assert.True(t, got[1].Invalid())
	assert.Equal(t, uint64(0x4004), got[1].VA)
	assert.Equal(t, "mov x0, x1", got[2].Text)
	require.Len(t, got[2].Pcode, 1)
	assert.Equal(t, pcode.Register{Name: "x0", Bits: 64}, got[2].Pcode[0].Out)
	assert.Equal(t, pcode.Return, got[3].Pcode[0].Code)
	assert.True(t, got[4].Invalid())
	assert.Equal(t, 2, got[4].Len)
	assert.Equal(t, len(buf), got.Size())

	got, err = s.Listing(0x4000, buf, ListOptions{Count: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[1].Invalid())
	assert.Nil(t, got[0].Pcode)
}
