package aarch64

import (
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifter/internal/ldefs"
	"lifter/internal/pcode"
	"lifter/internal/sleigh"
)

type image struct {
	base uint64
	buf  []byte
}

func (m *image) LoadFill(dst []byte, addr uint64) error {
	if addr < m.base || addr-m.base+uint64(len(dst)) > uint64(len(m.buf)) {
		return fmt.Errorf("%w: %#x", sleigh.ErrOutOfRange, addr)
	}
	copy(dst, m.buf[addr-m.base:])
	return nil
}

func (m *image) AdjustVMA(int64) error { return sleigh.ErrAdjustUnsupported }
func (m *image) ArchType() string      { return "test" }

type text struct{ s string }

func (t *text) Dump(_ uint64, mnem, body string) {
	t.s = mnem
	if body != "" {
		t.s += " " + body
	}
}

type lower struct{ tr sleigh.Translator }

func (l lower) RegisterName(v pcode.Varnode) string {
	return strings.ToLower(l.tr.RegisterName(v))
}

func open(t *testing.T, img *image) sleigh.Translator {
	t.Helper()
	store, err := ldefs.Scan(ldefs.Embedded())
	require.NoError(t, err)
	d, err := store.Resolve("arm64", 64, false)
	require.NoError(t, err)
	spec, err := store.LoadSpec(d)
	require.NoError(t, err)
	tr, err := sleigh.Open(d.Backend, sleigh.Options{Spec: spec, Loader: img, Alignment: d.Alignment})
	require.NoError(t, err)
	return tr
}

func word(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func lift(t *testing.T, addr uint64, enc string) (string, pcode.Seq) {
	t.Helper()
	img := &image{base: addr, buf: word(t, enc)}
	tr := open(t, img)

	var txt text
	n, err := tr.PrintAssembly(&txt, addr)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	b := pcode.NewBuilder(lower{tr})
	n, err = tr.OneInstruction(b, addr)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	return txt.s, b.Seq()
}

func codes(s pcode.Seq) []pcode.OpCode {
	var out []pcode.OpCode
	for _, op := range s {
		out = append(out, op.Code)
	}
	return out
}

func TestText(t *testing.T) {
	tests := []struct {
		enc  string
		want string
	}{
		{"1f2003d5", "nop"},
		{"e00301aa", "mov X0, X1"},
		{"20040091", "add X0, X1, #0x1"},
		{"ff4300d1", "sub SP, SP, #0x10"},
		{"02000014", "b 0x1008"},
		{"02000094", "bl 0x1008"},
		{"40000054", "b.eq 0x1008"},
		{"c0035fd6", "ret"},
		{"20005fd6", "ret X1"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, _ := lift(t, 0x1000, tt.enc)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLiftShapes(t *testing.T) {
	tests := []struct {
		name string
		enc  string
		want []pcode.OpCode
	}{
		{"nop", "1f2003d5", nil},
		{"mov x0, x1", "e00301aa", []pcode.OpCode{pcode.Copy}},
		{"movz x0, #1", "200080d2", []pcode.OpCode{pcode.Copy}},
		{"add x0, x1, #1", "20040091", []pcode.OpCode{pcode.IntAdd, pcode.Copy}},
		{"add w0, w1, #1", "20040011", []pcode.OpCode{pcode.IntAdd, pcode.IntZExt}},
		{"sub sp, sp, #16", "ff4300d1", []pcode.OpCode{pcode.IntSub, pcode.Copy}},
		{"str x0, [x1]", "200000f9", []pcode.OpCode{pcode.Store}},
		{"ldr x0, [x1]", "200040f9", []pcode.OpCode{pcode.Load, pcode.Copy}},
		{"b", "02000014", []pcode.OpCode{pcode.Branch}},
		{"bl", "02000094", []pcode.OpCode{pcode.Copy, pcode.Call}},
		{"ret", "c0035fd6", []pcode.OpCode{pcode.Return}},
		{"cmp x0, #0", "1f0000f1", []pcode.OpCode{
			pcode.IntSub, pcode.IntSLess, pcode.IntEqual, pcode.IntLessEqual, pcode.IntSBorrow,
		}},
		{"b.eq", "40000054", []pcode.OpCode{pcode.CBranch}},
		{"svc #0", "010000d4", []pcode.OpCode{pcode.CallOther}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, seq := lift(t, 0x1000, tt.enc)
			assert.Equal(t, tt.want, codes(seq), "%s", seq)
		})
	}
}

func TestLiftStoreOperands(t *testing.T) {
	_, seq := lift(t, 0x1000, "200000f9")
	require.Len(t, seq, 1)
	op := seq[0]
	assert.Equal(t, pcode.Store, op.Code)
	assert.Equal(t, pcode.Register{Name: "x1", Bits: 64}, op.In1)
	assert.Equal(t, pcode.Register{Name: "x0", Bits: 64}, op.Out)
	assert.True(t, pcode.IsConstant(op.In0))
}

func TestLiftLinksTemporaries(t *testing.T) {
	_, seq := lift(t, 0x1000, "20040091")
	require.Len(t, seq, 2)
	sum, ok := seq[1].In0.(pcode.Temporary)
	require.True(t, ok)
	def, ok := seq.Def(sum)
	require.True(t, ok)
	assert.Equal(t, pcode.IntAdd, def.Code)
	assert.Equal(t, pcode.Register{Name: "x0", Bits: 64}, seq[1].Out)
}

func TestLiftBranchTargets(t *testing.T) {
	_, seq := lift(t, 0x2000, "02000094")
	require.Len(t, seq, 2)
	assert.Equal(t, pcode.Register{Name: "x30", Bits: 64}, seq[0].Out)
	assert.Equal(t, pcode.Constant{Value: 0x2004}, seq[0].In0)
	assert.Equal(t, pcode.Memory{Addr: 0x2008, Size: 8}, seq[1].In0)
}

func TestUnliftedBecomesCallOther(t *testing.T) {
	// fadd d0, d1, d2
	_, seq := lift(t, 0x1000, "2028621e")
	require.Len(t, seq, 1)
	assert.Equal(t, pcode.CallOther, seq[0].Code)
	assert.True(t, pcode.IsConstant(seq[0].In0))
}

func TestDecodeFailures(t *testing.T) {
	img := &image{base: 0x1000, buf: []byte{0, 0, 0, 0, 0x1f, 0x20}}
	tr := open(t, img)
	var txt text

	_, err := tr.PrintAssembly(&txt, 0x1000)
	assert.ErrorIs(t, err, sleigh.ErrDecode)

	_, err = tr.OneInstruction(pcode.NewBuilder(lower{tr}), 0x1004)
	assert.ErrorIs(t, err, sleigh.ErrOutOfRange)

	_, err = tr.PrintAssembly(&txt, 0x1002)
	assert.ErrorIs(t, err, sleigh.ErrDecode)
}

func TestRejectsBigEndian(t *testing.T) {
	_, err := New(sleigh.Options{BigEndian: true})
	assert.Error(t, err)
}
