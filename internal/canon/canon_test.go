package canon

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifter/internal/sleigh"
)

func armRegistration() sleigh.Registration {
	return sleigh.Registration{
		Registers: []sleigh.RegisterDef{
			{Name: "R0", Offset: 0x20, Size: 4, Group: "gpr"},
			{Name: "R1", Offset: 0x24, Size: 4, Group: "gpr"},
			{Name: "SP", Offset: 0x54, Size: 4, Group: "gpr"},
			{Name: "PC", Offset: 0x5c, Size: 4},
			{Name: "NG", Offset: 0x60, Size: 1, Group: "flags"},
			{Name: "D0", Offset: 0x300, Size: 8, Group: "fpu"},
		},
		PC:   "PC",
		SP:   "SP",
		Args: []string{"R0", "R1"},
		Rets: []string{"R0"},
	}
}

func TestCanonical(t *testing.T) {
	for _, name := range []string{"SP", "x0", "Xzr", "APSR_nzcv", ""} {
		c := Canonical(name)
		assert.Equal(t, strings.ToLower(name), c)
		assert.Equal(t, c, Canonical(c), "idempotent")
	}
}

func TestBuild(t *testing.T) {
	tab := Build(armRegistration())

	assert.Equal(t, "pc", tab.PC())
	assert.Equal(t, "sp", tab.SP())
	assert.Equal(t, []string{"r0", "r1"}, tab.Args())
	assert.Equal(t, []string{"r0"}, tab.Rets())

	regs := tab.Registers()
	require.Len(t, regs, 6)
	assert.Equal(t, Descriptor{Name: "sp", Native: "SP", Size: 4, Offset: 0x54, Group: "gpr"}, regs[2])

	c, ok := tab.Native("SP")
	require.True(t, ok)
	assert.Equal(t, "sp", c)
	_, ok = tab.Native("sp")
	assert.False(t, ok, "lookup is by native name")

	g, ok := tab.Group("ng")
	require.True(t, ok)
	assert.Equal(t, "flags", g)
	assert.Len(t, tab.Groups(), 6)
	assert.Len(t, tab.Map(), 6)
}

func TestBuildIsTotal(t *testing.T) {
	reg := armRegistration()
	tab := Build(reg)
	for _, r := range reg.Registers {
		_, ok := tab.Native(r.Name)
		assert.True(t, ok, r.Name)
	}
}

func TestCopiesAreIndependent(t *testing.T) {
	tab := Build(armRegistration())
	m := tab.Map()
	m["SP"] = "changed"
	args := tab.Args()
	args[0] = "changed"

	c, _ := tab.Native("SP")
	assert.Equal(t, "sp", c)
	assert.Equal(t, "r0", tab.Args()[0])
}

func TestCollisionLastWins(t *testing.T) {
	tab := Build(sleigh.Registration{
		Registers: []sleigh.RegisterDef{
			{Name: "ACC", Offset: 0, Size: 4, Group: "gpr"},
			{Name: "acc", Offset: 8, Size: 4, Group: "sys"},
		},
	})
	g, ok := tab.Group("acc")
	require.True(t, ok)
	assert.Equal(t, "sys", g)
	assert.Len(t, tab.Registers(), 2)
}

func TestProfile(t *testing.T) {
	p := Build(armRegistration()).Profile()
	lines := strings.Split(strings.TrimSpace(p), "\n")
	assert.Equal(t, []string{
		"=PC\tpc",
		"=SP\tsp",
		"=A0\tr0",
		"=A1\tr1",
		"=R0\tr0",
		"gpr\tr0\t.32\t32\t0",
		"gpr\tr1\t.32\t36\t0",
		"gpr\tsp\t.32\t84\t0",
		"gpr\tpc\t.32\t92\t0",
		"flg\tng\t.8\t96\t0",
		"fpu\td0\t.64\t768\t0",
	}, lines)
}
