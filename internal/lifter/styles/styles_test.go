package styles

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownRenderer(t *testing.T) {
	r := MarkdownRenderer(80)
	require.NotNil(t, r)
	out, err := r.Render("# Registers\n\n| name | size |\n|---|---|\n| `x0` | 8 |\n")
	require.NoError(t, err)
	assert.Contains(t, out, "x0")
}

func TestHexPads(t *testing.T) {
	got := Hex([]byte{0x1f, 0x20}, 4)
	assert.Contains(t, got, "1f20")
	assert.True(t, strings.Contains(got, "1f20    "))
}

func TestAddr(t *testing.T) {
	assert.Contains(t, Addr(0x1000, false), "1000")
	assert.Contains(t, Addr(0x1000, true), "1000")
}
