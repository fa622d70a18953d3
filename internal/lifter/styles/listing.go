package styles

import (
	"fmt"

	"github.com/charmbracelet/lipgloss/v2"
)

// Listing palette, shared by the view TUI and plain output.
var (
	Address  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	Selected = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
	Bytes    = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	Invalid  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	Symbol   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	Pcode    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7C9C9D")).PaddingLeft(4)
	Title    = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
	Menu     = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)
)

// Addr renders an address column entry.
func Addr(va uint64, selected bool) string {
	if selected {
		return Selected.Render(fmt.Sprintf("%8x", va))
	}
	return Address.Render(fmt.Sprintf("%8x", va))
}

// Hex renders raw instruction bytes padded to width bytes.
func Hex(raw []byte, width int) string {
	s := fmt.Sprintf("%x", raw)
	for len(s) < 2*width {
		s += " "
	}
	return Bytes.Render(s)
}
