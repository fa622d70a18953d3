package cmd

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/ianlancetaylor/demangle"
	"github.com/spf13/cobra"

	"lifter/internal/analysis"
	"lifter/internal/asm"
	"lifter/internal/elfx"
	"lifter/internal/lifter/styles"
)

type viewMode int

const (
	viewListing viewMode = iota
	viewSymbols
)

// maxView bounds how many instructions one symbol view decodes.
const maxView = 2000

func init() {
	rootCmd.AddCommand(viewCmd)
}

var viewCmd = &cobra.Command{
	Use:   "view <file>",
	Short: "Browse an ELF binary interactively",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		im, err := elfx.Open(args[0])
		if err != nil {
			return err
		}
		defer im.Close()

		cpu, bits, big, err := im.Arch()
		if err != nil {
			return err
		}
		s, err := newSession(cpu, bits, big)
		if err != nil {
			return err
		}

		program := tea.NewProgram(
			newModel(im, s),
			tea.WithAltScreen(),
			tea.WithContext(cmd.Context()),
		)
		if _, err := program.Run(); err != nil {
			slog.Error("TUI run error", "error", err)
			return fmt.Errorf("TUI error: %v", err)
		}
		return nil
	},
}

type symbolItem struct {
	sym       elfx.Symbol
	demangled string
}

func (i symbolItem) Title() string       { return fmt.Sprintf("%x  %s", i.sym.Addr, i.demangled) }
func (i symbolItem) Description() string { return "" }
func (i symbolItem) FilterValue() string { return fmt.Sprintf("%x %s", i.sym.Addr, i.demangled) }

type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(symbolItem)
	if !ok {
		return
	}
	indicator := " "
	if index == m.Index() {
		indicator = ">"
	}
	fmt.Fprintf(w, " %s  %s  %s", indicator, styles.Addr(i.sym.Addr, index == m.Index()), i.demangled)
}

type model struct {
	img  *elfx.Image
	sess *asm.Session

	symbols  list.Model
	listing  viewport.Model
	mode     viewMode
	pcode    bool
	current  *symbolItem
	width    int
	numFuncs int
}

func newModel(img *elfx.Image, sess *asm.Session) model {
	vp := viewport.New()
	vp.SetWidth(80)
	vp.SetHeight(24)

	var items []list.Item
	for _, s := range img.Symbols {
		if !s.Func {
			continue
		}
		items = append(items, symbolItem{sym: s, demangled: demangle.Filter(s.Name)})
	}

	symbols := list.New(items, itemDelegate{}, 80, 24)
	symbols.SetShowStatusBar(false)
	symbols.SetFilteringEnabled(true)
	symbols.Title = fmt.Sprintf("Functions (%d)", len(items))
	symbols.Styles.Title = styles.Title.MarginLeft(2)

	m := model{
		img:      img,
		sess:     sess,
		symbols:  symbols,
		listing:  vp,
		width:    80,
		numFuncs: len(items),
	}
	if len(items) > 0 {
		m.mode = viewSymbols
	}
	m.render()
	return m
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.listing.SetWidth(msg.Width)
		m.listing.SetHeight(msg.Height - 2)
		m.symbols.SetWidth(msg.Width)
		m.symbols.SetHeight(msg.Height - 2)

	case tea.KeyMsg:
		if m.mode == viewSymbols && m.symbols.FilterState() == list.Filtering {
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "s":
			if m.mode == viewListing && m.numFuncs > 0 {
				m.mode = viewSymbols
			} else {
				m.mode = viewListing
			}
			return m, nil
		case "p":
			m.pcode = !m.pcode
			m.render()
			return m, nil
		case "enter":
			if m.mode == viewSymbols {
				if item, ok := m.symbols.SelectedItem().(symbolItem); ok {
					m.current = &item
					m.mode = viewListing
					m.render()
					m.listing.GotoTop()
				}
				return m, nil
			}
		}
	}

	switch m.mode {
	case viewSymbols:
		m.symbols, cmd = m.symbols.Update(msg)
	default:
		m.listing, cmd = m.listing.Update(msg)
	}
	return m, cmd
}

// render decodes the current symbol, or the start of .text, into the
// listing viewport.
func (m *model) render() {
	o := elfOptions{pcode: m.pcode}
	if m.current != nil {
		o.symbol = m.current.sym.Name
	}
	start, size, err := elfRange(m.img, o)
	if err != nil {
		m.listing.SetContent(styles.Invalid.Render(err.Error()))
		return
	}
	code, _ := m.img.SliceVA(start, size)
	stream, err := m.sess.Listing(start, code, asm.ListOptions{Count: maxView, Pcode: true})
	notes := analysis.StringRefs(m.img, stream)
	if !m.pcode {
		dropPcode(stream)
	}

	var buf bytes.Buffer
	writeListing(&buf, stream, symbolsOf(m.img), notes)
	if err != nil {
		fmt.Fprintf(&buf, "\n%s\n", styles.Invalid.Render(err.Error()))
	}
	m.listing.SetContent(buf.String())
}

func (m model) View() string {
	content := m.listing.View()
	menu := " S: symbols • P: p-code • Q: quit "
	if m.mode == viewSymbols {
		content = m.symbols.View()
		menu = " Enter: view listing • /: filter • Tab: listing • Q: quit "
	}
	if m.numFuncs == 0 {
		menu = " P: p-code • Q: quit "
	}
	return content + "\n" + styles.Menu.Width(m.width).Render(menu)
}
