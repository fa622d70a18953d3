package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/ianlancetaylor/demangle"
	"github.com/spf13/cobra"

	"lifter/internal/analysis"
	"lifter/internal/asm"
	"lifter/internal/elfx"
)

// ErrNoSymbol is returned when --symbol names nothing in the image.
var ErrNoSymbol = errors.New("symbol not found")

type elfOptions struct {
	symbol  string
	addr    uint64
	count   int
	pcode   bool
	strings bool
}

func init() {
	elfCmd.Flags().StringP("symbol", "s", "", "Start at this symbol, mangled or demangled")
	elfCmd.Flags().StringP("addr", "a", "", "Start at this virtual address (hex)")
	elfCmd.Flags().IntP("count", "n", 0, "Stop after this many instructions")
	elfCmd.Flags().BoolP("pcode", "p", false, "Lift every instruction")
	elfCmd.Flags().Bool("strings", false, "Annotate instructions that load C string addresses")
	rootCmd.AddCommand(elfCmd)
}

var elfCmd = &cobra.Command{
	Use:   "elf <file>",
	Short: "Disassemble code of an ELF binary",
	Long: `Disassemble an ELF binary. The language comes from the ELF header.
Without --symbol or --addr the whole of .text is listed.`,
	Example: `
lifter elf ./a.out --symbol main --pcode
lifter elf ./libfoo.so --addr 0x1f40 -n 20
  `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var o elfOptions
		o.symbol, _ = cmd.Flags().GetString("symbol")
		o.count, _ = cmd.Flags().GetInt("count")
		o.pcode, _ = cmd.Flags().GetBool("pcode")
		o.strings, _ = cmd.Flags().GetBool("strings")
		if a, _ := cmd.Flags().GetString("addr"); a != "" {
			addr, err := parseAddr(a)
			if err != nil {
				return err
			}
			o.addr = addr
		}
		return runELF(cmd.OutOrStdout(), args[0], o)
	},
}

func runELF(w io.Writer, path string, o elfOptions) error {
	im, err := elfx.Open(path)
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

	start, size, err := elfRange(im, o)
	if err != nil {
		return err
	}
	code, ok := im.SliceVA(start, size)
	if !ok {
		return fmt.Errorf("%#x is not mapped", start)
	}

	stream, err := s.Listing(start, code, asm.ListOptions{Count: o.count, Pcode: o.pcode || o.strings})
	var notes map[uint64]string
	if o.strings {
		notes = analysis.StringRefs(im, stream)
		if !o.pcode {
			dropPcode(stream)
		}
	}
	writeListing(w, stream, symbolsOf(im), notes)
	return err
}

func symbolsOf(im *elfx.Image) labeler {
	return func(va uint64) (string, bool) {
		sym, ok := im.SymbolAt(va)
		return sym.Name, ok
	}
}

// elfRange picks the bytes to list: a symbol's extent, the rest of .text
// from an address, or all of .text.
func elfRange(im *elfx.Image, o elfOptions) (uint64, uint64, error) {
	textEnd := im.Text.VA + im.Text.Size
	rest := func(va uint64) uint64 {
		if va >= im.Text.VA && va < textEnd {
			return textEnd - va
		}
		if off, ok := im.VA2Off(va); ok && off < uint64(len(im.All)) {
			return uint64(len(im.All)) - off
		}
		return 0
	}

	switch {
	case o.symbol != "":
		sym, ok := lookupSymbol(im, o.symbol)
		if !ok {
			return 0, 0, fmt.Errorf("%w: %s", ErrNoSymbol, o.symbol)
		}
		if sym.Size == 0 {
			return sym.Addr, rest(sym.Addr), nil
		}
		return sym.Addr, sym.Size, nil
	case o.addr != 0:
		return o.addr, rest(o.addr), nil
	}
	if im.Text.Size == 0 {
		return 0, 0, errors.New("no executable code")
	}
	return im.Text.VA, im.Text.Size, nil
}

// lookupSymbol matches the raw name first, then the demangled name with or
// without its parameter list.
func lookupSymbol(im *elfx.Image, name string) (elfx.Symbol, bool) {
	if s, ok := im.Symbol(name); ok {
		return s, true
	}
	for _, s := range im.Symbols {
		d := demangle.Filter(s.Name)
		if d == name || demangle.Filter(s.Name, demangle.NoParams) == name {
			return s, true
		}
	}
	return elfx.Symbol{}, false
}
