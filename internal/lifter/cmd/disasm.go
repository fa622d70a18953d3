package cmd

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lifter/internal/asm"
)

type disasmOptions struct {
	cpu       string
	bits      int
	bigEndian bool
	addr      uint64
	count     int
	pcode     bool
}

func init() {
	for _, c := range []*cobra.Command{disasmCmd, pcodeCmd} {
		c.Flags().String("cpu", "aarch64", "Processor name, alias or language ID")
		c.Flags().Int("bits", 64, "Address size in bits")
		c.Flags().BoolP("big-endian", "b", false, "Big endian byte order")
		c.Flags().StringP("addr", "a", "0", "Load address of the first byte (hex)")
		c.Flags().IntP("count", "n", 0, "Stop after this many instructions")
		rootCmd.AddCommand(c)
	}
}

var disasmCmd = &cobra.Command{
	Use:   "disasm [file|hexbytes]",
	Short: "Disassemble raw bytes",
	Long: `Disassemble a raw file or a hex string. Without an argument the hex
string is read from stdin.`,
	Example: `
lifter disasm --addr 0x1000 1f2003d5c0035fd6
lifter disasm --cpu arm --bits 32 0100a0e1
  `,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDisasmCmd(cmd, args, false)
	},
}

var pcodeCmd = &cobra.Command{
	Use:   "pcode [file|hexbytes]",
	Short: "Disassemble raw bytes and lift each instruction",
	Example: `
lifter pcode --addr 0x1000 20040091
  `,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDisasmCmd(cmd, args, true)
	},
}

func runDisasmCmd(cmd *cobra.Command, args []string, lift bool) error {
	o := disasmOptions{pcode: lift}
	o.cpu, _ = cmd.Flags().GetString("cpu")
	o.bits, _ = cmd.Flags().GetInt("bits")
	o.bigEndian, _ = cmd.Flags().GetBool("big-endian")
	o.count, _ = cmd.Flags().GetInt("count")
	a, _ := cmd.Flags().GetString("addr")
	addr, err := parseAddr(a)
	if err != nil {
		return err
	}
	o.addr = addr

	var input []byte
	switch {
	case len(args) == 1:
		input, err = readInput(args[0])
	case stdinPiped():
		var text []byte
		if text, err = readStdin(); err == nil {
			input, err = decodeHex(string(text))
		}
	default:
		return errors.New("nothing to disassemble: pass a file or hex bytes")
	}
	if err != nil {
		return err
	}
	return runDisasm(cmd.OutOrStdout(), input, o)
}

// readInput reads arg as a file when one exists, otherwise as hex.
func readInput(arg string) ([]byte, error) {
	data, err := os.ReadFile(arg)
	switch {
	case err == nil:
		return data, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}
	return decodeHex(arg)
}

// decodeHex accepts an optional 0x prefix and ignores whitespace.
func decodeHex(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	s = strings.TrimPrefix(s, "0x")
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("not a file or hex bytes: %w", err)
	}
	return data, nil
}

func runDisasm(w io.Writer, input []byte, o disasmOptions) error {
	s, err := newSession(o.cpu, o.bits, o.bigEndian)
	if err != nil {
		return err
	}
	stream, err := s.Listing(o.addr, input, asm.ListOptions{Count: o.count, Pcode: o.pcode})
	writeListing(w, stream, nil, nil)
	return err
}
