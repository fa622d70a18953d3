package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"lifter/internal/asm"
	"lifter/internal/config"
	"lifter/internal/lifter/log"
	"lifter/internal/logging"
	"lifter/internal/ui/colorize"
)

var (
	cfg    = config.Default()
	logger *logging.LoggerCloser
)

func init() {
	rootCmd.PersistentFlags().StringP("config", "C", "", "Config file (default ~/.config/lifter/lifter.yaml)")
	rootCmd.PersistentFlags().StringP("spec-dir", "S", "", "Directory of *.ldefs.yaml language definitions")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colorized output")
}

var rootCmd = &cobra.Command{
	Use:   "lifter",
	Short: "Disassemble and lift machine code to p-code",
	Long: `Lifter decodes machine code for the languages it has definitions for,
prints it as assembly with canonical register names and lifts each
instruction into p-code micro-operations.`,
	Example: `
# Disassemble raw bytes
lifter disasm --addr 0x1000 1f2003d5c0035fd6

# Lift a function of an ELF binary
lifter elf ./a.out --symbol main --pcode

# Browse an ELF binary interactively
lifter view ./a.out
  `,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
}

// setup loads the config file, lets flags override it and brings up
// logging and color.
func setup(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.DefaultPath()
	}
	c, err := config.Load(path)
	if err != nil {
		return err
	}
	if dir, _ := cmd.Flags().GetString("spec-dir"); dir != "" {
		c.SpecDir = dir
	}
	if v, _ := cmd.Flags().GetBool("no-color"); v {
		c.NoColor = true
	}
	if v, _ := cmd.Flags().GetBool("debug"); v {
		c.Debug = true
	}
	cfg = c

	colorize.NoColor = c.NoColor || !term.IsTerminal(os.Stdout.Fd())
	logger = log.Setup(c.LogLevel, c.Debug)
	return nil
}

// newSession opens a translation session for the given language triple.
func newSession(cpu string, bits int, bigEndian bool) (*asm.Session, error) {
	var opts []asm.Option
	if logger != nil {
		opts = append(opts, asm.WithLogger(logger.Logger))
	}
	s := asm.New(opts...)
	if err := s.Init(cpu, bits, bigEndian, cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// parseAddr accepts hex with or without a 0x prefix.
func parseAddr(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("bad address %q: %w", s, err)
	}
	return v, nil
}

// stdinPiped reports whether stdin carries data rather than a terminal.
func stdinPiped() bool {
	if term.IsTerminal(os.Stdin.Fd()) {
		return false
	}
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeNamedPipe != 0
}

func readStdin() ([]byte, error) {
	return io.ReadAll(os.Stdin)
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	// fang renders help and errors for terminals; pipes get plain cobra
	if !term.IsTerminal(os.Stdout.Fd()) {
		if err := rootCmd.Execute(); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return 1
		}
		return 0
	}
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		return 1
	}
	return 0
}
