package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"lifter/internal/asm"
	"lifter/internal/lifter/styles"
	"lifter/internal/ui/colorize"
)

type regsOptions struct {
	cpu       string
	bits      int
	bigEndian bool
	profile   bool
	markdown  bool
}

func init() {
	regsCmd.Flags().String("cpu", "aarch64", "Processor name, alias or language ID")
	regsCmd.Flags().Int("bits", 64, "Address size in bits")
	regsCmd.Flags().BoolP("big-endian", "b", false, "Big endian byte order")
	regsCmd.Flags().Bool("profile", false, "Print a register profile")
	regsCmd.Flags().Bool("markdown", false, "Print a markdown report")
	rootCmd.AddCommand(regsCmd)
}

var regsCmd = &cobra.Command{
	Use:   "regs",
	Short: "List the registers of a language",
	Example: `
lifter regs --cpu arm --bits 32 --profile
  `,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var o regsOptions
		o.cpu, _ = cmd.Flags().GetString("cpu")
		o.bits, _ = cmd.Flags().GetInt("bits")
		o.bigEndian, _ = cmd.Flags().GetBool("big-endian")
		o.profile, _ = cmd.Flags().GetBool("profile")
		o.markdown, _ = cmd.Flags().GetBool("markdown")
		return runRegs(cmd.OutOrStdout(), o)
	},
}

func runRegs(w io.Writer, o regsOptions) error {
	s, err := newSession(o.cpu, o.bits, o.bigEndian)
	if err != nil {
		return err
	}
	switch {
	case o.profile:
		_, err = io.WriteString(w, s.Profile())
		return err
	case o.markdown:
		md := regsMarkdown(s)
		if colorize.Enabled() {
			if out, err := styles.MarkdownRenderer(100).Render(md); err == nil {
				md = out
			}
		}
		_, err = io.WriteString(w, md)
		return err
	}
	for _, r := range s.Registers() {
		fmt.Fprintf(w, "%-10s %3d  %#06x  %s\n", r.Name, r.Size, r.Offset, r.Group)
	}
	return nil
}

// regsMarkdown is a report of the calling convention roles and the
// register table.
func regsMarkdown(s *asm.Session) string {
	var b strings.Builder
	lang := s.Language()
	fmt.Fprintf(&b, "# %s\n\n", lang.ID)
	if lang.Comment != "" {
		fmt.Fprintf(&b, "%s\n\n", lang.Comment)
	}
	fmt.Fprintf(&b, "* PC: `%s`\n* SP: `%s`\n", s.PC(), s.SP())
	if args := s.Args(); len(args) > 0 {
		fmt.Fprintf(&b, "* Arguments: `%s`\n", strings.Join(args, "`, `"))
	}
	if rets := s.Rets(); len(rets) > 0 {
		fmt.Fprintf(&b, "* Returns: `%s`\n", strings.Join(rets, "`, `"))
	}
	b.WriteString("\n## Registers\n\n| name | bytes | offset | group |\n|---|---|---|---|\n")
	for _, r := range s.Registers() {
		fmt.Fprintf(&b, "| `%s` | %d | %#x | %s |\n", r.Name, r.Size, r.Offset, r.Group)
	}
	return b.String()
}
