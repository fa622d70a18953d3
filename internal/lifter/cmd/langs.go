package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lifter/internal/ldefs"
)

func init() {
	rootCmd.AddCommand(langsCmd)
}

var langsCmd = &cobra.Command{
	Use:   "langs",
	Short: "List the known language definitions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLangs(cmd.OutOrStdout())
	},
}

func runLangs(w io.Writer) error {
	store, err := ldefs.Scan(cfg.LanguageFS())
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBACKEND\tALIGN\tALIASES")
	for _, l := range store.Languages() {
		id := l.ID
		if l.Default {
			id += " *"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", id, l.Backend, l.Alignment, strings.Join(l.Aliases, ","))
	}
	return tw.Flush()
}
