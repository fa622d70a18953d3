package cmd

import (
	"fmt"
	"io"

	"github.com/ianlancetaylor/demangle"

	"lifter/internal/disasm"
	"lifter/internal/lifter/styles"
	"lifter/internal/ui/colorize"
)

// labeler names the symbol that starts at an address, if any.
type labeler func(va uint64) (string, bool)

// maxRaw is the widest encoding the byte column is padded for.
const maxRaw = 4

// writeListing prints one line per instruction, followed by its note if
// any, with its p-code, when lifted, indented below it.
func writeListing(w io.Writer, stream disasm.Stream, label labeler, notes map[uint64]string) {
	for _, in := range stream {
		if label != nil {
			if name, ok := label(in.VA); ok {
				fmt.Fprintf(w, "\n%s:\n", symbolName(name))
			}
		}
		line := formatInst(in)
		if note, ok := notes[in.VA]; ok {
			line += "  ; " + note
		}
		fmt.Fprintln(w, line)
		for _, op := range in.Pcode {
			fmt.Fprintln(w, formatOp(op.String()))
		}
	}
}

func formatInst(in disasm.Inst) string {
	if !colorize.Enabled() {
		return fmt.Sprintf("%8x  %-*x  %s", in.VA, 2*maxRaw, in.Raw, in.Text)
	}
	text := colorize.InstructionLine(in.Text)
	if in.Invalid() {
		text = styles.Invalid.Render(in.Text)
	}
	return fmt.Sprintf("%s  %s  %s", styles.Addr(in.VA, false), styles.Hex(in.Raw, maxRaw), text)
}

func formatOp(op string) string {
	if !colorize.Enabled() {
		return "    " + op
	}
	return "    " + colorize.PcodeLine(op)
}

// symbolName demangles C++ and Rust names. Anything else is returned as is.
func symbolName(name string) string {
	d := demangle.Filter(name)
	if !colorize.Enabled() {
		return d
	}
	return styles.Symbol.Render(d)
}

// dropPcode clears lifted sequences that were only needed for analysis.
func dropPcode(stream disasm.Stream) {
	for i := range stream {
		stream[i].Pcode = nil
	}
}
