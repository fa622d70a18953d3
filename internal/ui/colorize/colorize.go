package colorize

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// NoColor disables highlighting regardless of the environment.
var NoColor bool

// Enabled reports whether output should be colorized.
func Enabled() bool {
	return !NoColor && os.Getenv("LIFTER_NO_COLOR") == ""
}

// getAssemblyLexer returns an appropriate assembly lexer with fallbacks
func getAssemblyLexer() chroma.Lexer {
	// nasm handles ';' comments, which listings use for symbols
	candidates := []string{"nasm", "armasm", "gas"}
	for _, name := range candidates {
		if lexer := lexers.Get(name); lexer != nil {
			return lexer
		}
	}
	return nil
}

// getDisasmStyle returns the disassembly style with fallbacks
func getDisasmStyle() *chroma.Style {
	candidates := []string{StyleName, "dracula", "monokai"}
	for _, name := range candidates {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

// getTerminalFormatter returns an appropriate terminal formatter
func getTerminalFormatter() chroma.Formatter {
	candidates := []string{"terminal16m", "terminal256"}
	for _, name := range candidates {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// Assembly applies syntax highlighting to a block of assembly text.
func Assembly(code string) (string, error) {
	if !Enabled() {
		return code, nil
	}

	lexer := getAssemblyLexer()
	if lexer == nil {
		return code, nil
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code, err
	}

	var buf strings.Builder
	if err := getTerminalFormatter().Format(&buf, getDisasmStyle(), iterator); err != nil {
		return code, err
	}
	return buf.String(), nil
}

// InstructionLine colorizes one listing line of the form
// "<hex address> <instruction> [; comment]". The address is gray.
func InstructionLine(line string) string {
	if !Enabled() {
		return line
	}

	addr, rest, ok := strings.Cut(line, " ")
	if !ok || !isHex(addr) {
		return colorizeFullLine(line)
	}
	return fmt.Sprintf("\033[38;2;79;79;79m%s\033[0m %s", addr, colorizeFullLine(rest))
}

// PcodeLine colorizes one micro-operation line. The opcode is pink and the
// rest keeps the assembly palette.
func PcodeLine(line string) string {
	if !Enabled() {
		return line
	}
	lhs, rhs, assign := strings.Cut(line, " = ")
	if !assign {
		lhs, rhs = "", line
	}
	opc, args, _ := strings.Cut(rhs, " ")
	var b strings.Builder
	if assign {
		b.WriteString(colorizeFullLine(lhs))
		b.WriteString(" = ")
	}
	fmt.Fprintf(&b, "\033[38;2;255;95;135m%s\033[0m", opc)
	if args != "" {
		b.WriteString(" ")
		b.WriteString(colorizeFullLine(args))
	}
	return b.String()
}

func isHex(s string) bool {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isHexChar(s[i]) {
			return false
		}
	}
	return true
}

// isHexChar checks if a character is a hexadecimal digit
func isHexChar(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

// colorizeFullLine uses Chroma to colorize a single assembly line. Lexers
// may append a newline, possibly inside an escape sequence, so every
// newline is dropped.
func colorizeFullLine(line string) string {
	out, err := Assembly(line)
	if err != nil {
		return line
	}
	return strings.ReplaceAll(out, "\n", "")
}

// StripANSI removes ANSI escape codes.
func StripANSI(s string) string {
	var result strings.Builder
	inEscape := false

	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		default:
			result.WriteRune(r)
		}
	}
	return result.String()
}
