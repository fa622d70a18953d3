package asm

import "strings"

// TextEmit collects the assembly text of one instruction. Native register
// names in the operands are rewritten through names. When the engine calls
// Dump more than once the last call wins.
type TextEmit struct {
	names map[string]string

	Mnem string
	Body string
}

// NewTextEmit returns an emitter using the native to canonical map names.
func NewTextEmit(names map[string]string) *TextEmit {
	return &TextEmit{names: names}
}

func (t *TextEmit) Dump(_ uint64, mnem, body string) {
	t.Mnem = mnem
	t.Body = canonicalize(body, t.names)
}

// Reset clears the collected text.
func (t *TextEmit) Reset() { t.Mnem, t.Body = "", "" }

func (t *TextEmit) String() string {
	if t.Body == "" {
		return t.Mnem
	}
	return t.Mnem + " " + t.Body
}

// canonicalize replaces every identifier token of s found in names.
// Tokens starting with a digit, such as hex literals, are left alone.
func canonicalize(s string, names map[string]string) string {
	if len(names) == 0 || s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		c := s[i]
		if !isIdent(c) {
			b.WriteByte(c)
			i++
			continue
		}
		j := i
		for j < len(s) && isIdent(s[j]) {
			j++
		}
		tok := s[i:j]
		if c < '0' || c > '9' {
			if r, ok := names[tok]; ok {
				tok = r
			}
		}
		b.WriteString(tok)
		i = j
	}
	return b.String()
}

func isIdent(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
