package analysis

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Memory reads mapped bytes by virtual address. *elfx.Image implements it.
type Memory interface {
	SliceVA(va uint64, size uint64) ([]byte, bool)
}

// EscapeUnprintable returns a string where printable Unicode runes are preserved.
// Control and unprintable runes are escaped as \uXXXX. Invalid UTF-8 is escaped as \xXX.
func EscapeUnprintable(b []byte) string {
	var sb strings.Builder
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			// Invalid UTF-8 sequence, escape the byte
			sb.WriteString(fmt.Sprintf("\\x%02X", b[0]))
		} else if unicode.IsPrint(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteString(fmt.Sprintf("\\u%04X", r))
		}
		b = b[size:]
	}
	return sb.String()
}

// ReadCString reads a NUL-terminated string of at most maxLen bytes at va.
// The window shrinks when it would run past the end of the mapping.
func ReadCString(mem Memory, va uint64, maxLen int) ([]byte, bool) {
	// largest readable window, by bisection
	lo, hi := 0, maxLen
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if _, ok := mem.SliceVA(va, uint64(mid)); ok {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	if lo == 0 {
		return nil, false
	}
	raw, _ := mem.SliceVA(va, uint64(lo))
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		return raw[:i], true
	}
	return raw, lo == maxLen
}

// isText reports whether b looks like a string a programmer wrote: valid
// UTF-8, at least MinStringLength long, printable or common whitespace.
func isText(b []byte) bool {
	if len(b) < MinStringLength || !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if !unicode.IsPrint(r) && r != '\n' && r != '\t' && r != '\r' {
			return false
		}
	}
	return true
}
