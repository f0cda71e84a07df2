package extractor

import "strings"

// Sanitize drops invalid UTF-8, NUL bytes and control characters other than
// tab, newline and carriage return, then trims surrounding space.
func Sanitize(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r < 0x20 || r == 0x7f:
			return -1
		default:
			return r
		}
	}, s)
	return strings.TrimSpace(s)
}
