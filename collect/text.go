package collect

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes rendered text to Unicode NFKC and collapses each
// run of horizontal whitespace to one space. Line breaks are kept, since
// grid fields are separated by them; CRLF and CR become LF. Virtualized
// panels render non-breaking spaces and full-width forms that would
// otherwise make identical rows fingerprint differently.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for i, r := range s {
		switch {
		case r == '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				continue
			}
			b.WriteByte('\n')
			space = false
		case r == '\n':
			b.WriteByte('\n')
			space = false
		case unicode.IsSpace(r):
			if !space {
				b.WriteByte(' ')
			}
			space = true
		default:
			b.WriteRune(r)
			space = false
		}
	}
	return b.String()
}

// TrimAffix removes affix once from the start and once from the end of s.
func TrimAffix(s, affix string) string {
	if affix == "" {
		return s
	}
	s = strings.TrimPrefix(s, affix)
	return strings.TrimSuffix(s, affix)
}

// SplitFields splits a row text into fields. An empty sep yields a single
// field.
func SplitFields(text, sep string) []string {
	if sep == "" {
		return []string{text}
	}
	return strings.Split(text, sep)
}

// HeaderFields turns a rendered header viewport text into field names:
// the leading/trailing affix is dropped, then the text is split per line and
// blank names are discarded.
func HeaderFields(text, affix string) []string {
	text = TrimAffix(strings.TrimSpace(Normalize(text)), affix)
	var fields []string
	for _, line := range strings.Split(text, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			fields = append(fields, name)
		}
	}
	return fields
}

// gridRowText is the fingerprinted form of a rendered grid row.
func gridRowText(raw, affix string) string {
	text := strings.TrimSpace(Normalize(raw))
	return strings.TrimSpace(TrimAffix(text, affix))
}

// splitLines splits the text of a rendered editor into its visual lines.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
