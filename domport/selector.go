package domport

import (
	"fmt"
	"strings"
)

// Expand substitutes {name} placeholders in a selector template.
//
// Every placeholder must have a parameter and every parameter must be used;
// values are escaped so they are safe inside a quoted CSS attribute value.
//
//	Expand(".row[row-index='{index}']", map[string]string{"index": "12"})
//	// .row[row-index='12']
func Expand(template string, params map[string]string) (string, error) {
	var b strings.Builder
	used := make(map[string]bool, len(params))

	for i := 0; i < len(template); i++ {
		c := template[i]
		if c == '}' {
			return "", fmt.Errorf("domport: template %q: unmatched '}' at %d", template, i)
		}
		if c != '{' {
			b.WriteByte(c)
			continue
		}

		end := strings.IndexByte(template[i+1:], '}')
		if end < 0 {
			return "", fmt.Errorf("domport: template %q: unterminated placeholder at %d", template, i)
		}
		name := template[i+1 : i+1+end]
		if name == "" || strings.ContainsAny(name, "{ ") {
			return "", fmt.Errorf("domport: template %q: invalid placeholder %q", template, name)
		}
		val, ok := params[name]
		if !ok {
			return "", fmt.Errorf("domport: template %q: missing parameter %q", template, name)
		}
		used[name] = true
		b.WriteString(escapeCSSString(val))
		i += end + 1
	}

	for name := range params {
		if !used[name] {
			return "", fmt.Errorf("domport: template %q: unused parameter %q", template, name)
		}
	}
	return b.String(), nil
}

// escapeCSSString backslash-escapes characters that would end a quoted
// CSS string.
func escapeCSSString(s string) string {
	if !strings.ContainsAny(s, `\'"`) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '\'', '"':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
