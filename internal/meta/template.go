package meta

import (
	"fmt"
	"strings"
)

// expand substitutes {placeholder} occurrences in tmpl with values from
// vars. Unknown placeholders and unterminated braces are errors so a typo in
// a template fails loudly instead of publishing a broken title.
func expand(tmpl string, vars map[string]string) (string, error) {
	var b strings.Builder

	for i := 0; i < len(tmpl); {
		c := tmpl[i]
		if c != '{' {
			b.WriteByte(c)
			i++

			continue
		}

		end := strings.IndexByte(tmpl[i:], '}')
		if end < 0 {
			return "", fmt.Errorf("meta: unterminated placeholder in template %q", tmpl)
		}

		name := tmpl[i+1 : i+end]

		val, ok := vars[name]
		if !ok {
			return "", fmt.Errorf("meta: unknown placeholder {%s} in template %q", name, tmpl)
		}

		b.WriteString(val)
		i += end + 1
	}

	return b.String(), nil
}
