package commands

import "strings"

const indentation = `  `

// longDesc trims the raw string literal of a long description.
func longDesc(s string) string {
	return strings.TrimSpace(s)
}

// examples trims the lines of an example block and indents them by the standard indentation.
func examples(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = indentation + strings.TrimSpace(line)
	}

	return strings.Join(lines, "\n")
}
