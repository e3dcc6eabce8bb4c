// Package sqltext scans SQL text while respecting quoted literals and comments.
package sqltext

import "strings"

type class uint8

const (
	code class = iota
	quoted
	comment
)

// classify labels every byte of s. Quote characters belong to the literal they delimit and
// doubled quotes ('it''s') close and reopen it. Line comments end before the newline.
func classify(s string) []class {
	cls := make([]class, len(s))
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			cls[i] = quoted
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
			cls[i] = quoted
		case c == '-' && i+1 < len(s) && s[i+1] == '-':
			for ; i < len(s) && s[i] != '\n'; i++ {
				cls[i] = comment
			}
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			stop := len(s)
			if end := strings.Index(s[i+2:], "*/"); end >= 0 {
				stop = i + 2 + end + 2
			}
			for ; i < stop; i++ {
				cls[i] = comment
			}
			i--
		}
	}
	return cls
}

// Split splits a script on semicolons outside quotes and comments. Statements are trimmed, empty
// ones dropped, and the separating semicolons are not kept.
func Split(script string) []string {
	var out []string
	cls := classify(script)
	start := 0
	for i := 0; i < len(script); i++ {
		if script[i] != ';' || cls[i] != code {
			continue
		}
		if stmt := strings.TrimSpace(script[start:i]); stmt != "" {
			out = append(out, stmt)
		}
		start = i + 1
	}
	if stmt := strings.TrimSpace(script[start:]); stmt != "" {
		out = append(out, stmt)
	}
	return out
}

// First returns the first statement of s up to and including its terminating semicolon.
func First(s string) string {
	cls := classify(s)
	for i := 0; i < len(s); i++ {
		if s[i] == ';' && cls[i] == code {
			return strings.TrimSpace(s[:i+1])
		}
	}
	return strings.TrimSpace(s)
}

// Mask blanks comments and quoted literals and identifiers with spaces, leaving only SQL keywords,
// names and operators for keyword scans. Byte offsets are preserved.
func Mask(s string) string {
	cls := classify(s)
	b := []byte(s)
	for i, c := range cls {
		if c != code {
			b[i] = ' '
		}
	}
	return string(b)
}
