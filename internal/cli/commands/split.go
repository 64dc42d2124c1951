package commands

import "strings"

// SplitStatements splits a script on semicolons outside quotes. Line
// comments are dropped. A line starting with a period is a shell command
// and ends at the newline; a trailing semicolon on it is ignored.
func SplitStatements(script string) []string {
	var (
		out   []string
		b     strings.Builder
		quote byte
	)
	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			out = append(out, s)
		}
		b.Reset()
	}

	for i := 0; i < len(script); i++ {
		c := script[i]
		switch {
		case quote != 0:
			b.WriteByte(c)
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
			b.WriteByte(c)
		case c == '-' && i+1 < len(script) && script[i+1] == '-':
			for i < len(script) && script[i] != '\n' {
				i++
			}
			b.WriteByte('\n')
		case c == '.' && strings.TrimSpace(b.String()) == "":
			end := strings.IndexByte(script[i:], '\n')
			if end < 0 {
				end = len(script) - i
			}
			b.WriteString(strings.TrimRight(strings.TrimSpace(script[i:i+end]), ";"))
			flush()
			i += end
		case c == ';':
			flush()
		default:
			b.WriteByte(c)
		}
	}
	flush()
	return out
}
