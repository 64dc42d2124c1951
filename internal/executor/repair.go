package executor

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	insertTypoRe = regexp.MustCompile(`(?i)^(\s*)(?:INSRT|INSET|INSERTT)(\s+INTO\b)`)
	insertRe     = regexp.MustCompile(`(?i)^\s*INSERT\s+INTO\b`)
	valuesRe     = regexp.MustCompile(`(?i)\bVALUES\b`)
)

// bareKeywords stay unquoted inside VALUES.
var bareKeywords = map[string]bool{"NULL": true, "TRUE": true, "FALSE": true}

// Repair fixes common mistakes in hand-typed statements: a misspelled
// INSERT before INTO, and bare words in a VALUES list, which are quoted as
// text. Anything it does not recognise is returned unchanged.
func Repair(sql string) string {
	sql = insertTypoRe.ReplaceAllString(sql, "${1}INSERT${2}")
	if !insertRe.MatchString(sql) {
		return sql
	}
	loc := valuesRe.FindStringIndex(sql)
	if loc == nil {
		return sql
	}
	return sql[:loc[1]] + repairTuples(sql[loc[1]:])
}

// repairTuples rewrites every top-level parenthesised tuple in s.
func repairTuples(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] != '(' {
			b.WriteByte(s[i])
			i++
			continue
		}
		end := closing(s, i)
		if end < 0 {
			b.WriteString(s[i:])
			break
		}
		b.WriteByte('(')
		items := splitTopLevel(s[i+1 : end])
		for j, item := range items {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(quoteBare(item))
		}
		b.WriteByte(')')
		i = end + 1
	}
	return b.String()
}

// closing returns the index of the parenthesis matching s[open], or -1.
func closing(s string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits on commas outside quotes and brackets.
func splitTopLevel(s string) []string {
	var (
		out   []string
		depth int
		quote byte
		last  int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == ',' && depth == 0:
			out = append(out, s[last:i])
			last = i + 1
		}
	}
	return append(out, s[last:])
}

// quoteBare wraps a bare word in single quotes, keeping the surrounding
// whitespace.
func quoteBare(item string) string {
	word := strings.TrimSpace(item)
	if word == "" || !isBare(word) {
		return item
	}
	lead := item[:strings.Index(item, word)]
	trail := item[len(lead)+len(word):]
	return lead + "'" + strings.ReplaceAll(word, "'", "''") + "'" + trail
}

func isBare(word string) bool {
	switch word[0] {
	case '\'', '"', '(', '[', '{', '?':
		return false
	}
	if bareKeywords[strings.ToUpper(word)] {
		return false
	}
	if _, err := strconv.ParseFloat(word, 64); err == nil {
		return false
	}
	return true
}
