package format

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	openParenRe  = regexp.MustCompile(`\(\s+`)
	closeParenRe = regexp.MustCompile(`\s+\)`)

	// longer phrases come first so that DELETE FROM is not split at FROM
	clauseRe = regexp.MustCompile(`(?i)\b(insert\s+into|delete\s+from|create\s+table|drop\s+table|select|from|where|join|on|and|or|values|update|set)\b`)
)

// FormatText reflows query text without parsing it, so it also works on
// statements that do not parse. Runs of whitespace collapse to one space,
// every clause keyword starts a new upper-cased line, and lines are indented
// by the number of parentheses still open. Quoted strings are left as written.
func FormatText(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}

	var b strings.Builder
	for i, segment := range splitQuoted(query) {
		if i%2 == 1 {
			b.WriteString(segment)
			continue
		}
		segment = whitespaceRe.ReplaceAllString(segment, " ")
		segment = openParenRe.ReplaceAllString(segment, "(")
		segment = closeParenRe.ReplaceAllString(segment, ")")
		segment = clauseRe.ReplaceAllStringFunc(segment, func(kw string) string {
			return "\n" + strings.ToUpper(whitespaceRe.ReplaceAllString(kw, " "))
		})
		b.WriteString(segment)
	}

	var lines []string
	depth := 0
	for _, line := range strings.Split(b.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		indent := depth
		if strings.HasPrefix(line, ")") {
			indent--
		}
		lines = append(lines, strings.Repeat(FormatTextIndent, max(indent, 0))+line)
		depth = max(depth+parenBalance(line), 0)
	}

	return strings.Join(lines, "\n")
}

// splitQuoted splits s into alternating unquoted and quoted segments. Odd
// indexes hold quoted text including its quotes. An unterminated quote runs
// to the end of s.
func splitQuoted(s string) []string {
	var segments []string
	start := 0
	inQuote := false

	for i := 0; i < len(s); i++ {
		if s[i] != '\'' {
			continue
		}
		if inQuote {
			segments = append(segments, s[start:i+1])
			start = i + 1
		} else {
			segments = append(segments, s[start:i])
			start = i
		}
		inQuote = !inQuote
	}
	segments = append(segments, s[start:])

	return segments
}

// parenBalance returns the open minus closed parentheses in line, ignoring
// quoted text.
func parenBalance(line string) int {
	balance := 0
	for i, segment := range splitQuoted(line) {
		if i%2 == 1 {
			continue
		}
		balance += strings.Count(segment, "(") - strings.Count(segment, ")")
	}
	return balance
}
