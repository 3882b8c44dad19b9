package repl

import (
	"sort"
	"strings"

	terrors "github.com/sambeau/tabula/pkg/tabula/errors"
)

var commands = []string{":help", ":tables", ":schema", ":csv", ":check", ":format", ":dump", ":clear", ":quit"}

// Complete returns the completions of the last word of line as whole
// lines. Keywords follow the case of what was typed; table names keep
// their own case.
func Complete(line string, tables []string) []string {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	if last := line[len(line)-1]; last == ' ' || last == '\t' || last == '(' || last == ',' {
		return nil
	}

	start := strings.LastIndexAny(line, " \t(,") + 1
	head, word := line[:start], line[start:]

	var candidates []string
	if start == 0 && strings.HasPrefix(word, ":") {
		candidates = commands
	} else {
		lower := strings.ToLower(word) == word
		for _, kw := range terrors.SQLKeywords {
			if lower {
				kw = strings.ToLower(kw)
			}
			candidates = append(candidates, kw)
		}
		candidates = append(candidates, tables...)
	}

	var matches []string
	for _, c := range candidates {
		if len(c) > len(word) && strings.HasPrefix(strings.ToLower(c), strings.ToLower(word)) {
			matches = append(matches, head+c)
		}
	}
	sort.Strings(matches)
	return matches
}

// NeedsMoreInput reports whether input is an unfinished statement: it
// does not end with a semicolon, or ends inside a string or a block comment.
func NeedsMoreInput(input string) bool {
	inString := false
	last := byte(0)

	for i := 0; i < len(input); i++ {
		ch := input[i]
		if ch == '\'' {
			inString = !inString
		}
		if ch == '-' && !inString && i+1 < len(input) && input[i+1] == '-' {
			// line comment
			for i < len(input) && input[i] != '\n' {
				i++
			}
			continue
		}
		if ch == '/' && !inString && i+1 < len(input) && input[i+1] == '*' {
			end := strings.Index(input[i+2:], "*/")
			if end < 0 {
				return true
			}
			i += end + 3
			continue
		}
		if !inString && ch != ' ' && ch != '\t' && ch != '\n' && ch != '\r' {
			last = ch
		}
	}

	return inString || last != ';'
}
