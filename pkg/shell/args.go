package shell

import (
	"fmt"
	"strings"
)

// SplitArgs splits a command line the way the Microsoft C runtime does:
// whitespace separates arguments, double quotes group, a backslash escapes
// a quote only when it precedes one, and "" inside quotes is a literal quote.
func SplitArgs(line string) ([]string, error) {
	var (
		args     []string
		cur      strings.Builder
		inQuotes bool
		haveArg  bool
	)
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\\':
			n := 0
			for i < len(runes) && runes[i] == '\\' {
				n++
				i++
			}
			if i < len(runes) && runes[i] == '"' {
				cur.WriteString(strings.Repeat(`\`, n/2))
				if n%2 == 1 {
					cur.WriteRune('"')
				} else {
					i-- // let the quote toggle below
				}
			} else {
				cur.WriteString(strings.Repeat(`\`, n))
				i--
			}
			haveArg = true
		case r == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				cur.WriteRune('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
			haveArg = true
		case (r == ' ' || r == '\t') && !inQuotes:
			if haveArg {
				args = append(args, cur.String())
				cur.Reset()
				haveArg = false
			}
		default:
			cur.WriteRune(r)
			haveArg = true
		}
	}
	if inQuotes {
		return nil, fmt.Errorf("unterminated quote in %q", line)
	}
	if haveArg {
		args = append(args, cur.String())
	}
	return args, nil
}
