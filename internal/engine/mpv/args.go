package mpv

import "strings"

// ParseArgs splits a string of command-line arguments on whitespace.  Single or double quotes group words; a
// quote of the other kind inside a quoted section is kept literally.
func ParseArgs(argsString string) []string {
	var args []string
	var current strings.Builder
	var quote rune
	started := false

	for _, r := range argsString {
		switch {
		case quote != 0 && r == quote:
			quote = 0
		case quote == 0 && (r == '"' || r == '\''):
			quote = r
			started = true
		case quote == 0 && (r == ' ' || r == '\t' || r == '\n'):
			if started {
				args = append(args, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}

	if started {
		args = append(args, current.String())
	}

	return args
}
