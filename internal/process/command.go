package process

import (
	"errors"
	"fmt"
	"strings"
)

// Command describes the child to spawn.
type Command struct {
	Name string
	Args []string
	Dir  string
}

// NewCommand builds a Command from a program name, an argument string using
// shell-like quoting, and a working directory.
func NewCommand(name, args, dir string) (Command, error) {
	parsed, err := parseCommand(args)
	if err != nil {
		return Command{}, fmt.Errorf("failed to parse args: %w", err)
	}
	cmd := Command{Name: strings.TrimSpace(name), Args: parsed, Dir: dir}
	return cmd, cmd.Validate()
}

// Validate reports whether the command can be spawned at all.
func (c Command) Validate() error {
	if c.Name == "" {
		return errors.New("empty command")
	}
	return nil
}

// String renders the command line for logs and status output.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return quoteArg(c.Name)
	}
	return quoteArg(c.Name) + " " + c.ArgString()
}

// ArgString renders Args quoted so that NewCommand parses them back.
func (c Command) ArgString() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = quoteArg(a)
	}
	return strings.Join(parts, " ")
}

func quoteArg(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\"'\\") {
		return s
	}
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

// parseCommand splits a string into arguments.
// Handles single and double quotes and backslash escapes.
func parseCommand(command string) ([]string, error) {
	var args []string
	var current strings.Builder
	inQuote := false
	quoted := false
	quoteChar := rune(0)

	runes := []rune(strings.TrimSpace(command))

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' || r == '\'':
			switch {
			case !inQuote:
				inQuote = true
				quoted = true
				quoteChar = r
			case r == quoteChar:
				inQuote = false
				quoteChar = 0
			default:
				current.WriteRune(r)
			}
		case (r == ' ' || r == '\t') && !inQuote:
			if current.Len() > 0 || quoted {
				args = append(args, current.String())
				current.Reset()
				quoted = false
			}
		case r == '\\' && i+1 < len(runes):
			i++
			current.WriteRune(runes[i])
		default:
			current.WriteRune(r)
		}
	}

	if inQuote {
		return nil, errors.New("unclosed quote in command")
	}
	if current.Len() > 0 || quoted {
		args = append(args, current.String())
	}

	return args, nil
}
