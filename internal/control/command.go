// Package control receives line commands from the settings window and
// applies them to the engine.
//
// Grammar: `<Verb>[ <int>]`, one per line, trailing CR/LF ignored. Verbs are
// case-sensitive. Toggle arguments count as true when greater than zero.
package control

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Verb string

const (
	ResetControllers  Verb = "ResetControllers"
	ShowConsole       Verb = "ShowConsole"
	ShowOverlay       Verb = "ShowOverlay"
	EnableControllers Verb = "EnableControllers"
)

var (
	ErrEmpty          = errors.New("empty command")
	ErrUnknownCommand = errors.New("unknown command")
	ErrMalformed      = errors.New("malformed command")
)

// Command is one parsed control line.
type Command struct {
	Verb   Verb
	Arg    int
	HasArg bool
}

// Enabled interprets the argument as a toggle.
func (c Command) Enabled() bool { return c.Arg > 0 }

func (c Command) String() string {
	if !c.HasArg {
		return string(c.Verb)
	}
	return fmt.Sprintf("%s %d", c.Verb, c.Arg)
}

// takesArg lists which verbs require an argument.
var takesArg = map[Verb]bool{
	ResetControllers:  false,
	ShowConsole:       true,
	ShowOverlay:       true,
	EnableControllers: true,
}

func Parse(line string) (Command, error) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, ErrEmpty
	}

	verb := Verb(fields[0])
	needsArg, known := takesArg[verb]
	if !known {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, fields[0])
	}

	cmd := Command{Verb: verb}
	switch {
	case len(fields) > 2:
		return Command{}, fmt.Errorf("%w: %s takes at most one argument", ErrMalformed, verb)
	case len(fields) == 2:
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return Command{}, fmt.Errorf("%w: %s argument %q is not an integer", ErrMalformed, verb, fields[1])
		}
		cmd.Arg, cmd.HasArg = n, true
	case needsArg:
		return Command{}, fmt.Errorf("%w: %s needs an argument", ErrMalformed, verb)
	}
	return cmd, nil
}
