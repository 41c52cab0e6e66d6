package commands

import (
	"errors"
	"strconv"
	"strings"
)

type Operation int

const (
	DEFAULT Operation = iota
	// Present the text of a code to the station, as if it had been scanned.
	SCAN
	// Render the last blocks of the chain.
	SHOW
	// Verify the whole chain file.
	VERIFY
	// Print the last block.
	HEAD
	// Stop the station.
	STOP
)

var (
	ErrEmptyCommand   = errors.New("command is empty")
	ErrInvalidCommand = errors.New("invalid command")
)

// A command contains a operation and many arguments.
type Command struct {
	Op   Operation
	Args []string
}

func (o Operation) String() string {
	switch o {
	case SCAN:
		return "scan"
	case SHOW:
		return "show"
	case VERIFY:
		return "verify"
	case HEAD:
		return "head"
	case STOP:
		return "stop"
	default:
		return "default"
	}
}

func (c Command) IsValid() bool {
	switch c.Op {
	case VERIFY, HEAD, STOP:
		return len(c.Args) == 0
	case SCAN:
		return len(c.Args) == 1 && c.Args[0] != ""
	case SHOW:
		if len(c.Args) != 1 {
			return false
		}
		// depth must be a positive number.
		d, err := strconv.Atoi(c.Args[0])
		return err == nil && d > 0
	default:
		return false
	}
}

// CreateCommand parses one console line. A line that is not a known command
// but looks like the text of a code (a JSON object or a dotted token) is taken
// as a scan, so codes can be pasted directly.
func CreateCommand(s string) (Command, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Command{}, ErrEmptyCommand
	}
	name, rest := s, ""
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		name, rest = s[:i], strings.TrimSpace(s[i+1:])
	}

	cmd := Command{}
	switch name {
	case "scan":
		// The rest of the line is the code text, spaces included.
		cmd.Op = SCAN
		cmd.Args = []string{rest}
	case "show":
		cmd.Op = SHOW
		cmd.Args = strings.Fields(rest)
	case "verify":
		cmd.Op = VERIFY
		cmd.Args = strings.Fields(rest)
	case "head":
		cmd.Op = HEAD
		cmd.Args = strings.Fields(rest)
	case "stop", "quit", "exit":
		cmd.Op = STOP
		cmd.Args = strings.Fields(rest)
	default:
		if !looksLikeCode(s) {
			return Command{}, ErrInvalidCommand
		}
		cmd.Op = SCAN
		cmd.Args = []string{s}
	}
	if !cmd.IsValid() {
		return Command{}, ErrInvalidCommand
	}
	return cmd, nil
}

func looksLikeCode(s string) bool {
	return strings.HasPrefix(s, "{") || strings.Contains(s, ".")
}
