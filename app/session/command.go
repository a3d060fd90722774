package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/umputun/tasket/app/tasks"
)

// Op is a command name, the first token of the input line
type Op string

// enum of supported commands
const (
	OpNew     Op = "new"
	OpDone    Op = "done"
	OpDelete  Op = "del"
	OpEdit    Op = "edit"
	OpOpen    Op = "open"
	OpShow    Op = "show"
	OpLists   Op = "lists"
	OpHistory Op = "history"
	OpExit    Op = "exit"
)

var (
	// ErrInvalidCommand returned for unknown commands and wrong number of tokens
	ErrInvalidCommand = errors.New("invalid command")
	// ErrInvalidSubCommand returned if del or edit has no prog/fin sub-command
	ErrInvalidSubCommand = errors.New("invalid sub-command")
	// ErrInvalidNumber returned for missing or non-digit task numbers
	ErrInvalidNumber = errors.New("invalid task number input")
)

// Command is a parsed input line
type Command struct {
	Op   Op
	Kind tasks.Kind // list for del and edit, InProgress for done
	Pos  int        // zero-based task position
	Name string     // file name for open
}

// ParseError wraps one of ErrInvalid* errors with the line caused it
type ParseError struct {
	Line string
	Op   Op
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("can't parse %q: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse makes Command from the input line. Tokens split by whitespace, the first token
// is case-sensitive command name. Task numbers are 1-based on input and converted to positions,
// bounds are not checked here.
func Parse(line string) (Command, error) {
	tokens := strings.Fields(line)
	fail := func(op Op, err error) (Command, error) {
		return Command{}, &ParseError{Line: line, Op: op, Err: err}
	}
	if len(tokens) == 0 {
		return fail("", ErrInvalidCommand)
	}

	op, args := Op(tokens[0]), tokens[1:]
	switch op {
	case OpNew, OpShow, OpLists, OpHistory, OpExit:
		if len(args) != 0 {
			return fail(op, ErrInvalidCommand)
		}
		return Command{Op: op}, nil

	case OpDone:
		if len(args) > 1 {
			return fail(op, ErrInvalidCommand)
		}
		pos, err := position(args)
		if err != nil {
			return fail(op, err)
		}
		return Command{Op: op, Kind: tasks.InProgress, Pos: pos}, nil

	case OpDelete, OpEdit:
		switch {
		case len(args) > 2:
			return fail(op, ErrInvalidCommand)
		case len(args) == 0:
			return fail(op, ErrInvalidSubCommand)
		}
		// number checked before sub-command, "del xx yy" is a number error
		pos, err := position(args[1:])
		if err != nil {
			if _, ok := kindOf(args[0]); !ok && len(args) == 1 {
				return fail(op, ErrInvalidSubCommand)
			}
			return fail(op, err)
		}
		kind, ok := kindOf(args[0])
		if !ok {
			return fail(op, ErrInvalidSubCommand)
		}
		return Command{Op: op, Kind: kind, Pos: pos}, nil

	case OpOpen:
		if len(args) != 1 {
			return fail(op, ErrInvalidCommand)
		}
		return Command{Op: op, Name: args[0]}, nil
	}

	return fail(op, ErrInvalidCommand)
}

// position converts the single 1-based number token to zero-based position
func position(args []string) (int, error) {
	if len(args) != 1 || !isDigits(args[0]) {
		return 0, ErrInvalidNumber
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, ErrInvalidNumber
	}
	return n - 1, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func kindOf(sub string) (tasks.Kind, bool) {
	switch sub {
	case "prog":
		return tasks.InProgress, true
	case "fin":
		return tasks.Finished, true
	}
	return 0, false
}
