// Package tasks keeps a pair of task lists (in-progress and finished) and persists them
// to a plain text file, one task per line, with two sections introduced by sentinel lines.
package tasks

import (
	"errors"
	"fmt"
	"strings"
)

// Kind selects one of two lists
type Kind int

// enum of list kinds
const (
	InProgress Kind = iota
	Finished
)

func (k Kind) String() string {
	switch k {
	case InProgress:
		return "in-progress"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	// ErrOutOfRange returned when position is not within the list
	ErrOutOfRange = errors.New("invalid task number")
	// ErrEmptyTask returned for empty or blank task text
	ErrEmptyTask = errors.New("empty task")
	// ErrMultiline returned for task text with embedded newlines
	ErrMultiline = errors.New("task can't have multiple lines")
)

// Lists is a pair of ordered task lists. Position of the task is the only identity,
// users see it as position+1.
type Lists struct {
	InProgress []string
	Finished   []string
}

// Append adds trimmed task to the end of in-progress list
func (l *Lists) Append(task string) error {
	txt, err := cleanTask(task)
	if err != nil {
		return err
	}
	l.InProgress = append(l.InProgress, txt)
	return nil
}

// Complete moves in-progress task at pos to the end of finished list. The text is not changed.
func (l *Lists) Complete(pos int) error {
	if pos < 0 || pos >= len(l.InProgress) {
		return fmt.Errorf("complete %d of %d: %w", pos+1, len(l.InProgress), ErrOutOfRange)
	}
	task := l.InProgress[pos]
	l.InProgress = remove(l.InProgress, pos)
	l.Finished = append(l.Finished, task)
	return nil
}

// DeleteAt removes task at pos from the list of given kind
func (l *Lists) DeleteAt(kind Kind, pos int) error {
	lst := l.list(kind)
	if lst == nil || pos < 0 || pos >= len(*lst) {
		return fmt.Errorf("delete %s %d: %w", kind, pos+1, ErrOutOfRange)
	}
	*lst = remove(*lst, pos)
	return nil
}

// EditAt replaces text of the task at pos in the list of given kind
func (l *Lists) EditAt(kind Kind, pos int, task string) error {
	if err := l.Check(kind, pos); err != nil {
		return fmt.Errorf("edit: %w", err)
	}
	txt, err := cleanTask(task)
	if err != nil {
		return err
	}
	(*l.list(kind))[pos] = txt
	return nil
}

// Check returns ErrOutOfRange if pos is not a valid position in the list of given kind
func (l *Lists) Check(kind Kind, pos int) error {
	lst := l.list(kind)
	if lst == nil || pos < 0 || pos >= len(*lst) {
		return fmt.Errorf("%s %d: %w", kind, pos+1, ErrOutOfRange)
	}
	return nil
}

// Get returns list of given kind, nil for unknown kind
func (l *Lists) Get(kind Kind) []string {
	if lst := l.list(kind); lst != nil {
		return *lst
	}
	return nil
}

func (l *Lists) list(kind Kind) *[]string {
	switch kind {
	case InProgress:
		return &l.InProgress
	case Finished:
		return &l.Finished
	default:
		return nil
	}
}

// remove makes a new slice without element at pos, the original backing array is not touched
func remove(lst []string, pos int) []string {
	res := make([]string, 0, len(lst)-1)
	res = append(res, lst[:pos]...)
	return append(res, lst[pos+1:]...)
}

func cleanTask(task string) (string, error) {
	txt := strings.TrimSpace(task)
	if txt == "" {
		return "", ErrEmptyTask
	}
	if strings.ContainsAny(txt, "\r\n") {
		return "", ErrMultiline
	}
	return txt, nil
}
