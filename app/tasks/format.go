package tasks

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// sentinel lines starting sections
const (
	InProgressHeader = "In Progress:"
	FinishedHeader   = "Finished:"
)

// Decode reads lists from r, line length is not limited.
// Lines before the first sentinel and blank lines are ignored.
// A task equal to a sentinel can't be represented and will switch the section.
func Decode(r io.Reader) (Lists, error) {
	res := Lists{InProgress: []string{}, Finished: []string{}}
	var target *[]string

	reader := bufio.NewReader(r)
	for {
		raw, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return Lists{}, fmt.Errorf("failed to read tasks: %w", err)
		}
		line := strings.TrimSpace(raw)
		switch {
		case line == InProgressHeader:
			target = &res.InProgress
		case line == FinishedHeader:
			target = &res.Finished
		case line == "" || target == nil:
		default:
			*target = append(*target, line)
		}
		if err != nil { // io.EOF, last line has no newline
			break
		}
	}
	return res, nil
}

// Encode writes lists to w. The layout is fixed, header, tasks, blank line, header, tasks,
// with no newline after the last task.
func Encode(w io.Writer, l Lists) error {
	var b strings.Builder
	b.WriteString(InProgressHeader + "\n")
	b.WriteString(strings.Join(l.InProgress, "\n"))
	b.WriteString("\n\n" + FinishedHeader + "\n")
	b.WriteString(strings.Join(l.Finished, "\n"))
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write tasks: %w", err)
	}
	return nil
}
