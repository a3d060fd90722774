// Package session runs interactive loop over the current task file. Each iteration shows help and both
// lists, reads a command and applies it. Every change is written to the file right away.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/tasket/app/catalog"
	"github.com/umputun/tasket/app/journal"
	"github.com/umputun/tasket/app/tasks"
)

// Store defines interface for tasks.Store loading and saving task files by name
type Store interface {
	Load(name string) (tasks.Lists, error)
	Save(ctx context.Context, name string, l tasks.Lists) error
	Path(name string) string
	Trim(name string) string
}

// Lister defines interface for catalog.Catalog
type Lister interface {
	List() ([]catalog.Entry, error)
}

// Journal defines interface for journal.SQLite recording changes
type Journal interface {
	Record(ctx context.Context, ev journal.Event) (journal.Event, error)
	Recent(ctx context.Context, file string, limit int) ([]journal.Event, error)
}

// NameParser translates the name given to open, i.e. day templates
type NameParser interface {
	Parse(name string) (string, error)
}

// Session holds the current file and its lists. All fields except Store, In and Out are optional.
type Session struct {
	Store   Store
	Lister  Lister
	Journal Journal
	Names   NameParser
	In      io.Reader
	Out     io.Writer
	Clear   bool // clear screen before each iteration
	Recent  int  // number of events shown by history

	name    string
	lists   tasks.Lists
	reader  *bufio.Reader
	message string
}

const clearScreen = "\033[H\033[2J"

// Name returns the current file name
func (s *Session) Name() string { return s.name }

// Lists returns copy of the current lists
func (s *Session) Lists() tasks.Lists {
	return tasks.Lists{
		InProgress: append([]string{}, s.lists.InProgress...),
		Finished:   append([]string{}, s.lists.Finished...),
	}
}

// Open makes name current and loads its lists. Missing file gives empty lists.
func (s *Session) Open(name string) error {
	if s.Names != nil {
		parsed, err := s.Names.Parse(name)
		if err != nil {
			return err
		}
		name = parsed
	}
	name = s.Store.Trim(name)
	lists, err := s.Store.Load(name)
	if err != nil {
		return err
	}
	s.name, s.lists = name, lists
	log.Printf("[INFO] opened %s, in-progress %d, finished %d", s.Store.Path(name), len(lists.InProgress), len(lists.Finished))
	return nil
}

// Run is the blocking loop, returns on exit command, end of input or canceled context
func (s *Session) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.render()
		line, err := s.readLine(">> ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(s.Out)
				log.Printf("[INFO] end of input, session %s closed", s.name)
				return nil
			}
			return fmt.Errorf("failed to read command: %w", err)
		}
		if exit := s.Dispatch(ctx, line); exit {
			log.Printf("[INFO] exit, session %s closed", s.name)
			return nil
		}
	}
}

// Dispatch parses and runs a single command line. Errors are not returned but set as a message
// shown on the next render. Returns true for exit command.
func (s *Session) Dispatch(ctx context.Context, line string) (exit bool) {
	s.message = ""
	cmd, err := Parse(line)
	if err != nil {
		log.Printf("[DEBUG] %v", err)
		s.message = errMessage(err)
		return false
	}
	if cmd.Op == OpExit {
		return true
	}
	if err := s.execute(ctx, cmd); err != nil {
		log.Printf("[WARN] %s on %s failed, %v", cmd.Op, s.name, err)
		s.message = errMessage(err)
	}
	return false
}

// Message returns the message of the last dispatched command, empty if nothing to report
func (s *Session) Message() string { return s.message }

func (s *Session) execute(ctx context.Context, cmd Command) error {
	switch cmd.Op {
	case OpNew:
		task, err := s.readLine("Enter task: ")
		if err != nil {
			return nil // no input, nothing to add
		}
		if err := s.lists.Append(task); err != nil {
			return err
		}
		return s.persist(ctx, journal.ActionAdd, tasks.InProgress, strings.TrimSpace(task))

	case OpDone:
		if err := s.lists.Check(tasks.InProgress, cmd.Pos); err != nil {
			return err
		}
		task := s.lists.InProgress[cmd.Pos]
		if err := s.lists.Complete(cmd.Pos); err != nil {
			return err
		}
		return s.persist(ctx, journal.ActionComplete, tasks.InProgress, task)

	case OpDelete:
		if err := s.lists.Check(cmd.Kind, cmd.Pos); err != nil {
			return err
		}
		task := s.lists.Get(cmd.Kind)[cmd.Pos]
		if err := s.lists.DeleteAt(cmd.Kind, cmd.Pos); err != nil {
			return err
		}
		return s.persist(ctx, journal.ActionDelete, cmd.Kind, task)

	case OpEdit:
		if err := s.lists.Check(cmd.Kind, cmd.Pos); err != nil {
			return err
		}
		task, err := s.readLine("Edit task: ")
		if err != nil {
			return nil
		}
		if err := s.lists.EditAt(cmd.Kind, cmd.Pos, task); err != nil {
			return err
		}
		return s.persist(ctx, journal.ActionEdit, cmd.Kind, strings.TrimSpace(task))

	case OpOpen:
		return s.Open(cmd.Name)

	case OpShow:
		s.pause()
		return nil

	case OpLists:
		return s.showLists()

	case OpHistory:
		return s.showHistory(ctx)
	}
	return ErrInvalidCommand
}

// persist saves current lists and records the change. Journal failures are logged only.
func (s *Session) persist(ctx context.Context, action journal.Action, kind tasks.Kind, task string) error {
	if err := s.Store.Save(ctx, s.name, s.lists); err != nil {
		return err
	}
	if s.Journal == nil {
		return nil
	}
	ev := journal.Event{File: s.name, Action: action, List: kind.String(), Task: task}
	if _, err := s.Journal.Record(ctx, ev); err != nil {
		log.Printf("[WARN] can't record %s, %v", action, err)
	}
	return nil
}

func (s *Session) showLists() error {
	if s.Lister == nil {
		s.message = "Lists are not available."
		return nil
	}
	entries, err := s.Lister.List()
	if err != nil {
		return err
	}
	fmt.Fprintln(s.Out, "Task files:")
	if len(entries) == 0 {
		fmt.Fprintln(s.Out, "No files")
	}
	for _, e := range entries {
		marker := " "
		if e.Name == s.name {
			marker = "*"
		}
		fmt.Fprintf(s.Out, "%s %s  in progress: %d, finished: %d\n", marker, e.Name, e.InProgress, e.Finished)
	}
	s.pause()
	return nil
}

func (s *Session) showHistory(ctx context.Context) error {
	if s.Journal == nil {
		s.message = "History is disabled."
		return nil
	}
	events, err := s.Journal.Recent(ctx, s.name, s.Recent)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.Out, "History of %s:\n", s.name)
	if len(events) == 0 {
		fmt.Fprintln(s.Out, "No changes")
	}
	for _, ev := range events {
		fmt.Fprintf(s.Out, "%s  %-8s %-11s %s\n", ev.TS.Format("2006-01-02 15:04:05"), ev.Action, ev.List, ev.Task)
	}
	s.pause()
	return nil
}

func (s *Session) pause() {
	_, _ = s.readLine("Press Enter to continue...")
}

func (s *Session) render() {
	if s.Clear {
		fmt.Fprint(s.Out, clearScreen)
	}
	fmt.Fprint(s.Out, banner)
	fmt.Fprintf(s.Out, "Current file: %s\n\n", s.Store.Path(s.name))
	writeList(s.Out, tasks.InProgressHeader, s.lists.InProgress)
	fmt.Fprintln(s.Out)
	writeList(s.Out, tasks.FinishedHeader, s.lists.Finished)
	if s.message != "" {
		fmt.Fprintf(s.Out, "\n%s\n", s.message)
	}
}

func writeList(w io.Writer, title string, lst []string) {
	fmt.Fprintln(w, title)
	if len(lst) == 0 {
		fmt.Fprintln(w, "No tasks")
		return
	}
	for i, task := range lst {
		fmt.Fprintf(w, "%d. %s\n", i+1, task)
	}
}

// readLine prints prompt and reads a line without line ending. The last line without
// newline is returned as is, io.EOF returned only if nothing was read.
func (s *Session) readLine(prompt string) (string, error) {
	if s.reader == nil {
		s.reader = bufio.NewReader(s.In)
	}
	fmt.Fprint(s.Out, prompt)
	line, err := s.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func errMessage(err error) string {
	var perr *ParseError
	switch {
	case errors.Is(err, ErrInvalidSubCommand):
		if errors.As(err, &perr) && perr.Op == OpEdit {
			return "Invalid command. Please enter 'edit prog' or 'edit fin' followed by a task number."
		}
		return "Invalid sub-command. Please use 'prog' or 'fin'."
	case errors.Is(err, ErrInvalidNumber):
		return "Invalid input. Please enter a valid task number."
	case errors.Is(err, ErrInvalidCommand):
		return "Invalid command."
	case errors.Is(err, tasks.ErrOutOfRange):
		return "Invalid task number."
	case errors.Is(err, tasks.ErrEmptyTask):
		return "Task can't be empty."
	case errors.Is(err, tasks.ErrMultiline):
		return "Task must be a single line."
	}
	return "Error: " + err.Error()
}

const banner = `Welcome to TASKET
Enter 'new' to add a task
Enter 'done' followed by the task number to finish a task
Enter 'del prog' followed by the task number to delete an in-progress task
Enter 'del fin' followed by the task number to delete a finished task
Enter 'edit prog' followed by the task number to edit an in-progress task
Enter 'edit fin' followed by the task number to edit a finished task
Enter 'open' followed by a date (YYYY-MM-DD) to open a specific list
Enter 'show' to display the current tasks
Enter 'lists' to see all task files
Enter 'history' to see recent changes of the current list
Enter 'exit' to quit

`
