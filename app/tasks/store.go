package tasks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/go-pkgz/lgr"
)

// DefaultExt used for task files if not set
const DefaultExt = ".txt"

// Repeater defines interface for repeater.Repeater used to retry failed writes
type Repeater interface {
	Do(ctx context.Context, fun func() error, errors ...error) (err error)
}

// Store loads and saves task files. Each name maps to <dir>/<name><ext>.
type Store struct {
	Dir      string
	Ext      string
	Repeater Repeater // optional, single attempt if nil
}

// Trim drops ext from the name, so "notes" and "notes.txt" refer to the same file
func (s *Store) Trim(name string) string {
	return strings.TrimSuffix(name, s.ext())
}

// Path returns file location for the name. Ext is not added if the name already has it.
func (s *Store) Path(name string) string {
	fname := s.Trim(name) + s.ext()
	if s.Dir == "" {
		return fname
	}
	return filepath.Join(s.Dir, fname)
}

// Name returns name for the file path, reverse of Path
func (s *Store) Name(path string) string {
	return strings.TrimSuffix(filepath.Base(path), s.ext())
}

// Load reads both lists for the name. Missing file is not an error, both lists will be empty.
func (s *Store) Load(name string) (Lists, error) {
	fname := s.Path(name)
	data, err := os.ReadFile(fname) // nolint gosec
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("[DEBUG] no task file %s, start empty", fname)
			return Lists{InProgress: []string{}, Finished: []string{}}, nil
		}
		return Lists{}, fmt.Errorf("failed to load %s: %w", fname, err)
	}
	res, err := Decode(bytes.NewReader(data))
	if err != nil {
		return Lists{}, fmt.Errorf("failed to parse %s: %w", fname, err)
	}
	log.Printf("[DEBUG] loaded %s, in-progress %d, finished %d", fname, len(res.InProgress), len(res.Finished))
	return res, nil
}

// Save truncates and rewrites the whole file for the name. The file and data dir created if missing.
func (s *Store) Save(ctx context.Context, name string, l Lists) error {
	fname := s.Path(name)
	var buf bytes.Buffer
	if err := Encode(&buf, l); err != nil {
		return err
	}

	write := func() error {
		if s.Dir != "" {
			if err := os.MkdirAll(s.Dir, 0o750); err != nil {
				return err
			}
		}
		return os.WriteFile(fname, buf.Bytes(), 0o600)
	}

	var err error
	if s.Repeater != nil {
		err = s.Repeater.Do(ctx, write)
	} else {
		err = write()
	}
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", fname, err)
	}
	log.Printf("[DEBUG] saved %s, in-progress %d, finished %d", fname, len(l.InProgress), len(l.Finished))
	return nil
}

func (s *Store) ext() string {
	if s.Ext == "" {
		return DefaultExt
	}
	if !strings.HasPrefix(s.Ext, ".") {
		return "." + s.Ext
	}
	return s.Ext
}
