// Package catalog lists task files available in the data directory
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/tasket/app/tasks"
)

// Catalog finds task files with given extension in location
type Catalog struct {
	location string
	ext      string
}

// Entry describes a single task file
type Entry struct {
	Name       string
	Path       string
	ModTime    time.Time
	InProgress int
	Finished   int
}

// New makes catalog for location. Empty location means current directory.
func New(location, ext string) *Catalog {
	if location == "" {
		location = "."
	}
	if ext == "" {
		ext = tasks.DefaultExt
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &Catalog{location: location, ext: ext}
}

// List returns task files sorted by name, newest name first. Broken files are skipped.
// Missing location is not an error, just nothing to list.
func (c *Catalog) List() (res []Entry, err error) {
	entries, err := os.ReadDir(c.location)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("can't list %s: %w", c.location, err)
	}

	res = []Entry{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), c.ext) || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		finfo, err := entry.Info()
		if err != nil {
			log.Printf("[WARN] can't get info for %s, %s", entry.Name(), err)
			continue
		}

		fileName := filepath.Join(c.location, finfo.Name())
		lists, err := c.read(fileName)
		if err != nil {
			log.Printf("[WARN] failed to read task file %s, %s", fileName, err)
			continue
		}
		res = append(res, Entry{
			Name:       strings.TrimSuffix(finfo.Name(), c.ext),
			Path:       fileName,
			ModTime:    finfo.ModTime(),
			InProgress: len(lists.InProgress),
			Finished:   len(lists.Finished),
		})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name > res[j].Name })
	return res, nil
}

func (c *Catalog) read(fileName string) (tasks.Lists, error) {
	fh, err := os.Open(fileName) // nolint gosec
	if err != nil {
		return tasks.Lists{}, err
	}
	defer fh.Close() // nolint
	return tasks.Decode(fh)
}

func (c *Catalog) String() string {
	return fmt.Sprintf("location:%s, ext:%s", c.location, c.ext)
}
