package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-pkgz/repeater"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tbl := []struct {
		name string
		inp  string
		res  Lists
	}{
		{"empty", "", Lists{InProgress: []string{}, Finished: []string{}}},
		{"normal", "In Progress:\nWrite report\n\nFinished:\nBuy milk",
			Lists{InProgress: []string{"Write report"}, Finished: []string{"Buy milk"}}},
		{"no tasks", "In Progress:\n\n\nFinished:\n", Lists{InProgress: []string{}, Finished: []string{}}},
		{"before sentinel dropped", "junk\nmore junk\nFinished:\n  done thing  \n",
			Lists{InProgress: []string{}, Finished: []string{"done thing"}}},
		{"reversed sections", "Finished:\nf1\nIn Progress:\np1\np2\n",
			Lists{InProgress: []string{"p1", "p2"}, Finished: []string{"f1"}}},
		{"repeated section", "In Progress:\na\nFinished:\nb\nIn Progress:\nc\n",
			Lists{InProgress: []string{"a", "c"}, Finished: []string{"b"}}},
		{"crlf", "In Progress:\r\na\r\n\r\nFinished:\r\nb\r\n",
			Lists{InProgress: []string{"a"}, Finished: []string{"b"}}},
		{"indented sentinel", "  In Progress:  \na\n", Lists{InProgress: []string{"a"}, Finished: []string{}}},
	}

	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Decode(strings.NewReader(tt.inp))
			require.NoError(t, err)
			assert.Equal(t, tt.res, res)
		})
	}
}

func TestEncode(t *testing.T) {
	tbl := []struct {
		name string
		inp  Lists
		res  string
	}{
		{"both", Lists{InProgress: []string{"Write report"}, Finished: []string{"Buy milk"}},
			"In Progress:\nWrite report\n\nFinished:\nBuy milk"},
		{"empty", Lists{}, "In Progress:\n\n\nFinished:\n"},
		{"many", Lists{InProgress: []string{"a", "b"}, Finished: []string{"c", "d"}},
			"In Progress:\na\nb\n\nFinished:\nc\nd"},
	}

	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			var b strings.Builder
			require.NoError(t, Encode(&b, tt.inp))
			assert.Equal(t, tt.res, b.String())
		})
	}
}

func TestStore_Path(t *testing.T) {
	assert.Equal(t, "2024-01-01.txt", (&Store{}).Path("2024-01-01"))
	assert.Equal(t, "2024-01-01.txt", (&Store{}).Path("2024-01-01.txt"))
	assert.Equal(t, filepath.Join("/srv", "work.md"), (&Store{Dir: "/srv", Ext: "md"}).Path("work"))
	assert.Equal(t, "work", (&Store{Dir: "/srv"}).Name("/srv/work.txt"))
	assert.Equal(t, "notes", (&Store{}).Trim("notes.txt"))
	assert.Equal(t, "notes", (&Store{}).Trim("notes"))
	assert.Equal(t, "sub/notes", (&Store{}).Trim("sub/notes.txt"))
	assert.Equal(t, "notes.txt", (&Store{Ext: ".md"}).Trim("notes.txt"))
}

func TestStore_LoadMissing(t *testing.T) {
	s := Store{Dir: t.TempDir()}
	res, err := s.Load("2024-01-01")
	require.NoError(t, err)
	assert.Empty(t, res.InProgress)
	assert.Empty(t, res.Finished)
	_, err = os.Stat(s.Path("2024-01-01"))
	assert.True(t, os.IsNotExist(err), "load doesn't create file")
}

func TestStore_SaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub")
	s := Store{Dir: dir}
	l := Lists{InProgress: []string{"Buy milk", "Write report"}, Finished: []string{}}
	require.NoError(t, l.Complete(0))
	require.NoError(t, s.Save(context.Background(), "2024-01-01", l))

	data, err := os.ReadFile(filepath.Join(dir, "2024-01-01.txt"))
	require.NoError(t, err)
	assert.Equal(t, "In Progress:\nWrite report\n\nFinished:\nBuy milk", string(data))

	res, err := s.Load("2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, l, res)

	res2, err := s.Load("2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, res, res2, "load is idempotent")
}

func TestStore_SaveTruncates(t *testing.T) {
	s := Store{Dir: t.TempDir()}
	big := Lists{InProgress: []string{"one", "two", "three", "four"}, Finished: []string{"five"}}
	require.NoError(t, s.Save(context.Background(), "day", big))
	small := Lists{InProgress: []string{"one"}}
	require.NoError(t, s.Save(context.Background(), "day", small))

	data, err := os.ReadFile(s.Path("day"))
	require.NoError(t, err)
	assert.Equal(t, "In Progress:\none\n\nFinished:\n", string(data))
}

func TestStore_SaveRoundTrip(t *testing.T) {
	s := Store{Dir: t.TempDir()}
	tbl := []Lists{
		{InProgress: []string{}, Finished: []string{}},
		{InProgress: []string{"a"}, Finished: []string{}},
		{InProgress: []string{}, Finished: []string{"b"}},
		{InProgress: []string{"x y z", "ünïcode ✓", "Finished: not a sentinel"}, Finished: []string{"1", "2", "3"}},
	}
	for i, l := range tbl {
		require.NoError(t, s.Save(context.Background(), "rt", l), "case %d", i)
		res, err := s.Load("rt")
		require.NoError(t, err, "case %d", i)
		assert.Equal(t, l, res, "case %d", i)
	}
}

func TestStore_SaveLoadLongTask(t *testing.T) {
	s := Store{Dir: t.TempDir()}
	long := strings.Repeat("x", 1100*1024)
	l := Lists{InProgress: []string{long, "short"}, Finished: []string{long + "!"}}
	require.NoError(t, s.Save(context.Background(), "long", l))

	res, err := s.Load("long")
	require.NoError(t, err)
	assert.Equal(t, l, res)
}

func TestStore_LoadFailed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "blah.txt"), 0o750))
	s := Store{Dir: dir}
	_, err := s.Load("blah")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load")
}

type countingRepeater struct {
	calls    int
	attempts int
}

func (c *countingRepeater) Do(_ context.Context, fun func() error, _ ...error) error {
	var err error
	for i := 0; i < c.attempts; i++ {
		c.calls++
		if err = fun(); err == nil {
			return nil
		}
	}
	return err
}

func TestStore_SaveWithRepeater(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	rpt := &countingRepeater{attempts: 3}
	s := Store{Dir: blocker, Repeater: rpt} // dir is a file, can't write
	err := s.Save(context.Background(), "day", Lists{})
	require.Error(t, err)
	assert.Equal(t, 3, rpt.calls)
	assert.Contains(t, err.Error(), "failed to save")

	rpt = &countingRepeater{attempts: 3}
	s = Store{Dir: dir, Repeater: rpt}
	require.NoError(t, s.Save(context.Background(), "day", Lists{}))
	assert.Equal(t, 1, rpt.calls)
}

func TestStore_SaveWithBackoffRepeater(t *testing.T) {
	s := Store{Dir: t.TempDir(), Repeater: repeater.NewDefault(2, time.Millisecond)}
	require.NoError(t, s.Save(context.Background(), "day", Lists{InProgress: []string{"a"}}))
	res, err := s.Load("day")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, res.InProgress)

	s.Dir = filepath.Join(s.Path("day"), "nope") // parent is a file
	err = s.Save(context.Background(), "day", Lists{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrOutOfRange))
}
