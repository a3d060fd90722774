package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/tasket/app/tasks"
)

func TestParse(t *testing.T) {
	tbl := []struct {
		line string
		cmd  Command
		err  error
	}{
		{"new", Command{Op: OpNew}, nil},
		{"  show  ", Command{Op: OpShow}, nil},
		{"lists", Command{Op: OpLists}, nil},
		{"history", Command{Op: OpHistory}, nil},
		{"exit", Command{Op: OpExit}, nil},
		{"done 1", Command{Op: OpDone, Kind: tasks.InProgress, Pos: 0}, nil},
		{"done 12", Command{Op: OpDone, Kind: tasks.InProgress, Pos: 11}, nil},
		{"done 0", Command{Op: OpDone, Kind: tasks.InProgress, Pos: -1}, nil},
		{"del prog 2", Command{Op: OpDelete, Kind: tasks.InProgress, Pos: 1}, nil},
		{"del fin 1", Command{Op: OpDelete, Kind: tasks.Finished, Pos: 0}, nil},
		{"edit prog 3", Command{Op: OpEdit, Kind: tasks.InProgress, Pos: 2}, nil},
		{"edit\tfin 1", Command{Op: OpEdit, Kind: tasks.Finished, Pos: 0}, nil},
		{"open 2024-01-01", Command{Op: OpOpen, Name: "2024-01-01"}, nil},

		{"", Command{}, ErrInvalidCommand},
		{"   ", Command{}, ErrInvalidCommand},
		{"blah", Command{}, ErrInvalidCommand},
		{"New", Command{}, ErrInvalidCommand},
		{"donex 1", Command{}, ErrInvalidCommand},
		{"new task", Command{}, ErrInvalidCommand},
		{"exit now", Command{}, ErrInvalidCommand},
		{"done 1 2", Command{}, ErrInvalidCommand},
		{"del prog 1 2", Command{}, ErrInvalidCommand},
		{"open", Command{}, ErrInvalidCommand},
		{"open a b", Command{}, ErrInvalidCommand},

		{"done", Command{}, ErrInvalidNumber},
		{"done x", Command{}, ErrInvalidNumber},
		{"done -1", Command{}, ErrInvalidNumber},
		{"done 1.5", Command{}, ErrInvalidNumber},
		{"done 99999999999999999999999", Command{}, ErrInvalidNumber},
		{"del prog", Command{}, ErrInvalidNumber},
		{"del prog abc", Command{}, ErrInvalidNumber},
		{"del xyz abc", Command{}, ErrInvalidNumber},
		{"edit fin", Command{}, ErrInvalidNumber},

		{"del", Command{}, ErrInvalidSubCommand},
		{"del 1", Command{}, ErrInvalidSubCommand},
		{"del all 1", Command{}, ErrInvalidSubCommand},
		{"edit", Command{}, ErrInvalidSubCommand},
		{"edit PROG 1", Command{}, ErrInvalidSubCommand},
	}

	for _, tt := range tbl {
		t.Run(tt.line, func(t *testing.T) {
			cmd, err := Parse(tt.line)
			if tt.err != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.err)
				var perr *ParseError
				require.True(t, errors.As(err, &perr))
				assert.Equal(t, tt.line, perr.Line)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cmd, cmd)
		})
	}
}

func TestParseError(t *testing.T) {
	_, err := Parse("del")
	require.Error(t, err)
	assert.Equal(t, `can't parse "del": invalid sub-command`, err.Error())
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, OpDelete, perr.Op)
}
