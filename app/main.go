package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"
	"github.com/mattn/go-isatty"
	"github.com/umputun/go-flags"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/umputun/tasket/app/catalog"
	"github.com/umputun/tasket/app/config"
	"github.com/umputun/tasket/app/day"
	"github.com/umputun/tasket/app/journal"
	"github.com/umputun/tasket/app/session"
	"github.com/umputun/tasket/app/tasks"
)

var opts struct {
	Dir      string `short:"d" long:"dir" env:"TASKET_DIR" description:"directory with task files (default: .)"`
	Name     string `short:"n" long:"name" env:"TASKET_NAME" description:"task file to open, made from template if not set"`
	Ext      string `long:"ext" env:"TASKET_EXT" description:"task file extension (default: .txt)"`
	Template string `short:"t" long:"template" env:"TASKET_TEMPLATE" description:"default file name template (default: {{.ISODATE}})"`
	Config   string `short:"c" long:"config" env:"TASKET_CONFIG" description:"yaml config file"`
	History  string `long:"history" env:"TASKET_HISTORY" description:"sqlite file for history journal"`
	Clear    string `long:"clear" env:"TASKET_CLEAR" choice:"auto" choice:"yes" choice:"no" default:"auto" description:"clear screen before each prompt"`
	Schema   bool   `long:"schema" description:"print json schema of the config file and exit"`

	Save struct {
		Attempts int           `long:"attempts" env:"ATTEMPTS" description:"how many times to try writing task file"`
		Duration time.Duration `long:"duration" env:"DURATION" description:"initial delay between attempts"`
		Factor   float64       `long:"factor" env:"FACTOR" description:"backoff factor"`
	} `group:"save" namespace:"save" env-namespace:"TASKET_SAVE"`

	Log struct {
		Enabled    bool   `long:"enabled" env:"ENABLED" description:"enable logging"`
		Filename   string `long:"filename" env:"FILENAME" default:"tasket.log" description:"log file"`
		MaxSize    int    `long:"max-size" env:"MAX_SIZE" default:"10" description:"max log file size in MB"`
		MaxBackups int    `long:"max-backups" env:"MAX_BACKUPS" default:"3" description:"max number of rotated files"`
	} `group:"log" namespace:"log" env-namespace:"TASKET_LOG"`

	Dbg bool `long:"dbg" env:"TASKET_DEBUG" description:"debug mode"`
}

var revision = "unknown"

// settings combines config file with command line, command line wins
type settings struct {
	config.Config
	name  string
	clear bool
}

func main() {
	if _, err := flags.Parse(&opts); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if opts.Schema {
		data, err := config.Schema()
		if err != nil {
			fatalf("can't make schema, %v", err)
		}
		fmt.Println(string(data))
		return
	}

	logOut := setupLogs()
	log.Printf("[INFO] tasket %s", revision)

	defer func() {
		if x := recover(); x != nil {
			log.Printf("[WARN] run time panic:\n%v", x)
			panic(x)
		}
	}()

	cfg, err := config.Load(opts.Config)
	if err != nil {
		fatalf("%v", err)
	}
	st, err := makeSettings(cfg, time.Now())
	if err != nil {
		fatalf("%v", err)
	}

	sess, closeFn, err := makeSession(st, os.Stdin, os.Stdout)
	if err != nil {
		fatalf("%v", err)
	}
	shutdown := closeAll(closeFn, logOut)
	defer shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signals(cancel, shutdown, os.Exit)

	if err := sess.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		shutdown()
		fatalf("%v", err)
	}
}

// closeAll makes func closing journal and log file, safe to call more than once
func closeAll(closeFn func(), logOut io.Writer) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			closeFn()
			if closer, ok := logOut.(io.Closer); ok {
				_ = closer.Close()
			}
		})
	}
}

// makeSettings applies command line options on top of config and resolves the initial file name
func makeSettings(cfg config.Config, now time.Time) (settings, error) {
	res := settings{Config: cfg}
	if opts.Dir != "" {
		res.Dir = opts.Dir
	}
	if opts.Ext != "" {
		res.Ext = opts.Ext
	}
	if opts.Template != "" {
		res.Template = opts.Template
	}
	if opts.History != "" {
		res.History = opts.History
	}
	save := *cfg.Save
	if opts.Save.Attempts > 0 {
		save.Attempts = opts.Save.Attempts
	}
	if opts.Save.Duration > 0 {
		save.Duration = opts.Save.Duration
	}
	if opts.Save.Factor > 0 {
		save.Factor = opts.Save.Factor
	}
	res.Save = &save
	if err := config.Verify(res.Config); err != nil {
		return settings{}, err
	}

	switch opts.Clear {
	case "yes":
		res.clear = true
	case "no":
		res.clear = false
	default:
		if cfg.Clear != nil {
			res.clear = *cfg.Clear
		} else {
			res.clear = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
		}
	}

	name := opts.Name
	if name == "" {
		name = res.Template
	}
	parsed, err := dayParser(res.Config, now).Parse(name)
	if err != nil {
		return settings{}, err
	}
	res.name = parsed
	return res, nil
}

// makeSession wires store, catalog and optional journal into session and opens the initial file.
// The returned func closes the journal.
func makeSession(st settings, in io.Reader, out io.Writer) (*session.Session, func(), error) {
	backoff := &strategy.Backoff{Repeats: st.Save.Attempts, Duration: st.Save.Duration, Factor: st.Save.Factor}
	store := &tasks.Store{Dir: st.Dir, Ext: st.Ext, Repeater: repeater.New(backoff)}
	sess := &session.Session{
		Store:  store,
		Lister: catalog.New(st.Dir, st.Ext),
		Names:  dayParser(st.Config, time.Now()),
		In:     in,
		Out:    out,
		Clear:  st.clear,
		Recent: st.Recent,
	}

	closeFn := func() {}
	if st.History != "" {
		jrnl, err := journal.NewSQLite(st.History)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("[INFO] history journal %s", st.History)
		sess.Journal = jrnl
		closeFn = func() {
			if err := jrnl.Close(); err != nil {
				log.Printf("[WARN] can't close journal, %v", err)
			}
		}
	}

	if err := sess.Open(st.name); err != nil {
		closeFn()
		return nil, nil, err
	}
	return sess, closeFn, nil
}

func dayParser(cfg config.Config, now time.Time) *day.Parser {
	options := []day.Option{}
	if cfg.Timezone != "" {
		if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
			options = append(options, day.TimeZone(loc))
		}
	}
	return day.NewParser(now, options...)
}

// setupLogs sets lgr output. Stdout is the user interface, so logs go to rotated file or nowhere.
func setupLogs() io.Writer {
	if !opts.Log.Enabled {
		log.Setup(log.Out(io.Discard), log.Err(io.Discard))
		return io.Discard
	}

	out := &lumberjack.Logger{
		Filename:   opts.Log.Filename,
		MaxSize:    opts.Log.MaxSize,
		MaxBackups: opts.Log.MaxBackups,
	}
	if opts.Dbg {
		log.Setup(log.Out(out), log.Err(out), log.Debug, log.Msec, log.CallerFunc, log.CallerPkg, log.CallerFile)
		return out
	}
	log.Setup(log.Out(out), log.Err(out), log.Msec)
	return out
}

func fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("[ERROR] %s", msg)
	fmt.Fprintf(os.Stderr, "tasket: %s\n", msg)
	os.Exit(1)
}

// signals handles SIGQUIT with stack dump, SIGTERM and SIGINT terminate. Blocked prompt read can't be
// interrupted, so shutdown is called here before exit.
func signals(cancel context.CancelFunc, shutdown func(), exit func(int)) {
	sigChan := make(chan os.Signal, 1)
	go func() {
		stacktrace := make([]byte, 8192)
		for sig := range sigChan {
			if sig == syscall.SIGQUIT {
				length := runtime.Stack(stacktrace, true)
				fmt.Println(string(stacktrace[:length]))
				continue
			}
			log.Printf("[INFO] %s received, terminating", sig)
			cancel()
			shutdown()
			fmt.Println()
			exit(0)
			return
		}
	}()
	signal.Notify(sigChan, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
}
