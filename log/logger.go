package log

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"sync"
	"time"
)

var DefaultLogger *log.Logger
var defaultFilter *logFilter

type Level string

const (
	LDebug    = Level("debug")
	LProgress = Level("progress")
	LStep     = Level("step")
	LInfo     = Level("info")
	LWarn     = Level("warn")
	LError    = Level("error")
	LFatal    = Level("fatal")
)

var levels = []Level{LDebug, LProgress, LStep, LInfo, LWarn, LError, LFatal}

func init() {
	defaultFilter = &logFilter{
		start:    time.Now(),
		writer:   os.Stdout,
		minLevel: LProgress,
	}
	defaultFilter.init()
	DefaultLogger = log.New(defaultFilter, "", 0)
}

type logFilter struct {
	mu        sync.Mutex
	start     time.Time
	writer    io.Writer
	badLevels map[Level]struct{}
	minLevel  Level
	plain     bool
}

func (f *logFilter) init() {
	badLevels := make(map[Level]struct{})
	for _, level := range levels {
		if level == f.minLevel {
			break
		}
		badLevels[level] = struct{}{}
	}
	f.badLevels = badLevels
}

// levelOf returns the level tag of a line, e.g. "info" for "[info] done".
// Lines without a tag have the empty level and are never filtered.
func levelOf(line []byte) Level {
	x := bytes.IndexByte(line, '[')
	if x < 0 {
		return ""
	}
	y := bytes.IndexByte(line[x:], ']')
	if y < 0 {
		return ""
	}
	return Level(line[x+1 : x+y])
}

func (f *logFilter) Write(p []byte) (n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.badLevels[levelOf(p)]; ok {
		return len(p), nil
	}
	// The Go log package always guarantees that we only
	// get a single line.
	b := bytes.Buffer{}
	if !f.plain {
		now := time.Now()
		d := now.Sub(f.start)
		fmt.Fprintf(&b, "[%s] %d:%02d:%02d ",
			now.Format(time.RFC3339),
			int(d.Hours()),
			int(math.Mod(d.Minutes(), 60)),
			int(math.Mod(d.Seconds(), 60)),
		)
	}
	b.Write(p)

	if _, err := f.writer.Write(b.Bytes()); err != nil {
		return 0, err
	}
	return len(p), nil
}

// SetMinLevel drops all records below lvl.
func SetMinLevel(lvl Level) {
	defaultFilter.mu.Lock()
	defer defaultFilter.mu.Unlock()
	defaultFilter.minLevel = lvl
	defaultFilter.init()
}

// SetOutput redirects all records to w. With plain set, the time prefix is
// omitted, which keeps test output stable.
func SetOutput(w io.Writer, plain bool) {
	defaultFilter.mu.Lock()
	defer defaultFilter.mu.Unlock()
	defaultFilter.writer = w
	defaultFilter.plain = plain
}

func Println(v ...interface{}) {
	DefaultLogger.Println(v...)
}

func Printf(format string, v ...interface{}) {
	DefaultLogger.Printf(format, v...)
}

func Step(name string) func() {
	start := time.Now()
	Println("[step] Starting:", name)
	return func() {
		Printf("[step] Finished: %s in %s", name, time.Since(start).Truncate(time.Millisecond))
	}
}
