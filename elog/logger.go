// Package elog is the logging engine front-end that drives a port backend.
//
// A Logger filters by level, collects fields into a pooled Event and, when the
// event ends, takes the backend lock, composes the full line with the backend
// time and task info, hands it to the backend in one Output call and releases
// the lock. Lines from concurrent writers therefore never interleave and
// their timestamps follow output order.
//
// Example:
//
//	backend := port.NewBackend(port.DefaultCfg(), port.WithChannel(port.NewConsoleChannel()))
//	logger, _ := elog.NewLogger(&elog.LogCfg{Tag: "app"}, backend)
//	logger.Init()
//	logger.Start()
//	logger.Info().Ctx(ctx).Int("connections", 42).Msg("server started")
package elog

import (
	"bytes"
	"context"
	"sync/atomic"
	"unicode/utf8"

	"github.com/linchenxuan/elogport/port"
	"github.com/linchenxuan/elogport/utils/pool"
)

// Logger is a leveled logger writing through port hooks.
type Logger struct {
	hooks      port.Hooks
	tag        string
	lineMax    int
	callerSkip int
	filter     atomic.Int32
	fmts       [_levelCount]atomic.Uint32
	started    atomic.Bool
	callers    callerCache
	eventPool  *pool.Pool[*Event]
}

// NewLogger creates a stopped Logger over hooks. A nil cfg means the
// defaults; nil hooks means port.Default().
func NewLogger(cfg *LogCfg, hooks port.Hooks) (*Logger, error) {
	if cfg == nil {
		cfg = getDefaultCfg()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if hooks == nil {
		hooks = port.Default()
	}

	x := &Logger{
		hooks:      hooks,
		tag:        cfg.Tag,
		lineMax:    cfg.LineMax,
		callerSkip: cfg.CallerSkip,
	}
	x.filter.Store(int32(ParseLevel(cfg.FilterLevel)))
	for i := range x.fmts {
		x.fmts[i].Store(uint32(FmtAll))
	}
	for name, f := range cfg.Formats {
		x.SetFmt(ParseLevel(name), ParseFmt(f))
	}

	x.eventPool = pool.New("elog.event", func() *Event {
		e := &Event{logger: x}
		e.fields.Grow(256)
		e.line.Grow(x.lineMax)
		return e
	})
	return x, nil
}

// Hooks returns the backend the logger writes through.
func (x *Logger) Hooks() port.Hooks {
	return x.hooks
}

// Init initialises the backend.
func (x *Logger) Init() port.Result {
	return x.hooks.Init()
}

// Start enables output. Events created before Start are discarded.
func (x *Logger) Start() {
	x.started.Store(true)
}

// Stop disables output.
func (x *Logger) Stop() {
	x.started.Store(false)
}

// Started reports whether output is enabled.
func (x *Logger) Started() bool {
	return x.started.Load()
}

// SetFmt selects the fields printed for level.
func (x *Logger) SetFmt(level Level, f Fmt) {
	if !level.valid() {
		return
	}
	x.fmts[level].Store(uint32(f))
}

// Fmt returns the fields printed for level.
func (x *Logger) Fmt(level Level) Fmt {
	if !level.valid() {
		return 0
	}
	return Fmt(x.fmts[level].Load())
}

// SetFilterLevel sets the least severe level printed.
func (x *Logger) SetFilterLevel(level Level) {
	if !level.valid() {
		return
	}
	x.filter.Store(int32(level))
}

// FilterLevel returns the least severe level printed.
func (x *Logger) FilterLevel() Level {
	return Level(x.filter.Load())
}

// Enabled reports whether an event at level would be printed.
func (x *Logger) Enabled(level Level) bool {
	return x.started.Load() && level.valid() && int32(level) <= x.filter.Load()
}

// Assert creates an assert-level event.
func (x *Logger) Assert() *Event { return x.log(AssertLevel) }

// Error creates an error-level event.
func (x *Logger) Error() *Event { return x.log(ErrorLevel) }

// Warn creates a warn-level event.
func (x *Logger) Warn() *Event { return x.log(WarnLevel) }

// Info creates an info-level event.
func (x *Logger) Info() *Event { return x.log(InfoLevel) }

// Debug creates a debug-level event.
func (x *Logger) Debug() *Event { return x.log(DebugLevel) }

// Verbose creates a verbose-level event.
func (x *Logger) Verbose() *Event { return x.log(VerboseLevel) }

// Raw writes p through the backend as is, under the backend lock.
func (x *Logger) Raw(p []byte) {
	if !x.started.Load() {
		return
	}
	x.hooks.Lock()
	x.hooks.Output(p)
	x.hooks.Unlock()
}

// log returns a pooled event, or nil when level is filtered out. It must be
// called directly by the exported level method so the caller frame is right.
func (x *Logger) log(level Level) *Event {
	if !x.Enabled(level) {
		return nil
	}
	e := x.eventPool.Get()
	e.reset(level)
	if x.Fmt(level).wantsCaller() {
		e.caller = x.callers.lookup(2 + x.callerSkip)
	}
	return e
}

// write composes the line for e and outputs it under the backend lock.
func (x *Logger) write(e *Event) {
	f := x.Fmt(e.level)
	ctx := e.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	x.hooks.Lock()
	h := header{
		level:  e.level,
		tag:    x.tag,
		caller: e.caller,
	}
	if f.Has(FmtTime) {
		h.time = x.hooks.Time()
	}
	if f.Has(FmtPInfo) {
		h.pinfo = x.hooks.ProcessInfo(ctx)
	}
	if f.Has(FmtTInfo) {
		h.tinfo = x.hooks.ThreadInfo()
	}

	e.line.Reset()
	appendHeader(&e.line, f, &h)
	e.line.WriteString(e.msg)
	e.line.Write(e.fields.Bytes())
	terminate(&e.line, x.lineMax)
	x.hooks.Output(e.line.Bytes())
	x.hooks.Unlock()

	x.eventPool.Put(e)
}

// terminate cuts buf to limit bytes including a trailing newline. The cut
// never splits a UTF-8 sequence.
func terminate(buf *bytes.Buffer, limit int) {
	if buf.Len() > limit-1 {
		b := buf.Bytes()
		n := limit - 1
		for n > 0 && !utf8.RuneStart(b[n]) {
			n--
		}
		buf.Truncate(n)
	}
	buf.WriteByte('\n')
}
