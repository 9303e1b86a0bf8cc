// Package port binds the hooks of a logging engine to platform primitives:
// an output channel, a mutex and a tick/task source.
//
// A Backend is built once, initialised once at start-up and then shared by
// every writer. The engine calls Lock before composing a line, Output with the
// whole line and Unlock afterwards; the backend itself only acquires and
// releases.
package port

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/linchenxuan/elogport/metrics"
)

// Hooks is the fixed contract a logging engine consumes.
type Hooks interface {
	Init() Result
	Output(p []byte)
	Lock()
	Unlock()
	Time() string
	ProcessInfo(ctx context.Context) string
	ThreadInfo() string
}

// Locker is a blocking mutual exclusion primitive. Implementations are not
// required to be safe from interrupt context.
type Locker interface {
	Lock()
	Unlock()
}

// MutexAllocator creates the mutex guarding the output channel.
type MutexAllocator func() (Locker, error)

// TickSource reports the scheduler tick count.
type TickSource interface {
	CurrentTick() uint32
}

// TaskSource resolves the task running on behalf of ctx.
type TaskSource interface {
	CurrentTask(ctx context.Context) (name string, ok bool)
}

// ChannelConfigurer prepares the output channel during Init: buffers, names
// and transfer modes.
type ChannelConfigurer func(cfg *BackendCfg) error

const (
	_noTimePlaceholder  = "0:0"
	_processPlaceholder = "P"
	_threadPlaceholder  = "T"
)

// Option customises a Backend at construction.
type Option func(b *Backend)

// WithChannel sets the active output channel.
func WithChannel(ch OutputChannel) Option {
	return func(b *Backend) {
		b.channel = ch
	}
}

// WithChannelConfigurer sets the function Init runs to configure the channel.
func WithChannelConfigurer(fn ChannelConfigurer) Option {
	return func(b *Backend) {
		b.configure = fn
	}
}

// WithMutexAllocator sets the allocator Init uses when mutex protection is on.
func WithMutexAllocator(fn MutexAllocator) Option {
	return func(b *Backend) {
		b.allocMutex = fn
	}
}

// WithTickSource sets the time source behind Time.
func WithTickSource(src TickSource) Option {
	return func(b *Backend) {
		b.ticks = src
	}
}

// WithTaskSource sets the task source behind ProcessInfo.
func WithTaskSource(src TaskSource) Option {
	return func(b *Backend) {
		b.tasks = src
	}
}

// Backend implements Hooks over one output channel and one mutex.
type Backend struct {
	cfg        *BackendCfg
	channel    OutputChannel
	configure  ChannelConfigurer
	allocMutex MutexAllocator
	ticks      TickSource
	tasks      TaskSource
	mu         Locker
}

// NewBackend creates a Backend. A nil cfg means DefaultCfg. Without
// WithMutexAllocator a plain sync.Mutex is allocated when mutex protection is
// enabled.
func NewBackend(cfg *BackendCfg, opts ...Option) *Backend {
	if cfg == nil {
		cfg = DefaultCfg()
	}
	b := &Backend{
		cfg: cfg,
		allocMutex: func() (Locker, error) {
			return &sync.Mutex{}, nil
		},
	}
	for _, opt := range opts {
		opt(b)
	}

	if !cfg.ChannelEnabled || b.channel == nil {
		b.channel = NopChannel{}
	}
	return b
}

// Cfg returns the configuration the backend was built with.
func (b *Backend) Cfg() *BackendCfg {
	return b.cfg
}

// Init configures the output channel and allocates the mutex.
//
// It is not guarded against a second call. A mutex allocation failure
// panics: a backend that was asked for mutual exclusion must not run without
// it.
func (b *Backend) Init() Result {
	result := NoErr

	if b.cfg.ChannelEnabled && b.configure != nil {
		if err := b.configure(b.cfg); err != nil {
			result = ErrChannelConfig
		}
	}

	if b.cfg.MutexEnabled {
		if b.allocMutex == nil {
			panic(ErrNoMutexAllocator)
		}
		mu, err := b.allocMutex()
		if err != nil {
			panic(err)
		}
		if mu == nil {
			panic(ErrNilMutex)
		}
		b.mu = mu
	}

	metrics.RecordInit(result.String())
	return result
}

// Output hands p to the output channel. It never blocks and never fails
// visibly.
func (b *Backend) Output(p []byte) {
	b.channel.Write(p)
}

// Lock acquires the output mutex, blocking without timeout.
func (b *Backend) Lock() {
	if b.mu == nil {
		return
	}
	start := time.Now()
	b.mu.Lock()
	metrics.ObserveLockWait(start)
}

// Unlock releases the output mutex.
func (b *Backend) Unlock() {
	if b.mu == nil {
		return
	}
	b.mu.Unlock()
}

// Time returns the current tick count in decimal, or "0:0" without a tick
// source.
func (b *Backend) Time() string {
	if b.ticks == nil {
		return _noTimePlaceholder
	}
	return strconv.FormatUint(uint64(b.ticks.CurrentTick()), 10)
}

// ProcessInfo returns the name of the task running ctx, or "P" when there is
// none.
func (b *Backend) ProcessInfo(ctx context.Context) string {
	if b.tasks == nil || ctx == nil {
		return _processPlaceholder
	}
	name, ok := b.tasks.CurrentTask(ctx)
	if !ok {
		return _processPlaceholder
	}
	name = sanitizeInfo(name, MaxTaskNameLen)
	if name == "" {
		return _processPlaceholder
	}
	return name
}

// ThreadInfo always returns "T": threads are not identified.
func (b *Backend) ThreadInfo() string {
	return _threadPlaceholder
}

// sanitizeInfo cuts s at the first NUL and at limit bytes, backing off to
// the start of a UTF-8 sequence.
func sanitizeInfo(s string, limit int) string {
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	if len(s) > limit {
		n := limit
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		s = s[:n]
	}
	return s
}

var (
	_defaultBackend     Hooks = NewBackend(&BackendCfg{ChannelEnabled: true}, WithChannel(NewConsoleChannel()))
	_defaultBackendLock sync.RWMutex
)

// Default returns the package-level backend. Until SetDefault is called it
// writes to stdout without a mutex.
func Default() Hooks {
	_defaultBackendLock.RLock()
	defer _defaultBackendLock.RUnlock()
	return _defaultBackend
}

// SetDefault replaces the package-level backend.
func SetDefault(h Hooks) {
	_defaultBackendLock.Lock()
	defer _defaultBackendLock.Unlock()
	_defaultBackend = h
}
