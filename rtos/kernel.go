// Package rtos is a small in-process stand-in for the scheduler services a
// logging port needs: a tick counter, named tasks and a bounded pool of
// kernel mutexes.
package rtos

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrNoResources is returned when the kernel object budget is exhausted.
	ErrNoResources = errors.New("kernel object budget exhausted")
	// ErrInvalidTickRate is returned for a tick rate outside 1Hz..1GHz.
	ErrInvalidTickRate = errors.New("tick rate out of range")
)

// KernelCfg configures a Kernel.
type KernelCfg struct {
	// TickRateHz is the number of scheduler ticks per second.
	TickRateHz int `mapstructure:"tickRateHz"`

	// MaxMutexes caps the number of mutexes the kernel hands out. Zero means
	// unlimited.
	MaxMutexes int `mapstructure:"maxMutexes"`
}

// Validate applies defaults and checks ranges.
func (cfg *KernelCfg) Validate() error {
	if cfg.TickRateHz == 0 {
		cfg.TickRateHz = 1000
	}
	if cfg.TickRateHz < 0 || cfg.TickRateHz > int(time.Second) {
		return fmt.Errorf("%w, got %d", ErrInvalidTickRate, cfg.TickRateHz)
	}
	if cfg.MaxMutexes < 0 {
		return fmt.Errorf("max mutexes must be non-negative, got %d", cfg.MaxMutexes)
	}
	return nil
}

// Kernel owns the tick clock, the task registry and the mutex budget.
type Kernel struct {
	cfg     KernelCfg
	start   time.Time
	tickDur time.Duration
	mutexes atomic.Int32
	tasks   sync.WaitGroup
	running atomic.Int32
}

// NewKernel creates a Kernel whose tick count starts at zero now.
func NewKernel(cfg KernelCfg) (*Kernel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Kernel{
		cfg:     cfg,
		start:   time.Now(),
		tickDur: time.Second / time.Duration(cfg.TickRateHz),
	}, nil
}

// CurrentTick returns the ticks elapsed since the kernel started. It wraps at
// 2^32 like a 32-bit tick counter.
func (k *Kernel) CurrentTick() uint32 {
	return uint32(time.Since(k.start) / k.tickDur)
}

// NewMutex allocates a kernel mutex, failing once MaxMutexes are in use.
func (k *Kernel) NewMutex() (*Mutex, error) {
	n := k.mutexes.Add(1)
	if k.cfg.MaxMutexes > 0 && int(n) > k.cfg.MaxMutexes {
		k.mutexes.Add(-1)
		return nil, fmt.Errorf("new mutex: %w", ErrNoResources)
	}
	return newMutex(), nil
}

// Mutexes returns the number of mutexes allocated so far.
func (k *Kernel) Mutexes() int {
	return int(k.mutexes.Load())
}

// Go runs fn as a named task. The context passed to fn carries the task, so
// anything logging on its behalf can resolve it with CurrentTask.
func (k *Kernel) Go(ctx context.Context, name string, fn func(ctx context.Context)) *Task {
	t := &Task{name: name}
	taskCtx := WithTask(ctx, t)
	k.tasks.Add(1)
	k.running.Add(1)
	go func() {
		defer k.tasks.Done()
		defer k.running.Add(-1)
		fn(taskCtx)
	}()
	return t
}

// Running returns the number of tasks that have not returned yet.
func (k *Kernel) Running() int {
	return int(k.running.Load())
}

// Wait blocks until every task started with Go has returned.
func (k *Kernel) Wait() {
	k.tasks.Wait()
}

// CurrentTask returns the name of the task ctx belongs to.
func (k *Kernel) CurrentTask(ctx context.Context) (string, bool) {
	t := TaskFromContext(ctx)
	if t == nil {
		return "", false
	}
	return t.Name(), true
}
