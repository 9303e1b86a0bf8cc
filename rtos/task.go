package rtos

import "context"

type taskContextKey struct{}

// Task is a named unit of work scheduled by a Kernel.
type Task struct {
	name string
}

// Name returns the task name.
func (t *Task) Name() string {
	return t.name
}

// WithTask returns a copy of ctx carrying t.
func WithTask(ctx context.Context, t *Task) context.Context {
	return context.WithValue(ctx, taskContextKey{}, t)
}

// TaskFromContext returns the task carried by ctx, or nil.
func TaskFromContext(ctx context.Context) *Task {
	if ctx == nil {
		return nil
	}
	t, _ := ctx.Value(taskContextKey{}).(*Task)
	return t
}
