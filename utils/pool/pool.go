// Package pool wraps sync.Pool with a type parameter and counts the objects
// it had to allocate.
package pool

import (
	"sync"

	"github.com/linchenxuan/elogport/metrics"
)

// Pool is a typed sync.Pool. Name labels its allocation counter.
type Pool[T any] struct {
	name string
	pool sync.Pool
}

// New creates a pool that calls newFn when it is empty.
func New[T any](name string, newFn func() T) *Pool[T] {
	p := &Pool[T]{name: name}
	p.pool.New = func() any {
		metrics.RecordPoolCreate(name)
		return newFn()
	}
	return p
}

// Name returns the metrics label of the pool.
func (p *Pool[T]) Name() string {
	return p.name
}

// Get takes an item from the pool, allocating one if it is empty.
func (p *Pool[T]) Get() T {
	return p.pool.Get().(T)
}

// Put returns x to the pool.
func (p *Pool[T]) Put(x T) {
	p.pool.Put(x)
}
