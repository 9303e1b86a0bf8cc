package port

import "errors"

// Result is the code returned by Backend.Init.
type Result int

const (
	// NoErr is the only code a successful init returns.
	NoErr Result = iota
	// ErrChannelConfig reports that the output channel could not be configured.
	ErrChannelConfig
	// ErrMutexAlloc is reserved: a failed mutex allocation aborts instead of returning.
	ErrMutexAlloc
)

// String returns the name of the result code.
func (r Result) String() string {
	switch r {
	case NoErr:
		return "NoErr"
	case ErrChannelConfig:
		return "ErrChannelConfig"
	case ErrMutexAlloc:
		return "ErrMutexAlloc"
	default:
		return "Unknown"
	}
}

var (
	// ErrNoMutexAllocator is raised when mutex protection is enabled without an allocator.
	ErrNoMutexAllocator = errors.New("mutex protection enabled without allocator")
	// ErrNilMutex is raised when the allocator returns neither a mutex nor an error.
	ErrNilMutex = errors.New("mutex allocator returned nil")
)
