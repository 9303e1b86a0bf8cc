// Package rtt implements debug-probe style communication buffers: a control
// block holding numbered up buffers (target to host) and down buffers (host
// to target), each a fixed-size ring with a configurable overflow mode.
//
// Only the buffering behaviour is modelled. There is no memory layout for a
// probe to scan; a host reads through Read and answers through HostWrite.
package rtt

import (
	"errors"
	"fmt"
	"sync/atomic"
)

const (
	// DefaultMaxUpBuffers is the number of up buffer slots.
	DefaultMaxUpBuffers = 3
	// DefaultMaxDownBuffers is the number of down buffer slots.
	DefaultMaxDownBuffers = 3
	// TerminalChannel is the conventional index of the terminal channel.
	TerminalChannel = 0
)

var (
	// ErrBadIndex is returned for a buffer index outside the control block.
	ErrBadIndex = errors.New("rtt buffer index out of range")
	// ErrBadSize is returned for a buffer smaller than two bytes.
	ErrBadSize = errors.New("rtt buffer needs at least two bytes")
)

// BufferDesc describes one configured buffer.
type BufferDesc struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Size  int    `json:"size"`
	Used  int    `json:"used"`
	Mode  string `json:"mode"`
}

// ControlBlock owns every up and down buffer.
//
// Each buffer is safe for one writer and one reader running concurrently.
// Several writers on the same buffer must serialise themselves.
type ControlBlock struct {
	up   []atomic.Pointer[ring]
	down []atomic.Pointer[ring]
}

// NewControlBlock creates a control block with the given slot counts. The
// terminal up and down buffers are not configured; call ConfigUpBuffer.
func NewControlBlock(maxUp, maxDown int) *ControlBlock {
	if maxUp <= 0 {
		maxUp = DefaultMaxUpBuffers
	}
	if maxDown <= 0 {
		maxDown = DefaultMaxDownBuffers
	}
	return &ControlBlock{
		up:   make([]atomic.Pointer[ring], maxUp),
		down: make([]atomic.Pointer[ring], maxDown),
	}
}

// ConfigUpBuffer (re)configures up buffer idx. Pending data is discarded.
func (cb *ControlBlock) ConfigUpBuffer(idx int, name string, size int, mode Mode) error {
	return configBuffer(cb.up, "up", idx, name, size, mode)
}

// ConfigDownBuffer (re)configures down buffer idx. Pending data is discarded.
func (cb *ControlBlock) ConfigDownBuffer(idx int, name string, size int, mode Mode) error {
	return configBuffer(cb.down, "down", idx, name, size, mode)
}

func configBuffer(slots []atomic.Pointer[ring], dir string, idx int, name string, size int, mode Mode) error {
	if idx < 0 || idx >= len(slots) {
		return fmt.Errorf("config %s buffer %d: %w", dir, idx, ErrBadIndex)
	}
	if size < 2 {
		return fmt.Errorf("config %s buffer %d: %w", dir, idx, ErrBadSize)
	}
	slots[idx].Store(newRing(name, size, mode))
	return nil
}

func slot(slots []atomic.Pointer[ring], idx int) *ring {
	if idx < 0 || idx >= len(slots) {
		return nil
	}
	return slots[idx].Load()
}

// Write stores p in up buffer idx following the buffer mode and returns the
// bytes stored. An unconfigured buffer stores nothing.
func (cb *ControlBlock) Write(idx int, p []byte) int {
	r := slot(cb.up, idx)
	if r == nil {
		return 0
	}
	return r.write(p)
}

// WriteNoBlock is Write with ModeBlockIfFull degraded to ModeNoBlockSkip.
func (cb *ControlBlock) WriteNoBlock(idx int, p []byte) int {
	r := slot(cb.up, idx)
	if r == nil || len(p) == 0 {
		return 0
	}
	if r.mode == ModeBlockIfFull {
		if uint32(len(p)) > r.free() {
			return 0
		}
		r.put(p)
		return len(p)
	}
	return r.write(p)
}

// Read drains up to len(p) bytes from up buffer idx. It is the host side.
func (cb *ControlBlock) Read(idx int, p []byte) int {
	r := slot(cb.up, idx)
	if r == nil {
		return 0
	}
	return r.read(p)
}

// HostWrite stores p in down buffer idx. It is the host side.
func (cb *ControlBlock) HostWrite(idx int, p []byte) int {
	r := slot(cb.down, idx)
	if r == nil {
		return 0
	}
	return r.write(p)
}

// ReadDown drains up to len(p) bytes the host sent on down buffer idx.
func (cb *ControlBlock) ReadDown(idx int, p []byte) int {
	r := slot(cb.down, idx)
	if r == nil {
		return 0
	}
	return r.read(p)
}

// HasData reports whether up buffer idx holds unread bytes.
func (cb *ControlBlock) HasData(idx int) bool {
	r := slot(cb.up, idx)
	return r != nil && r.used() > 0
}

// UpBuffers describes every configured up buffer.
func (cb *ControlBlock) UpBuffers() []BufferDesc {
	return describe(cb.up)
}

// DownBuffers describes every configured down buffer.
func (cb *ControlBlock) DownBuffers() []BufferDesc {
	return describe(cb.down)
}

func describe(slots []atomic.Pointer[ring]) []BufferDesc {
	var out []BufferDesc
	for i := range slots {
		r := slots[i].Load()
		if r == nil {
			continue
		}
		out = append(out, BufferDesc{
			Index: i,
			Name:  r.name,
			Size:  len(r.buf),
			Used:  int(r.used()),
			Mode:  r.mode.String(),
		})
	}
	return out
}
