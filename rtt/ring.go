package rtt

import (
	"sync/atomic"
)

// Mode is the transfer mode of a buffer when the writer runs out of space.
type Mode int

const (
	// ModeNoBlockSkip drops a write that does not fit in its entirety.
	ModeNoBlockSkip Mode = iota
	// ModeNoBlockTrim writes as much as fits and drops the rest.
	ModeNoBlockTrim
	// ModeBlockIfFull waits for the reader to make room.
	ModeBlockIfFull
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeNoBlockSkip:
		return "skip"
	case ModeNoBlockTrim:
		return "trim"
	case ModeBlockIfFull:
		return "block"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name. Unknown names map to ModeNoBlockSkip.
func ParseMode(s string) Mode {
	switch s {
	case "trim":
		return ModeNoBlockTrim
	case "block":
		return ModeBlockIfFull
	}
	return ModeNoBlockSkip
}

// ring is a single-producer single-consumer byte ring. One slot is always
// left free so that wr == rd means empty.
type ring struct {
	name    string
	mode    Mode
	buf     []byte
	wr      atomic.Uint32
	rd      atomic.Uint32
	drained chan struct{}
}

func newRing(name string, size int, mode Mode) *ring {
	return &ring{
		name:    name,
		mode:    mode,
		buf:     make([]byte, size),
		drained: make(chan struct{}, 1),
	}
}

func (r *ring) size() uint32 {
	return uint32(len(r.buf))
}

// free returns the bytes a writer may add.
func (r *ring) free() uint32 {
	n := r.size()
	if n == 0 {
		return 0
	}
	wr, rd := r.wr.Load(), r.rd.Load()
	if rd <= wr {
		return n - 1 - wr + rd
	}
	return rd - wr - 1
}

// used returns the bytes waiting for the reader.
func (r *ring) used() uint32 {
	n := r.size()
	if n == 0 {
		return 0
	}
	wr, rd := r.wr.Load(), r.rd.Load()
	if wr >= rd {
		return wr - rd
	}
	return n - rd + wr
}

// put copies p into the ring without checking space.
func (r *ring) put(p []byte) {
	n := r.size()
	wr := r.wr.Load()
	first := copy(r.buf[wr:], p)
	if first < len(p) {
		copy(r.buf, p[first:])
	}
	r.wr.Store((wr + uint32(len(p))) % n)
}

// write stores p according to the ring mode and returns the bytes stored.
func (r *ring) write(p []byte) int {
	if len(p) == 0 {
		return 0
	}
	switch r.mode {
	case ModeNoBlockTrim:
		avail := int(r.free())
		if avail < len(p) {
			p = p[:avail]
		}
		r.put(p)
		return len(p)
	case ModeBlockIfFull:
		written := 0
		for len(p) > 0 {
			avail := int(r.free())
			if avail == 0 {
				<-r.drained
				continue
			}
			chunk := p
			if len(chunk) > avail {
				chunk = chunk[:avail]
			}
			r.put(chunk)
			written += len(chunk)
			p = p[len(chunk):]
		}
		return written
	default:
		if uint32(len(p)) > r.free() {
			return 0
		}
		r.put(p)
		return len(p)
	}
}

// read moves up to len(p) pending bytes into p.
func (r *ring) read(p []byte) int {
	n := r.size()
	if n == 0 {
		return 0
	}
	avail := int(r.used())
	if avail > len(p) {
		avail = len(p)
	}
	if avail == 0 {
		return 0
	}
	rd := r.rd.Load()
	first := copy(p[:avail], r.buf[rd:])
	if first < avail {
		copy(p[first:avail], r.buf)
	}
	r.rd.Store((rd + uint32(avail)) % n)

	select {
	case r.drained <- struct{}{}:
	default:
	}
	return avail
}
