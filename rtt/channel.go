package rtt

import (
	"errors"
	"fmt"

	"github.com/linchenxuan/elogport/metrics"
	"github.com/linchenxuan/elogport/port"
)

var (
	// ErrBlockingMode is returned when a log channel is asked to block on a full buffer.
	ErrBlockingMode = errors.New("log channel cannot use a blocking mode")
	// ErrTrimMode is returned when a log channel is asked to store partial records.
	ErrTrimMode = errors.New("log channel cannot trim records")
)

// _minRecord is the smallest record limit reported by MaxRecord.
const _minRecord = 16

// Channel writes backend output to one up buffer of a control block.
type Channel struct {
	cb   *ControlBlock
	idx  int
	mode Mode
	name string
}

// NewChannel binds up buffer idx of cb as an output channel. A record is
// stored whole or dropped, so only ModeNoBlockSkip is accepted.
func NewChannel(cb *ControlBlock, idx int, mode Mode) (*Channel, error) {
	switch mode {
	case ModeNoBlockSkip:
	case ModeBlockIfFull:
		return nil, ErrBlockingMode
	case ModeNoBlockTrim:
		return nil, ErrTrimMode
	default:
		return nil, fmt.Errorf("rtt channel %d: unknown mode %d", idx, mode)
	}
	if idx < 0 || idx >= len(cb.up) {
		return nil, fmt.Errorf("rtt channel %d: %w", idx, ErrBadIndex)
	}
	return &Channel{
		cb:   cb,
		idx:  idx,
		mode: mode,
		name: fmt.Sprintf("rtt%d", idx),
	}, nil
}

// Write stores p in the up buffer or drops it.
func (c *Channel) Write(p []byte) {
	n := c.cb.WriteNoBlock(c.idx, p)
	if n < len(p) {
		metrics.RecordDrop(c.name)
	}
	if n > 0 {
		metrics.RecordOutput(c.name, n)
	}
}

// Name returns the metrics label of the channel.
func (c *Channel) Name() string {
	return c.name
}

// Index returns the up buffer index the channel writes to.
func (c *Channel) Index() int {
	return c.idx
}

// SingleProducer reports that Write must not be called concurrently. The up
// buffer has one write offset and no lock of its own.
func (c *Channel) SingleProducer() bool {
	return true
}

// MaxRecord returns the longest record the up buffer configured by cfg can
// hold.
func (c *Channel) MaxRecord(cfg *port.BackendCfg) int {
	return max(cfg.UpBufferSize-1, _minRecord)
}

// ControlBlock returns the control block behind the channel.
func (c *Channel) ControlBlock() *ControlBlock {
	return c.cb
}

// Configure sets up the up and down buffers named by cfg. It is the backend
// init side effect for this channel.
func (c *Channel) Configure(cfg *port.BackendCfg) error {
	if cfg.ChannelIndex != c.idx {
		return fmt.Errorf("rtt channel bound to %d, config names %d", c.idx, cfg.ChannelIndex)
	}
	if err := c.cb.ConfigUpBuffer(c.idx, cfg.ChannelName, cfg.UpBufferSize, c.mode); err != nil {
		return err
	}
	return c.cb.ConfigDownBuffer(c.idx, cfg.ChannelName, cfg.DownBufferSize, c.mode)
}

// BackendOptions returns the backend options that make c the active channel.
func (c *Channel) BackendOptions() []port.Option {
	return []port.Option{
		port.WithChannel(c),
		port.WithChannelConfigurer(c.Configure),
	}
}
