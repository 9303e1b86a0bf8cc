package port

import (
	"io"
	"os"

	"github.com/linchenxuan/elogport/metrics"
)

// OutputChannel is the sink the backend writes formatted log bytes to.
//
// Write must deliver p unmodified or drop it entirely; it must never block the
// caller and has no way to report failure. Saturation is the channel's problem,
// not the logging caller's.
type OutputChannel interface {
	Write(p []byte)
}

// NamedChannel is implemented by channels that label their metrics.
type NamedChannel interface {
	OutputChannel
	Name() string
}

// NopChannel is the channel used when no output channel is configured.
type NopChannel struct{}

// Write discards p.
func (NopChannel) Write([]byte) {}

// Name returns "nop".
func (NopChannel) Name() string { return "nop" }

// WriterChannel forwards output to an io.Writer, stdout unless told otherwise.
// Writer errors are counted and swallowed.
type WriterChannel struct {
	w    io.Writer
	name string
}

// NewWriterChannel wraps w. A nil w means os.Stdout.
func NewWriterChannel(name string, w io.Writer) *WriterChannel {
	if w == nil {
		w = os.Stdout
	}
	if name == "" {
		name = "console"
	}
	return &WriterChannel{w: w, name: name}
}

// NewConsoleChannel returns a WriterChannel on stdout.
func NewConsoleChannel() *WriterChannel {
	return NewWriterChannel("console", os.Stdout)
}

// Write forwards p to the wrapped writer.
func (c *WriterChannel) Write(p []byte) {
	n, err := c.w.Write(p)
	if err != nil || n != len(p) {
		metrics.RecordDrop(c.name)
		return
	}
	metrics.RecordOutput(c.name, n)
}

// Name returns the metrics label of the channel.
func (c *WriterChannel) Name() string {
	return c.name
}
