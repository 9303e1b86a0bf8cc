// Package channel provides output channels beyond the built-in console and
// probe channels, and the plugin factories that build every channel kind from
// configuration.
package channel

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/linchenxuan/elogport/elog"
	"github.com/linchenxuan/elogport/metrics"
	"github.com/linchenxuan/elogport/utils/file"
	"github.com/linchenxuan/elogport/utils/pool"
)

const (
	// _bytesPerIOWrite caps one batched write to the capture file.
	_bytesPerIOWrite = 1 << 20
)

// ErrClosed is returned by Flush on a closed channel.
var ErrClosed = errors.New("channel closed")

// FileCfg configures a FileChannel.
type FileCfg struct {
	// Tag names the plugin instance.
	Tag string `mapstructure:"tag"`

	// Path is the capture file. Parent directories are created.
	Path string `mapstructure:"path"`

	// SplitMB rotates the file once it reaches this size. Zero disables it.
	SplitMB int `mapstructure:"splitMB"`

	// SplitHour rotates the file at this hour of day (1-23). Zero disables it.
	SplitHour int `mapstructure:"splitHour"`

	// QueueSize bounds the records waiting for the writer goroutine. Records
	// arriving at a full queue are dropped.
	QueueSize int `mapstructure:"queueSize"`

	// FlushMillSec is the interval of batched writes.
	FlushMillSec int `mapstructure:"flushMillSec"`

	// Framed writes each record length-delimited so ReadFrames can split it.
	Framed bool `mapstructure:"framed"`

	// Exclusive takes an advisory lock on Path+".lock" for the channel life.
	Exclusive bool `mapstructure:"exclusive"`
}

// Validate applies defaults and checks ranges.
func (cfg *FileCfg) Validate() error {
	if cfg.Path == "" {
		cfg.Path = "./elog.capture"
	}
	if cfg.SplitMB < 0 || cfg.SplitMB > 1024 {
		return fmt.Errorf("file split size must be between 0MB and 1024MB, got %dMB", cfg.SplitMB)
	}
	if cfg.SplitHour < 0 || cfg.SplitHour > 23 {
		return fmt.Errorf("file split hour must be between 0 and 23, got %d", cfg.SplitHour)
	}
	if cfg.QueueSize < 0 {
		return fmt.Errorf("queue size must be non-negative, got %d", cfg.QueueSize)
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 1024
	}
	if cfg.FlushMillSec == 0 {
		cfg.FlushMillSec = 200
	}
	if cfg.FlushMillSec < 10 {
		return fmt.Errorf("flush interval must be at least 10ms, got %dms", cfg.FlushMillSec)
	}
	return nil
}

// FileChannel writes output to a capture file from a background goroutine.
// Write copies the record into a pooled buffer and queues it; when the queue
// is full the record is dropped, so Write never waits on disk I/O.
type FileChannel struct {
	cfg     FileCfg
	name    string
	rot     rotator
	lock    *file.FileLock
	bufChan chan *bytes.Buffer
	ntfChan chan chan error
	done    chan struct{}
	closed  atomic.Bool
	batch   *bytes.Buffer
	pool    *pool.Pool[*bytes.Buffer]
	wg      sync.WaitGroup
	closeMu sync.Mutex
}

// NewFileChannel validates cfg, opens the capture file and starts the writer.
func NewFileChannel(cfg FileCfg) (*FileChannel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &FileChannel{
		cfg:  cfg,
		name: "file",
		rot: rotator{
			path:      cfg.Path,
			splitMB:   cfg.SplitMB,
			splitHour: cfg.SplitHour,
		},
		bufChan: make(chan *bytes.Buffer, cfg.QueueSize),
		ntfChan: make(chan chan error),
		done:    make(chan struct{}),
		batch:   bytes.NewBuffer(make([]byte, 0, _bytesPerIOWrite)),
		pool: pool.New("file.record", func() *bytes.Buffer {
			return &bytes.Buffer{}
		}),
	}
	if cfg.Tag != "" {
		c.name = "file:" + cfg.Tag
	}

	if cfg.Exclusive {
		c.lock = file.NewFileLock(cfg.Path + ".lock")
		if err := c.lock.Lock(); err != nil {
			return nil, fmt.Errorf("lock capture file: %w", err)
		}
	}

	// open eagerly so a bad path fails here, not silently in the writer
	if _, err := c.rot.file(time.Now()); err != nil {
		if c.lock != nil {
			_ = c.lock.Unlock()
		}
		return nil, err
	}

	c.wg.Add(1)
	go c.writeLoop()
	return c, nil
}

// Name returns the metrics label of the channel.
func (c *FileChannel) Name() string {
	return c.name
}

// FactoryName reports the factory that builds file channels.
func (c *FileChannel) FactoryName() string {
	return FileFactoryName
}

// Write queues p, or drops it when the queue is full or the channel closed.
func (c *FileChannel) Write(p []byte) {
	if c.closed.Load() || len(p) == 0 {
		return
	}
	buf := c.pool.Get()
	buf.Reset()
	if c.cfg.Framed {
		appendFrame(buf, p)
	} else {
		buf.Write(p)
	}

	select {
	case c.bufChan <- buf:
		metrics.RecordOutput(c.name, len(p))
	default:
		c.pool.Put(buf)
		metrics.RecordDrop(c.name)
	}
}

// Flush blocks until every record queued before the call is on disk.
func (c *FileChannel) Flush() error {
	if c.closed.Load() {
		return ErrClosed
	}
	res := make(chan error, 1)
	select {
	case c.ntfChan <- res:
		return <-res
	case <-c.done:
		return ErrClosed
	}
}

// Close flushes pending records, stops the writer and closes the file.
// Records written after Close are dropped.
func (c *FileChannel) Close() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed.Swap(true) {
		return nil
	}
	close(c.done)
	c.wg.Wait()

	err := c.rot.close()
	if c.lock != nil {
		if uerr := c.lock.Unlock(); uerr != nil && err == nil {
			err = uerr
		}
	}
	return err
}

func (c *FileChannel) writeLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(time.Duration(c.cfg.FlushMillSec) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case res := <-c.ntfChan:
			err := c.writeAll()
			if err == nil && c.rot.fd != nil {
				err = c.rot.fd.Sync()
			}
			res <- err
		case <-ticker.C:
			if err := c.writeAll(); err != nil {
				elog.Warn().Err(err).Str("path", c.cfg.Path).Msg("capture write failed")
			}
		case <-c.done:
			if err := c.writeAll(); err != nil {
				elog.Warn().Err(err).Str("path", c.cfg.Path).Msg("capture final write failed")
			}
			return
		}
	}
}

// writeAll drains the queue into batches of at most _bytesPerIOWrite.
func (c *FileChannel) writeAll() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for {
		select {
		case buf := <-c.bufChan:
			if c.batch.Len() > 0 && c.batch.Len()+buf.Len() > _bytesPerIOWrite {
				keep(c.writeBatch())
			}
			c.batch.Write(buf.Bytes())
			buf.Reset()
			c.pool.Put(buf)
		default:
			if c.batch.Len() > 0 {
				keep(c.writeBatch())
			}
			return firstErr
		}
	}
}

func (c *FileChannel) writeBatch() error {
	defer c.batch.Reset()
	fd, err := c.rot.file(time.Now())
	if err != nil {
		metrics.RecordDrop(c.name)
		return err
	}
	if _, err := fd.Write(c.batch.Bytes()); err != nil {
		metrics.RecordDrop(c.name)
		return fmt.Errorf("write capture: %w", err)
	}
	return nil
}
