// Package file provides advisory file locks so that a capture file has a
// single owning process.
package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"

	"github.com/linchenxuan/elogport/elog"
)

var (
	// ErrFileNotExist is returned when a file does not exist.
	ErrFileNotExist = errors.New("file not exist")
	// ErrLocked is returned when another process holds the lock.
	ErrLocked = errors.New("file locked by another process")
	// _fileMode is the default file mode for creating lock files (read/write for owner).
	_fileMode fs.FileMode = 0o600
)

// FileLock is a non-blocking flock on Path.
type FileLock struct {
	Path string   // Path is the path to the file to be locked.
	File *os.File // File is the file handle used for the lock.
}

// NewFileLock creates a new FileLock instance for the given path.
func NewFileLock(p string) *FileLock {
	return &FileLock{
		Path: p,
	}
}

// IsLock reports whether another process holds the lock on p. It releases
// any lock it takes before returning.
func IsLock(p string) bool {
	fl := NewFileLock(p)
	if err := fl.Lock(); err != nil {
		return true
	}
	_ = fl.Unlock()
	return false
}

// Lock takes an exclusive lock, creating the file if needed. It does not
// wait: a held lock yields ErrLocked.
func (l *FileLock) Lock() error {
	f, err := os.OpenFile(l.Path, os.O_RDWR|os.O_CREATE, _fileMode)
	if err != nil {
		return err
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		if err2 := f.Close(); err2 != nil {
			elog.Error().Err(err2).Str("path", l.Path).Msg("close lock file")
		}
		return fmt.Errorf("%s: %w", l.Path, ErrLocked)
	}
	l.File = f
	elog.Debug().Str("path", l.Path).Msg("file lock acquired")
	return nil
}

// Unlock releases the lock and closes the handle.
func (l *FileLock) Unlock() error {
	if l.File == nil {
		return nil
	}
	defer func() {
		_ = l.File.Close()
		l.File = nil
	}()
	return syscall.Flock(int(l.File.Fd()), syscall.LOCK_UN)
}

// RLock takes a shared lock on an existing file without waiting.
func (l *FileLock) RLock() error {
	if _, err := os.Stat(l.Path); err != nil {
		if os.IsNotExist(err) {
			return ErrFileNotExist
		}
		return err
	}

	f, err := os.OpenFile(l.Path, os.O_RDONLY, _fileMode)
	if err != nil {
		return err
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_SH|syscall.LOCK_NB); err != nil {
		if err2 := f.Close(); err2 != nil {
			elog.Error().Err(err2).Str("path", l.Path).Msg("close lock file")
		}
		return fmt.Errorf("%s: %w", l.Path, ErrLocked)
	}
	l.File = f
	return nil
}

// RUnlock releases a shared lock and closes the handle.
func (l *FileLock) RUnlock() error {
	return l.Unlock()
}
