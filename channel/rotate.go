package channel

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultFileMode = 0o644
	defaultDirMode  = 0o755

	secondsPerDay = 24 * 60 * 60
)

// rotator owns the current capture file and replaces it when it grows past
// splitMB or crosses splitHour.
type rotator struct {
	path       string
	splitMB    int
	splitHour  int
	fd         *os.File
	createTime time.Time
}

// file returns a descriptor ready for the next write, rotating first when
// needed.
func (r *rotator) file(now time.Time) (*os.File, error) {
	if len(r.path) == 0 {
		return nil, errors.New("filename is empty")
	}

	rotate, err := r.shouldRotate(now)
	if err != nil {
		return nil, fmt.Errorf("check rotation: %w", err)
	}
	if !rotate {
		return r.fd, nil
	}

	fd, createTime, err := openCaptureFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("open new capture file: %w", err)
	}
	r.fd, r.createTime = fd, createTime
	return fd, nil
}

func (r *rotator) shouldRotate(now time.Time) (bool, error) {
	if r.fd == nil {
		return true, nil
	}

	fi, err := os.Stat(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			// moved away underneath us
			_ = r.fd.Close()
			r.fd = nil
			return true, nil
		}
		return false, fmt.Errorf("stat file: %w", err)
	}

	if shouldRotateByTime(r.createTime, now, r.splitHour) || shouldRotateBySize(fi.Size(), r.splitMB) {
		if err := r.moveAside(now); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func (r *rotator) moveAside(now time.Time) error {
	if r.fd != nil {
		if err := r.fd.Close(); err != nil {
			return fmt.Errorf("close old file: %w", err)
		}
		r.fd = nil
	}

	backup, err := backupFileName(r.path, now)
	if err != nil {
		return fmt.Errorf("generate backup filename: %w", err)
	}
	if err := os.Rename(r.path, backup); err != nil {
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}

func (r *rotator) close() error {
	if r.fd == nil {
		return nil
	}
	err := r.fd.Close()
	r.fd = nil
	return err
}

// shouldRotateByTime reports whether now has crossed splitHour since the file
// was created, or a whole day has passed. splitHour 0 disables it.
func shouldRotateByTime(createTime, now time.Time, splitHour int) bool {
	if splitHour == 0 {
		return false
	}
	if createTime.Unix()+secondsPerDay <= now.Unix() {
		return true
	}
	if createTime.Day() == now.Day() {
		return now.Hour() >= splitHour && createTime.Hour() < splitHour
	}
	return now.Hour() >= splitHour
}

// shouldRotateBySize reports whether size reached splitMB. splitMB 0
// disables it.
func shouldRotateBySize(size int64, splitMB int) bool {
	if splitMB == 0 {
		return false
	}
	return size >= int64(splitMB)<<20
}

// backupFileName returns path with a timestamp suffix that does not exist yet.
func backupFileName(path string, now time.Time) (string, error) {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)

	for i := 0; i < 5; i++ {
		ts := now.Add(time.Duration(i) * time.Second)
		candidate := fmt.Sprintf("%s%s.%s", base, ext, ts.Format("20060102-150405"))
		if _, err := os.Stat(candidate); err != nil {
			if os.IsNotExist(err) {
				return candidate, nil
			}
			return "", fmt.Errorf("stat file: %w", err)
		}
	}
	return "", errors.New("cannot generate unique backup filename")
}

func openCaptureFile(path string) (*os.File, time.Time, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, defaultDirMode); err != nil {
			return nil, time.Time{}, fmt.Errorf("create directory: %w", err)
		}
	}

	fd, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, defaultFileMode)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("open file: %w", err)
	}

	// creation time is not portable; a freshly opened file has a recent
	// mtime, an appended-to one keeps the time of its last write
	fi, err := fd.Stat()
	if err != nil {
		fd.Close()
		return nil, time.Time{}, fmt.Errorf("stat new file: %w", err)
	}
	return fd, fi.ModTime(), nil
}
