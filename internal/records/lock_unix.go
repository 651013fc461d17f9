//go:build !windows

package records

import (
	"os"

	"golang.org/x/sys/unix"
)

// tryAppendLocked opens the record file, attempts a non-blocking exclusive
// flock, and — on success — appends content before releasing the lock. It
// reports (false, nil) on lock contention so the caller can retry with
// backoff, matching the fcntl/flock retry loop this is grounded on.
func (l *Log) tryAppendLocked(content string) (bool, error) {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		if err == unix.EWOULDBLOCK || err == unix.EAGAIN {
			return false, nil
		}
		return false, err
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	if _, err := f.WriteString(content); err != nil {
		return false, err
	}
	return true, f.Sync()
}
