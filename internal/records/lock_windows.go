//go:build windows

package records

import (
	"os"

	"golang.org/x/sys/windows"
)

// tryAppendLocked mirrors lock_unix.go's contract using LockFileEx, matching
// the source implementation's msvcrt-based Windows locking path.
func (l *Log) tryAppendLocked(content string) (bool, error) {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, err
	}
	defer f.Close()

	overlapped := new(windows.Overlapped)
	handle := windows.Handle(f.Fd())
	err = windows.LockFileEx(handle, windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY, 0, 1, 0, overlapped)
	if err != nil {
		if err == windows.ERROR_LOCK_VIOLATION {
			return false, nil
		}
		return false, err
	}
	defer windows.UnlockFileEx(handle, 0, 1, 0, overlapped)

	if _, err := f.WriteString(content); err != nil {
		return false, err
	}
	return true, f.Sync()
}
