// Package records implements the append-only record logs under records/
// (C2): crash-safe tracking of which log files have begun and completed
// extraction, and the corruption check that makes resumability safe.
package records

import (
	"bufio"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dandi/s3logextraction/pkg/apperr"
)

// Log appends lines to a single record file. One Log per record file is
// expected to be shared by every worker goroutine in a process; AppendShared
// takes the advisory lock since several workers append to the *_start.txt
// and *_end.txt files concurrently (spec §5(b)).
type Log struct {
	path          string
	retries       int
	retryDelay    time.Duration
	logger        *logrus.Logger
}

// NewLog builds a Log bound to path, with the advisory-lock retry budget
// from spec §5(b) (240 attempts, 1-second delay) unless overridden.
func NewLog(path string, retries int, retryDelay time.Duration, logger *logrus.Logger) *Log {
	if retries <= 0 {
		retries = 240
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return &Log{path: path, retries: retries, retryDelay: retryDelay, logger: logger}
}

// Path returns the underlying record file path.
func (l *Log) Path() string {
	return l.path
}

// AppendShared appends line+"\n" to the record file under an advisory
// exclusive file lock, retrying on contention up to the configured budget.
// This is the contract multiple worker goroutines use to append the same
// start/end record file without interleaving partial lines.
func (l *Log) AppendShared(line string) error {
	content := line + "\n"

	var lastErr error
	for attempt := 0; attempt < l.retries; attempt++ {
		ok, err := l.tryAppendLocked(content)
		if err != nil {
			lastErr = err
			l.logger.WithFields(logrus.Fields{
				"path":    l.path,
				"attempt": attempt,
				"error":   err,
			}).Debug("record append lock attempt failed")
			time.Sleep(l.retryDelay)
			continue
		}
		if ok {
			return nil
		}
		time.Sleep(l.retryDelay)
	}
	return apperr.New("RECORD_LOCK_EXHAUSTED", "records", "append_shared", "exhausted lock retry budget").
		WithMetadata("path", l.path).Wrap(lastErr)
}

// AppendExclusive appends without taking the advisory lock. Safe only under
// the single-writer-per-source-file discipline the extraction driver
// enforces (one worker owns one log file end to end).
func (l *Log) AppendExclusive(line string) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return apperr.New("RECORD_APPEND_FAILED", "records", "append_exclusive", "could not open record file").
			WithMetadata("path", l.path).Wrap(err)
	}
	defer f.Close()

	if _, err := f.WriteString(line + "\n"); err != nil {
		return apperr.New("RECORD_APPEND_FAILED", "records", "append_exclusive", "could not write record line").
			WithMetadata("path", l.path).Wrap(err)
	}
	return f.Sync()
}

// LoadSet reads every line of the record file into a set. A missing file is
// treated as an empty set, not an error.
func LoadSet(path string) (map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, apperr.New("RECORD_READ_FAILED", "records", "load_set", "could not open record file").
			WithMetadata("path", path).Wrap(err)
	}
	defer f.Close()

	set := map[string]bool{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		set[line] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, apperr.New("RECORD_READ_FAILED", "records", "load_set", "could not scan record file").
			WithMetadata("path", path).Wrap(err)
	}
	return set, nil
}

// CheckCorruption computes start - end (paths begun but never completed).
// A non-empty difference is the RecordCorruption error of spec §7: the
// caller must refuse further work until the operator resets the cache.
func CheckCorruption(startPath, endPath string) (map[string]bool, error) {
	start, err := LoadSet(startPath)
	if err != nil {
		return nil, err
	}
	end, err := LoadSet(endPath)
	if err != nil {
		return nil, err
	}

	diff := map[string]bool{}
	for path := range start {
		if !end[path] {
			diff[path] = true
		}
	}

	if len(diff) > 0 {
		paths := make([]string, 0, len(diff))
		for p := range diff {
			paths = append(paths, p)
		}
		return diff, apperr.RecordCorruptionError("check_corruption",
			"file-processing start/end records disagree; reset the extraction cache").
			WithMetadata("unfinished_files", paths)
	}
	return diff, nil
}
