package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dandi/s3logextraction/internal/cache"
	"github.com/dandi/s3logextraction/internal/records"
	"github.com/dandi/s3logextraction/pkg/apperr"
	"github.com/dandi/s3logextraction/pkg/naturalsort"
	"github.com/dandi/s3logextraction/pkg/workerpool"
)

// logObjectPattern matches raw S3 log object names: seven hyphen-separated
// hex segments (spec §4.5).
var logObjectPattern = regexp.MustCompile(`^[0-9A-Fa-f]+(-[0-9A-Fa-f]+){6}$`)

// className names the record-log files the way the source implementation
// names them after its extractor class.
func className(mode Mode) string {
	if mode == ModeDANDI {
		return "DandiS3LogAccessExtractor"
	}
	return "S3LogAccessExtractor"
}

// Driver is the extraction driver (C5): it discovers candidate log files,
// dispatches them to workers, honors the stop sentinel, and writes record
// logs. One Driver instance is constructed per (cache, mode) pair.
type Driver struct {
	Paths       cache.Paths
	Mode        Mode
	SkipIPs     *regexp.Regexp
	LockRetries int
	LockDelay   time.Duration
	Logger      *logrus.Logger

	startLog *records.Log
	endLog   *records.Log
}

// NewDriver constructs a Driver and performs the startup corruption check
// (spec §4.2): a non-empty start-minus-end difference is fatal.
func NewDriver(paths cache.Paths, mode Mode, skipIPs *regexp.Regexp, lockRetries int, lockDelay time.Duration, logger *logrus.Logger) (*Driver, error) {
	name := className(mode)
	startPath := filepath.Join(paths.Records, name+"_file-processing-start.txt")
	endPath := filepath.Join(paths.Records, name+"_file-processing-end.txt")

	if _, err := records.CheckCorruption(startPath, endPath); err != nil {
		return nil, err
	}

	return &Driver{
		Paths:       paths,
		Mode:        mode,
		SkipIPs:     skipIPs,
		LockRetries: lockRetries,
		LockDelay:   lockDelay,
		Logger:      logger,
		startLog:    records.NewLog(startPath, lockRetries, lockDelay, logger),
		endLog:      records.NewLog(endPath, lockRetries, lockDelay, logger),
	}, nil
}

// ExtractFile runs C3+C4 over a single log file, honoring the stop sentinel
// and the end-record skip-if-already-processed check.
func (d *Driver) ExtractFile(logPath string) error {
	if _, err := os.Stat(d.Paths.StopSentinelPath()); err == nil {
		return nil
	}

	absPath, err := filepath.Abs(logPath)
	if err != nil {
		return apperr.ExtractionFailedError("extract_file", "could not resolve absolute path", logPath, err)
	}

	endRecord, err := records.LoadSet(d.endLog.Path())
	if err != nil {
		return err
	}
	if endRecord[absPath] {
		return nil
	}

	if err := d.startLog.AppendShared(absPath); err != nil {
		return err
	}

	tmpDir, err := os.MkdirTemp(d.Paths.Tmp, fmt.Sprintf("%d-", os.Getpid()))
	if err != nil {
		return apperr.ExtractionFailedError("extract_file", "could not create worker temp directory", logPath, err)
	}
	defer os.RemoveAll(tmpDir)

	hasRecords, err := ExtractFile(absPath, tmpDir, d.Mode, d.SkipIPs)
	if err != nil {
		return err
	}

	if hasRecords {
		if err := WriteMirror(tmpDir, d.Paths.Extraction); err != nil {
			return err
		}
	}

	return d.endLog.AppendShared(absPath)
}

// ExtractDirectory discovers candidate log files under dir, subtracts
// already-processed files, optionally truncates to limit, and dispatches
// the remainder across a bounded worker pool in deterministic natural-sort
// order (spec §4.5).
func (d *Driver) ExtractDirectory(dir string, limit int, workers int) error {
	candidates, err := discoverLogFiles(dir)
	if err != nil {
		return err
	}
	naturalsort.Strings(candidates)

	endRecord, err := records.LoadSet(d.endLog.Path())
	if err != nil {
		return err
	}

	var toProcess []string
	for _, path := range candidates {
		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		if endRecord[abs] {
			continue
		}
		toProcess = append(toProcess, path)
	}

	if limit > 0 && limit < len(toProcess) {
		toProcess = toProcess[:limit]
	}

	resolvedWorkers := workerpool.ResolveCount(workers, runtime.NumCPU(), runtime.GOOS)

	tasks := make([]workerpool.Task, len(toProcess))
	for i, path := range toProcess {
		p := path
		tasks[i] = workerpool.Task{
			ID:      p,
			Execute: func(ctx context.Context) error { return d.ExtractFile(p) },
		}
	}

	results, stats := workerpool.Run(context.Background(), resolvedWorkers, tasks, d.Logger)
	d.Logger.WithFields(logrus.Fields{
		"total":     stats.Total,
		"completed": stats.Completed,
		"failed":    stats.Failed,
	}).Info("extraction pass complete")

	for _, err := range results {
		if err != nil {
			return err
		}
	}
	return nil
}

// discoverLogFiles recursively globs dir for S3 log object names.
func discoverLogFiles(dir string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if logObjectPattern.MatchString(d.Name()) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.ExtractionFailedError("extract_directory", "could not walk input directory", dir, err)
	}
	sort.Strings(found)
	return found, nil
}
