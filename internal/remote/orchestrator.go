package remote

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dandi/s3logextraction/internal/extract"
	"github.com/dandi/s3logextraction/pkg/apperr"
	"github.com/dandi/s3logextraction/pkg/workerpool"
)

// Orchestrator is the remote fetch orchestrator (C8): it discovers unfetched
// remote dates, downloads each day's logs to a scratch directory, drives C5
// over that directory, and advances the Y/M/D progress records.
type Orchestrator struct {
	Client       S3Client
	Bucket       string
	RecordsDir   string
	TmpDir       string
	Driver       *extract.Driver
	DateLimit    int
	FetchWorkers int
	Manifest     map[string][]string
	Logger       *logrus.Logger
}

// Run executes one full orchestrator pass (spec §4.8).
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := VerifyCredentials(); err != nil {
		return err
	}

	progress, err := LoadProgress(o.RecordsDir)
	if err != nil {
		return err
	}

	discovered, touchedMonths, err := discoverDates(ctx, o.Client, o.Bucket, progress, o.Manifest)
	if err != nil {
		return err
	}
	toProcess := applyFlushBufferAndLimit(discovered, o.DateLimit)

	o.Logger.WithFields(logrus.Fields{"candidate_dates": len(toProcess)}).Info("remote fetch orchestrator starting")

	for _, d := range toProcess {
		if err := o.processDate(ctx, d, progress); err != nil {
			if appErr, ok := apperr.As(err); ok && appErr.Code == apperr.CodeManifestMismatch {
				o.Logger.WithFields(appErr.Fields()).Warn("skipping date with no remote objects")
				continue
			}
			return err
		}
	}

	return progress.AggregateAndPersist(touchedMonths)
}

func (o *Orchestrator) processDate(ctx context.Context, d discoveredDate, progress *ProgressRecords) error {
	dayDir := filepath.Join(o.TmpDir, "remote-"+d.date)
	if err := os.MkdirAll(dayDir, 0o755); err != nil {
		return apperr.New("REMOTE_FETCH_FAILED", "remote", "process_date", "could not create day scratch directory").
			WithMetadata("date", d.date).Wrap(err)
	}
	defer os.RemoveAll(dayDir)

	keys, err := o.keysForDate(ctx, d)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return apperr.ManifestMismatchError("process_date", "no remote objects found for date").
			WithMetadata("date", d.date)
	}

	tasks := make([]workerpool.Task, len(keys))
	for i, key := range keys {
		k := key
		destPath := filepath.Join(dayDir, filepath.Base(k))
		tasks[i] = workerpool.Task{
			ID: k,
			Execute: func(ctx context.Context) error {
				return o.Client.Download(ctx, o.Bucket, k, destPath)
			},
		}
	}
	results, _ := workerpool.Run(ctx, o.FetchWorkers, tasks, o.Logger)
	for _, err := range results {
		if err != nil {
			return err
		}
	}

	if err := o.Driver.ExtractDirectory(dayDir, 0, o.FetchWorkers); err != nil {
		return err
	}

	return progress.RecordDate(d.date)
}

func (o *Orchestrator) keysForDate(ctx context.Context, d discoveredDate) ([]string, error) {
	if d.kind == downloadManifest {
		return o.Manifest[d.date], nil
	}

	parts := strings.SplitN(d.date, "-", 3)
	if len(parts) != 3 {
		return nil, apperr.New("REMOTE_FETCH_FAILED", "remote", "keys_for_date", "malformed date").
			WithMetadata("date", d.date)
	}
	prefix := parts[0] + "/" + parts[1] + "/" + parts[2] + "/"
	return o.Client.ListObjectKeys(ctx, o.Bucket, prefix)
}
