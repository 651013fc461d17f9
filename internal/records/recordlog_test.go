package records

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/dandi/s3logextraction/pkg/apperr"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestLoadSetMissingFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	set, err := LoadSet(filepath.Join(dir, "missing.txt"))
	require.NoError(t, err)
	require.Empty(t, set)
}

func TestAppendSharedConcurrentWritersPreserveEveryLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Extractor_file-processing-start.txt")
	log := NewLog(path, 240, time.Millisecond, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			require.NoError(t, log.AppendShared(filepath.Join(dir, "file", string(rune('a'+i)))))
		}(i)
	}
	wg.Wait()

	set, err := LoadSet(path)
	require.NoError(t, err)
	require.Len(t, set, 20)
}

func TestCheckCorruptionDetectsUnfinishedFile(t *testing.T) {
	dir := t.TempDir()
	startPath := filepath.Join(dir, "start.txt")
	endPath := filepath.Join(dir, "end.txt")

	logger := testLogger()
	startLog := NewLog(startPath, 240, time.Millisecond, logger)
	endLog := NewLog(endPath, 240, time.Millisecond, logger)

	require.NoError(t, startLog.AppendExclusive("/logs/a.txt"))
	require.NoError(t, startLog.AppendExclusive("/logs/b.txt"))
	require.NoError(t, endLog.AppendExclusive("/logs/a.txt"))

	_, err := CheckCorruption(startPath, endPath)
	require.Error(t, err)

	appErr, ok := apperr.As(err)
	require.True(t, ok)
	require.Equal(t, apperr.CodeRecordCorruption, appErr.Code)
}

func TestCheckCorruptionCleanWhenSetsMatch(t *testing.T) {
	dir := t.TempDir()
	startPath := filepath.Join(dir, "start.txt")
	endPath := filepath.Join(dir, "end.txt")

	logger := testLogger()
	startLog := NewLog(startPath, 240, time.Millisecond, logger)
	endLog := NewLog(endPath, 240, time.Millisecond, logger)

	require.NoError(t, startLog.AppendExclusive("/logs/a.txt"))
	require.NoError(t, endLog.AppendExclusive("/logs/a.txt"))

	diff, err := CheckCorruption(startPath, endPath)
	require.NoError(t, err)
	require.Empty(t, diff)
}
