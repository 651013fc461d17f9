package remote_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/dandi/s3logextraction/internal/cache"
	"github.com/dandi/s3logextraction/internal/extract"
	"github.com/dandi/s3logextraction/internal/remote"
)

// fakeS3Client serves a small in-memory nested object tree for discovery and
// fetch tests, standing in for the AWS SDK client.
type fakeS3Client struct {
	objects map[string][]byte // key -> content
}

func (f *fakeS3Client) ListCommonPrefixes(ctx context.Context, bucket, prefix string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for key := range f.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		idx := strings.IndexByte(rest, '/')
		if idx < 0 {
			continue
		}
		name := rest[:idx]
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeS3Client) ListObjectKeys(ctx context.Context, bucket, prefix string) ([]string, error) {
	var out []string
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeS3Client) Download(ctx context.Context, bucket, key, destPath string) error {
	content, ok := f.objects[key]
	if !ok {
		return fmt.Errorf("no such object: %s", key)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(destPath, content, 0o644)
}

const sampleRemoteLogLine = `dandiarchive-logs dandiarchive [02/Jan/2024:10:30:00 +0000] 203.0.113.5 arn:aws:iam::123456789012:user/example ABCDEF1234567890 REST.GET.OBJECT blobs/abc/def/abcdef1234567890 "GET /blobs/abc/def/abcdef1234567890 HTTP/1.1" 200 - 1024 512 20 20 "-" "aws-cli/2.0" - host/header s3.amazonaws.com TLSv1.2 - -`

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.NewFile(0, os.DevNull))
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestOrchestratorFetchesExtractsAndRecordsProgress(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test-secret")

	root := t.TempDir()
	paths, err := cache.SetCacheRoot(root)
	require.NoError(t, err)

	client := &fakeS3Client{objects: map[string][]byte{
		"2024/01/02/2024-01-02-10-30-00-ABCDEF01": []byte(sampleRemoteLogLine + "\n"),
		"2024/01/03/2024-01-03-10-30-00-ABCDEF02": []byte(strings.Replace(sampleRemoteLogLine, "02/Jan/2024", "03/Jan/2024", 1) + "\n"),
		"2024/01/04/2024-01-04-10-30-00-ABCDEF03": []byte(sampleRemoteLogLine + "\n"),
		"2024/01/05/2024-01-05-10-30-00-ABCDEF04": []byte(sampleRemoteLogLine + "\n"),
	}}

	driver, err := extract.NewDriver(paths, extract.ModeGeneric, nil, 5, 0, silentLogger())
	require.NoError(t, err)

	orchestrator := &remote.Orchestrator{
		Client:       client,
		Bucket:       "dandiarchive-logs",
		RecordsDir:   paths.Records,
		TmpDir:       paths.Tmp,
		Driver:       driver,
		FetchWorkers: 2,
		Logger:       silentLogger(),
	}

	require.NoError(t, orchestrator.Run(context.Background()))

	// The two most recent dates (01-04, 01-05) are held back by the AWS
	// flush buffer, so only 01-02 and 01-03 should be processed.
	progress, err := remote.LoadProgress(paths.Records)
	require.NoError(t, err)
	require.True(t, progress.Dates["2024-01-02"])
	require.True(t, progress.Dates["2024-01-03"])
	require.False(t, progress.Dates["2024-01-04"])
	require.False(t, progress.Dates["2024-01-05"])

	mirrored := filepath.Join(paths.Extraction, "blobs/abc/def/abcdef1234567890", "timestamps.txt")
	data, err := os.ReadFile(mirrored)
	require.NoError(t, err)
	require.Equal(t, "240102103000\n240103103000\n", string(data))
}

func TestVerifyCredentialsPassesWithEnvironmentVariables(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test-secret")
	require.NoError(t, remote.VerifyCredentials())
}
