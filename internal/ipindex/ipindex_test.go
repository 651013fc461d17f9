package ipindex_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"github.com/dandi/s3logextraction/internal/ipindex"
	"github.com/dandi/s3logextraction/pkg/cryptostore"
)

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.NewFile(0, os.DevNull))
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func writeFullIPs(t *testing.T, extractionDir, key string, ips ...string) {
	t.Helper()
	dir := filepath.Join(extractionDir, key)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := ""
	for _, ip := range ips {
		content += ip + "\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "full_ips.txt"), []byte(content), 0o644))
}

func TestRunAssignsDistinctIndicesAndPersistsEncryptedMap(t *testing.T) {
	extractionDir := t.TempDir()
	ipsCacheDir := t.TempDir()
	writeFullIPs(t, extractionDir, "blobs/aaa/bbb/aaabbb0000000000", "10.0.0.1", "10.0.0.2", "10.0.0.1")

	indexer := ipindex.NewIndexer(extractionDir, ipsCacheDir, "password", 0, 0, 0, silentLogger())
	require.NoError(t, indexer.Run())

	indexedPath := filepath.Join(extractionDir, "blobs/aaa/bbb/aaabbb0000000000", "indexed_ips.txt")
	data, err := os.ReadFile(indexedPath)
	require.NoError(t, err)

	lines := splitNonEmpty(string(data))
	require.Len(t, lines, 3)
	require.Equal(t, lines[0], lines[2], "repeated IP must reuse the same index")
	require.NotEqual(t, lines[0], lines[1], "distinct IPs must receive distinct indices")

	cacheData, err := cryptostore.LoadBytes("password", filepath.Join(ipsCacheDir, "index_to_ip.yaml"))
	require.NoError(t, err)

	var indexToIP map[uint64]string
	require.NoError(t, yaml.Unmarshal(cacheData, &indexToIP))
	require.Len(t, indexToIP, 2)
}

func TestRunReusesExistingIndexOnRerunWithNewEntry(t *testing.T) {
	extractionDir := t.TempDir()
	ipsCacheDir := t.TempDir()
	writeFullIPs(t, extractionDir, "blobs/aaa/bbb/aaabbb0000000001", "10.0.0.1", "10.0.0.2")

	indexer := ipindex.NewIndexer(extractionDir, ipsCacheDir, "password", 0, 0, 0, silentLogger())
	require.NoError(t, indexer.Run())

	firstPath := filepath.Join(extractionDir, "blobs/aaa/bbb/aaabbb0000000001", "indexed_ips.txt")
	firstData, err := os.ReadFile(firstPath)
	require.NoError(t, err)
	firstLines := splitNonEmpty(string(firstData))

	writeFullIPs(t, extractionDir, "blobs/ccc/ddd/cccddd0000000002", "10.0.0.1")

	indexer2 := ipindex.NewIndexer(extractionDir, ipsCacheDir, "password", 0, 0, 0, silentLogger())
	require.NoError(t, indexer2.Run())

	secondPath := filepath.Join(extractionDir, "blobs/ccc/ddd/cccddd0000000002", "indexed_ips.txt")
	secondData, err := os.ReadFile(secondPath)
	require.NoError(t, err)
	secondLines := splitNonEmpty(string(secondData))

	require.Equal(t, firstLines[0], secondLines[0], "re-run must reuse 10.0.0.1's existing index rather than allocate a new one")
}

func TestRunSkipsDirectoryAlreadyUpToDate(t *testing.T) {
	extractionDir := t.TempDir()
	ipsCacheDir := t.TempDir()
	key := "blobs/eee/fff/eeefff0000000003"
	writeFullIPs(t, extractionDir, key, "10.0.0.1")

	indexer := ipindex.NewIndexer(extractionDir, ipsCacheDir, "password", 0, 0, 0, silentLogger())
	require.NoError(t, indexer.Run())

	indexedPath := filepath.Join(extractionDir, key, "indexed_ips.txt")
	before, err := os.Stat(indexedPath)
	require.NoError(t, err)

	require.NoError(t, indexer.Run())

	after, err := os.Stat(indexedPath)
	require.NoError(t, err)
	require.Equal(t, before.ModTime(), after.ModTime(), "indexed_ips.txt newer than full_ips.txt must not be rewritten")
}

func splitNonEmpty(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
