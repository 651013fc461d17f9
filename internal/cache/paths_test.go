package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetCacheRootAndLoadRoundTrip(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)
	t.Setenv("S3LOGEXTRACTION_CACHE", "")

	root := filepath.Join(t.TempDir(), "cache")
	paths, err := SetCacheRoot(root)
	require.NoError(t, err)
	require.DirExists(t, paths.Extraction)

	loaded, err := Load()
	require.NoError(t, err)
	require.Equal(t, root, loaded.Root)
}

func TestEnvOverrideTakesPrecedenceOverPointerFile(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)

	_, err := SetCacheRoot(filepath.Join(t.TempDir(), "pointer-root"))
	require.NoError(t, err)

	envRoot := filepath.Join(t.TempDir(), "env-root")
	t.Setenv("S3LOGEXTRACTION_CACHE", envRoot)

	loaded, err := Load()
	require.NoError(t, err)
	require.Equal(t, envRoot, loaded.Root)
}

func TestResetExtractionRemovesMirrorAndRecordsOnly(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)
	t.Setenv("S3LOGEXTRACTION_CACHE", filepath.Join(t.TempDir(), "cache"))

	paths, err := Load()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(paths.Extraction, "marker.txt"), []byte("x"), 0o644))
	startRecord := filepath.Join(paths.Records, "Extractor_file-processing-start.txt")
	require.NoError(t, os.WriteFile(startRecord, []byte("a\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(paths.IPs, "index_to_ip.yaml"), []byte("x"), 0o644))

	require.NoError(t, paths.Reset(SubtreeExtraction))

	require.NoFileExists(t, filepath.Join(paths.Extraction, "marker.txt"))
	require.NoFileExists(t, startRecord)
	require.FileExists(t, filepath.Join(paths.IPs, "index_to_ip.yaml"))
}

func TestResetUnknownSubtreeFails(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)
	t.Setenv("S3LOGEXTRACTION_CACHE", filepath.Join(t.TempDir(), "cache"))

	paths, err := Load()
	require.NoError(t, err)
	require.Error(t, paths.Reset("bogus"))
}
