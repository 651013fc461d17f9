package cryptostore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dandi/s3logextraction/pkg/cryptostore"
)

func TestSaveLoadBytesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index_to_ip.yaml")
	plaintext := []byte("1234: 10.0.0.1\n5678: 10.0.0.2\n")

	require.NoError(t, cryptostore.SaveBytes("correct horse battery staple", path, plaintext))

	got, err := cryptostore.LoadBytes("correct horse battery staple", path)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestLoadBytesMissingFileIsEmptyMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.yaml")
	got, err := cryptostore.LoadBytes("any-password", path)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestLoadBytesWrongPasswordFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index_to_ip.yaml")
	require.NoError(t, cryptostore.SaveBytes("right-password", path, []byte("secret")))

	_, err := cryptostore.LoadBytes("wrong-password", path)
	require.Error(t, err)
}

func TestSaveBytesWritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index_to_ip.yaml")
	require.NoError(t, cryptostore.SaveBytes("password", path, []byte("payload")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no stray temp file should remain after a successful save")
	require.Equal(t, "index_to_ip.yaml", entries[0].Name())
}
