package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseModeAcceptsKnownValues(t *testing.T) {
	m, ok := ParseMode("dandi")
	assert.True(t, ok)
	assert.Equal(t, ModeDANDI, m)

	m, ok = ParseMode("")
	assert.True(t, ok)
	assert.Equal(t, ModeGeneric, m)

	_, ok = ParseMode("bogus")
	assert.False(t, ok)
}

func TestNormalizeKeyGenericPassesThrough(t *testing.T) {
	key, ok := NormalizeKey(ModeGeneric, "blobs/whatever/deep/path/abcdef1234567890")
	assert.True(t, ok)
	assert.Equal(t, "blobs/whatever/deep/path/abcdef1234567890", key)
}

func TestNormalizeKeyDANDIFoldsBlobKey(t *testing.T) {
	key, ok := NormalizeKey(ModeDANDI, "blobs/abc/def/abcdef1234567890")
	assert.True(t, ok)
	assert.Equal(t, "blobs/abc/def/abcdef1234567890", key)
}

func TestNormalizeKeyDANDIFoldsDeeplyNestedBlobKey(t *testing.T) {
	key, ok := NormalizeKey(ModeDANDI, "blobs/some/nested/prefix/abcdef1234567890abcdef/extra")
	assert.True(t, ok)
	assert.Equal(t, "blobs/abc/def/abcdef1234567890abcdef", key)
}

func TestNormalizeKeyDANDITruncatesZarrKey(t *testing.T) {
	key, ok := NormalizeKey(ModeDANDI, "zarr/0123456789abcdef/0/1/2")
	assert.True(t, ok)
	assert.Equal(t, "zarr/0123456789abcdef", key)
}

func TestNormalizeKeyDANDIDropsUnrecognizedPrefix(t *testing.T) {
	_, ok := NormalizeKey(ModeDANDI, "other/something")
	assert.False(t, ok)
}

func TestNormalizeKeyDANDIRejectsShortHash(t *testing.T) {
	_, ok := NormalizeKey(ModeDANDI, "blobs/ab/cd")
	assert.False(t, ok)
}
