package naturalsort

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringsOrdersDigitRunsNumerically(t *testing.T) {
	in := []string{"file-10", "file-2", "file-1", "file-20"}
	Strings(in)
	require.Equal(t, []string{"file-1", "file-2", "file-10", "file-20"}, in)
}

func TestLessFallsBackToByteCompareOutsideDigitRuns(t *testing.T) {
	require.True(t, Less("abc-1", "abd-1"))
	require.False(t, Less("abd-1", "abc-1"))
}

func TestLessHandlesLogObjectNames(t *testing.T) {
	names := []string{
		"2024-11-14-12-00-00-aaaaaaaa",
		"2024-11-14-09-00-00-bbbbbbbb",
		"2024-11-14-10-00-00-cccccccc",
	}
	Strings(names)
	require.Equal(t, []string{
		"2024-11-14-09-00-00-bbbbbbbb",
		"2024-11-14-10-00-00-cccccccc",
		"2024-11-14-12-00-00-aaaaaaaa",
	}, names)
}
