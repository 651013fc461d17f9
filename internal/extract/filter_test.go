package extract

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const canonicalLine = `a1b2c3d4e5f6a7b8 dandiarchive [15/Jan/2024:10:30:00 +0000] 203.0.113.5 arn:aws:iam::123456789012:user/alice A1B2C3D4E5F6A7B8 REST.GET.OBJECT blobs/abc/def/abcdef1234567890 "GET /blobs/abc/def/abcdef1234567890 HTTP/1.1" 200 - 1024 1024 18 17 "-" "aws-cli/2.13.0" - A1B2C3D4E5F6A7B8B9C0D1E2F3A4B5C6 SigV4 ECDHE-RSA-AES128-GCM-SHA256 AuthHeader dandiarchive.s3.amazonaws.com TLSv1.2 - -`

func TestParseLineAcceptsCanonicalGetRequest(t *testing.T) {
	rec, ok := parseLine(canonicalLine, nil)
	require.True(t, ok)
	assert.Equal(t, "blobs/abc/def/abcdef1234567890", rec.objectKey)
	assert.Equal(t, "240115103000", rec.timestamp)
	assert.Equal(t, "1024", rec.bytesSent)
	assert.Equal(t, "203.0.113.5", rec.ip)
}

func TestParseLineRejectsNonGetRequests(t *testing.T) {
	line := `a1b2c3d4e5f6a7b8 dandiarchive [15/Jan/2024:10:30:00 +0000] 203.0.113.5 - A1B2 REST.PUT.OBJECT blobs/abc/def/abcdef1234567890 "PUT /blobs/abc/def/abcdef1234567890 HTTP/1.1" 200 - 1024 1024 18 17 "-" "aws-cli/2.13.0" - - SigV4 - AuthHeader dandiarchive.s3.amazonaws.com TLSv1.2 - -`
	_, ok := parseLine(line, nil)
	assert.False(t, ok)
}

func TestParseLineRejectsNon2xxStatus(t *testing.T) {
	line := `a1b2c3d4e5f6a7b8 dandiarchive [15/Jan/2024:10:30:00 +0000] 203.0.113.5 - A1B2 REST.GET.OBJECT blobs/abc/def/abcdef1234567890 "GET /blobs/abc/def/abcdef1234567890 HTTP/1.1" 404 NoSuchKey 0 - 18 17 "-" "aws-cli/2.13.0" - - SigV4 - AuthHeader dandiarchive.s3.amazonaws.com TLSv1.2 - -`
	_, ok := parseLine(line, nil)
	assert.False(t, ok)
}

func TestParseLineTreatsDashBytesSentAsZero(t *testing.T) {
	line := `a1b2c3d4e5f6a7b8 dandiarchive [15/Jan/2024:10:30:00 +0000] 203.0.113.5 - A1B2 REST.GET.OBJECT blobs/abc/def/abcdef1234567890 "GET /blobs/abc/def/abcdef1234567890 HTTP/1.1" 200 - - 1024 18 17 "-" "aws-cli/2.13.0" - - SigV4 - AuthHeader dandiarchive.s3.amazonaws.com TLSv1.2 - -`
	rec, ok := parseLine(line, nil)
	require.True(t, ok)
	assert.Equal(t, "0", rec.bytesSent)
}

func TestParseLineHonorsSkipIPsPattern(t *testing.T) {
	skip := regexp.MustCompile(`^203\.0\.113\.`)
	_, ok := parseLine(canonicalLine, skip)
	assert.False(t, ok)
}

func TestParseLineRejectsMalformedLine(t *testing.T) {
	_, ok := parseLine("not a log line at all", nil)
	assert.False(t, ok)
}

func TestParseLineRejectsMissingSecondQuote(t *testing.T) {
	_, ok := parseLine(`a1b2c3d4e5f6a7b8 dandiarchive [15/Jan/2024:10:30:00 +0000] "unterminated`, nil)
	assert.False(t, ok)
}
