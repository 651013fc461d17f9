// Package extract implements the field extractor (C3), the mirror writer
// (C4), and the extraction driver (C5).
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// statusCodePattern matches a 3-digit HTTP status beginning with '2'.
var statusCodePattern = regexp.MustCompile(`^2\d\d$`)

// timestampLayout is the canonical S3 access-log timestamp layout, once the
// leading '[' has been stripped and the trailing timezone field discarded.
const timestampLayout = "02/Jan/2006:15:04:05"

// mirrorTimestampLayout is the fixed-width, lexicographically sortable
// output format (spec §3/§4.3): YYMMDDhhmmss.
const mirrorTimestampLayout = "060102150405"

// record is one accepted log line's extracted facts, after filtering and
// before mode-specific key normalization.
type record struct {
	objectKey string
	timestamp string
	bytesSent string
	ip        string
}

// parseLine implements the §4.3 splitting strategy: partition on the first
// two double-quote characters into pre-URI, URI, and post-URI segments, then
// pull fixed whitespace-separated field positions out of each. It returns
// ok=false for any line that fails the GET/2xx/skip-IP filter or that is too
// malformed to extract fields from — both are silently skipped by the
// caller, never treated as an error (spec §4.3's error policy).
func parseLine(line string, skipIPs *regexp.Regexp) (record, bool) {
	firstQuote := strings.IndexByte(line, '"')
	if firstQuote < 0 {
		return record{}, false
	}
	pre := line[:firstQuote]
	rest := line[firstQuote+1:]

	secondQuote := strings.IndexByte(rest, '"')
	if secondQuote < 0 {
		return record{}, false
	}
	post := rest[secondQuote+1:]

	preFields := strings.Fields(pre)
	if len(preFields) < 9 {
		return record{}, false
	}
	rawTimestamp := strings.TrimPrefix(preFields[2], "[")
	ip := preFields[4]
	requestType := preFields[7]
	objectKey := preFields[8]

	if requestType != "REST.GET.OBJECT" {
		return record{}, false
	}
	if skipIPs != nil && skipIPs.MatchString(ip) {
		return record{}, false
	}

	postFields := strings.Fields(post)
	if len(postFields) < 3 {
		return record{}, false
	}
	status := postFields[0]
	if !statusCodePattern.MatchString(status) {
		return record{}, false
	}

	bytesSentRaw := postFields[2]
	var bytesSent string
	if bytesSentRaw == "-" {
		bytesSent = "0"
	} else if _, err := strconv.ParseUint(bytesSentRaw, 10, 64); err != nil {
		return record{}, false
	} else {
		bytesSent = bytesSentRaw
	}

	parsedTime, err := time.Parse(timestampLayout, rawTimestamp)
	if err != nil {
		return record{}, false
	}

	return record{
		objectKey: objectKey,
		timestamp: parsedTime.Format(mirrorTimestampLayout),
		bytesSent: bytesSent,
		ip:        ip,
	}, true
}
