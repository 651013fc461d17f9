package remote

import (
	"bufio"
	"os"
	"sort"
	"strings"

	"github.com/dandi/s3logextraction/pkg/apperr"
)

// ParseManifest reads the raw output of a flat-layout bucket listing (one
// object key per line, optionally interleaved with "DIR" marker lines) and
// groups filenames by the YYYY-MM-DD date embedded in their first three
// hyphen-separated segments (legacy flat storage layout, spec §4.8.2).
func ParseManifest(path string) (map[string][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.New("REMOTE_MANIFEST_READ_FAILED", "remote", "parse_manifest", "could not open manifest file").
			WithMetadata("path", path).Wrap(err)
	}
	defer f.Close()

	manifest := map[string][]string{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.Contains(line, "DIR") {
			continue
		}
		fields := strings.Fields(line)
		filename := fields[len(fields)-1]

		segments := strings.SplitN(filename, "-", 4)
		if len(segments) < 3 {
			continue
		}
		date := segments[0] + "-" + segments[1] + "-" + segments[2]
		manifest[date] = append(manifest[date], filename)
	}
	if err := scanner.Err(); err != nil {
		return nil, apperr.New("REMOTE_MANIFEST_READ_FAILED", "remote", "parse_manifest", "could not scan manifest file").
			WithMetadata("path", path).Wrap(err)
	}

	for date := range manifest {
		sort.Strings(manifest[date])
	}
	return manifest, nil
}
