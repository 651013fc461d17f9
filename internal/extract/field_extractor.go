package extract

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"

	"github.com/dandi/s3logextraction/pkg/apperr"
)

// These are the names of the four per-log-file temp files C3 produces, in
// the order §4.3 lists them.
const (
	objectKeysFileName = "object_keys.txt"
	timestampsFileName = "timestamps.txt"
	bytesSentFileName  = "bytes_sent.txt"
	fullIPsFileName    = "full_ips.txt"
)

// ExtractFile runs the field extractor (C3) over a single raw log file,
// writing the four parallel temp streams into tmpDir. It returns whether any
// line matched the filter — an empty-but-valid log produces no
// object_keys.txt, which is not an error (spec §4.3/§7).
func ExtractFile(logPath, tmpDir string, mode Mode, skipIPs *regexp.Regexp) (bool, error) {
	in, err := os.Open(logPath)
	if err != nil {
		return false, apperr.ExtractionFailedError("extract_file", "could not open log file", logPath, err)
	}
	defer in.Close()

	keysFile, err := os.Create(filepath.Join(tmpDir, objectKeysFileName))
	if err != nil {
		return false, apperr.ExtractionFailedError("extract_file", "could not create object_keys.txt", logPath, err)
	}
	defer keysFile.Close()
	timestampsFile, err := os.Create(filepath.Join(tmpDir, timestampsFileName))
	if err != nil {
		return false, apperr.ExtractionFailedError("extract_file", "could not create timestamps.txt", logPath, err)
	}
	defer timestampsFile.Close()
	bytesFile, err := os.Create(filepath.Join(tmpDir, bytesSentFileName))
	if err != nil {
		return false, apperr.ExtractionFailedError("extract_file", "could not create bytes_sent.txt", logPath, err)
	}
	defer bytesFile.Close()
	ipsFile, err := os.Create(filepath.Join(tmpDir, fullIPsFileName))
	if err != nil {
		return false, apperr.ExtractionFailedError("extract_file", "could not create full_ips.txt", logPath, err)
	}
	defer ipsFile.Close()

	keysWriter := bufio.NewWriter(keysFile)
	timestampsWriter := bufio.NewWriter(timestampsFile)
	bytesWriter := bufio.NewWriter(bytesFile)
	ipsWriter := bufio.NewWriter(ipsFile)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	wrote := false
	for scanner.Scan() {
		rec, ok := parseLine(scanner.Text(), skipIPs)
		if !ok {
			continue
		}

		key, keep := NormalizeKey(mode, rec.objectKey)
		if !keep {
			continue
		}

		if _, err := keysWriter.WriteString(key + "\n"); err != nil {
			return false, apperr.ExtractionFailedError("extract_file", "write object_keys.txt failed", logPath, err)
		}
		if _, err := timestampsWriter.WriteString(rec.timestamp + "\n"); err != nil {
			return false, apperr.ExtractionFailedError("extract_file", "write timestamps.txt failed", logPath, err)
		}
		if _, err := bytesWriter.WriteString(rec.bytesSent + "\n"); err != nil {
			return false, apperr.ExtractionFailedError("extract_file", "write bytes_sent.txt failed", logPath, err)
		}
		if _, err := ipsWriter.WriteString(rec.ip + "\n"); err != nil {
			return false, apperr.ExtractionFailedError("extract_file", "write full_ips.txt failed", logPath, err)
		}
		wrote = true
	}
	if err := scanner.Err(); err != nil {
		return false, apperr.ExtractionFailedError("extract_file", "catastrophic read failure", logPath, err)
	}

	for _, w := range []*bufio.Writer{keysWriter, timestampsWriter, bytesWriter, ipsWriter} {
		if err := w.Flush(); err != nil {
			return false, apperr.ExtractionFailedError("extract_file", "flush temp stream failed", logPath, err)
		}
	}

	if !wrote {
		// Spec §4.5: only a non-empty object_keys.txt triggers the mirror
		// write step. Remove the empty temp files so the driver's "does
		// object_keys.txt exist" check is unambiguous.
		_ = os.Remove(filepath.Join(tmpDir, objectKeysFileName))
		_ = os.Remove(filepath.Join(tmpDir, timestampsFileName))
		_ = os.Remove(filepath.Join(tmpDir, bytesSentFileName))
		_ = os.Remove(filepath.Join(tmpDir, fullIPsFileName))
	}

	return wrote, nil
}
