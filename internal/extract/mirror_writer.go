package extract

import (
	"bufio"
	"os"
	"path/filepath"

	"github.com/dandi/s3logextraction/pkg/apperr"
)

// WriteMirror is the mirror writer (C4). It consumes the four temp streams
// produced by ExtractFile for one log file and appends them into the
// mirror tree grouped by object key, preserving source order within the
// file (I1).
func WriteMirror(tmpDir, mirrorRoot string) error {
	keysPath := filepath.Join(tmpDir, objectKeysFileName)
	if _, err := os.Stat(keysPath); os.IsNotExist(err) {
		// Empty-valid-log: nothing to mirror (spec §4.5/§7).
		return nil
	}

	keys, err := readLines(keysPath)
	if err != nil {
		return apperr.ExtractionFailedError("write_mirror", "could not read object_keys.txt", tmpDir, err)
	}
	timestamps, err := readLines(filepath.Join(tmpDir, timestampsFileName))
	if err != nil {
		return apperr.ExtractionFailedError("write_mirror", "could not read timestamps.txt", tmpDir, err)
	}
	bytesSent, err := readLines(filepath.Join(tmpDir, bytesSentFileName))
	if err != nil {
		return apperr.ExtractionFailedError("write_mirror", "could not read bytes_sent.txt", tmpDir, err)
	}
	ips, err := readLines(filepath.Join(tmpDir, fullIPsFileName))
	if err != nil {
		return apperr.ExtractionFailedError("write_mirror", "could not read full_ips.txt", tmpDir, err)
	}

	if len(keys) != len(timestamps) || len(keys) != len(bytesSent) || len(keys) != len(ips) {
		return apperr.ExtractionFailedError("write_mirror", "temp streams have mismatched line counts", tmpDir, nil)
	}

	uniqueKeys := map[string]bool{}
	for _, k := range keys {
		uniqueKeys[k] = true
	}
	for key := range uniqueKeys {
		if err := os.MkdirAll(filepath.Join(mirrorRoot, key), 0o755); err != nil {
			return apperr.ExtractionFailedError("write_mirror", "could not create object-key directory", key, err)
		}
	}

	writers := map[string]*keyWriters{}
	defer func() {
		for _, w := range writers {
			w.close()
		}
	}()

	for i, key := range keys {
		w, ok := writers[key]
		if !ok {
			var openErr error
			w, openErr = openKeyWriters(filepath.Join(mirrorRoot, key))
			if openErr != nil {
				return apperr.ExtractionFailedError("write_mirror", "could not open mirror streams", key, openErr)
			}
			writers[key] = w
		}
		if err := w.appendRecord(timestamps[i], bytesSent[i], ips[i]); err != nil {
			return apperr.ExtractionFailedError("write_mirror", "could not append mirror record", key, err)
		}
	}

	for _, w := range writers {
		if err := w.flush(); err != nil {
			return apperr.ExtractionFailedError("write_mirror", "could not flush mirror streams", mirrorRoot, err)
		}
	}

	return nil
}

// keyWriters holds the three open append streams for one object-key
// directory (timestamps.txt, bytes_sent.txt, full_ips.txt).
type keyWriters struct {
	timestampsFile *os.File
	bytesFile      *os.File
	ipsFile        *os.File
	timestamps     *bufio.Writer
	bytes          *bufio.Writer
	ips            *bufio.Writer
}

func openKeyWriters(dir string) (*keyWriters, error) {
	tf, err := os.OpenFile(filepath.Join(dir, "timestamps.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	bf, err := os.OpenFile(filepath.Join(dir, "bytes_sent.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		tf.Close()
		return nil, err
	}
	ipf, err := os.OpenFile(filepath.Join(dir, "full_ips.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		tf.Close()
		bf.Close()
		return nil, err
	}
	return &keyWriters{
		timestampsFile: tf,
		bytesFile:      bf,
		ipsFile:        ipf,
		timestamps:     bufio.NewWriter(tf),
		bytes:          bufio.NewWriter(bf),
		ips:            bufio.NewWriter(ipf),
	}, nil
}

func (w *keyWriters) appendRecord(timestamp, bytesSent, ip string) error {
	if _, err := w.timestamps.WriteString(timestamp + "\n"); err != nil {
		return err
	}
	if _, err := w.bytes.WriteString(bytesSent + "\n"); err != nil {
		return err
	}
	if _, err := w.ips.WriteString(ip + "\n"); err != nil {
		return err
	}
	return nil
}

func (w *keyWriters) flush() error {
	if err := w.timestamps.Flush(); err != nil {
		return err
	}
	if err := w.bytes.Flush(); err != nil {
		return err
	}
	return w.ips.Flush()
}

func (w *keyWriters) close() {
	w.timestampsFile.Close()
	w.bytesFile.Close()
	w.ipsFile.Close()
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
