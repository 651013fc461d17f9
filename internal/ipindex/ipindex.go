// Package ipindex implements the IP indexer (C6): it rewrites each
// full_ips.txt in the mirror into an indexed_ips.txt of u64 integers,
// maintaining a process-wide, collision-free bijection between observed IPs
// and integer indices, persisted as an encrypted reverse map via
// pkg/cryptostore.
package ipindex

import (
	"bufio"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/dandi/s3logextraction/pkg/apperr"
	"github.com/dandi/s3logextraction/pkg/cryptostore"
)

const (
	// indexCacheFileName is the reverse-map file under the ips/ subtree.
	indexCacheFileName = "index_to_ip.yaml"

	fullIPsFileName    = "full_ips.txt"
	indexedIPsFileName = "indexed_ips.txt"

	defaultCollisionRetries = 1000
	defaultBatchSize        = 100_000
)

// Indexer runs one pass of C6 over a mirror tree.
type Indexer struct {
	ExtractionDir   string
	IPsCacheDir     string
	Password        string
	Seed            uint64
	BatchSize       int
	CollisionRetries int
	Logger          *logrus.Logger

	indexToIP map[uint64]string
	ipToIndex map[string]uint64
	rng       *rand.Rand
}

// NewIndexer constructs an Indexer bound to one mirror/ips-cache pair.
func NewIndexer(extractionDir, ipsCacheDir, password string, seed uint64, batchSize, collisionRetries int, logger *logrus.Logger) *Indexer {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if collisionRetries <= 0 {
		collisionRetries = defaultCollisionRetries
	}
	return &Indexer{
		ExtractionDir:    extractionDir,
		IPsCacheDir:      ipsCacheDir,
		Password:         password,
		Seed:             seed,
		BatchSize:        batchSize,
		CollisionRetries: collisionRetries,
		Logger:           logger,
	}
}

func (ix *Indexer) cachePath() string {
	return filepath.Join(ix.IPsCacheDir, indexCacheFileName)
}

// Run executes one indexing pass: load, walk, assign, persist (spec §4.6).
// Indexing is deliberately single-threaded — the algorithm mutates a shared
// index_to_ip map across every candidate directory and is not safe for
// concurrent workers.
func (ix *Indexer) Run() error {
	if err := ix.load(); err != nil {
		return err
	}
	ix.rng = rand.New(rand.NewPCG(ix.Seed, ix.Seed^0x9e3779b97f4a7c15))

	processedSinceFlush := 0

	err := filepath.WalkDir(ix.ExtractionDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != fullIPsFileName {
			return nil
		}

		dir := filepath.Dir(path)
		needsUpdate, err := ix.directoryNeedsUpdate(dir)
		if err != nil {
			return err
		}
		if !needsUpdate {
			return nil
		}

		if err := ix.processDirectory(dir); err != nil {
			return err
		}

		processedSinceFlush++
		if processedSinceFlush >= ix.BatchSize {
			if err := ix.persist(); err != nil {
				return err
			}
			processedSinceFlush = 0
		}
		return nil
	})
	if err != nil {
		if appErr, ok := apperr.As(err); ok {
			return appErr
		}
		return apperr.New("INDEX_WALK_FAILED", "ipindex", "run", "failed while walking mirror tree").Wrap(err)
	}

	return ix.persist()
}

// directoryNeedsUpdate implements the mtime-gated skip rule: a directory is
// reprocessed only when indexed_ips.txt is missing or older than
// full_ips.txt.
func (ix *Indexer) directoryNeedsUpdate(dir string) (bool, error) {
	fullInfo, err := os.Stat(filepath.Join(dir, fullIPsFileName))
	if err != nil {
		return false, apperr.New("INDEX_STAT_FAILED", "ipindex", "directory_needs_update", "could not stat full_ips.txt").
			WithMetadata("dir", dir).Wrap(err)
	}

	indexedInfo, err := os.Stat(filepath.Join(dir, indexedIPsFileName))
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, apperr.New("INDEX_STAT_FAILED", "ipindex", "directory_needs_update", "could not stat indexed_ips.txt").
			WithMetadata("dir", dir).Wrap(err)
	}

	return fullInfo.ModTime().After(indexedInfo.ModTime()), nil
}

// processDirectory assigns indices to any newly observed IPs in dir's
// full_ips.txt and writes the corresponding indexed_ips.txt, preserving
// line-for-line correspondence (I1).
func (ix *Indexer) processDirectory(dir string) error {
	fullPath := filepath.Join(dir, fullIPsFileName)
	ips, err := readLines(fullPath)
	if err != nil {
		return apperr.New("INDEX_READ_FAILED", "ipindex", "process_directory", "could not read full_ips.txt").
			WithMetadata("dir", dir).Wrap(err)
	}

	for _, ip := range uniqueStrings(ips) {
		if _, ok := ix.ipToIndex[ip]; ok {
			continue
		}
		index, err := ix.assignIndex()
		if err != nil {
			return err
		}
		ix.ipToIndex[ip] = index
		ix.indexToIP[index] = ip
	}

	out := make([]string, len(ips))
	for i, ip := range ips {
		out[i] = strconv.FormatUint(ix.ipToIndex[ip], 10)
	}

	tmpPath := filepath.Join(dir, indexedIPsFileName+".tmp")
	if err := os.WriteFile(tmpPath, []byte(strings.Join(out, "\n")+"\n"), 0o644); err != nil {
		return apperr.New("INDEX_WRITE_FAILED", "ipindex", "process_directory", "could not write indexed_ips.txt temp file").
			WithMetadata("dir", dir).Wrap(err)
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, indexedIPsFileName)); err != nil {
		return apperr.New("INDEX_WRITE_FAILED", "ipindex", "process_directory", "could not rename indexed_ips.txt into place").
			WithMetadata("dir", dir).Wrap(err)
	}
	return nil
}

// assignIndex draws a fresh random u64 not already present in indexToIP,
// rejecting and redrawing on collision up to CollisionRetries times.
func (ix *Indexer) assignIndex() (uint64, error) {
	for attempt := 0; attempt < ix.CollisionRetries; attempt++ {
		candidate := ix.rng.Uint64()
		if _, taken := ix.indexToIP[candidate]; !taken {
			return candidate, nil
		}
	}
	return 0, apperr.IndexCollisionExhaustedError("assign_index",
		"exhausted collision retry budget drawing a fresh u64 index")
}

func (ix *Indexer) load() error {
	data, err := cryptostore.LoadBytes(ix.Password, ix.cachePath())
	if err != nil {
		return err
	}

	ix.indexToIP = map[uint64]string{}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &ix.indexToIP); err != nil {
			return apperr.New("INDEX_CACHE_MALFORMED", "ipindex", "load", "could not parse decrypted index_to_ip map").Wrap(err)
		}
	}

	ix.ipToIndex = make(map[string]uint64, len(ix.indexToIP))
	for index, ip := range ix.indexToIP {
		ix.ipToIndex[ip] = index
	}
	return nil
}

func (ix *Indexer) persist() error {
	data, err := yaml.Marshal(ix.indexToIP)
	if err != nil {
		return apperr.New("INDEX_CACHE_MALFORMED", "ipindex", "persist", "could not serialize index_to_ip map").Wrap(err)
	}
	return cryptostore.SaveBytes(ix.Password, ix.cachePath(), data)
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

// uniqueStrings dedupes values in order of first appearance. full_ips.txt
// files can run into the millions of lines for a busy object key, so the
// seen-set is keyed by an xxhash digest rather than the raw string to keep
// the per-entry map key small and the comparison cheap.
func uniqueStrings(values []string) []string {
	seen := map[uint64]bool{}
	var out []string
	for _, v := range values {
		h := xxhash.Sum64String(v)
		if !seen[h] {
			seen[h] = true
			out = append(out, v)
		}
	}
	return out
}
