// Package cache owns the cache directory hierarchy (C1): the extraction
// mirror, record logs, IP cache, temp space, and the collaborator-owned
// summaries/sharing subtrees, plus the small pointer file that tells every
// later process where the chosen cache root lives.
//
// Paths is constructed once at process entry and is read-only thereafter —
// this replaces the source implementation's class-level state set by a
// "_get_cache_directories" helper with an explicit value threaded through
// every component constructor.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/dandi/s3logextraction/pkg/apperr"
)

const pointerFileName = "config.json"

type pointerConfig struct {
	CacheDirectory string `json:"cache_directory"`
}

// defaultRoot mirrors the source's DEFAULT_CACHE_DIRECTORY: a dotted folder
// under the user's home directory.
func defaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".s3logextraction")
}

func pointerFilePath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return "", apperr.ConfigError("pointer_file_path", "could not resolve a config directory").Wrap(err)
		}
		base = filepath.Join(home, ".config")
	}
	dir := filepath.Join(base, "s3logextraction")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperr.ConfigError("pointer_file_path", "could not create config directory").Wrap(err)
	}
	return filepath.Join(dir, pointerFileName), nil
}

// Paths is the read-only-after-construction set of cache directories.
type Paths struct {
	Root       string
	Extraction string
	Records    string
	IPs        string
	Tmp        string
	Summaries  string
	Sharing    string
}

// forRoot derives the full Paths value from a chosen root.
func forRoot(root string) Paths {
	return Paths{
		Root:       root,
		Extraction: filepath.Join(root, "extraction"),
		Records:    filepath.Join(root, "records"),
		IPs:        filepath.Join(root, "ips"),
		Tmp:        filepath.Join(root, "tmp"),
		Summaries:  filepath.Join(root, "summaries"),
		Sharing:    filepath.Join(root, "sharing"),
	}
}

// Load resolves the cache root — S3LOGEXTRACTION_CACHE env var first, then
// the pointer file, then the default — and returns the derived Paths with
// every subdirectory created.
func Load() (Paths, error) {
	root := os.Getenv("S3LOGEXTRACTION_CACHE")
	if root == "" {
		pointerPath, err := pointerFilePath()
		if err != nil {
			return Paths{}, err
		}
		if data, err := os.ReadFile(pointerPath); err == nil && len(data) > 0 {
			var cfg pointerConfig
			if jerr := json.Unmarshal(data, &cfg); jerr == nil && cfg.CacheDirectory != "" {
				root = cfg.CacheDirectory
			}
		}
	}
	if root == "" {
		root = defaultRoot()
	}

	paths := forRoot(root)
	if err := paths.Ensure(); err != nil {
		return Paths{}, err
	}
	return paths, nil
}

// SetCacheRoot persists root into the pointer file so subsequent process
// invocations (of any command) resolve Load() to the same cache.
func SetCacheRoot(root string) (Paths, error) {
	paths := forRoot(root)
	if err := paths.Ensure(); err != nil {
		return Paths{}, err
	}

	pointerPath, err := pointerFilePath()
	if err != nil {
		return Paths{}, err
	}
	data, err := json.Marshal(pointerConfig{CacheDirectory: root})
	if err != nil {
		return Paths{}, apperr.ConfigError("set_cache_root", "failed to encode pointer file").Wrap(err)
	}
	if err := os.WriteFile(pointerPath, data, 0o644); err != nil {
		return Paths{}, apperr.ConfigError("set_cache_root", "failed to write pointer file").
			WithMetadata("path", pointerPath).Wrap(err)
	}
	return paths, nil
}

// Ensure creates every cache subdirectory, idempotently.
func (p Paths) Ensure() error {
	for _, dir := range []string{p.Root, p.Extraction, p.Records, p.IPs, p.Tmp, p.Summaries, p.Sharing} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperr.ConfigError("ensure", "could not create cache directory").
				WithMetadata("directory", dir).Wrap(err)
		}
	}
	return nil
}

// Subtree names accepted by Reset.
const (
	SubtreeExtraction = "extraction"
	SubtreeTmp        = "tmp"
	SubtreeIPs        = "ips"
)

// Reset removes one subtree (and its associated record files) and recreates
// it empty. It never touches the other subtrees.
func (p Paths) Reset(subtree string) error {
	switch subtree {
	case SubtreeExtraction:
		if err := os.RemoveAll(p.Extraction); err != nil {
			return apperr.ConfigError("reset", "failed to remove extraction directory").Wrap(err)
		}
		matches, _ := filepath.Glob(filepath.Join(p.Records, "*_file-processing-start.txt"))
		endMatches, _ := filepath.Glob(filepath.Join(p.Records, "*_file-processing-end.txt"))
		for _, f := range append(matches, endMatches...) {
			_ = os.Remove(f)
		}
		_ = os.Remove(filepath.Join(p.Records, "stop_extraction"))
		return os.MkdirAll(p.Extraction, 0o755)
	case SubtreeTmp:
		if err := os.RemoveAll(p.Tmp); err != nil {
			return apperr.ConfigError("reset", "failed to remove tmp directory").Wrap(err)
		}
		return os.MkdirAll(p.Tmp, 0o755)
	case SubtreeIPs:
		if err := os.RemoveAll(p.IPs); err != nil {
			return apperr.ConfigError("reset", "failed to remove ips directory").Wrap(err)
		}
		return os.MkdirAll(p.IPs, 0o755)
	default:
		return apperr.ConfigError("reset", "unknown subtree").WithMetadata("subtree", subtree)
	}
}

// StopSentinelPath is the path to the zero-byte cooperative-shutdown file.
func (p Paths) StopSentinelPath() string {
	return filepath.Join(p.Records, "stop_extraction")
}
