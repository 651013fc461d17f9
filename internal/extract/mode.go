package extract

import "strings"

// Mode selects the object-key normalization rule and skip-IP policy.
type Mode string

const (
	// ModeGeneric emits object keys verbatim.
	ModeGeneric Mode = "generic"
	// ModeDANDI truncates Zarr-like keys to their store-level prefix and
	// folds blob keys to the hash-prefix hierarchy, dropping everything
	// else.
	ModeDANDI Mode = "dandi"
)

// ParseMode validates a CLI-supplied mode string.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeGeneric, "":
		return ModeGeneric, true
	case ModeDANDI:
		return ModeDANDI, true
	default:
		return "", false
	}
}

// NormalizeKey applies the mode's object-key rewrite rule. The second return
// value reports whether the key should be kept at all (DANDI mode drops any
// key outside the blobs/ and zarr/ prefixes).
func NormalizeKey(mode Mode, key string) (string, bool) {
	if mode != ModeDANDI {
		return key, true
	}

	switch {
	case strings.HasPrefix(key, "blobs/"):
		return normalizeBlobKey(key)
	case strings.HasPrefix(key, "zarr/"):
		return normalizeZarrKey(key)
	default:
		return "", false
	}
}

// normalizeBlobKey folds a raw blob key (whose path segments embed a hex
// content hash, possibly already hierarchically prefixed, possibly with
// trailing path segments) down to the canonical blobs/<h[0:3]>/<h[3:6]>/<h>
// store-level directory.
func normalizeBlobKey(key string) (string, bool) {
	segments := strings.Split(key, "/")
	hash := longestHexSegment(segments[1:])
	if hash == "" || len(hash) < 6 {
		return "", false
	}
	return "blobs/" + hash[0:3] + "/" + hash[3:6] + "/" + hash, true
}

// normalizeZarrKey folds a raw Zarr chunk key down to its store-level
// prefix: the first path segment after "zarr/".
func normalizeZarrKey(key string) (string, bool) {
	segments := strings.SplitN(key, "/", 3)
	if len(segments) < 2 || segments[1] == "" {
		return "", false
	}
	return "zarr/" + segments[1], true
}

func longestHexSegment(segments []string) string {
	best := ""
	for _, s := range segments {
		if isHex(s) && len(s) > len(best) {
			best = s
		}
	}
	return best
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
