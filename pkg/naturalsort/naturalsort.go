// Package naturalsort orders strings the way a human would: embedded runs
// of digits compare numerically instead of byte-by-byte, so
// "file-2" sorts before "file-10".
//
// The extraction driver relies on this for deterministic, reproducible file
// iteration order (so two runs over the same unchanged input directory
// process files in the same sequence).
package naturalsort

import (
	"sort"
	"unicode"
)

// Strings sorts s in place using natural ordering.
func Strings(s []string) {
	sort.Slice(s, func(i, j int) bool {
		return Less(s[i], s[j])
	})
}

// Less reports whether a sorts before b under natural ordering.
func Less(a, b string) bool {
	ar, br := []rune(a), []rune(b)
	i, j := 0, 0
	for i < len(ar) && j < len(br) {
		ca, cb := ar[i], br[j]
		if unicode.IsDigit(ca) && unicode.IsDigit(cb) {
			starti, startj := i, j
			for i < len(ar) && unicode.IsDigit(ar[i]) {
				i++
			}
			for j < len(br) && unicode.IsDigit(br[j]) {
				j++
			}
			numA := trimLeadingZeros(ar[starti:i])
			numB := trimLeadingZeros(br[startj:j])
			if len(numA) != len(numB) {
				return len(numA) < len(numB)
			}
			for k := range numA {
				if numA[k] != numB[k] {
					return numA[k] < numB[k]
				}
			}
			continue
		}
		if ca != cb {
			return ca < cb
		}
		i++
		j++
	}
	return len(ar)-i < len(br)-j
}

func trimLeadingZeros(r []rune) []rune {
	k := 0
	for k < len(r)-1 && r[k] == '0' {
		k++
	}
	return r[k:]
}
