// Package pathhash implements the archive's path hashing scheme.
//
// Paths are normalized (backslashes become forward slashes, characters are
// upper-cased) and folded into a 64-bit rolling hash seeded per archive.
// The top 16 bits of the hash select a bucket; the low 48 bits order
// entries within it. The hash is a lookup key, not a cryptographic digest.
package pathhash

import (
	"strings"
	"unicode"
)

const multiplier = 0x19919

// residualMask keeps the low 48 bits of a full hash.
const residualMask = 1<<48 - 1

// Normalize converts path to the canonical form used for hashing:
// backslashes replaced with forward slashes, all characters upper-cased
// code point by code point.
func Normalize(path string) string {
	return strings.Map(func(r rune) rune {
		if r == '\\' {
			return '/'
		}
		return unicode.ToUpper(r)
	}, path)
}

// Sum returns the 64-bit hash of path under the given archive seed.
//
// Hashing is order-dependent and deterministic: the same path and seed
// always produce the same value. Arithmetic is uint64 with wraparound.
// The empty path hashes to zero.
func Sum(path string, seed uint32) uint64 {
	var h uint64
	for _, r := range Normalize(path) {
		h = uint64(r) + multiplier*h + uint64(seed)
	}
	return h
}

// Split breaks a full hash into the 16-bit bucket key (bits 48-63) and
// the 48-bit residual used to order entries inside a bucket.
func Split(h uint64) (bucket uint16, residual uint64) {
	return uint16(h >> 48), h & residualMask
}
