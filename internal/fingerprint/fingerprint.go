// Package fingerprint computes content digests used for change detection.
//
// The same digest is used for whole documents (should the document be
// resynced at all) and for individual chunks (which chunks need a new
// embedding). It depends on the bytes only.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash is a lowercase hex SHA-256 digest
type Hash string

// Of returns the digest of b
func Of(b []byte) Hash {
	sum := sha256.Sum256(b)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the digest of s
func String(s string) Hash {
	return Of([]byte(s))
}

// Set is an unordered collection of hashes
type Set map[Hash]struct{}

// NewSet builds a set from hashes
func NewSet(hashes ...Hash) Set {
	s := make(Set, len(hashes))
	for _, h := range hashes {
		s[h] = struct{}{}
	}
	return s
}

// Has reports membership
func (s Set) Has(h Hash) bool {
	_, ok := s[h]
	return ok
}

// Add inserts h
func (s Set) Add(h Hash) {
	s[h] = struct{}{}
}
