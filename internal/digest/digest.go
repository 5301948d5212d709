// Package digest computes content identity for blobs: a SHA-1 digest
// rendered as 40 lowercase hex characters. The digest is the sole key
// of a stored blob, so identical bytes always map to the same object.
package digest

import (
	"crypto/sha1"
	"encoding/hex"
)

// Size is the length of a rendered digest in hex characters.
const Size = sha1.Size * 2

// Sum returns the digest of content. Deterministic, accepts any byte
// sequence including nil.
func Sum(content []byte) string {
	h := sha1.Sum(content)
	return hex.EncodeToString(h[:])
}

// Valid reports whether s is syntactically a digest. Digests are
// always lowercase, so uppercase hex is rejected.
func Valid(s string) bool {
	if len(s) != Size {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
