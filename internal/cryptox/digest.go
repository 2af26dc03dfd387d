// Package cryptox holds the hashing helpers used to derive stable cache keys.
package cryptox

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Digest returns the hex BLAKE2b-256 of the parts joined with a NUL
// separator, so ("ab","c") and ("a","bc") never collide.
func Digest(parts ...string) string {
	h, _ := blake2b.New256(nil)
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
