package uir

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Hash computes a content-addressed BLAKE3 hash of a program's canonical
// textual form. Identical lowered programs hash identically regardless of
// which dialect they came from, which is the determinism property the
// result cache and the test suite rely on.
func Hash(p *Program) string {
	sum := blake3.Sum256([]byte(p.Dialect + "\x00" + Format(p)))
	return hex.EncodeToString(sum[:])
}

// HashBytes computes the BLAKE3 hash of raw bytes as a hex string. Used for
// request cache keys and stored source fingerprints.
func HashBytes(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
