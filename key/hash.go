// Package key defines the addressing types used by the global state: a
// content-addressed 32-byte Hash, unforgeable references (URef) carrying
// access rights, and the tagged Key union that indexes into state.
package key

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// HashLength is the byte length of a Hash, matching the Blake2b-256 digest
// size used for root hashes and content addresses throughout the engine.
const HashLength = 32

// Hash is a 32-byte digest, used both for global-state root hashes and for
// the Hash variant of Key.
type Hash [HashLength]byte

// BytesToHash copies b into a Hash the way common.BytesToHash does for the
// go-ethereum-style Hash type: a longer b is cropped from the left (its last
// HashLength bytes are kept), a shorter one is zero-padded on the left.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// HexToHash parses a 0x-prefixed or bare hex string into a Hash.
func HexToHash(s string) Hash {
	if len(s) >= 2 && s[0:2] == "0x" {
		s = s[2:]
	}
	b, _ := hex.DecodeString(s)
	return BytesToHash(b)
}

// Bytes returns a copy of the underlying bytes.
func (h Hash) Bytes() []byte { return h[:] }

// IsZero reports whether h is the all-zero digest.
func (h Hash) IsZero() bool { return h == Hash{} }

// String renders h as a 0x-prefixed hex string.
func (h Hash) String() string { return fmt.Sprintf("0x%x", h[:]) }

// Seed derives a deterministic Hash from a string, used to address
// well-known system contract URefs and purses the same way across runs
// (required for genesis determinism). Blake2b is the root-hash digest the
// spec mandates, so system addressing reuses it rather than introducing a
// second hash algorithm.
func Seed(s string) Hash {
	digest := blake2b.Sum256([]byte(s))
	return BytesToHash(digest[:])
}
