// Package seed derives reproducible RNG seeds for rounds.
package seed

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
)

// ForRound returns a deterministic seed for roundID using HMAC(salt, roundID).
// The same salt and ID always yield the same seed, so a round's guesses can
// be replayed from its ID.
func ForRound(salt, roundID string) uint64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(roundID))
	sum := h.Sum(nil)
	// first 8 bytes are plenty for a PCG seed
	return binary.BigEndian.Uint64(sum[:8])
}
