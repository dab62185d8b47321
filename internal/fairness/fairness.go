// internal/fairness/fairness.go
//
// Commit-reveal fairness ledger. The server commits to a secret seed before
// any tile is dealt, plays the game using a shuffle derived from that secret
// plus a client-supplied seed, and reveals the secret only after the game
// ends. Any party can then recompute the commitment and the shuffle to
// confirm the tile order was fixed before play began.
package fairness

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
)

// seedSeparator keeps seed components from gluing together ambiguously
// when folded into the combined digest.
const seedSeparator = 0x1f

// GenerateServerSeed returns a 32-byte cryptographically strong secret,
// hex encoded. It is never derived from player input.
func GenerateServerSeed() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate server seed: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Commit returns the one-way commitment digest for a secret. Published to
// all players at table creation, before the client seed is finalized.
func Commit(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// VerifyCommit recomputes the digest for a revealed secret and compares it
// against the published commitment. Usable by any party post-game.
func VerifyCommit(commitment, revealedSecret string) bool {
	want, err := hex.DecodeString(commitment)
	if err != nil {
		return false
	}
	sum := sha256.Sum256([]byte(revealedSecret))
	return subtle.ConstantTimeCompare(want, sum[:]) == 1
}

// CombineSeeds folds the server secret, client seed, and shuffle nonce into
// a single deterministic value. Changing any input changes the output.
func CombineSeeds(secret, clientSeed string, nonce uint64) string {
	h := sha256.New()
	h.Write([]byte(secret))
	h.Write([]byte{seedSeparator})
	h.Write([]byte(clientSeed))
	h.Write([]byte{seedSeparator})
	h.Write([]byte(strconv.FormatUint(nonce, 10)))
	return hex.EncodeToString(h.Sum(nil))
}

// NewShuffleRand builds the deterministic source that drives a shuffle for
// the given seed material. Dealing draws its dice from the same stream so
// a full deal replays from the same four inputs.
func NewShuffleRand(secret, clientSeed string, nonce uint64) *DetRand {
	return NewDetRand(CombineSeeds(secret, clientSeed, nonce), clientSeed)
}

// ShuffleWithRand performs a Fisher-Yates shuffle drawing swap indices from
// r. The input slice is not modified; the output is a permutation of it.
func ShuffleWithRand[T any](items []T, r *DetRand) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Shuffle is the verifiable shuffle: two calls with identical arguments are
// byte-identical, and the output contains exactly the input tiles.
func Shuffle[T any](items []T, secret, clientSeed string, nonce uint64) []T {
	return ShuffleWithRand(items, NewShuffleRand(secret, clientSeed, nonce))
}

// VerifyShuffle recomputes the shuffle and compares it position by position
// against a claimed result. The error list localizes disagreements instead
// of stopping at the first one.
func VerifyShuffle[T comparable](original, claimed []T, secret, clientSeed string, nonce uint64) (bool, []error) {
	var errs []error
	if len(original) != len(claimed) {
		errs = append(errs, fmt.Errorf("length mismatch: original %d, claimed %d", len(original), len(claimed)))
		return false, errs
	}
	expect := Shuffle(original, secret, clientSeed, nonce)
	const maxReported = 5
	mismatches := 0
	for i := range expect {
		if expect[i] != claimed[i] {
			if mismatches < maxReported {
				errs = append(errs, fmt.Errorf("position %d: expected %v, got %v", i, expect[i], claimed[i]))
			}
			mismatches++
		}
	}
	if mismatches > maxReported {
		errs = append(errs, fmt.Errorf("%d additional position mismatches", mismatches-maxReported))
	}
	return len(errs) == 0, errs
}
