// internal/fairness/rand.go
package fairness

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// DetRand is a deterministic pseudorandom source derived from two secret
// strings. The key is HMAC-SHA256(serverSecret, clientSeed); successive
// blocks are SHA-256(key || counter), consumed as a byte stream. Two
// instances built from the same inputs produce identical output sequences,
// which is what makes post-game shuffle verification possible.
type DetRand struct {
	key     []byte
	counter uint64
	buf     []byte
}

// NewDetRand derives the stream key from the server secret and client seed.
func NewDetRand(serverSecret, clientSeed string) *DetRand {
	mac := hmac.New(sha256.New, []byte(serverSecret))
	mac.Write([]byte(clientSeed))
	return &DetRand{key: mac.Sum(nil)}
}

func (r *DetRand) nextBlock() []byte {
	h := sha256.New()
	h.Write(r.key)
	var ctr [8]byte
	binary.BigEndian.PutUint64(ctr[:], r.counter)
	h.Write(ctr[:])
	r.counter++
	return h.Sum(nil)
}

func (r *DetRand) nextUint32() uint32 {
	if len(r.buf) < 4 {
		r.buf = append(r.buf, r.nextBlock()...)
	}
	v := binary.BigEndian.Uint32(r.buf[:4])
	r.buf = r.buf[4:]
	return v
}

// IntN returns a uniformly distributed integer in [0, max). Rejection
// sampling avoids modulo bias. A non-positive max is a programming error
// and panics rather than clamping.
func (r *DetRand) IntN(max int) int {
	if max <= 0 {
		panic(fmt.Sprintf("fairness: IntN called with non-positive max %d", max))
	}
	m := uint64(max)
	limit := (uint64(1) << 32) / m * m
	for {
		v := uint64(r.nextUint32())
		if v < limit {
			return int(v % m)
		}
	}
}
