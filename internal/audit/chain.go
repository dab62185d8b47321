// internal/audit/chain.go
//
// Table-scoped, append-only, hash-linked action log. Every entry is signed
// over its content hash, and each entry records the hash of its predecessor,
// so any after-the-fact edit breaks either a signature or a link.
package audit

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// Entry is immutable once appended. Payload keys that look like credentials
// are redacted before the entry is created, never after.
type Entry struct {
	ID              uuid.UUID      `json:"id"`
	Timestamp       time.Time      `json:"timestamp"`
	TableID         uuid.UUID      `json:"tableId"`
	ActorID         *uuid.UUID     `json:"actorId,omitempty"`
	Action          string         `json:"action"`
	Payload         map[string]any `json:"payload,omitempty"`
	StateHashBefore string         `json:"stateHashBefore,omitempty"`
	StateHashAfter  string         `json:"stateHashAfter,omitempty"`
	PrevHash        string         `json:"prevHash,omitempty"`
	Hash            string         `json:"hash"`
	Signature       string         `json:"signature"`
}

// Chain holds one table's entries in insertion order plus the signing key.
// Appends fan out to the configured sinks without blocking game logic.
type Chain struct {
	mu      sync.Mutex
	tableID uuid.UUID
	priv    ed25519.PrivateKey
	pub     ed25519.PublicKey
	entries []Entry
	sinks   []Sink
}

// NewChain generates a fresh signing key pair for the table.
func NewChain(tableID uuid.UUID, sinks ...Sink) (*Chain, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("audit: generate signing key: %w", err)
	}
	return &Chain{tableID: tableID, priv: priv, pub: pub, sinks: sinks}, nil
}

// PublicKey returns the verification key for this chain.
func (c *Chain) PublicKey() ed25519.PublicKey { return c.pub }

// redactedKeys match payload fields that must never reach the log.
var redactedKeys = []string{"token", "secret", "password", "credential", "authorization"}

func sanitizePayload(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		lower := strings.ToLower(k)
		redact := false
		for _, bad := range redactedKeys {
			if strings.Contains(lower, bad) {
				redact = true
				break
			}
		}
		if redact {
			out[k] = "[redacted]"
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			out[k] = sanitizePayload(nested)
			continue
		}
		out[k] = v
	}
	return out
}

func clonePayload(p map[string]any) map[string]any {
	if p == nil {
		return nil
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		if nested, ok := v.(map[string]any); ok {
			out[k] = clonePayload(nested)
			continue
		}
		out[k] = v
	}
	return out
}

// entryHash computes the BLAKE2b-256 content hash over every field except
// Hash and Signature themselves.
func entryHash(e Entry) string {
	h, _ := blake2b.New256(nil)
	h.Write(e.ID[:])
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(e.Timestamp.UnixNano()))
	h.Write(ts[:])
	h.Write(e.TableID[:])
	if e.ActorID != nil {
		h.Write(e.ActorID[:])
	}
	h.Write([]byte(e.Action))
	if e.Payload != nil {
		// json.Marshal sorts map keys, giving a canonical encoding.
		b, _ := json.Marshal(e.Payload)
		h.Write(b)
	}
	h.Write([]byte(e.StateHashBefore))
	h.Write([]byte(e.StateHashAfter))
	h.Write([]byte(e.PrevHash))
	return hex.EncodeToString(h.Sum(nil))
}

// HashState digests an arbitrary state snapshot for the before/after fields.
func HashState(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := blake2b.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Append creates, signs, and stores a new entry, then forwards it to the
// sinks. The returned entry is a copy; the stored one cannot be mutated
// through it.
func (c *Chain) Append(action string, payload map[string]any, actorID *uuid.UUID, stateBefore, stateAfter string) Entry {
	c.mu.Lock()
	e := Entry{
		ID:              uuid.New(),
		Timestamp:       time.Now().UTC(),
		TableID:         c.tableID,
		ActorID:         actorID,
		Action:          action,
		Payload:         sanitizePayload(payload),
		StateHashBefore: stateBefore,
		StateHashAfter:  stateAfter,
	}
	if n := len(c.entries); n > 0 {
		e.PrevHash = c.entries[n-1].Hash
	}
	e.Hash = entryHash(e)
	sig := ed25519.Sign(c.priv, []byte(e.Hash))
	e.Signature = hex.EncodeToString(sig)
	c.entries = append(c.entries, e)
	sinks := c.sinks
	c.mu.Unlock()

	for _, s := range sinks {
		go func(s Sink, e Entry) {
			ctx, cancel := sinkContext()
			defer cancel()
			if err := s.Append(ctx, e); err != nil {
				// The chain itself remains authoritative; a sink failure
				// must not affect gameplay.
				_ = err
			}
		}(s, e)
	}
	// Detach the returned payload map from the stored entry's.
	e.Payload = clonePayload(e.Payload)
	return e
}

// Entries returns a snapshot of the chain in insertion order.
func (c *Chain) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of entries appended so far.
func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// VerifyIntegrity walks the whole chain recomputing hashes, links, and
// signatures, and reports every break found so a reader can localize
// tampering rather than just detect it.
func (c *Chain) VerifyIntegrity() (bool, []error) {
	c.mu.Lock()
	entries := make([]Entry, len(c.entries))
	copy(entries, c.entries)
	pub := c.pub
	c.mu.Unlock()

	return VerifyEntries(entries, pub)
}

// VerifyEntries checks an ordered entry list against a verification key.
// Exposed so third parties holding an exported log can audit it.
func VerifyEntries(entries []Entry, pub ed25519.PublicKey) (bool, []error) {
	var errs []error
	prevHash := ""
	for i, e := range entries {
		if got := entryHash(e); got != e.Hash {
			errs = append(errs, fmt.Errorf("entry %d (%s): content hash mismatch", i, e.Action))
		}
		if e.PrevHash != prevHash {
			errs = append(errs, fmt.Errorf("entry %d (%s): broken link to previous entry", i, e.Action))
		}
		sig, err := hex.DecodeString(e.Signature)
		if err != nil || !ed25519.Verify(pub, []byte(e.Hash), sig) {
			errs = append(errs, fmt.Errorf("entry %d (%s): signature verification failed", i, e.Action))
		}
		prevHash = e.Hash
	}
	return len(errs) == 0, errs
}
