// internal/table/table.go
package table

import (
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/tilewire/mahjong/internal/audit"
	"github.com/tilewire/mahjong/internal/charleston"
	"github.com/tilewire/mahjong/internal/protocol"
)

const numSeats = 4

type Status string

const (
	StatusCreated  Status = "created"
	StatusFilling  Status = "filling"
	StatusPlaying  Status = "playing"
	StatusPaused   Status = "paused"
	StatusFinished Status = "finished"
)

// SeedMaterial is a table's fairness state. The commitment is published at
// creation and never changes; the secret stays private until the game ends
// and is revealed at most once. ShuffleNonce increments on every verifiable
// shuffle so repeated shuffles stay reproducible without repeating.
type SeedMaterial struct {
	ServerSecret string
	Commitment   string
	ClientSeed   string
	ShuffleNonce uint64
	Revealed     bool
}

// Table is the unit of serialization: every mutation of game state,
// Charleston state, or the seat map happens under mu, one message at a
// time. Tables are fully independent of each other.
type Table struct {
	mu sync.Mutex

	ID         uuid.UUID
	InviteCode string
	CreatedAt  time.Time
	Status     Status

	Seed SeedMaterial

	// Sessions is indexed by seat; nil entries are unfilled seats.
	Sessions [numSeats]*PlayerSession

	// Game is nil until the fourth seat fills; Charleston exists iff Game
	// exists and the exchange has not completed.
	Game       *GameState
	Charleston *charleston.State

	Chain *audit.Chain

	// teardownTimer runs while the table is abandoned; cancelled when
	// anyone rejoins.
	teardownTimer *quartz.Timer
}

// seatedCount returns the number of occupied seats. Caller holds mu.
func (t *Table) seatedCount() int {
	n := 0
	for _, s := range t.Sessions {
		if s != nil {
			n++
		}
	}
	return n
}

// attachedCount returns the number of seats with a live connection.
// Caller holds mu.
func (t *Table) attachedCount() int {
	n := 0
	for _, s := range t.Sessions {
		if s != nil && s.Connected() {
			n++
		}
	}
	return n
}

// anyDisconnected reports whether any occupied seat is past its grace
// period. Caller holds mu.
func (t *Table) anyDisconnected() bool {
	for _, s := range t.Sessions {
		if s != nil && s.Status == ConnDisconnected {
			return true
		}
	}
	return false
}

// broadcast sends to every attached seat. Sends are non-blocking enqueues,
// so holding mu across them is safe and preserves per-connection order.
func (t *Table) broadcast(msg protocol.ServerMessage) {
	for _, s := range t.Sessions {
		if s != nil {
			s.send(msg)
		}
	}
}

// sendToSeat sends to one seat if occupied and attached.
func (t *Table) sendToSeat(seat int, msg protocol.ServerMessage) {
	if seat >= 0 && seat < numSeats && t.Sessions[seat] != nil {
		t.Sessions[seat].send(msg)
	}
}

// cancelAllTimers stops every outstanding timer owned by the table or its
// sessions. Caller holds mu; part of teardown and must leave no callback
// able to mutate a deleted table.
func (t *Table) cancelAllTimers() {
	for _, s := range t.Sessions {
		if s != nil {
			s.cancelGraceTimer()
		}
	}
	if t.Game != nil && t.Game.Turn.Claim != nil && t.Game.Turn.Claim.timer != nil {
		t.Game.Turn.Claim.timer.Stop()
		t.Game.Turn.Claim.timer = nil
	}
	if t.teardownTimer != nil {
		t.teardownTimer.Stop()
		t.teardownTimer = nil
	}
}

// playersPayload summarizes the seat map for players_update broadcasts.
// Caller holds mu.
func (t *Table) playersPayload() map[string]any {
	players := make([]map[string]any, 0, numSeats)
	for seat, s := range t.Sessions {
		if s == nil {
			continue
		}
		players = append(players, map[string]any{
			"seat":        seat,
			"displayName": s.DisplayName,
			"status":      s.Status,
		})
	}
	return map[string]any{"players": players, "count": len(players)}
}
