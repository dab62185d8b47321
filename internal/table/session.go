// internal/table/session.go
package table

import (
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/tilewire/mahjong/internal/protocol"
)

// Conn is the outbound half of a player connection. Send must not block;
// the websocket layer backs it with a buffered channel and a writer pump so
// game logic never waits on network I/O.
type Conn interface {
	Send(msg protocol.ServerMessage)
}

type ConnStatus string

const (
	ConnConnected    ConnStatus = "connected"
	ConnGracePeriod  ConnStatus = "grace_period"
	ConnDisconnected ConnStatus = "disconnected"
)

// PlayerSession binds a seat to a human, independent of any single
// connection. It is created once per human per table and survives
// reconnections until the human leaves or the table is torn down.
type PlayerSession struct {
	ID          uuid.UUID
	TableID     uuid.UUID
	Seat        int
	DisplayName string

	Status         ConnStatus
	DisconnectedAt time.Time

	// Conn is the currently attached connection, nil while disconnected.
	Conn Conn

	// graceTimer runs between a connection drop and the seat being marked
	// disconnected. Cancelled atomically on reattach, under the table lock.
	graceTimer *quartz.Timer

	// graceEpoch increments on every attach and detach so a grace timer
	// that lost the cancellation race can detect it went stale.
	graceEpoch int
}

// Connected reports whether a live connection is attached.
func (s *PlayerSession) Connected() bool {
	return s.Status == ConnConnected && s.Conn != nil
}

// send delivers a message if a connection is attached, silently dropping it
// otherwise. Reconnecting clients receive a fresh state snapshot instead of
// a replay.
func (s *PlayerSession) send(msg protocol.ServerMessage) {
	if s.Conn != nil {
		s.Conn.Send(msg)
	}
}

// cancelGraceTimer stops a pending grace timer, if any. Must be called with
// the table lock held so a concurrently firing timer observes the change.
func (s *PlayerSession) cancelGraceTimer() {
	if s.graceTimer != nil {
		s.graceTimer.Stop()
		s.graceTimer = nil
	}
}
