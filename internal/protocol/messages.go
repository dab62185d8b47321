// internal/protocol/messages.go
//
// Wire shapes for the table websocket. Inbound and outbound messages share
// the same envelope: a type tag plus a sender-supplied trace id and
// timestamp. Unknown or malformed inbound messages are discarded with a
// warning, never a crash.
package protocol

import (
	"time"

	"github.com/tilewire/mahjong/internal/tiles"
)

// Inbound message types.
const (
	TypeCreateTable      = "create_table"
	TypeJoinTable        = "join_table"
	TypeLeaveTable       = "leave_table"
	TypeCharlestonSelect = "charleston_select"
	TypeCharlestonReady  = "charleston_ready"
	TypeCharlestonVote   = "charleston_vote"
	TypeCourtesySelect   = "courtesy_select"
	TypeDrawTile         = "draw_tile"
	TypeDiscardTile      = "discard_tile"
	TypeClaimTile        = "claim_tile"
	TypeDeclareWin       = "declare_win"
	TypePing             = "ping"
)

// Outbound message types.
const (
	TypeTableCreated           = "table_created"
	TypeTableJoined            = "table_joined"
	TypeRejected               = "rejected"
	TypePlayerCountUpdate      = "player_count_update"
	TypePlayersUpdate          = "players_update"
	TypeGameStarted            = "game_started"
	TypeGamePaused             = "game_paused"
	TypeGameResumed            = "game_resumed"
	TypeCharlestonState        = "charleston_state"
	TypeCharlestonPassExecuted = "charleston_pass_executed"
	TypeTurnStart              = "turn_start"
	TypeTileDrawn              = "tile_drawn"
	TypeTileDiscarded          = "tile_discarded"
	TypeClaimWindow            = "claim_window"
	TypeClaimWindowClosed      = "claim_window_closed"
	TypeGameEnded              = "game_ended"
	TypeError                  = "error"
	TypePong                   = "pong"
)

// Rejection and error codes.
const (
	CodeTableFull         = "table_full"
	CodeGameInProgress    = "game_in_progress"
	CodeInvalidInviteCode = "invalid_invite_code"
	CodeTableNotFound     = "table_not_found"
	CodeNotSeated         = "not_seated"
	CodeNotYourTurn       = "not_your_turn"
	CodeInvalidSelection  = "invalid_selection"
	CodeTablePaused       = "table_paused"
	CodeInvalidMessage    = "invalid_message"
	CodeInternal          = "internal_error"
)

// ClientMessage is the inbound envelope. Only the fields relevant to the
// tagged type are populated; the rest stay zero.
type ClientMessage struct {
	Type      string `json:"type"`
	TraceID   string `json:"traceId"`
	Timestamp int64  `json:"timestamp"`

	// create_table / join_table
	InviteCode   string `json:"inviteCode,omitempty"`
	ClientSeed   string `json:"clientSeed,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
	SessionToken string `json:"sessionToken,omitempty"`

	// charleston_select / courtesy_select / claim exposure
	Tiles []tiles.Tile `json:"tiles,omitempty"`

	// charleston_select: number of own tiles kept on a blind pass; nil for a
	// normal pass.
	BlindKeep *int `json:"blindKeep,omitempty"`

	// courtesy_select
	TargetSeat *int `json:"targetSeat,omitempty"`

	// charleston_vote
	Vote *bool `json:"vote,omitempty"`

	// discard_tile / claim_tile
	Tile tiles.Tile `json:"tile,omitempty"`

	// declare_win
	Pattern string `json:"pattern,omitempty"`
}

// Valid reports whether the envelope carries the mandatory tag, trace id,
// and timestamp.
func (m ClientMessage) Valid() bool {
	return m.Type != "" && m.TraceID != "" && m.Timestamp != 0
}

// ServerMessage is the outbound envelope.
type ServerMessage struct {
	Type      string         `json:"type"`
	TraceID   string         `json:"traceId,omitempty"`
	Timestamp int64          `json:"timestamp"`
	Code      string         `json:"code,omitempty"`
	Message   string         `json:"message,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// New builds an outbound message stamped with the current time.
func New(msgType string, payload map[string]any) ServerMessage {
	return ServerMessage{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	}
}

// NewError builds an outbound error with a machine code and human detail.
func NewError(code, message string) ServerMessage {
	m := New(TypeError, nil)
	m.Code = code
	m.Message = message
	return m
}

// NewRejected builds a join rejection carrying one of the Code* values.
func NewRejected(code string) ServerMessage {
	m := New(TypeRejected, nil)
	m.Code = code
	return m
}
