// internal/table/game.go
package table

import (
	"time"

	"github.com/coder/quartz"

	"github.com/tilewire/mahjong/internal/tiles"
)

// TurnState tracks whose turn it is and what action is expected next.
type TurnState struct {
	Seat int `json:"seat"`

	// AwaitingDiscard is true once the seat holds 14 tiles (after a draw or
	// claim) and must discard; false while the seat still needs to draw.
	AwaitingDiscard bool `json:"awaitingDiscard"`

	// Claim is the open claim window, nil outside one.
	Claim *ClaimWindow `json:"claim,omitempty"`
}

// ClaimWindow is the bounded interval after a discard during which the
// other seats may claim the tile.
type ClaimWindow struct {
	Tile      tiles.Tile `json:"tile"`
	FromSeat  int        `json:"fromSeat"`
	ExpiresAt time.Time  `json:"expiresAt"`

	timer *quartz.Timer
}

// GameState is a table's authoritative in-play state. Nil until four seats
// fill. All access is serialized by the owning table's lock.
type GameState struct {
	DealerSeat int `json:"dealerSeat"`

	// ShuffleNonce is the nonce the deal was shuffled under, published at
	// seed reveal so third parties can replay the shuffle.
	ShuffleNonce uint64 `json:"shuffleNonce"`

	Dice [2]int `json:"dice"`

	Hands    [numSeats][]tiles.Tile `json:"-"`
	DrawPile []tiles.Tile           `json:"-"`

	// Reserved holds the dealer's set-aside pairs from the wall break.
	Reserved []tiles.Tile `json:"-"`

	Discards  []tiles.Tile             `json:"discards"`
	Exposures [numSeats][][]tiles.Tile `json:"exposures"`

	Turn TurnState `json:"turn"`
}

// jokerCount counts jokers across a seat's hand and exposures, used for
// scoring a declared win.
func (g *GameState) jokerCount(seat int) int {
	n := 0
	for _, t := range g.Hands[seat] {
		if t.IsJoker() {
			n++
		}
	}
	for _, exp := range g.Exposures[seat] {
		for _, t := range exp {
			if t.IsJoker() {
				n++
			}
		}
	}
	return n
}
