// internal/tiles/deal.go
package tiles

import (
	"fmt"

	"github.com/tilewire/mahjong/internal/fairness"
)

const (
	// WallCount and WallSize partition the shuffled set: 4 walls of 38.
	WallCount = 4
	WallSize  = 38

	// HandSize is the non-dealer starting hand; the dealer starts with one
	// extra tile and discards first.
	HandSize       = 13
	DealerHandSize = 14
)

// Deal is the complete result of dealing a table. It is a pure function of
// the seed material and dealer seat, so replaying it from the revealed
// secret reproduces every hand.
type Deal struct {
	// Shuffled is the full 152-tile shuffle output, before any split.
	// Verifiers compare this against fairness.Shuffle of the canonical set.
	Shuffled []Tile

	Walls [WallCount][]Tile
	Dice  [2]int

	// Reserved holds the dealer's set-aside tile pairs from the wall break.
	Reserved []Tile

	Hands [WallCount][]Tile

	// DrawPile is the remaining live wall in draw order.
	DrawPile []Tile

	DealerSeat int
}

// DealGame shuffles the full set under the table's seed material, splits it
// into four walls, rolls two dice from the same deterministic stream to
// break the wall and reserve the dealer's tile pairs, then deals three
// rounds of four tiles per seat starting at the dealer plus a final round
// in which the dealer takes two tiles and the other seats one.
func DealGame(secret, clientSeed string, nonce uint64, dealerSeat int) (*Deal, error) {
	if dealerSeat < 0 || dealerSeat >= WallCount {
		return nil, fmt.Errorf("deal: invalid dealer seat %d", dealerSeat)
	}

	r := fairness.NewShuffleRand(secret, clientSeed, nonce)
	shuffled := fairness.ShuffleWithRand(FullSet(), r)

	d := &Deal{
		Shuffled:   shuffled,
		DealerSeat: dealerSeat,
		Dice:       [2]int{r.IntN(6) + 1, r.IntN(6) + 1},
	}
	for w := 0; w < WallCount; w++ {
		d.Walls[w] = append([]Tile(nil), shuffled[w*WallSize:(w+1)*WallSize]...)
	}

	// Draw order starts at the broken wall, offset by the dice sum, and
	// wraps; the tiles skipped by the break move to the very end.
	breakWall := (dealerSeat + d.Dice[0] + d.Dice[1] - 1) % WallCount
	breakOffset := 2 * (d.Dice[0] + d.Dice[1]) % WallSize
	order := make([]Tile, 0, SetSize)
	order = append(order, d.Walls[breakWall][breakOffset:]...)
	for i := 1; i < WallCount; i++ {
		order = append(order, d.Walls[(breakWall+i)%WallCount]...)
	}
	order = append(order, d.Walls[breakWall][:breakOffset]...)

	// The smaller die decides how many tile pairs the dealer reserves off
	// the tail of the draw order.
	pairs := d.Dice[0]
	if d.Dice[1] < pairs {
		pairs = d.Dice[1]
	}
	reserve := 2 * pairs
	d.Reserved = append([]Tile(nil), order[len(order)-reserve:]...)
	order = order[:len(order)-reserve]

	// Three rounds of four tiles per seat, rotating from the dealer.
	for round := 0; round < 3; round++ {
		for s := 0; s < WallCount; s++ {
			seat := (dealerSeat + s) % WallCount
			d.Hands[seat] = append(d.Hands[seat], order[:4]...)
			order = order[4:]
		}
	}
	// Final round: one tile each, dealer takes a second for the 14th.
	for s := 0; s < WallCount; s++ {
		seat := (dealerSeat + s) % WallCount
		d.Hands[seat] = append(d.Hands[seat], order[0])
		order = order[1:]
	}
	d.Hands[dealerSeat] = append(d.Hands[dealerSeat], order[0])
	order = order[1:]

	d.DrawPile = order
	return d, nil
}
