// internal/tiles/deal_test.go
package tiles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilewire/mahjong/internal/fairness"
)

func TestFullSetComposition(t *testing.T) {
	set := FullSet()
	require.Len(t, set, SetSize)

	counts := Counts(set)
	assert.Equal(t, 8, counts[Joker])
	assert.Equal(t, 8, counts[Flower])
	assert.Equal(t, 4, counts[Tile("1D")])
	assert.Equal(t, 4, counts[Tile("9C")])
	assert.Equal(t, 4, counts[Tile("WE")])
	assert.Equal(t, 4, counts[Tile("DW")])
	assert.Len(t, counts, 3*9+4+3+2)
}

func TestDealGameHandSizes(t *testing.T) {
	for dealer := 0; dealer < 4; dealer++ {
		d, err := DealGame("secret", "abc", 0, dealer)
		require.NoError(t, err)

		for seat := 0; seat < 4; seat++ {
			if seat == dealer {
				assert.Len(t, d.Hands[seat], DealerHandSize, "dealer seat %d", seat)
			} else {
				assert.Len(t, d.Hands[seat], HandSize, "seat %d (dealer %d)", seat, dealer)
			}
		}
		for w := 0; w < WallCount; w++ {
			assert.Len(t, d.Walls[w], WallSize)
		}
		assert.GreaterOrEqual(t, d.Dice[0], 1)
		assert.LessOrEqual(t, d.Dice[0], 6)
		assert.Equal(t, len(d.Reserved)%2, 0, "reserved tiles come in pairs")

		// No tile appears or disappears across the deal.
		dealt := append([]Tile(nil), d.DrawPile...)
		dealt = append(dealt, d.Reserved...)
		for seat := 0; seat < 4; seat++ {
			dealt = append(dealt, d.Hands[seat]...)
		}
		assert.Equal(t, Counts(FullSet()), Counts(dealt))
	}
}

func TestDealGameReproducible(t *testing.T) {
	a, err := DealGame("secret", "abc", 0, 1)
	require.NoError(t, err)
	b, err := DealGame("secret", "abc", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := DealGame("secret", "abc", 1, 1)
	require.NoError(t, err)
	assert.NotEqual(t, a.Shuffled, c.Shuffled, "nonce must change the shuffle")
}

func TestDealGameShuffleVerifiable(t *testing.T) {
	d, err := DealGame("secret", "abc", 0, 0)
	require.NoError(t, err)

	ok, errs := fairness.VerifyShuffle(FullSet(), d.Shuffled, "secret", "abc", 0)
	assert.True(t, ok)
	assert.Empty(t, errs)
}

func TestDealGameRejectsBadSeat(t *testing.T) {
	_, err := DealGame("secret", "abc", 0, 4)
	assert.Error(t, err)
	_, err = DealGame("secret", "abc", 0, -1)
	assert.Error(t, err)
}

func TestRemoveAndContains(t *testing.T) {
	hand := []Tile{"1D", "1D", "2B", "WE", "JK"}

	out, ok := Remove(hand, []Tile{"1D", "WE"})
	require.True(t, ok)
	assert.Equal(t, []Tile{"1D", "2B", "JK"}, out)

	_, ok = Remove(hand, []Tile{"9C"})
	assert.False(t, ok)
	_, ok = Remove(hand, []Tile{"1D", "1D", "1D"})
	assert.False(t, ok)

	assert.True(t, Contains(hand, []Tile{"2B", "JK"}))
	assert.False(t, Contains(hand, []Tile{"2B", "2B"}))
}
