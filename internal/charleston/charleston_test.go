// internal/charleston/charleston_test.go
package charleston

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilewire/mahjong/internal/tiles"
)

// testHands builds four distinct 13-tile hands so pass provenance is easy to
// assert on.
func testHands() [NumSeats][]tiles.Tile {
	ranks := []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "1", "2", "3", "4"}
	suits := []string{"D", "B", "C", "D"}
	var hands [NumSeats][]tiles.Tile
	for seat := 0; seat < NumSeats; seat++ {
		for i, r := range ranks {
			suit := suits[(seat+i)%len(suits)]
			hands[seat] = append(hands[seat], tiles.Tile(r+suit))
		}
	}
	return hands
}

func selectAndReady(t *testing.T, s *State, hands [NumSeats][]tiles.Tile) {
	t.Helper()
	for seat := 0; seat < NumSeats; seat++ {
		require.NoError(t, s.Select(seat, hands[seat][:PassSize], -1))
		require.NoError(t, s.Ready(seat))
	}
}

func TestPhaseOrderFirstRound(t *testing.T) {
	s := New(false)
	assert.Equal(t, PhasePassRight, s.Phase)

	hands := testHands()
	for _, want := range []Phase{PhasePassAcross, PhasePassLeft, PhaseVote} {
		selectAndReady(t, s, hands)
		_, err := s.ExecutePass(&hands)
		require.NoError(t, err)
		assert.Equal(t, want, s.Advance())
	}
	assert.Equal(t, 3, s.PassCount)
}

func TestBarrierHoldsUntilAllReady(t *testing.T) {
	s := New(false)
	hands := testHands()

	for seat := 0; seat < 3; seat++ {
		require.NoError(t, s.Select(seat, hands[seat][:3], -1))
		require.NoError(t, s.Ready(seat))
	}
	assert.False(t, s.AllReady())
	_, err := s.ExecutePass(&hands)
	assert.Error(t, err, "pass must not execute before all four seats are ready")

	require.NoError(t, s.Select(3, hands[3][:3], -1))
	require.NoError(t, s.Ready(3))
	assert.True(t, s.AllReady())
}

func TestSelectRejectsInvalid(t *testing.T) {
	s := New(false)
	hands := testHands()

	err := s.Select(0, hands[0][:2], -1)
	assert.ErrorIs(t, err, ErrWrongCount)
	err = s.Select(0, append(hands[0][:3:3], hands[0][4]), -1)
	assert.ErrorIs(t, err, ErrWrongCount)
	err = s.Select(0, []tiles.Tile{"1D", "2B", tiles.Joker}, -1)
	assert.ErrorIs(t, err, ErrJokerNotPassable)
	err = s.Select(4, hands[0][:3], -1)
	assert.ErrorIs(t, err, ErrBadSeat)

	// A rejected selection never leaves the seat ready.
	assert.Error(t, s.Ready(0))
	assert.False(t, s.Seats[0].Ready)
}

func TestBlindPassEligibility(t *testing.T) {
	s := New(false)
	hands := testHands()

	// pass_right is not blind-eligible by default.
	err := s.Select(0, hands[0][:2], 1)
	assert.ErrorIs(t, err, ErrBlindNotAllowed)

	s.Phase = PhasePassLeft
	require.NoError(t, s.Select(0, hands[0][:2], 1))
	assert.Error(t, s.Select(0, hands[0][:3], 1), "blind keep 1 passes 2 own tiles, not 3")
	err = s.Select(0, hands[0][:0], 3)
	assert.ErrorIs(t, err, ErrWrongCount)

	all := New(true)
	require.NoError(t, all.Select(0, hands[0][:1], 2), "blind allowed everywhere when enabled")
}

func TestPassRotations(t *testing.T) {
	cases := []struct {
		phase Phase
		off   int
	}{
		{PhasePassRight, 1},
		{PhasePassAcross, 2},
		{PhasePassLeft, 3},
		{PhasePassLeft2, 3},
		{PhasePassAcross2, 2},
		{PhasePassRight2, 1},
	}
	for _, tc := range cases {
		t.Run(string(tc.phase), func(t *testing.T) {
			s := New(false)
			s.Phase = tc.phase
			for seat := 0; seat < NumSeats; seat++ {
				got, err := s.RecipientOf(seat)
				require.NoError(t, err)
				assert.Equal(t, (seat+tc.off)%NumSeats, got)
			}

			hands := testHands()
			want := testHands()
			var sel [NumSeats][]tiles.Tile
			for seat := 0; seat < NumSeats; seat++ {
				sel[seat] = append([]tiles.Tile(nil), hands[seat][:3]...)
				require.NoError(t, s.Select(seat, sel[seat], -1))
				require.NoError(t, s.Ready(seat))
			}
			results, err := s.ExecutePass(&hands)
			require.NoError(t, err)

			for seat := 0; seat < NumSeats; seat++ {
				sender := (seat + NumSeats - tc.off) % NumSeats
				assert.Equal(t, sel[sender], results[seat].Incoming, "seat %d incoming", seat)
				assert.Len(t, hands[seat], 13)
				expected := append(append([]tiles.Tile(nil), want[seat][3:]...), sel[sender]...)
				assert.ElementsMatch(t, expected, hands[seat])
			}
		})
	}
}

func TestBlindPassSkimsIncoming(t *testing.T) {
	s := New(false)
	s.Phase = PhasePassLeft // recipient = seat+3, sender = seat+1
	hands := testHands()

	// Seat 0 keeps 2 own tiles; its pass is 1 own tile plus the first 2 of
	// seat 1's pass, forwarded unseen.
	require.NoError(t, s.Select(0, hands[0][:1], 2))
	var sel [NumSeats][]tiles.Tile
	sel[0] = append([]tiles.Tile(nil), hands[0][:1]...)
	for seat := 1; seat < NumSeats; seat++ {
		sel[seat] = append([]tiles.Tile(nil), hands[seat][:3]...)
		require.NoError(t, s.Select(seat, sel[seat], -1))
	}
	for seat := 0; seat < NumSeats; seat++ {
		require.NoError(t, s.Ready(seat))
	}

	results, err := s.ExecutePass(&hands)
	require.NoError(t, err)

	assert.Equal(t, 2, results[0].BlindForwarded)
	assert.Equal(t, append(append([]tiles.Tile(nil), sel[0]...), sel[1][:2]...), results[0].Outgoing)
	assert.Equal(t, sel[1][2:], results[0].Incoming, "seat 0 keeps only the unskimmed remainder")
	assert.Equal(t, results[0].Outgoing, results[3].Incoming, "seat 3 receives the blind tiles")

	// Every seat ends at 13 tiles regardless of blind elections.
	for seat := 0; seat < NumSeats; seat++ {
		assert.Len(t, hands[seat], 13, "seat %d", seat)
	}
}

func TestAllBlindCycleConservesHands(t *testing.T) {
	s := New(true)
	s.Phase = PhasePassAcross
	hands := testHands()
	total := tiles.Counts(append(append(append(append([]tiles.Tile(nil), hands[0]...), hands[1]...), hands[2]...), hands[3]...))

	for seat := 0; seat < NumSeats; seat++ {
		require.NoError(t, s.Select(seat, hands[seat][:1], 2))
		require.NoError(t, s.Ready(seat))
	}
	_, err := s.ExecutePass(&hands)
	require.NoError(t, err)

	after := append(append(append(append([]tiles.Tile(nil), hands[0]...), hands[1]...), hands[2]...), hands[3]...)
	assert.Equal(t, total, tiles.Counts(after))
	for seat := 0; seat < NumSeats; seat++ {
		assert.Len(t, hands[seat], 13, "seat %d", seat)
	}
}

func TestVoteOutcomes(t *testing.T) {
	t.Run("three yes runs second round", func(t *testing.T) {
		s := New(false)
		s.Phase = PhaseVote
		for seat, yes := range []bool{true, true, true, false} {
			require.NoError(t, s.CastVote(seat, yes))
		}
		assert.True(t, s.VoteComplete())
		assert.True(t, s.VotePassed())
		assert.Equal(t, PhasePassLeft2, s.Advance())
	})

	t.Run("two yes completes", func(t *testing.T) {
		s := New(false)
		s.Phase = PhaseVote
		for seat, yes := range []bool{true, true, false, false} {
			require.NoError(t, s.CastVote(seat, yes))
		}
		assert.False(t, s.VotePassed())
		assert.Equal(t, PhaseComplete, s.Advance())
		assert.True(t, s.Complete())
	})

	t.Run("double vote rejected", func(t *testing.T) {
		s := New(false)
		s.Phase = PhaseVote
		require.NoError(t, s.CastVote(1, true))
		assert.ErrorIs(t, s.CastVote(1, false), ErrAlreadyVoted)
	})
}

func TestSecondRoundEndsInCourtesy(t *testing.T) {
	s := New(false)
	s.Phase = PhasePassRight2
	hands := testHands()
	selectAndReady(t, s, hands)
	_, err := s.ExecutePass(&hands)
	require.NoError(t, err)
	assert.Equal(t, PhaseCourtesy, s.Advance())
}

func TestCourtesy(t *testing.T) {
	s := New(false)
	s.Phase = PhaseCourtesy
	hands := testHands()

	assert.ErrorIs(t, s.SelectCourtesy(0, 0, hands[0][:1]), ErrSelfTarget)
	assert.ErrorIs(t, s.SelectCourtesy(0, 2, hands[0][:4]), ErrWrongCount)
	assert.ErrorIs(t, s.SelectCourtesy(0, 2, []tiles.Tile{tiles.Joker}), ErrJokerNotPassable)

	require.NoError(t, s.SelectCourtesy(0, 2, hands[0][:2]))
	require.NoError(t, s.SelectCourtesy(2, 0, hands[2][:1]))
	// Seats 1 and 3 decline.
	require.NoError(t, s.SelectCourtesy(1, -1, nil))
	require.NoError(t, s.SelectCourtesy(3, -1, nil))
	for seat := 0; seat < NumSeats; seat++ {
		require.NoError(t, s.Ready(seat))
	}

	gift02 := append([]tiles.Tile(nil), hands[0][:2]...)
	gift20 := append([]tiles.Tile(nil), hands[2][:1]...)
	results, err := s.ExecuteCourtesy(&hands)
	require.NoError(t, err)

	assert.Equal(t, gift02, results[2].Incoming)
	assert.Equal(t, gift20, results[0].Incoming)
	assert.Len(t, hands[0], 12)
	assert.Len(t, hands[2], 14)
	assert.Len(t, hands[1], 13)

	assert.Equal(t, PhaseComplete, s.Advance())
}

func TestAdvanceResetsSeatsButKeepsVotes(t *testing.T) {
	s := New(false)
	hands := testHands()
	selectAndReady(t, s, hands)
	_, err := s.ExecutePass(&hands)
	require.NoError(t, err)
	s.Advance()

	for seat := 0; seat < NumSeats; seat++ {
		assert.False(t, s.Seats[seat].Ready)
		assert.Empty(t, s.Seats[seat].Selected)
		assert.Equal(t, -1, s.Seats[seat].BlindKeep)
	}
}
