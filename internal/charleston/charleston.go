// internal/charleston/charleston.go
//
// Pre-play tile exchange: three fixed passes, an optional voted second round
// of three more, then a courtesy exchange. Each pass phase is a barrier; the
// phase never advances until all four seats are ready.
//
// The caller (the table manager) serializes all access; State carries no
// lock of its own.
package charleston

import (
	"errors"
	"fmt"

	"github.com/tilewire/mahjong/internal/tiles"
)

type Phase string

const (
	PhasePassRight   Phase = "pass_right"
	PhasePassAcross  Phase = "pass_across"
	PhasePassLeft    Phase = "pass_left"
	PhaseVote        Phase = "vote"
	PhasePassLeft2   Phase = "pass_left_2"
	PhasePassAcross2 Phase = "pass_across_2"
	PhasePassRight2  Phase = "pass_right_2"
	PhaseCourtesy    Phase = "courtesy"
	PhaseComplete    Phase = "complete"
)

const (
	NumSeats = 4

	// PassSize is the number of tiles forwarded in every pass.
	PassSize = 3
)

var (
	ErrWrongPhase       = errors.New("charleston: action not valid in current phase")
	ErrBadSeat          = errors.New("charleston: seat out of range")
	ErrWrongCount       = errors.New("charleston: wrong number of tiles selected")
	ErrJokerNotPassable = errors.New("charleston: jokers may not be passed")
	ErrBlindNotAllowed  = errors.New("charleston: blind pass not allowed in this phase")
	ErrSelfTarget       = errors.New("charleston: courtesy target must be another seat")
	ErrAlreadyVoted     = errors.New("charleston: seat already voted")
)

// SeatState is one seat's progress through the current phase. It is reset
// whenever the phase advances.
type SeatState struct {
	// Selected holds the seat's own tiles pending pass (or courtesy gift).
	Selected []tiles.Tile `json:"selected"`
	Ready    bool         `json:"ready"`

	// BlindKeep is the number of own tiles the seat elected to keep on a
	// blind-eligible phase; the shortfall is forwarded sight-unseen from the
	// incoming pass. -1 means no blind election.
	BlindKeep int `json:"blindKeep"`

	// Vote is nil until the seat has voted on the second round.
	Vote *bool `json:"vote,omitempty"`

	// CourtesyTarget is the seat receiving this seat's courtesy tiles, or -1.
	CourtesyTarget int `json:"courtesyTarget"`
}

func newSeatState() SeatState {
	return SeatState{BlindKeep: -1, CourtesyTarget: -1}
}

// State is one table's Charleston. Created when the fourth seat fills,
// discarded once PhaseComplete is reached.
type State struct {
	Phase Phase `json:"phase"`

	// PassCount counts executed passes, 1-based after the first.
	PassCount int `json:"passCount"`

	Seats [NumSeats]SeatState `json:"seats"`

	// BlindPassAll extends blind-pass eligibility from the two traditional
	// phases (first left, second right) to every pass phase.
	BlindPassAll bool `json:"blindPassAll"`
}

func New(blindPassAll bool) *State {
	s := &State{Phase: PhasePassRight, BlindPassAll: blindPassAll}
	for i := range s.Seats {
		s.Seats[i] = newSeatState()
	}
	return s
}

// passOffset returns the seat rotation for a pass phase: the recipient of
// seat s is (s+offset)%4.
func passOffset(p Phase) (int, bool) {
	switch p {
	case PhasePassRight, PhasePassRight2:
		return 1, true
	case PhasePassAcross, PhasePassAcross2:
		return 2, true
	case PhasePassLeft, PhasePassLeft2:
		return 3, true
	}
	return 0, false
}

func (s *State) isPassPhase() bool {
	_, ok := passOffset(s.Phase)
	return ok
}

// RecipientOf returns the seat that receives seat's outgoing tiles in the
// current pass phase.
func (s *State) RecipientOf(seat int) (int, error) {
	off, ok := passOffset(s.Phase)
	if !ok {
		return 0, ErrWrongPhase
	}
	if seat < 0 || seat >= NumSeats {
		return 0, ErrBadSeat
	}
	return (seat + off) % NumSeats, nil
}

// BlindAllowed reports whether the current phase permits a blind-pass
// election. Traditionally only the first round's last pass and the second
// round's last pass qualify.
func (s *State) BlindAllowed() bool {
	if !s.isPassPhase() {
		return false
	}
	if s.BlindPassAll {
		return true
	}
	return s.Phase == PhasePassLeft || s.Phase == PhasePassRight2
}

// Select records a seat's outgoing tiles for the current pass phase.
// blindKeep < 0 means a normal 3-tile pass; blindKeep in {0,1,2} elects a
// blind pass keeping that many own tiles, so only 3-blindKeep tiles are
// selected. Invalid selections are rejected here, not at barrier time.
func (s *State) Select(seat int, selected []tiles.Tile, blindKeep int) error {
	if seat < 0 || seat >= NumSeats {
		return ErrBadSeat
	}
	if !s.isPassPhase() {
		return ErrWrongPhase
	}

	want := PassSize
	if blindKeep >= 0 {
		if !s.BlindAllowed() {
			return ErrBlindNotAllowed
		}
		if blindKeep >= PassSize {
			return fmt.Errorf("%w: blind keep must be 0-2, got %d", ErrWrongCount, blindKeep)
		}
		want = PassSize - blindKeep
	}
	if len(selected) != want {
		return fmt.Errorf("%w: want %d, got %d", ErrWrongCount, want, len(selected))
	}
	for _, t := range selected {
		if t.IsJoker() {
			return ErrJokerNotPassable
		}
	}

	st := &s.Seats[seat]
	st.Selected = append([]tiles.Tile(nil), selected...)
	st.BlindKeep = blindKeep
	st.Ready = false
	return nil
}

// SelectCourtesy records a courtesy gift of 0-3 tiles to another seat.
// Zero tiles means the seat declines; target is ignored in that case.
func (s *State) SelectCourtesy(seat int, target int, selected []tiles.Tile) error {
	if seat < 0 || seat >= NumSeats {
		return ErrBadSeat
	}
	if s.Phase != PhaseCourtesy {
		return ErrWrongPhase
	}
	if len(selected) > PassSize {
		return fmt.Errorf("%w: courtesy passes at most %d tiles", ErrWrongCount, PassSize)
	}
	if len(selected) > 0 {
		if target < 0 || target >= NumSeats {
			return ErrBadSeat
		}
		if target == seat {
			return ErrSelfTarget
		}
		for _, t := range selected {
			if t.IsJoker() {
				return ErrJokerNotPassable
			}
		}
	} else {
		target = -1
	}

	st := &s.Seats[seat]
	st.Selected = append([]tiles.Tile(nil), selected...)
	st.CourtesyTarget = target
	st.Ready = false
	return nil
}

// Ready marks a seat ready behind the current barrier. A pass phase requires
// a valid prior selection; courtesy treats no selection as declining.
func (s *State) Ready(seat int) error {
	if seat < 0 || seat >= NumSeats {
		return ErrBadSeat
	}
	switch {
	case s.isPassPhase():
		st := &s.Seats[seat]
		want := PassSize
		if st.BlindKeep >= 0 {
			want = PassSize - st.BlindKeep
		}
		if len(st.Selected) != want {
			return fmt.Errorf("%w: select %d tiles before readying", ErrWrongCount, want)
		}
	case s.Phase == PhaseCourtesy:
		// declining is a valid courtesy selection
	default:
		return ErrWrongPhase
	}
	s.Seats[seat].Ready = true
	return nil
}

// AllReady reports whether every seat has passed the current barrier.
func (s *State) AllReady() bool {
	for i := range s.Seats {
		if !s.Seats[i].Ready {
			return false
		}
	}
	return true
}

// CastVote records a seat's yes/no on running the second round.
func (s *State) CastVote(seat int, yes bool) error {
	if seat < 0 || seat >= NumSeats {
		return ErrBadSeat
	}
	if s.Phase != PhaseVote {
		return ErrWrongPhase
	}
	if s.Seats[seat].Vote != nil {
		return ErrAlreadyVoted
	}
	v := yes
	s.Seats[seat].Vote = &v
	return nil
}

// VoteComplete reports whether all four seats have voted.
func (s *State) VoteComplete() bool {
	for i := range s.Seats {
		if s.Seats[i].Vote == nil {
			return false
		}
	}
	return true
}

// VotePassed reports whether at least three seats voted yes.
func (s *State) VotePassed() bool {
	yes := 0
	for i := range s.Seats {
		if s.Seats[i].Vote != nil && *s.Seats[i].Vote {
			yes++
		}
	}
	return yes >= 3
}

// resetSeats clears per-phase sub-state while preserving votes.
func (s *State) resetSeats() {
	for i := range s.Seats {
		vote := s.Seats[i].Vote
		s.Seats[i] = newSeatState()
		s.Seats[i].Vote = vote
	}
}

// Advance moves to the next phase and resets per-seat barrier state. For a
// pass phase the caller must have executed the tile rotation first. On the
// vote phase the outcome decides between the second round and completion.
func (s *State) Advance() Phase {
	switch s.Phase {
	case PhasePassRight:
		s.Phase = PhasePassAcross
	case PhasePassAcross:
		s.Phase = PhasePassLeft
	case PhasePassLeft:
		s.Phase = PhaseVote
	case PhaseVote:
		if s.VotePassed() {
			s.Phase = PhasePassLeft2
		} else {
			s.Phase = PhaseComplete
		}
	case PhasePassLeft2:
		s.Phase = PhasePassAcross2
	case PhasePassAcross2:
		s.Phase = PhasePassRight2
	case PhasePassRight2:
		s.Phase = PhaseCourtesy
	case PhaseCourtesy:
		s.Phase = PhaseComplete
	}
	s.resetSeats()
	return s.Phase
}

// Complete reports whether the Charleston has finished.
func (s *State) Complete() bool { return s.Phase == PhaseComplete }

// PassResult describes one seat's side of an executed pass.
type PassResult struct {
	// Outgoing is everything the seat forwarded, blind tiles included.
	Outgoing []tiles.Tile
	// Incoming is everything the seat keeps from the pass it received.
	Incoming []tiles.Tile
	// BlindForwarded counts incoming tiles the seat forwarded unseen.
	BlindForwarded int
}

// ExecutePass performs the tile rotation for the current pass phase,
// mutating hands in place. All four seats must be ready. Blind passes are
// resolved around the rotation cycle: a blind seat's shortfall is taken off
// the front of the pass it receives before the seat ever sees those tiles.
func (s *State) ExecutePass(hands *[NumSeats][]tiles.Tile) ([NumSeats]PassResult, error) {
	var results [NumSeats]PassResult

	off, ok := passOffset(s.Phase)
	if !ok {
		return results, ErrWrongPhase
	}
	if !s.AllReady() {
		return results, fmt.Errorf("charleston: pass executed before all seats ready")
	}

	// Remove every seat's own selected tiles up front.
	for seat := 0; seat < NumSeats; seat++ {
		sel := s.Seats[seat].Selected
		rest, found := tiles.Remove(hands[seat], sel)
		if !found {
			return results, fmt.Errorf("charleston: seat %d selection not in hand", seat)
		}
		hands[seat] = rest
		results[seat].Outgoing = append([]tiles.Tile(nil), sel...)
	}

	// Resolve outgoing passes seat by seat around the rotation cycle,
	// starting from a seat with no blind shortfall so each seat's incoming
	// is fully known before blind tiles are skimmed from it. An all-blind
	// cycle starts at seat 0 with its sender's own selection as the
	// provisional incoming, which is that pass's front either way.
	outgoing := [NumSeats][]tiles.Tile{}
	resolved := [NumSeats]bool{}
	for seat := 0; seat < NumSeats; seat++ {
		outgoing[seat] = append([]tiles.Tile(nil), s.Seats[seat].Selected...)
	}
	for cycle := 0; cycle < NumSeats; cycle++ {
		if resolved[cycle] {
			continue
		}
		start := cycle
		cur := cycle
		for {
			if s.Seats[cur].BlindKeep <= 0 {
				start = cur
				break
			}
			cur = (cur + off) % NumSeats
			if cur == cycle {
				break
			}
		}
		cur = start
		for {
			if keep := s.Seats[cur].BlindKeep; keep > 0 {
				sender := (cur + NumSeats - off) % NumSeats
				in := outgoing[sender]
				n := PassSize - len(outgoing[cur])
				if n > len(in) {
					n = len(in)
				}
				outgoing[cur] = append(outgoing[cur], in[:n]...)
				results[cur].BlindForwarded = n
			}
			resolved[cur] = true
			cur = (cur + off) % NumSeats
			if cur == start {
				break
			}
		}
	}

	// An all-blind cycle starts from a provisional incoming, which can leave
	// the start seat short; one fix-up with the now-final incoming settles it.
	for seat := 0; seat < NumSeats; seat++ {
		if s.Seats[seat].BlindKeep > 0 && len(outgoing[seat]) < PassSize {
			sender := (seat + NumSeats - off) % NumSeats
			in := outgoing[sender]
			taken := results[seat].BlindForwarded
			n := PassSize - len(outgoing[seat])
			if taken+n > len(in) {
				n = len(in) - taken
			}
			outgoing[seat] = append(outgoing[seat], in[taken:taken+n]...)
			results[seat].BlindForwarded += n
		}
	}

	// Deliver: each seat keeps its incoming minus the tiles it forwarded
	// blind off the front.
	for seat := 0; seat < NumSeats; seat++ {
		sender := (seat + NumSeats - off) % NumSeats
		in := outgoing[sender]
		skim := results[seat].BlindForwarded
		if skim > len(in) {
			skim = len(in)
		}
		kept := append([]tiles.Tile(nil), in[skim:]...)
		hands[seat] = append(hands[seat], kept...)
		results[seat].Incoming = kept
		results[seat].Outgoing = outgoing[seat]
	}

	s.PassCount++
	return results, nil
}

// ExecuteCourtesy moves each seat's courtesy tiles to its chosen target,
// mutating hands in place. All four seats must be ready.
func (s *State) ExecuteCourtesy(hands *[NumSeats][]tiles.Tile) ([NumSeats]PassResult, error) {
	var results [NumSeats]PassResult

	if s.Phase != PhaseCourtesy {
		return results, ErrWrongPhase
	}
	if !s.AllReady() {
		return results, fmt.Errorf("charleston: courtesy executed before all seats ready")
	}

	for seat := 0; seat < NumSeats; seat++ {
		st := s.Seats[seat]
		if len(st.Selected) == 0 {
			continue
		}
		rest, found := tiles.Remove(hands[seat], st.Selected)
		if !found {
			return results, fmt.Errorf("charleston: seat %d courtesy selection not in hand", seat)
		}
		hands[seat] = rest
		results[seat].Outgoing = append([]tiles.Tile(nil), st.Selected...)
	}
	for seat := 0; seat < NumSeats; seat++ {
		st := s.Seats[seat]
		if len(st.Selected) == 0 {
			continue
		}
		hands[st.CourtesyTarget] = append(hands[st.CourtesyTarget], st.Selected...)
		results[st.CourtesyTarget].Incoming = append(results[st.CourtesyTarget].Incoming, st.Selected...)
	}
	return results, nil
}
