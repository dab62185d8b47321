// internal/tiles/tiles.go
package tiles

import "fmt"

// Tile is a single tile code. Suited tiles are "<rank><suit>" with suits
// D (dots), B (bams), C (craks); winds are WE/WS/WW/WN; dragons DR/DG/DW;
// flowers FL; jokers JK. Tiles of the same code are interchangeable.
type Tile string

const (
	Joker  Tile = "JK"
	Flower Tile = "FL"
)

// IsJoker reports whether t is a joker. Jokers may never be passed during
// the Charleston.
func (t Tile) IsJoker() bool { return t == Joker }

var (
	suits   = []string{"D", "B", "C"}
	winds   = []Tile{"WE", "WS", "WW", "WN"}
	dragons = []Tile{"DR", "DG", "DW"}
)

// SetSize is the full American-set tile count: 108 suited + 16 winds +
// 12 dragons + 8 flowers + 8 jokers.
const SetSize = 152

// FullSet returns the 152-tile set in canonical order. The canonical order
// is the shuffle input every verifier must start from.
func FullSet() []Tile {
	set := make([]Tile, 0, SetSize)
	for _, suit := range suits {
		for rank := 1; rank <= 9; rank++ {
			t := Tile(fmt.Sprintf("%d%s", rank, suit))
			for i := 0; i < 4; i++ {
				set = append(set, t)
			}
		}
	}
	for _, w := range winds {
		for i := 0; i < 4; i++ {
			set = append(set, w)
		}
	}
	for _, d := range dragons {
		for i := 0; i < 4; i++ {
			set = append(set, d)
		}
	}
	for i := 0; i < 8; i++ {
		set = append(set, Flower)
	}
	for i := 0; i < 8; i++ {
		set = append(set, Joker)
	}
	return set
}

// Valid reports whether t is a member of the American set.
var validTiles = func() map[Tile]bool {
	m := make(map[Tile]bool)
	for _, t := range FullSet() {
		m[t] = true
	}
	return m
}()

func Valid(t Tile) bool { return validTiles[t] }

// Counts returns the per-tile multiset counts of ts.
func Counts(ts []Tile) map[Tile]int {
	m := make(map[Tile]int, len(ts))
	for _, t := range ts {
		m[t]++
	}
	return m
}

// Remove deletes one occurrence of each tile in sel from hand, returning
// the reduced hand. The second return is false if any tile in sel is not
// present; in that case hand is returned unchanged.
func Remove(hand []Tile, sel []Tile) ([]Tile, bool) {
	counts := Counts(sel)
	out := make([]Tile, 0, len(hand))
	for _, t := range hand {
		if counts[t] > 0 {
			counts[t]--
			continue
		}
		out = append(out, t)
	}
	for _, c := range counts {
		if c > 0 {
			return hand, false
		}
	}
	return out, true
}

// Contains reports whether hand holds at least the tiles in sel.
func Contains(hand []Tile, sel []Tile) bool {
	_, ok := Remove(hand, sel)
	return ok
}
