// internal/rules/rules.go
//
// Hand evaluation lives behind a small interface so the table manager stays
// decoupled from any particular card's pattern list. Evaluators are pure and
// hold no shared state; they are consulted only at win declaration.
package rules

import "github.com/tilewire/mahjong/internal/tiles"

// Evaluator validates a declared win against a named pattern and scores it.
type Evaluator interface {
	MatchesPattern(hand []tiles.Tile, exposures [][]tiles.Tile, pattern string) bool
	Score(pattern string, jokerCount int) int
}

// Permissive accepts any structurally complete declaration: a full 14-tile
// count across hand and exposures. It stands in until a real pattern card
// is wired up and keeps the win path exercisable end to end.
type Permissive struct{}

func (Permissive) MatchesPattern(hand []tiles.Tile, exposures [][]tiles.Tile, pattern string) bool {
	n := len(hand)
	for _, exp := range exposures {
		n += len(exp)
	}
	return n == 14
}

func (Permissive) Score(pattern string, jokerCount int) int {
	score := 25
	if jokerCount == 0 {
		score *= 2
	}
	return score
}
