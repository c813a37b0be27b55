// Package ai defines the evaluator contract the search engine consumes, and a
// heuristic implementation of it.
//
// The search never inspects a position directly: it asks a Scorer for the
// legal actions of a state together with a static evaluation of each, and
// treats the answer as an oracle.
package ai

import (
	"github.com/janpfeifer/stackGo/internal/state"
)

// ScoredAction is a legal move annotated with the evaluator's static score.
// Eval lies in [0, 1], larger is better for the player to move.
type ScoredAction struct {
	ID   uint16
	Move state.Move
	Eval float32
}

// Scorer evaluates game states for the search.
type Scorer interface {
	// ScoreActions returns every legal action of g with its static
	// evaluation. The IDs are the action indices of g.LegalActions() and are
	// stable for the lifetime of the state. Must be deterministic given g.
	ScoreActions(g *state.Game) []ScoredAction

	String() string
}
