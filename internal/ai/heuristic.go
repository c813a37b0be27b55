package ai

import (
	"math/bits"

	"github.com/chewxy/math32"
	"github.com/janpfeifer/stackGo/internal/state"
)

// Heuristic scores placements by stacking-quality features of the resulting
// board: surface height, buried holes, surface bumpiness and the attack rate.
// The weights follow the usual stacking heuristics (tall and holey is bad,
// sending attack is good).
type Heuristic struct {
	WeightHeight float32
	WeightHoles  float32
	WeightBump   float32
	WeightLines  float32
	WeightAttack float32
}

// NewHeuristic returns the default-weighted evaluator.
func NewHeuristic() *Heuristic {
	return &Heuristic{
		WeightHeight: -0.06,
		WeightHoles:  -0.35,
		WeightBump:   -0.05,
		WeightLines:  0.20,
		WeightAttack: 1.5,
	}
}

func (h *Heuristic) String() string { return "heuristic" }

// ScoreActions implements Scorer: each legal action is applied to a scratch
// copy of g and the resulting board is scored.
func (h *Heuristic) ScoreActions(g *state.Game) []ScoredAction {
	moves := g.LegalActions()
	scored := make([]ScoredAction, len(moves))
	for i, move := range moves {
		scratch := *g
		linesBefore := scratch.Lines
		scratch.Apply(move)
		scored[i] = ScoredAction{
			ID:   uint16(i),
			Move: move,
			Eval: h.evaluate(&scratch, scratch.Lines-linesBefore),
		}
	}
	return scored
}

// evaluate scores the position reached after a placement, in [0, 1].
func (h *Heuristic) evaluate(g *state.Game, cleared uint32) float32 {
	if g.IsTerminal() {
		return 0
	}
	b := &g.Board

	var aggregate, holes, bump int
	prev := -1
	for c := 0; c < state.NumCols; c++ {
		height := b.Height(c)
		aggregate += height
		holes += height - bits.OnesCount32(b.Cols[c])
		if prev >= 0 {
			if d := height - prev; d >= 0 {
				bump += d
			} else {
				bump -= d
			}
		}
		prev = height
	}

	raw := h.WeightHeight*float32(aggregate) +
		h.WeightHoles*float32(holes) +
		h.WeightBump*float32(bump) +
		h.WeightLines*float32(cleared) +
		h.WeightAttack*g.TrueAPP()
	return squash(raw)
}

// squash maps the unbounded feature sum to (0, 1).
func squash(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}
