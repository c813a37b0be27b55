// Package uct holds the search tree data structures: per-action statistics,
// nodes keyed by state hash, the two selection policies, and the sharded
// tables that partition node ownership across workers.
package uct

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/gomlx/exceptions"
	"github.com/janpfeifer/stackGo/internal/ai"
	"github.com/janpfeifer/stackGo/internal/state"
	"golang.org/x/exp/rand"
)

// depthAttenuation shrinks the exploration term as traversals get deeper:
// near the root we want wide coverage, deep in a line we mostly exploit.
const depthAttenuation = float32(0.1)

// HashActionPair records one hop of a traversal: the node descended from and
// the action taken at it. A path is an ordered slice of these, root first.
type HashActionPair struct {
	Hash     uint32
	ActionID uint16
}

// Action is one arm of a node.
//
// N is incremented on descent (virtual loss) and never decremented. R
// accumulates reward: a running sum under the mean-style policy, a running
// maximum under the max-style policy. LastTime is the search epoch that last
// descended through this arm, used by the collection pass.
type Action struct {
	ID       uint16
	Move     state.Move
	Eval     float32
	N        uint32
	R        float32
	LastTime uint32
}

// Mean returns the average reward of the arm, falling back to the static
// evaluation while unvisited.
func (a *Action) Mean() float32 {
	if a.N == 0 {
		return a.Eval
	}
	return a.R / float32(a.N)
}

// Node carries the statistics of one game state, keyed by the state's hash.
// RBuffer stashes rewards deferred by an alternate back-propagation policy;
// it is drained into the next reward that passes through.
type Node struct {
	ID      uint32
	N       uint32
	RBuffer float32
	Actions []Action
}

// NewNode evaluates the state and returns a fresh node for it. Action IDs are
// the evaluator's, which are the indices of the state's legal actions.
func NewNode(g *state.Game, scorer ai.Scorer) *Node {
	scored := scorer.ScoreActions(g)
	actions := make([]Action, len(scored))
	for i, sa := range scored {
		actions[i] = Action{ID: sa.ID, Move: sa.Move, Eval: sa.Eval}
	}
	return &Node{ID: g.Hash(), Actions: actions}
}

// Clone returns a deep copy, safe to hand to another worker.
func (n *Node) Clone() *Node {
	clone := *n
	clone.Actions = make([]Action, len(n.Actions))
	copy(clone.Actions, n.Actions)
	return &clone
}

// MaxEval returns the best static evaluation among the node's actions.
func (n *Node) MaxEval() float32 {
	max := float32(0)
	for i := range n.Actions {
		max = math32.Max(max, n.Actions[i].Eval)
	}
	return max
}

// VirtualLoss marks a descent through the arm before its reward is known:
// both counts grow immediately so concurrent traversals are biased away from
// this line. Nothing is rolled back, the back-propagated reward catches up.
func (n *Node) VirtualLoss(a *Action, epoch uint32) {
	n.N++
	a.N++
	a.LastTime = epoch
}

// Select returns the arm maximizing the upper-confidence score: mean reward
// (static evaluation while unvisited), an evaluation prior that fades with
// visits, and an exploration bonus attenuated with depth. Ties resolve to the
// lowest action ID because the scan is in ID order with a strict comparison.
func (n *Node) Select(depth int, cExplore float32) *Action {
	if len(n.Actions) == 0 {
		exceptions.Panicf("select on node %08x with no actions", n.ID)
	}
	logN := math32.Log(float32(n.N) + 1)
	attenuation := 1 + depthAttenuation*float32(depth)
	best := 0
	bestScore := math32.Inf(-1)
	for i := range n.Actions {
		a := &n.Actions[i]
		score := a.Mean() +
			a.Eval/float32(1+a.N) +
			cExplore*math32.Sqrt(logN/float32(a.N+1))/attenuation
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return &n.Actions[best]
}

// SelectSampled returns an arm drawn with probability proportional to
// exp(optimistic/temperature), where optimistic is the larger of the arm's
// accumulated reward and its static evaluation. Used by the max-style search,
// which keeps R as a running maximum.
func (n *Node) SelectSampled(rng *rand.PCGSource, temperature float32) *Action {
	if len(n.Actions) == 0 {
		exceptions.Panicf("select on node %08x with no actions", n.ID)
	}
	weight := func(a *Action) float32 {
		return math32.Exp(math32.Max(a.R, a.Eval) / temperature)
	}
	var sum float32
	for i := range n.Actions {
		sum += weight(&n.Actions[i])
	}
	chance := randFloat32(rng) * sum
	for i := range n.Actions {
		chance -= weight(&n.Actions[i])
		if chance <= 0 {
			return &n.Actions[i]
		}
	}
	// Rounding may leave a sliver of probability mass; take the last arm.
	return &n.Actions[len(n.Actions)-1]
}

// String formats the node for logs.
func (n *Node) String() string {
	return fmt.Sprintf("{Node %08x: N=%d, %d actions}", n.ID, n.N, len(n.Actions))
}

// randFloat32 returns a uniform value in [0, 1).
func randFloat32(rng *rand.PCGSource) float32 {
	return float32(rng.Uint64()>>40) / (1 << 24)
}
