package uct_test

import (
	"testing"

	"github.com/janpfeifer/stackGo/internal/ai"
	"github.com/janpfeifer/stackGo/internal/generics"
	"github.com/janpfeifer/stackGo/internal/state"
	"github.com/janpfeifer/stackGo/internal/uct"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func newTestNode(t *testing.T) *uct.Node {
	g, err := state.TestGame(0)
	require.NoError(t, err)
	return uct.NewNode(&g, ai.NewHeuristic())
}

func TestNewNode_ActionIDsAreIndices(t *testing.T) {
	n := newTestNode(t)
	require.NotEmpty(t, n.Actions)
	for i, a := range n.Actions {
		assert.EqualValues(t, i, a.ID)
		assert.GreaterOrEqual(t, a.Eval, float32(0))
	}
	assert.Zero(t, n.N)
}

func TestNode_VirtualLossAccounting(t *testing.T) {
	n := newTestNode(t)
	const epoch = 3
	for i := 0; i < 50; i++ {
		a := n.Select(0, 1.1)
		n.VirtualLoss(a, epoch)

		// node.N >= sum of action.N holds at every step.
		var sum uint32
		for j := range n.Actions {
			sum += n.Actions[j].N
		}
		assert.GreaterOrEqual(t, n.N, sum)
		assert.EqualValues(t, epoch, a.LastTime)
	}
	assert.EqualValues(t, 50, n.N)
}

func TestNode_SelectSpreadsUnderVirtualLoss(t *testing.T) {
	n := newTestNode(t)
	seen := generics.MakeSet[uint16]()
	for i := 0; i < 30; i++ {
		a := n.Select(0, 1.1)
		n.VirtualLoss(a, 1)
		seen.Insert(a.ID)
	}
	// Virtual loss must push consecutive selections onto different arms.
	assert.Greater(t, len(seen), 1)
}

func TestNode_SelectTieBreaksLowestID(t *testing.T) {
	n := &uct.Node{ID: 1, Actions: []uct.Action{
		{ID: 0, Eval: 0.5},
		{ID: 1, Eval: 0.5},
		{ID: 2, Eval: 0.5},
	}}
	a := n.Select(0, 1.1)
	assert.EqualValues(t, 0, a.ID)
}

func TestNode_SelectSampledStaysInRange(t *testing.T) {
	n := newTestNode(t)
	var rng rand.PCGSource
	rng.Seed(42)
	counts := map[uint16]int{}
	for i := 0; i < 200; i++ {
		a := n.SelectSampled(&rng, 1.0)
		require.Less(t, int(a.ID), len(n.Actions))
		counts[a.ID]++
	}
	assert.Greater(t, len(counts), 1, "sampling should not collapse onto one arm")
}

func TestNode_CloneIsDeep(t *testing.T) {
	n := newTestNode(t)
	clone := n.Clone()
	clone.Actions[0].N = 99
	clone.N = 99
	assert.Zero(t, n.Actions[0].N)
	assert.Zero(t, n.N)
}

func TestTable_OwnerPartition(t *testing.T) {
	table := uct.NewTable(4)
	for id := uint32(0); id < 100; id++ {
		owner := table.Owner(id)
		assert.EqualValues(t, id%4, owner)
		view := table.View(owner)
		view.InsertOwned(&uct.Node{ID: id})
	}
	assert.Equal(t, 100, table.Len())
}

func TestTable_OwnershipViolationsAbort(t *testing.T) {
	table := uct.NewTable(4)
	wrong := table.View(1)
	assert.Panics(t, func() { wrong.InsertOwned(&uct.Node{ID: 4}) }, "id 4 belongs to worker 0")
	assert.Panics(t, func() { wrong.Node(8) }, "mutating a peer's node must abort")
}

func TestView_InsertOwnedKeepsExistingStats(t *testing.T) {
	table := uct.NewTable(2)
	view := table.View(0)
	first := &uct.Node{ID: 2, N: 7, Actions: []uct.Action{{ID: 0, N: 7, R: 3}}}
	require.True(t, view.InsertOwned(first))

	// A late duplicate insert (e.g. a racing rollout) must not erase stats.
	require.False(t, view.InsertOwned(&uct.Node{ID: 2}))
	n := view.Node(2)
	assert.EqualValues(t, 7, n.N)
}

func TestView_MaterializesOwnedFromCache(t *testing.T) {
	table := uct.NewTable(2)
	view := table.View(1)
	cached := &uct.Node{ID: 3, N: 5, Actions: []uct.Action{{ID: 0, N: 5, R: 2}}}
	view.InsertCache(cached)

	n := view.Node(3)
	assert.EqualValues(t, 5, n.N)
	// The owned copy is independent of the cached snapshot.
	n.N = 10
	assert.EqualValues(t, 5, cached.N)

	got, ok := view.Lookup(3)
	require.True(t, ok)
	assert.Same(t, n, got, "owned copy shadows the cache")
}

func TestTable_CollectDropsUntouched(t *testing.T) {
	table := uct.NewTable(2)
	view := table.View(0)
	stale := &uct.Node{ID: 2, Actions: []uct.Action{{ID: 0, N: 3, LastTime: 1}}}
	fresh := &uct.Node{ID: 4, Actions: []uct.Action{{ID: 0, N: 1, LastTime: 2}}}
	never := &uct.Node{ID: 6, Actions: []uct.Action{{ID: 0}}}
	view.InsertOwned(stale)
	view.InsertOwned(fresh)
	view.InsertOwned(never)

	removed := table.Collect(2)
	assert.Equal(t, 2, removed)
	_, ok := table.NodeForRead(4)
	assert.True(t, ok)
	_, ok = table.NodeForRead(2)
	assert.False(t, ok)
}

func TestWorkerStats_DepthIsMonotone(t *testing.T) {
	table := uct.NewTable(1)
	stats := table.Stats(0)
	stats.RecordDepth(5)
	stats.RecordDepth(3)
	assert.EqualValues(t, 5, stats.Deepest.Load())
	stats.RecordDepth(9)
	assert.EqualValues(t, 9, stats.Deepest.Load())
}
