package sharded_test

import (
	"testing"
	"time"

	"github.com/janpfeifer/stackGo/internal/ai"
	"github.com/janpfeifer/stackGo/internal/parameters"
	"github.com/janpfeifer/stackGo/internal/searchers/sharded"
	"github.com/janpfeifer/stackGo/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoot(t *testing.T) state.Game {
	g, err := state.TestGame(0)
	require.NoError(t, err)
	return g
}

func runFor(t *testing.T, s *sharded.Searcher, root state.Game, cores int, d time.Duration) {
	s.StartSearch(root, cores)
	time.Sleep(d)
	s.EndSearch()
}

func TestSearcher_ZeroTimeSearchLeavesRoot(t *testing.T) {
	s := sharded.New(ai.NewHeuristic()).WithSeed(1)
	root := testRoot(t)
	s.StartSearch(root, 2)
	s.EndSearch()
	assert.False(t, s.Searching())
	assert.GreaterOrEqual(t, s.TreeLen(), 1, "the root node must survive a zero-time search")
}

func TestSearcher_SingleCore(t *testing.T) {
	s := sharded.New(ai.NewHeuristic()).WithSeed(7)
	root := testRoot(t)
	runFor(t, s, root, 1, 100*time.Millisecond)

	stats := s.Statistics()
	assert.Greater(t, stats.Nodes, uint64(0))
	assert.Greater(t, stats.Backprops, uint64(0))
	assert.Greater(t, stats.TreeNodes, 1)
	assert.Greater(t, stats.MaxDepth, uint64(0))

	// With one worker everything is owned locally: no advisory copies exist.
	table := s.Table()
	assert.Empty(t, table.CachedIDs(0))
	assert.Len(t, table.OwnedIDs(0), stats.TreeNodes)

	move, ok := s.BestMove()
	require.True(t, ok)
	assert.Contains(t, root.LegalActions(), move)
	reward, ok := s.BestReward()
	require.True(t, ok)
	assert.GreaterOrEqual(t, reward, float32(0))
}

func TestSearcher_MultiCoreOwnerPartition(t *testing.T) {
	const cores = 4
	s := sharded.New(ai.NewHeuristic()).WithSeed(11)
	runFor(t, s, testRoot(t), cores, 200*time.Millisecond)

	table := s.Table()
	total := 0
	for w := 0; w < cores; w++ {
		ids := table.OwnedIDs(w)
		total += len(ids)
		for _, id := range ids {
			assert.EqualValues(t, w, id%cores, "node %08x in shard %d", id, w)
		}
	}
	assert.Equal(t, s.TreeLen(), total)
	assert.Greater(t, total, cores, "all shards together should have grown the tree")
}

func TestSearcher_EndSearchJoinsQuickly(t *testing.T) {
	s := sharded.New(ai.NewHeuristic()).WithSeed(3)
	s.StartSearch(testRoot(t), 4)
	time.Sleep(150 * time.Millisecond)

	start := time.Now()
	s.EndSearch()
	assert.Less(t, time.Since(start), time.Second, "workers must join promptly")
	assert.False(t, s.Searching())

	// EndSearch is idempotent.
	s.EndSearch()
}

func TestSearcher_ImmediateStopDiscardsSeeds(t *testing.T) {
	// Seeds are enqueued by StartSearch; EndSearch right after must win the
	// race: stop jobs are drained LIFO ahead of the older selections.
	s := sharded.New(ai.NewHeuristic()).WithSeed(5)
	for round := 0; round < 5; round++ {
		s.StartSearch(testRoot(t), 3)
		s.EndSearch()
		require.False(t, s.Searching())
	}
}

func TestSearcher_TerminalRootStaysSmall(t *testing.T) {
	root := testRoot(t)
	root.GameOver = true
	s := sharded.New(ai.NewHeuristic()).WithSeed(9)
	runFor(t, s, root, 2, 50*time.Millisecond)

	// Traversals from a terminal root cannot learn anything: the tree stays
	// at the root and there is no best move to report.
	assert.LessOrEqual(t, s.TreeLen(), 1)
	_, ok := s.BestMove()
	assert.False(t, ok)
}

func TestSearcher_ContinueSearchKeepsTree(t *testing.T) {
	s := sharded.New(ai.NewHeuristic()).WithSeed(13)
	root := testRoot(t)
	runFor(t, s, root, 2, 150*time.Millisecond)
	firstRound := s.TreeLen()
	require.Greater(t, firstRound, 1)

	// Advance the game by the best move and keep searching the same tree.
	move, ok := s.BestMove()
	require.True(t, ok)
	next := root
	next.Apply(move)
	next.ResolveChance()
	require.False(t, next.IsTerminal())

	s.ContinueSearch(next)
	time.Sleep(150 * time.Millisecond)
	s.EndSearch()
	assert.GreaterOrEqual(t, s.TreeLen(), firstRound, "the tree must survive ContinueSearch")

	stats := s.Statistics()
	assert.Greater(t, stats.Backprops, uint64(0), "the second round must report fresh backprops")
}

func TestSearcher_ContinueSearchOnTerminalIsNoOp(t *testing.T) {
	s := sharded.New(ai.NewHeuristic()).WithSeed(17)
	runFor(t, s, testRoot(t), 1, 30*time.Millisecond)
	before := s.TreeLen()

	dead := testRoot(t)
	dead.GameOver = true
	s.ContinueSearch(dead)
	assert.False(t, s.Searching())
	assert.Equal(t, before, s.TreeLen())
}

func TestSearcher_SampledStyle(t *testing.T) {
	s := sharded.New(ai.NewHeuristic()).WithStyle(sharded.StyleSampled).WithSeed(19)
	runFor(t, s, testRoot(t), 2, 100*time.Millisecond)

	stats := s.Statistics()
	assert.Greater(t, stats.Nodes, uint64(0))
	reward, ok := s.BestReward()
	require.True(t, ok)
	assert.GreaterOrEqual(t, reward, float32(0))
}

func TestSearcher_StatisticsRates(t *testing.T) {
	s := sharded.New(ai.NewHeuristic()).WithSeed(23)
	runFor(t, s, testRoot(t), 2, 100*time.Millisecond)
	stats := s.Statistics()
	assert.Greater(t, stats.NodesPerSec, 0.0)
	assert.Greater(t, stats.BackpropsPerSec, 0.0)
}

func TestNewFromParams(t *testing.T) {
	scorer := ai.NewHeuristic()

	s, err := sharded.NewFromParams(scorer, parameters.NewFromConfigString("style=sampled,temperature=0.5,seed=42"))
	require.NoError(t, err)
	require.NotNil(t, s)

	_, err = sharded.NewFromParams(scorer, parameters.NewFromConfigString("style=bogus"))
	assert.Error(t, err)
	_, err = sharded.NewFromParams(scorer, parameters.NewFromConfigString("temperature=-1"))
	assert.Error(t, err)
	_, err = sharded.NewFromParams(scorer, parameters.NewFromConfigString("load_factor=0"))
	assert.Error(t, err)
	_, err = sharded.NewFromParams(scorer, parameters.NewFromConfigString("no_such_knob=1"))
	assert.Error(t, err)
}
