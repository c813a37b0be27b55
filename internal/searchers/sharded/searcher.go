// Package sharded implements a parallel Monte-Carlo tree searcher that
// distributes the tree across worker goroutines by node ownership.
//
// Every node is deterministically assigned to one worker (its hash modulo the
// worker count) and only that worker ever mutates it. Selection, rollout and
// back-propagation are decomposed into small jobs that hop between workers
// over bounded lock-free queues, so the tree needs no locks at all: all
// operations on a node serialize through its owner's single-threaded loop.
// Concurrent traversals are kept apart by virtual loss, and a worker whose
// queue runs dry keeps the selection jobs it was about to send elsewhere.
package sharded

import (
	"context"
	"runtime"
	"time"

	"github.com/janpfeifer/stackGo/internal/ai"
	"github.com/janpfeifer/stackGo/internal/queues"
	"github.com/janpfeifer/stackGo/internal/state"
	"github.com/janpfeifer/stackGo/internal/uct"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

const (
	// LoadFactor is how many concurrent traversals are seeded per worker.
	LoadFactor = 6

	// collectThreshold is the tree size above which a search end triggers a
	// collection pass over nodes the last search never touched.
	collectThreshold = 200_000
)

// Style selects the search flavor, read once at search start.
type Style uint8

const (
	// StyleUCB selects deterministically by upper-confidence score and
	// accumulates rewards as sums (reported as means).
	StyleUCB Style = iota

	// StyleSampled selects by stochastic optimistic sampling and keeps the
	// maximum reward seen per arm.
	StyleSampled
)

// String implements fmt.Stringer.
func (s Style) String() string {
	switch s {
	case StyleUCB:
		return "ucb"
	case StyleSampled:
		return "sampled"
	}
	return "unknown"
}

// Statistics aggregates the workers' counters for one search.
type Statistics struct {
	// Nodes is the number of selections and rollouts processed.
	Nodes uint64

	// Backprops is the number of back-propagation messages handled.
	Backprops uint64

	// TreeNodes is the number of distinct nodes currently in the tree.
	TreeNodes int

	// MaxDepth is the deepest traversal of the search.
	MaxDepth uint64

	NodesPerSec     float64
	BackpropsPerSec float64
}

// Searcher runs the sharded search. It is not safe for concurrent use: the
// controller methods (StartSearch, ContinueSearch, EndSearch, BestMove) are
// meant to be called from a single driving goroutine.
type Searcher struct {
	scorer      ai.Scorer
	style       Style
	cExplore    float32
	temperature float32
	loadFactor  int

	cores     int
	epoch     uint32
	table     *uct.Table
	rootState state.Game
	rootHash  uint32
	queues    []*queues.MPSC[job]

	ctx       context.Context
	cancel    context.CancelFunc
	group     *errgroup.Group
	searching bool
	startTime time.Time
	elapsed   time.Duration

	seedRNG rand.PCGSource
}

// New returns a Searcher with default options, searching UCB style.
func New(scorer ai.Scorer) *Searcher {
	s := &Searcher{
		scorer:      scorer,
		style:       StyleUCB,
		cExplore:    1.1,
		temperature: 1.0,
		loadFactor:  LoadFactor,
	}
	s.seedRNG.Seed(uint64(time.Now().UnixNano()))
	return s
}

// WithStyle sets the search style. Only effective before StartSearch.
func (s *Searcher) WithStyle(style Style) *Searcher {
	s.style = style
	return s
}

// WithSeed makes the search deterministic for a given worker count.
func (s *Searcher) WithSeed(seed uint64) *Searcher {
	s.seedRNG.Seed(seed)
	return s
}

// StartSearch builds a fresh tree for the root state and spawns cores
// workers against it. cores <= 0 means one worker per CPU.
func (s *Searcher) StartSearch(root state.Game, cores int) {
	if s.searching {
		klog.Warning("StartSearch while already searching, ending previous search")
		s.EndSearch()
	}
	if cores <= 0 {
		cores = runtime.NumCPU()
	}
	s.cores = cores
	s.table = uct.NewTable(cores)
	s.epoch = 1
	s.launch(root)
}

// ContinueSearch keeps the tree built by previous searches and starts a new
// round of workers from the given root. Transient counters of the root are
// reset so rewards stay comparable across rounds.
func (s *Searcher) ContinueSearch(root state.Game) {
	if root.IsTerminal() {
		return
	}
	if s.table == nil {
		s.StartSearch(root, 0)
		return
	}
	if s.searching {
		s.EndSearch()
	}
	root.ResetCounters()
	s.epoch++
	s.table.ResetStats()
	s.launch(root)
}

// launch seeds the root jobs and spawns the workers. The table must exist
// and be quiescent.
func (s *Searcher) launch(root state.Game) {
	s.startTime = time.Now()
	s.searching = true
	s.rootState = root
	s.rootHash = root.Hash()

	// The root must exist before any select job lands; a node already in the
	// tree (continued search) is kept.
	s.table.InsertQuiescent(uct.NewNode(&root, s.scorer))

	// One fan-in per worker; the extra producer slot is the controller's.
	s.queues = make([]*queues.MPSC[job], s.cores)
	for i := range s.queues {
		s.queues[i] = queues.NewMPSC[job](s.cores + 1)
	}

	rootOwner := s.table.Owner(s.rootHash)
	for i := 0; i < s.loadFactor*s.cores; i++ {
		seeded := s.rootState
		seeded.NewSeed(s.seedRNG.Uint64())
		seeded.Opponent.ResetRNG()
		s.queues[rootOwner].Enqueue(job{kind: jobSelect, state: seeded}, s.cores)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.group = &errgroup.Group{}
	for i := 0; i < s.cores; i++ {
		w := newWorker(s, i, s.seedRNG.Uint64())
		s.group.Go(w.run)
	}
	klog.V(1).Infof("search started: %d workers, style=%s, root=%08x owned by worker %d",
		s.cores, s.style, s.rootHash, rootOwner)
}

// EndSearch stops the workers and joins them. The tree is kept (trimmed of
// untouched nodes when it outgrew the collection threshold) so a following
// ContinueSearch can build on it.
func (s *Searcher) EndSearch() {
	if !s.searching {
		return
	}
	s.cancel()
	// One StopJob per worker unblocks anyone waiting in dequeue. The drain
	// buffer is popped LIFO, so stops overtake the selections queued earlier.
	for i := range s.queues {
		s.queues[i].Enqueue(job{kind: jobStop}, s.cores)
	}
	_ = s.group.Wait()
	s.searching = false
	s.elapsed = time.Since(s.startTime)

	if s.table.Len() > collectThreshold {
		removed := s.table.Collect(s.epoch)
		klog.V(1).Infof("collection pass dropped %d nodes", removed)
	}
	// Jobs still queued are discarded with the queues.
	s.queues = nil
	klog.V(1).Infof("search ended after %s: %d nodes in tree", s.elapsed, s.table.Len())
}

// Statistics aggregates the per-worker counters. Safe to call while the
// search runs; rates are relative to the current search round.
func (s *Searcher) Statistics() Statistics {
	var stats Statistics
	if s.table == nil {
		return stats
	}
	for w := 0; w < s.table.Workers(); w++ {
		ws := s.table.Stats(w)
		stats.Nodes += ws.Nodes.Load()
		stats.Backprops += ws.Backprops.Load()
		if d := ws.Deepest.Load(); d > stats.MaxDepth {
			stats.MaxDepth = d
		}
	}
	if !s.searching {
		// The shard maps are only safe to size at quiescence.
		stats.TreeNodes = s.table.Len()
	}
	elapsed := s.elapsed
	if s.searching {
		elapsed = time.Since(s.startTime)
	}
	if secs := elapsed.Seconds(); secs > 0 {
		stats.NodesPerSec = float64(stats.Nodes) / secs
		stats.BackpropsPerSec = float64(stats.Backprops) / secs
	}
	return stats
}

// BestMove returns the best root action of the built tree: the most visited
// arm, ties broken by reward (sampled style: the greatest reward). It returns
// false when the tree holds no root actions. Only valid at quiescence.
func (s *Searcher) BestMove() (state.Move, bool) {
	a, ok := s.bestRootAction()
	if !ok {
		return state.Move{}, false
	}
	return a.Move, true
}

// BestReward returns the reward statistic of the best root action: the mean
// reward under UCB style, the maximum under sampled style.
func (s *Searcher) BestReward() (float32, bool) {
	a, ok := s.bestRootAction()
	if !ok {
		return 0, false
	}
	if s.style == StyleSampled {
		return a.R, true
	}
	return a.Mean(), true
}

func (s *Searcher) bestRootAction() (*uct.Action, bool) {
	if s.table == nil {
		return nil, false
	}
	root, ok := s.table.NodeForRead(s.rootHash)
	if !ok || len(root.Actions) == 0 {
		return nil, false
	}
	best := &root.Actions[0]
	for i := 1; i < len(root.Actions); i++ {
		a := &root.Actions[i]
		if s.style == StyleSampled {
			if a.R > best.R {
				best = a
			}
			continue
		}
		if a.N > best.N || (a.N == best.N && a.R > best.R) {
			best = a
		}
	}
	return best, true
}

// Table exposes the sharded node tables. Only valid at quiescence; meant for
// diagnostics and tests.
func (s *Searcher) Table() *uct.Table { return s.table }

// TreeLen returns the number of nodes currently held by the tree.
func (s *Searcher) TreeLen() int {
	if s.table == nil {
		return 0
	}
	return s.table.Len()
}

// Searching reports whether workers are currently running.
func (s *Searcher) Searching() bool { return s.searching }
