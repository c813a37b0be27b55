package uct

import (
	"sync/atomic"

	"github.com/gomlx/exceptions"
	"github.com/janpfeifer/stackGo/internal/generics"
)

const cacheLineSize = 64

// WorkerStats are the monotonic counters of one worker. Atomics make the
// controller's concurrent reads race-free; each field group is padded so two
// workers never share a cache line.
type WorkerStats struct {
	_ [cacheLineSize]byte

	// Nodes counts processed selections and rollouts.
	Nodes atomic.Uint64

	// Backprops counts back-propagation messages handled.
	Backprops atomic.Uint64

	// Deepest is the longest path this worker extended.
	Deepest atomic.Uint64

	_ [cacheLineSize - 24]byte
}

// RecordDepth raises Deepest to depth if larger. Single writer per stats
// entry, so load-then-store is enough.
func (s *WorkerStats) RecordDepth(depth uint64) {
	if depth > s.Deepest.Load() {
		s.Deepest.Store(depth)
	}
}

// Reset zeroes the counters. Only valid at quiescence.
func (s *WorkerStats) Reset() {
	s.Nodes.Store(0)
	s.Backprops.Store(0)
	s.Deepest.Store(0)
}

// shard is one worker's slice of the tree: the authoritative owned map plus
// an advisory cache of peers' nodes. Padded so neighboring shards do not
// share a cache line.
type shard struct {
	owned map[uint32]*Node
	cache map[uint32]*Node
	_     [cacheLineSize - 16]byte
}

// Table partitions the tree's nodes across workers by hash: node id belongs
// to worker id mod workers, and only that worker may mutate it. Everything a
// worker touches during the search goes through its View; the Table-level
// accessors are for the controller at quiescence.
type Table struct {
	workers int
	shards  []shard
	stats   []WorkerStats
}

// NewTable returns an empty table sharded across the given worker count.
func NewTable(workers int) *Table {
	if workers <= 0 {
		exceptions.Panicf("table needs at least one worker, got %d", workers)
	}
	t := &Table{
		workers: workers,
		shards:  make([]shard, workers),
		stats:   make([]WorkerStats, workers),
	}
	for i := range t.shards {
		t.shards[i].owned = make(map[uint32]*Node)
		t.shards[i].cache = make(map[uint32]*Node)
	}
	return t
}

// Workers returns the shard count.
func (t *Table) Workers() int { return t.workers }

// Owner returns the worker owning the node id.
func (t *Table) Owner(id uint32) int { return int(id % uint32(t.workers)) }

// Stats returns worker w's counters.
func (t *Table) Stats(w int) *WorkerStats { return &t.stats[w] }

// ResetStats zeroes every worker's counters. Only valid at quiescence.
func (t *Table) ResetStats() {
	for i := range t.stats {
		t.stats[i].Reset()
	}
}

// Len returns the number of owned nodes across all shards.
func (t *Table) Len() int {
	total := 0
	for i := range t.shards {
		total += len(t.shards[i].owned)
	}
	return total
}

// OwnedIDs returns the ids of the nodes worker w currently owns. Only valid
// at quiescence; meant for diagnostics and tests.
func (t *Table) OwnedIDs(w int) []uint32 {
	return generics.KeysSlice(t.shards[w].owned)
}

// CachedIDs returns the ids of the advisory copies worker w holds. Only valid
// at quiescence; meant for diagnostics and tests.
func (t *Table) CachedIDs(w int) []uint32 {
	return generics.KeysSlice(t.shards[w].cache)
}

// NodeForRead returns the authoritative node from its owner's shard. Only
// valid at quiescence (no workers running).
func (t *Table) NodeForRead(id uint32) (*Node, bool) {
	n, ok := t.shards[t.Owner(id)].owned[id]
	return n, ok
}

// InsertQuiescent installs the node into its owner's shard unless a node with
// the same id is already there. Only valid at quiescence; workers use
// View.InsertOwned instead.
func (t *Table) InsertQuiescent(n *Node) {
	owned := t.shards[t.Owner(n.ID)].owned
	if _, ok := owned[n.ID]; !ok {
		owned[n.ID] = n
	}
}

// Collect drops every owned node that no traversal of the given epoch
// touched, and every advisory cache wholesale. Only valid at quiescence.
// It returns the number of owned nodes dropped.
func (t *Table) Collect(epoch uint32) int {
	removed := 0
	for i := range t.shards {
		sh := &t.shards[i]
		for id, n := range sh.owned {
			if !touchedIn(n, epoch) {
				delete(sh.owned, id)
				removed++
			}
		}
		sh.cache = make(map[uint32]*Node)
	}
	return removed
}

func touchedIn(n *Node, epoch uint32) bool {
	for i := range n.Actions {
		if n.Actions[i].N > 0 && n.Actions[i].LastTime == epoch {
			return true
		}
	}
	return false
}

// View is worker w's handle on the table. It is the only way workers access
// shards, and it enforces the ownership rule.
type View struct {
	table *Table
	w     int
	shard *shard
}

// View returns worker w's handle.
func (t *Table) View(w int) View {
	return View{table: t, w: w, shard: &t.shards[w]}
}

// Exists reports whether the worker can see the node, owned or cached.
func (v View) Exists(id uint32) bool {
	if _, ok := v.shard.owned[id]; ok {
		return true
	}
	_, ok := v.shard.cache[id]
	return ok
}

// Lookup returns the worker's best copy of the node for reading: the owned
// node when present, the advisory cache copy otherwise.
func (v View) Lookup(id uint32) (*Node, bool) {
	if n, ok := v.shard.owned[id]; ok {
		return n, true
	}
	n, ok := v.shard.cache[id]
	return n, ok
}

// Node returns the mutable node for id, materializing the owned copy from the
// advisory cache if a PutJob delivered it there first. Aborts if this worker
// does not own id: mutating a peer's node is a bug, not a recoverable error.
func (v View) Node(id uint32) *Node {
	if owner := v.table.Owner(id); owner != v.w {
		exceptions.Panicf("worker %d may not mutate node %08x owned by worker %d", v.w, id, owner)
	}
	if n, ok := v.shard.owned[id]; ok {
		return n
	}
	if c, ok := v.shard.cache[id]; ok {
		n := c.Clone()
		v.shard.owned[id] = n
		return n
	}
	exceptions.Panicf("worker %d owns node %08x but has never seen it", v.w, id)
	return nil
}

// InsertOwned installs a node this worker owns. If the id is already present
// the existing node wins: its visit counts are live and monotone, a fresh
// copy would erase them. Returns whether the node was installed.
func (v View) InsertOwned(n *Node) bool {
	if owner := v.table.Owner(n.ID); owner != v.w {
		exceptions.Panicf("worker %d may not own node %08x, it belongs to worker %d", v.w, n.ID, owner)
	}
	if _, ok := v.shard.owned[n.ID]; ok {
		return false
	}
	v.shard.owned[n.ID] = n
	return true
}

// InsertCache stores an advisory copy of a peer's node. Overwrites: the
// newest snapshot is the best one.
func (v View) InsertCache(n *Node) {
	v.shard.cache[n.ID] = n
}
