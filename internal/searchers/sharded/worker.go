package sharded

import (
	"runtime"

	"github.com/gomlx/exceptions"
	"github.com/janpfeifer/stackGo/internal/queues"
	"github.com/janpfeifer/stackGo/internal/state"
	"github.com/janpfeifer/stackGo/internal/uct"
	"golang.org/x/exp/rand"
	"k8s.io/klog/v2"
)

// worker is one search thread: it owns a shard of the tree, consumes its own
// MPSC fan-in and produces into everyone's.
type worker struct {
	s     *Searcher
	idx   int
	view  uct.View
	stats *uct.WorkerStats
	queue *queues.MPSC[job]
	rng   rand.PCGSource
}

func newWorker(s *Searcher, idx int, seed uint64) *worker {
	w := &worker{
		s:     s,
		idx:   idx,
		view:  s.table.View(idx),
		stats: s.table.Stats(idx),
		queue: s.queues[idx],
	}
	w.rng.Seed(seed)
	return w
}

// run is the worker loop: dequeue, dispatch, repeat until the stop token
// trips or a StopJob arrives.
func (w *worker) run() error {
	klog.V(2).Infof("worker %d running", w.idx)
	defer klog.V(2).Infof("worker %d stopped", w.idx)
	for {
		if w.s.ctx.Err() != nil {
			return nil
		}
		j := w.queue.Dequeue()
		switch j.kind {
		case jobStop:
			return nil
		case jobPut:
			w.processPut(j)
		case jobSelect:
			w.processSelect(j)
		case jobBackProp:
			w.processBackProp(j)
		}
	}
}

// processPut installs a delivered node: authoritative when we own it,
// advisory otherwise.
func (w *worker) processPut(j job) {
	if w.s.table.Owner(j.node.ID) == w.idx {
		w.view.InsertOwned(j.node)
	} else {
		w.view.InsertCache(j.node)
	}
}

// processSelect performs one descent step of a traversal.
func (w *worker) processSelect(j job) {
	w.stats.Nodes.Add(1)
	g := &j.state

	if g.IsTerminal() {
		reward := w.rollout(g)
		if len(j.path) == 0 {
			// The root itself is terminal, nothing to learn.
			return
		}
		w.sendBackProp(j, reward)
		return
	}

	hash := g.Hash()
	owner := w.s.table.Owner(hash)

	if w.view.Exists(hash) {
		if owner != w.idx {
			// We only hold an advisory copy; the authoritative statistics
			// live with the owner, so hand the descent over instead of
			// selecting from stale data.
			w.send(owner, j)
			return
		}
		node := w.view.Node(hash)

		var a *uct.Action
		switch w.s.style {
		case StyleSampled:
			a = node.SelectSampled(&w.rng, w.s.temperature)
		default:
			a = node.Select(len(j.path), w.s.cExplore)
		}
		node.VirtualLoss(a, w.s.epoch)

		g.Apply(a.Move)
		g.ResolveChance()

		j.path = append(j.path, uct.HashActionPair{Hash: hash, ActionID: a.ID})
		w.stats.RecordDepth(uint64(len(j.path)))

		w.maybeSteal(w.s.table.Owner(g.Hash()), j)
		return
	}

	// Unexpanded here: evaluate the leaf and report the reward to the arm
	// that led to it. The rollout installs the new node (routing the copy to
	// its owner if that is not us).
	reward := w.rollout(g)
	if len(j.path) == 0 {
		// Possible only if the root node was dropped from under us; restart
		// the traversal rather than losing it.
		w.sendSeed()
		return
	}
	w.sendBackProp(j, reward)
}

// rollout estimates a leaf's value from the static evaluator and installs the
// new node.
func (w *worker) rollout(g *state.Game) float32 {
	if g.IsTerminal() {
		return 0
	}
	w.stats.Nodes.Add(1)

	node := uct.NewNode(g, w.s.scorer)
	w.maybeInsert(node)

	reward := g.TrueAPP()/3 + node.MaxEval()/2
	if gh := g.Opponent.GarbageHeight(); gh > 15 {
		reward += float32(gh) / 20
	}
	reward += float32(g.Opponent.Deaths) / 3
	if g.Opponent.IsDead() {
		reward = 1
	}
	if reward < 0 {
		reward = 0
	}
	return reward
}

// processBackProp applies a reward one hop up the recorded path.
func (w *worker) processBackProp(j job) {
	w.stats.Backprops.Add(1)

	tail := j.path[len(j.path)-1]
	if owner := w.s.table.Owner(tail.Hash); owner != w.idx {
		exceptions.Panicf("backprop for node %08x dispatched to worker %d, owner is %d",
			tail.Hash, w.idx, owner)
	}
	node := w.view.Node(tail.Hash)
	if int(tail.ActionID) >= len(node.Actions) {
		exceptions.Panicf("backprop action %d out of range for node %08x (%d actions)",
			tail.ActionID, tail.Hash, len(node.Actions))
	}

	a := &node.Actions[tail.ActionID]
	switch w.s.style {
	case StyleSampled:
		if j.reward > a.R {
			a.R = j.reward
		}
	default:
		a.R += j.reward
	}

	j.path = j.path[:len(j.path)-1]
	if len(j.path) == 0 {
		// Traversal complete: seed a fresh one from the root.
		w.sendSeed()
		return
	}

	// Drain any stashed rewards into this hop before forwarding.
	j.reward += node.RBuffer
	node.RBuffer = 0
	w.send(w.s.table.Owner(j.path[len(j.path)-1].Hash), j)
}

// sendBackProp builds the back-propagation message for the completed rollout
// and routes it to the owner of the arm that led here.
func (w *worker) sendBackProp(j job, reward float32) {
	tail := j.path[len(j.path)-1]
	w.send(w.s.table.Owner(tail.Hash), job{
		kind:   jobBackProp,
		state:  j.state,
		path:   j.path,
		reward: reward,
		depth:  int(j.state.Pieces),
	})
}

// sendSeed enqueues a fresh root traversal to ourselves. The root state is
// copied and reseeded locally, so the shared root is never touched.
func (w *worker) sendSeed() {
	seeded := w.s.rootState
	seeded.NewSeed(w.rng.Uint64())
	seeded.Opponent.ResetRNG()
	w.send(w.idx, job{kind: jobSelect, state: seeded})
}

// maybeInsert routes a freshly created node to its owner: directly into our
// shard when we own it, as a PutJob otherwise.
func (w *worker) maybeInsert(node *uct.Node) {
	if owner := w.s.table.Owner(node.ID); owner != w.idx {
		w.send(owner, job{kind: jobPut, node: node})
		return
	}
	w.view.InsertOwned(node)
}

// maybeSteal routes a job to target, unless our own queue is about to run dry
// in which case we keep it: an idle worker donating work to itself beats
// starving while a peer's queue saturates. Only selections may be kept --
// they re-route on the next hop, so any worker can make progress on them --
// back-props and puts must reach their owner.
func (w *worker) maybeSteal(target int, j job) {
	if j.kind == jobSelect && target != w.idx && w.pendingOnlyStops() {
		w.send(w.idx, j)
		return
	}
	w.send(target, j)
}

// pendingOnlyStops reports whether everything already flushed locally is a
// StopJob, i.e. this worker has no real work lined up.
func (w *worker) pendingOnlyStops() bool {
	for _, pending := range w.queue.Flushed() {
		if pending.kind != jobStop {
			return false
		}
	}
	return true
}

// send enqueues into target's fan-in, spinning while its ring is full. Once
// the stop token trips the job is discarded instead: the consumer may be gone.
func (w *worker) send(target int, j job) {
	q := w.s.queues[target]
	for !q.TryEnqueue(j, w.idx) {
		if w.s.ctx.Err() != nil {
			return
		}
		runtime.Gosched()
	}
}
