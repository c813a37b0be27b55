package sharded

import (
	"github.com/janpfeifer/stackGo/internal/state"
	"github.com/janpfeifer/stackGo/internal/uct"
)

// jobKind tags the four kinds of messages the worker queues carry.
type jobKind uint8

const (
	// jobSelect asks for a descent from job.state at depth len(job.path).
	jobSelect jobKind = iota

	// jobBackProp applies job.reward to the arm recorded at the tail of
	// job.path, pops it, and forwards to the owner of the new tail.
	jobBackProp

	// jobPut delivers a node copy for the recipient's shard.
	jobPut

	// jobStop terminates the worker loop.
	jobStop
)

func (k jobKind) String() string {
	switch k {
	case jobSelect:
		return "select"
	case jobBackProp:
		return "backprop"
	case jobPut:
		return "put"
	case jobStop:
		return "stop"
	}
	return "unknown"
}

// job is the message passed between workers. It is a value: the state rides
// along with the job, and the path's backing array is owned by whichever
// worker currently holds the job.
type job struct {
	kind   jobKind
	state  state.Game
	path   []uct.HashActionPair
	reward float32
	depth  int
	node   *uct.Node // jobPut only; ownership transfers with the job
}
