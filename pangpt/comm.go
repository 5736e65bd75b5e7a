package pangpt

import (
	"errors"
	"fmt"
	"sync"
)

// ErrAborted is returned by collective operations after the group has been
// torn down. The abort cause, when one was given, is attached to the
// returned error.
var ErrAborted = errors.New("collective group aborted")

// Communicator provides the collective operations the coordinator relies
// on. Every worker in a group must call each collective the same number of
// times in the same order; a worker that has to leave the sequence early
// must call Abort so the others fail instead of blocking forever.
type Communicator interface {
	// Rank returns this worker's index in the group
	Rank() int

	// WorldSize returns the total number of workers in the group
	WorldSize() int

	// Barrier blocks until every worker has reached it
	Barrier() error

	// AllReduceSum sums the given values element-wise across all workers
	// and returns the result to every worker
	AllReduceSum(vals []float64) ([]float64, error)

	// BroadcastBool distributes root's value to every worker
	BroadcastBool(v bool, root int) (bool, error)

	// BroadcastFloat distributes root's value to every worker
	BroadcastFloat(v float64, root int) (float64, error)

	// Abort tears the group down: every blocked and every future
	// collective returns ErrAborted carrying the given cause
	Abort(cause error)
}

// group is the shared state of an in-process collective group. Collectives
// are implemented as generation-counted barriers: each member arrives under
// the lock, the last arrival publishes the round result and bumps the
// generation, and every member copies the result before releasing the lock.
type group struct {
	n    int
	mu   sync.Mutex
	cond *sync.Cond

	arrived int
	gen     uint64

	aborted bool
	cause   error

	// pending* slots collect contributions for the round in flight;
	// published slots are written only by the round's last arrival, so a
	// fast worker starting the next collective cannot clobber a value a
	// straggler has not read yet.
	pending      []float64
	result       []float64
	pendingBool  bool
	boolVal      bool
	pendingFloat float64
	floatVal     float64
}

func (g *group) abortErr() error {
	if g.cause != nil {
		return fmt.Errorf("%w: %v", ErrAborted, g.cause)
	}
	return ErrAborted
}

func (g *group) await(start uint64) {
	for g.gen == start && !g.aborted {
		g.cond.Wait()
	}
}

func (g *group) arrive(last func()) error {
	if g.aborted {
		return g.abortErr()
	}
	start := g.gen
	g.arrived++
	if g.arrived == g.n {
		g.arrived = 0
		if last != nil {
			last()
		}
		g.gen++
		g.cond.Broadcast()
		return nil
	}
	g.await(start)
	if g.aborted {
		return g.abortErr()
	}
	return nil
}

// ProcessComm is one worker's handle on an in-process collective group.
type ProcessComm struct {
	rank int
	g    *group
}

// NewProcessGroup creates an in-process collective group of n workers and
// returns one communicator per rank.
func NewProcessGroup(n int) []*ProcessComm {
	g := &group{n: n}
	g.cond = sync.NewCond(&g.mu)

	comms := make([]*ProcessComm, n)
	for rank := range comms {
		comms[rank] = &ProcessComm{rank: rank, g: g}
	}
	return comms
}

// Rank returns this worker's index in the group
func (c *ProcessComm) Rank() int { return c.rank }

// WorldSize returns the total number of workers in the group
func (c *ProcessComm) WorldSize() int { return c.g.n }

// Barrier blocks until every worker has reached it
func (c *ProcessComm) Barrier() error {
	c.g.mu.Lock()
	defer c.g.mu.Unlock()
	return c.g.arrive(nil)
}

// AllReduceSum sums vals element-wise across all workers
func (c *ProcessComm) AllReduceSum(vals []float64) ([]float64, error) {
	g := c.g
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending == nil {
		g.pending = make([]float64, len(vals))
	}
	for i, v := range vals {
		g.pending[i] += v
	}
	if err := g.arrive(func() {
		g.result = g.pending
		g.pending = nil
	}); err != nil {
		return nil, err
	}

	out := make([]float64, len(g.result))
	copy(out, g.result)
	return out, nil
}

// BroadcastBool distributes root's value to every worker
func (c *ProcessComm) BroadcastBool(v bool, root int) (bool, error) {
	g := c.g
	g.mu.Lock()
	defer g.mu.Unlock()

	if c.rank == root {
		g.pendingBool = v
	}
	if err := g.arrive(func() {
		g.boolVal = g.pendingBool
	}); err != nil {
		return false, err
	}
	return g.boolVal, nil
}

// BroadcastFloat distributes root's value to every worker
func (c *ProcessComm) BroadcastFloat(v float64, root int) (float64, error) {
	g := c.g
	g.mu.Lock()
	defer g.mu.Unlock()

	if c.rank == root {
		g.pendingFloat = v
	}
	if err := g.arrive(func() {
		g.floatVal = g.pendingFloat
	}); err != nil {
		return 0, err
	}
	return g.floatVal, nil
}

// Abort tears the group down and wakes every blocked collective. The first
// cause wins; later calls are no-ops.
func (c *ProcessComm) Abort(cause error) {
	g := c.g
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.aborted {
		return
	}
	g.aborted = true
	g.cause = cause
	g.cond.Broadcast()
}
