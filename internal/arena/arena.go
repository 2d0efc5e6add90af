// Package arena pre-allocates ivtree.Node storage so that Table
// operations can gather every node a mutation might need before
// touching either index, the way the source's mmap.c mallocs every
// Node up front and frees them all on any failure before the tree is
// touched. A Reservation is the "gather into a buffer, then commit"
// step from the design notes: draw nodes from it with Take while
// mutating, and Discard whatever is left over when done.
package arena

import "github.com/avmap/avmap/ivtree"

// Arena is a long-lived pool of *ivtree.Node storage for one Table. It
// is not safe for concurrent use, matching the rest of the package:
// the owner serialises calls against one Window.
//
// Free slots are tracked as a LIFO stack of slab indices rather than a
// scanning bitset. Every caller of Reserve pops a batch straight off
// the top and every Discard/Release pushes straight back on, since a
// reservation is always gathered and settled within a single Table
// operation; there is no long-lived fragmentation to hunt for the
// lowest free slot around, the way a page-spill buffer surviving many
// independent allocate/free cycles would need.
type Arena struct {
	slab  []*ivtree.Node
	free  []uint32 // stack of unused slab indices, top = slab[free[len(free)-1]]
	index map[*ivtree.Node]uint32
}

// New returns an empty arena.
func New() *Arena {
	return &Arena{index: make(map[*ivtree.Node]uint32)}
}

// chunkSize is how many node slots the arena grows by at a time, so a
// burst of map-anywhere calls doesn't regrow the slab on every call.
const chunkSize = 64

// grow appends new node slots, in chunkSize increments, until at least
// need of them are free.
func (a *Arena) grow(need int) {
	added := 0
	for len(a.free)+added < need {
		added += chunkSize
	}
	start := len(a.slab)
	newSlab := make([]*ivtree.Node, start+added)
	copy(newSlab, a.slab)
	for i := start; i < len(newSlab); i++ {
		n := &ivtree.Node{}
		newSlab[i] = n
		a.index[n] = uint32(i)
		a.free = append(a.free, uint32(i))
	}
	a.slab = newSlab
}

// Reservation is a batch of Arena slots gathered for one Table
// operation. Take hands out nodes one at a time; Discard returns
// whatever wasn't taken to the arena.
type Reservation struct {
	arena *Arena
	nodes []*ivtree.Node
	taken int
}

// Reserve ensures n free node slots exist, growing the arena if
// needed, and returns a Reservation holding exactly those n nodes. It
// never partially grows the arena: if the injectable
// InjectNextReservationFailure hook used in tests fires, the arena is
// left exactly as it was.
func (a *Arena) Reserve(n int) (*Reservation, error) {
	if n == 0 {
		return &Reservation{arena: a}, nil
	}
	if failInjected {
		failInjected = false
		return nil, ErrNoMemory
	}

	if len(a.free) < n {
		a.grow(n)
	}

	nodes := make([]*ivtree.Node, n)
	for i := 0; i < n; i++ {
		top := len(a.free) - 1
		nodes[i] = a.slab[a.free[top]]
		a.free = a.free[:top]
	}
	return &Reservation{arena: a, nodes: nodes}, nil
}

// Take returns the next unused node from the reservation. It panics if
// called more times than the Reserve(n) call promised — that is a
// programmer error in the caller's pre-allocation count, not a runtime
// condition callers should handle.
func (r *Reservation) Take() *ivtree.Node {
	if r.taken >= len(r.nodes) {
		panic("arena: reservation exhausted")
	}
	n := r.nodes[r.taken]
	r.taken++
	return n
}

// Discard returns every node not yet Take'n back to the arena's free
// stack. Call it once the operation using the reservation is finished,
// whether it succeeded or failed.
func (r *Reservation) Discard() {
	if r.arena == nil {
		return
	}
	for _, n := range r.nodes[r.taken:] {
		r.arena.free = append(r.arena.free, r.arena.index[n])
	}
	r.taken = len(r.nodes)
}

// Release returns a node no longer referenced by either index (for
// example one discarded after a coalesce) to the free stack.
func (a *Arena) Release(n *ivtree.Node) {
	slot, ok := a.index[n]
	if !ok {
		return
	}
	a.free = append(a.free, slot)
}

// Cap reports the total number of node slots the arena has allocated.
func (a *Arena) Cap() int {
	return len(a.slab)
}

// InUse reports how many node slots are currently handed out to a tree.
func (a *Arena) InUse() int {
	return len(a.slab) - len(a.free)
}

var failInjected bool

// InjectNextReservationFailure makes the next call to Reserve on any
// arena fail with ErrNoMemory, for exercising the no-alloc-on-failure
// property in tests.
func InjectNextReservationFailure() {
	failInjected = true
}
