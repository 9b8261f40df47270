package ecs

import (
	"sync"

	"github.com/rotisserie/eris"
)

// Entity identifies a spawned entity. The identity is a storage index plus
// a generation counter; despawning frees the index for reuse with the
// generation bumped, so an Entity held from a previous lifetime never
// aliases the index's new occupant.
type Entity struct {
	index      uint32
	generation uint32
}

// Index returns the entity's storage index.
func (e Entity) Index() uint32 {
	return e.index
}

// Generation returns the generation counter the entity was spawned with.
func (e Entity) Generation() uint32 {
	return e.generation
}

// key packs the identity into a single integer, usable as an intmap key.
func (e Entity) key() uint64 {
	return uint64(e.index)<<32 | uint64(e.generation)
}

// entityAllocator hands out entity identities and recycles despawned
// indices through a free list. Generations start at 1 so the zero Entity
// is never alive.
//
// reserve is callable from systems running in parallel: it only touches
// the free list and the index counter, never the slices that query
// iteration reads. commit and deallocate are structural operations and
// run only at sync points or outside the schedule.
type entityAllocator struct {
	mu          sync.Mutex
	generations []uint32
	alive       []bool
	free        []uint32
	nextIndex   uint32
	liveCount   int
}

// allocate reserves and immediately commits a new entity.
func (a *entityAllocator) allocate() Entity {
	e := a.reserve()
	a.commit(e)
	return e
}

// reserve hands out the next identity without making it alive. Reuses a
// freed index with its already-bumped generation when one is available.
func (a *entityAllocator) reserve() Entity {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.free); n > 0 {
		index := a.free[n-1]
		a.free = a.free[:n-1]
		return Entity{index: index, generation: a.generations[index]}
	}
	index := a.nextIndex
	a.nextIndex++
	return Entity{index: index, generation: 1}
}

// commit makes a reserved identity alive.
func (a *entityAllocator) commit(e Entity) {
	for int(e.index) >= len(a.generations) {
		a.generations = append(a.generations, 1)
		a.alive = append(a.alive, false)
	}
	a.alive[e.index] = true
	a.liveCount++
}

func (a *entityAllocator) deallocate(e Entity) error {
	if !a.isAlive(e) {
		return eris.Wrapf(ErrStaleEntity, "despawn of entity %d (generation %d)", e.index, e.generation)
	}
	a.alive[e.index] = false
	a.generations[e.index]++
	a.mu.Lock()
	a.free = append(a.free, e.index)
	a.mu.Unlock()
	a.liveCount--
	return nil
}

func (a *entityAllocator) isAlive(e Entity) bool {
	if int(e.index) >= len(a.generations) {
		return false
	}
	return a.alive[e.index] && a.generations[e.index] == e.generation
}

// entityAt reconstructs the live Entity at the given index.
func (a *entityAllocator) entityAt(index uint32) Entity {
	return Entity{index: index, generation: a.generations[index]}
}
