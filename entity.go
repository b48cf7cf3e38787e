package detecs

import (
	"fmt"
	"sync"
)

// EntityID packs a 32-bit slot index into the lower bits and a 32-bit
// generation into the upper bits. The zero value is the canonical
// "none" sentinel; a non-zero handle says nothing about liveness,
// which must be confirmed against the owning world's registry.
type EntityID uint64

// NewEntityID packs an (index, generation) pair into a handle.
func NewEntityID(index, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

// Index returns the slot index of the entity.
func (id EntityID) Index() uint32 { return uint32(id) }

// Generation returns the reuse counter associated with the entity.
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }

// IsZero reports whether the identifier is the "none" sentinel.
func (id EntityID) IsZero() bool { return id == 0 }

// String renders the entity identifier for debugging purposes.
func (id EntityID) String() string {
	if id.IsZero() {
		return "EntityID(none)"
	}
	return fmt.Sprintf("EntityID(%d:%d)", id.Index(), id.Generation())
}

// NewEntityRegistry constructs an empty registry.
func NewEntityRegistry() *EntityRegistry {
	return &EntityRegistry{}
}

// EntityRegistry coordinates entity allocation and recycling.
// Reserve hands out an id immediately so callers can chain deferred
// operations against it; the entity only becomes visible once Commit
// runs at the barrier. Destroying a slot bumps its generation, which
// invalidates every previously issued handle to that slot.
type EntityRegistry struct {
	mu          sync.Mutex
	generations []uint32
	alive       Bitset
	free        []uint32
	count       uint32
}

// Reserve allocates an id+generation pair without making it live.
func (r *EntityRegistry) Reserve() EntityID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reserveLocked()
}

// Commit makes a reserved identifier live. It returns false when the
// reservation is stale (the slot was recycled in the meantime).
func (r *EntityRegistry) Commit(id EntityID) bool {
	if id.IsZero() {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := id.Index()
	if idx >= uint32(len(r.generations)) || r.generations[idx] != id.Generation() {
		return false
	}
	if r.alive.Test(int(idx)) {
		return false
	}
	r.alive.Set(int(idx))
	r.count++
	return true
}

// Create reserves and commits in one call, for hosts and tests that
// do not go through the deferred pipeline.
func (r *EntityRegistry) Create() EntityID {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.reserveLocked()
	r.alive.Set(int(id.Index()))
	r.count++
	return id
}

func (r *EntityRegistry) reserveLocked() EntityID {
	var index uint32
	if n := len(r.free); n > 0 {
		index = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		index = uint32(len(r.generations))
		r.generations = append(r.generations, 0)
	}

	r.generations[index]++
	return NewEntityID(index, r.generations[index])
}

// Destroy releases the entity identifier, returning true when it was
// live. Stale or reserved-but-uncommitted handles return false.
func (r *EntityRegistry) Destroy(id EntityID) bool {
	if id.IsZero() {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isAliveLocked(id) {
		return false
	}

	idx := id.Index()
	r.alive.Clear(int(idx))
	r.generations[idx]++
	r.free = append(r.free, idx)
	r.count--
	return true
}

// IsAlive reports whether the identifier refers to a currently live entity.
func (r *EntityRegistry) IsAlive(id EntityID) bool {
	if id.IsZero() {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isAliveLocked(id)
}

// Count returns the number of live entities.
func (r *EntityRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int(r.count)
}

// Each calls fn for every live entity in slot order.
func (r *EntityRegistry) Each(fn func(EntityID) bool) {
	r.mu.Lock()
	ids := make([]EntityID, 0, r.count)
	for idx := range r.generations {
		if r.alive.Test(idx) {
			ids = append(ids, NewEntityID(uint32(idx), r.generations[idx]))
		}
	}
	r.mu.Unlock()

	for _, id := range ids {
		if !fn(id) {
			return
		}
	}
}

// DestroyAll releases every live entity and invalidates outstanding
// reservations, so a Commit recorded before the clear cannot
// resurrect an entity into the emptied registry.
func (r *EntityRegistry) DestroyAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	recycled := make(map[uint32]struct{}, len(r.free))
	for _, idx := range r.free {
		recycled[idx] = struct{}{}
	}

	// Every slot is alive, on the free list, or held by an
	// uncommitted reservation. The first and last get their
	// generation bumped here; free slots were bumped at destroy.
	for idx := range r.generations {
		if r.alive.Test(idx) {
			r.alive.Clear(idx)
		} else if _, ok := recycled[uint32(idx)]; ok {
			continue
		}
		r.generations[idx]++
		r.free = append(r.free, uint32(idx))
	}
	r.count = 0
}

func (r *EntityRegistry) isAliveLocked(id EntityID) bool {
	idx := id.Index()
	if idx >= uint32(len(r.generations)) {
		return false
	}
	return r.generations[idx] == id.Generation() && r.alive.Test(int(idx))
}
