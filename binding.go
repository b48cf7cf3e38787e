package detecs

import (
	"reflect"
	"sort"
	"sync"
)

// bindingEntry is one attached binder. Order is captured at attach
// time; a binder that wants a different apply order must detach and
// re-attach.
type bindingEntry struct {
	binder    Binder
	order     int
	seq       uint64
	enabled   bool
	interests map[ComponentType]struct{}
}

func (e *bindingEntry) interestedIn(t ComponentType) bool {
	_, ok := e.interests[t]
	return ok
}

func (e *bindingEntry) finished() bool {
	if f, ok := e.binder.(BinderFinisher); ok {
		return f.Finished()
	}
	return false
}

// BindingRouter dispatches component deltas to presentation adapters
// and runs the once-per-frame apply pass. It is exclusively owned by
// one world; simulation state flows out through it, never back in.
type BindingRouter struct {
	mu      sync.Mutex
	world   *World
	entries map[EntityID][]*bindingEntry
	nextSeq uint64
}

func newBindingRouter(world *World) *BindingRouter {
	return &BindingRouter{
		world:   world,
		entries: make(map[EntityID][]*bindingEntry),
	}
}

// Attach registers a binder on an entity. The binder is inserted in
// (apply-order, attach-sequence) position and immediately receives a
// Snapshot delta for every component the entity already holds, so it
// can initialize without missing prior state.
func (r *BindingRouter) Attach(entity EntityID, binder Binder) {
	if binder == nil || entity.IsZero() {
		return
	}

	entry := &bindingEntry{
		binder:    binder,
		order:     binder.ApplyOrder(),
		enabled:   true,
		interests: make(map[ComponentType]struct{}),
	}
	for _, t := range binder.Interests() {
		entry.interests[t] = struct{}{}
	}

	r.mu.Lock()
	r.nextSeq++
	entry.seq = r.nextSeq
	list := r.entries[entity]
	pos := sort.Search(len(list), func(i int) bool {
		if list[i].order != entry.order {
			return list[i].order > entry.order
		}
		return list[i].seq > entry.seq
	})
	list = append(list, nil)
	copy(list[pos+1:], list[pos:])
	list[pos] = entry
	r.entries[entity] = list
	r.mu.Unlock()

	r.world.storage.Each(func(store ComponentStore) {
		if !entry.interestedIn(store.ComponentType()) {
			return
		}
		if value, ok := store.Get(entity); ok {
			binder.HandleDelta(Delta{Kind: DeltaSnapshot, Entity: entity, Component: store.ComponentType(), Value: value})
		}
	})
}

// Detach removes one binder instance from an entity. Detaching a
// binder that is not attached is a no-op.
func (r *BindingRouter) Detach(entity EntityID, binder Binder) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.entries[entity]
	for i, entry := range list {
		if entry.binder == binder {
			r.removeAtLocked(entity, list, i)
			return true
		}
	}
	return false
}

// DetachType removes every binder of the given dynamic type from an
// entity. prototype supplies the type; its value is otherwise unused.
func (r *BindingRouter) DetachType(entity EntityID, prototype Binder) int {
	want := reflect.TypeOf(prototype)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	list := r.entries[entity]
	for i := len(list) - 1; i >= 0; i-- {
		if reflect.TypeOf(list[i].binder) == want {
			list = r.removeAtLocked(entity, list, i)
			removed++
		}
	}
	return removed
}

// DetachEntity removes every binder from an entity, as part of entity
// destruction. Idempotent.
func (r *BindingRouter) DetachEntity(entity EntityID) {
	r.mu.Lock()
	delete(r.entries, entity)
	r.mu.Unlock()
}

// SetEnabled toggles a binder's participation in the apply pass.
// Disabled binders keep receiving deltas so their view state does not
// go stale while hidden.
func (r *BindingRouter) SetEnabled(entity EntityID, binder Binder, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries[entity] {
		if entry.binder == binder {
			entry.enabled = enabled
			return
		}
	}
}

// Dispatch fans one delta out to the interested binders attached to
// its entity, in attach order. The loop re-checks bounds on every
// step, so binders detached mid-dispatch are tolerated; binders
// attached after dispatch begins carry no delivery guarantee for the
// in-flight delta. Returns the number of deliveries.
func (r *BindingRouter) Dispatch(delta Delta) int {
	delivered := 0
	for i := 0; ; i++ {
		r.mu.Lock()
		list := r.entries[delta.Entity]
		if i >= len(list) {
			r.mu.Unlock()
			break
		}
		entry := list[i]
		r.mu.Unlock()

		if !entry.interestedIn(delta.Component) {
			continue
		}
		entry.binder.HandleDelta(delta)
		delivered++
	}
	return delivered
}

// ApplyPass invokes every attached, enabled binder's update step once,
// walking entities in id order and binders in attach order. A binder
// reporting Finished is skipped silently and permanently, without
// being detached.
func (r *BindingRouter) ApplyPass() {
	r.mu.Lock()
	ids := make([]EntityID, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		for i := 0; ; i++ {
			r.mu.Lock()
			list := r.entries[id]
			if i >= len(list) {
				r.mu.Unlock()
				break
			}
			entry := list[i]
			r.mu.Unlock()

			if !entry.enabled || entry.finished() {
				continue
			}
			entry.binder.Update(id, r.world)
		}
	}
}

// notifyContextAttached routes a context attach to binder observers.
func (r *BindingRouter) notifyContextAttached(entity EntityID, ctx Context) {
	r.notifyContext(entity, ctx, true)
}

// notifyContextDetached routes a context detach to binder observers.
func (r *BindingRouter) notifyContextDetached(entity EntityID, ctx Context) {
	r.notifyContext(entity, ctx, false)
}

func (r *BindingRouter) notifyContext(entity EntityID, ctx Context, attached bool) {
	for i := 0; ; i++ {
		r.mu.Lock()
		list := r.entries[entity]
		if i >= len(list) {
			r.mu.Unlock()
			break
		}
		entry := list[i]
		r.mu.Unlock()

		observer, ok := entry.binder.(ContextObserver)
		if !ok {
			continue
		}
		if attached {
			observer.ContextAttached(entity, ctx)
		} else {
			observer.ContextDetached(entity, ctx)
		}
	}
}

// Attached returns the binders currently attached to an entity, in
// apply order.
func (r *BindingRouter) Attached(entity EntityID) []Binder {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.entries[entity]
	out := make([]Binder, len(list))
	for i, entry := range list {
		out[i] = entry.binder
	}
	return out
}

// Entities returns the ids carrying at least one binder, sorted
// ascending. Attachment outlives registry liveness, so this is the
// authoritative teardown walk.
func (r *BindingRouter) Entities() []EntityID {
	r.mu.Lock()
	ids := make([]EntityID, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *BindingRouter) removeAtLocked(entity EntityID, list []*bindingEntry, i int) []*bindingEntry {
	list = append(list[:i], list[i+1:]...)
	if len(list) == 0 {
		delete(r.entries, entity)
	} else {
		r.entries[entity] = list
	}
	return list
}
