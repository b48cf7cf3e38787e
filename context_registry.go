package detecs

import (
	"reflect"
	"sort"
	"sync"
)

type contextEntry struct {
	typ reflect.Type
	ctx Context
}

// ContextRegistry owns the per-entity auxiliary resources presentation
// adapters depend on. Many contexts of distinct dynamic types may
// attach to one entity; initialize and deinitialize hooks run exactly
// once per transition, and binders observing the entity are notified
// independently of the delta channel.
type ContextRegistry struct {
	mu      sync.Mutex
	world   *World
	entries map[EntityID][]contextEntry
}

func newContextRegistry(world *World) *ContextRegistry {
	return &ContextRegistry{
		world:   world,
		entries: make(map[EntityID][]contextEntry),
	}
}

// Attach registers a context on an entity. If a context of the same
// dynamic type is already attached it is deinitialized exactly once
// before the new instance initializes.
func (r *ContextRegistry) Attach(entity EntityID, ctx Context) {
	if ctx == nil || entity.IsZero() {
		return
	}
	typ := reflect.TypeOf(ctx)

	r.mu.Lock()
	list := r.entries[entity]
	var replaced Context
	for i, entry := range list {
		if entry.typ == typ {
			replaced = entry.ctx
			list[i] = contextEntry{typ: typ, ctx: ctx}
			break
		}
	}
	if replaced == nil {
		list = append(list, contextEntry{typ: typ, ctx: ctx})
	}
	r.entries[entity] = list
	r.mu.Unlock()

	if replaced != nil {
		r.deinit(entity, replaced)
		r.world.router.notifyContextDetached(entity, replaced)
	}
	r.init(entity, ctx)
	r.world.router.notifyContextAttached(entity, ctx)
}

// Detach removes an exact context instance. Idempotent; returns true
// when the instance was attached.
func (r *ContextRegistry) Detach(entity EntityID, ctx Context) bool {
	r.mu.Lock()
	list := r.entries[entity]
	found := false
	for i, entry := range list {
		if entry.ctx == ctx {
			list = append(list[:i], list[i+1:]...)
			found = true
			break
		}
	}
	if len(list) == 0 {
		delete(r.entries, entity)
	} else if found {
		r.entries[entity] = list
	}
	r.mu.Unlock()

	if !found {
		return false
	}
	r.deinit(entity, ctx)
	r.world.router.notifyContextDetached(entity, ctx)
	return true
}

// DetachAll removes every context from an entity in reverse attach
// order, as part of entity destruction. Idempotent.
func (r *ContextRegistry) DetachAll(entity EntityID) {
	r.mu.Lock()
	list := r.entries[entity]
	delete(r.entries, entity)
	r.mu.Unlock()

	for i := len(list) - 1; i >= 0; i-- {
		r.deinit(entity, list[i].ctx)
		r.world.router.notifyContextDetached(entity, list[i].ctx)
	}
}

// Reinit re-runs a context's initialization. Contexts implementing
// ContextReinitializer take the dedicated fast path; everything else
// falls back to deinitialize-then-initialize of the same instance.
func (r *ContextRegistry) Reinit(entity EntityID, ctx Context) bool {
	if !r.Has(entity, ctx) {
		return false
	}
	if re, ok := ctx.(ContextReinitializer); ok {
		re.ReinitContext(entity, r.world)
		return true
	}
	r.deinit(entity, ctx)
	r.init(entity, ctx)
	return true
}

// Has reports whether the exact context instance is attached.
func (r *ContextRegistry) Has(entity EntityID, ctx Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries[entity] {
		if entry.ctx == ctx {
			return true
		}
	}
	return false
}

// ByType returns the attached context whose dynamic type matches the
// prototype's, if any.
func (r *ContextRegistry) ByType(entity EntityID, prototype Context) (Context, bool) {
	want := reflect.TypeOf(prototype)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries[entity] {
		if entry.typ == want {
			return entry.ctx, true
		}
	}
	return nil, false
}

// All returns the contexts attached to an entity in attach order.
func (r *ContextRegistry) All(entity EntityID) []Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.entries[entity]
	out := make([]Context, len(list))
	for i, entry := range list {
		out[i] = entry.ctx
	}
	return out
}

// Entities returns the ids carrying at least one context, sorted
// ascending.
func (r *ContextRegistry) Entities() []EntityID {
	r.mu.Lock()
	ids := make([]EntityID, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *ContextRegistry) init(entity EntityID, ctx Context) {
	if in, ok := ctx.(ContextInitializer); ok {
		in.InitContext(entity, r.world)
	}
}

func (r *ContextRegistry) deinit(entity EntityID, ctx Context) {
	if fin, ok := ctx.(ContextFinalizer); ok {
		fin.DeinitContext(entity, r.world)
	}
}

// ContextOf resolves an attached context by its static type.
func ContextOf[T Context](r *ContextRegistry, entity EntityID) (T, bool) {
	var zero T
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries[entity] {
		if ctx, ok := entry.ctx.(T); ok {
			return ctx, true
		}
	}
	return zero, false
}
