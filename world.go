package detecs

import "sync"

// World owns entity and component storage and exposes the mutation
// boundary, the binding router, and the context registry. Storage is
// the single shared mutable resource: all mutation passes through
// command buffers or the external boundary, and application happens
// on one goroutine at the barrier.
type World struct {
	id         WorldID
	registry   *EntityRegistry
	storage    StorageProvider
	services   *ServiceContainer
	router     *BindingRouter
	contexts   *ContextRegistry
	barrier    *barrierQueue
	logger     Logger

	singletonMu sync.RWMutex
	singletons  map[ComponentType]any

	externalMu sync.Mutex
	external   []ExternalCommand
}

type WorldOption func(*World)

// NewWorld constructs a world with default registries and providers.
func NewWorld(opts ...WorldOption) *World {
	w := &World{
		id:         NewWorldID(),
		registry:   NewEntityRegistry(),
		storage:    newStorageProvider(),
		logger:     NewNopLogger(),
		barrier:    newBarrierQueue(),
		singletons: make(map[ComponentType]any),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.services == nil {
		w.services = NewServiceContainer(w.logger)
	}
	w.router = newBindingRouter(w)
	w.contexts = newContextRegistry(w)
	return w
}

// WithEntityRegistry overrides the default registry.
func WithEntityRegistry(registry *EntityRegistry) WorldOption {
	return func(w *World) {
		if registry != nil {
			w.registry = registry
		}
	}
}

// WithStorageProvider overrides the default storage provider.
func WithStorageProvider(provider StorageProvider) WorldOption {
	return func(w *World) {
		if provider != nil {
			w.storage = provider
		}
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(logger Logger) WorldOption {
	return func(w *World) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithServiceContainer overrides the default service container.
func WithServiceContainer(container *ServiceContainer) WorldOption {
	return func(w *World) {
		if container != nil {
			w.services = container
		}
	}
}

// ID returns the opaque identifier of this world instance.
func (w *World) ID() WorldID { return w.id }

// Registry exposes the backing entity registry.
func (w *World) Registry() *EntityRegistry { return w.registry }

// Storage returns the storage provider used by the world.
func (w *World) Storage() StorageProvider { return w.storage }

// Services exposes the service container wiring internal runtime services.
func (w *World) Services() *ServiceContainer { return w.services }

// Router exposes the binding router for presentation adapters.
func (w *World) Router() *BindingRouter { return w.router }

// Contexts exposes the per-entity context registry.
func (w *World) Contexts() *ContextRegistry { return w.contexts }

// Logger returns the world logger.
func (w *World) Logger() Logger { return w.logger }

// RegisterComponent registers a component storage strategy.
func (w *World) RegisterComponent(t ComponentType, strategy StorageStrategy) error {
	return w.storage.RegisterComponent(t, strategy)
}

// ViewComponent retrieves a read-only component view by type.
func (w *World) ViewComponent(t ComponentType) (ComponentView, error) {
	return w.storage.View(t)
}

// NewBuffer opens a write session bound to this world.
func (w *World) NewBuffer() *CommandBuffer {
	return &CommandBuffer{world: w}
}

// QueueExternal enqueues a host-originated command. Safe from any
// goroutine; the queue drains into a real buffer at the next barrier.
func (w *World) QueueExternal(cmd ExternalCommand) {
	w.externalMu.Lock()
	w.external = append(w.external, cmd)
	w.externalMu.Unlock()
}

// Singleton returns the singleton value for a component type.
func (w *World) Singleton(t ComponentType) (any, bool) {
	w.singletonMu.RLock()
	defer w.singletonMu.RUnlock()
	v, ok := w.singletons[t]
	return v, ok
}

// Flush runs the barrier: submitted buffers apply in submission order,
// then queued external commands drain through a fresh buffer. Each
// applied change dispatches its delta synchronously before the next
// operation applies. Flush must only be called from the goroutine that
// drives the simulation.
func (w *World) Flush() BarrierSummary {
	summary := BarrierSummary{}

	for _, job := range w.barrier.drain() {
		applied, deltas := job.buf.applyAll(w)
		summary.Buffers++
		summary.CommandsApplied += applied
		summary.DeltasDispatched += deltas
		job.result <- flushResult{applied: applied}
		close(job.result)
	}

	w.externalMu.Lock()
	external := w.external
	w.external = nil
	w.externalMu.Unlock()

	if len(external) > 0 {
		buf := w.NewBuffer()
		for _, cmd := range external {
			cmd.record(buf)
		}
		buf.closed = true
		applied, deltas := buf.applyAll(w)
		summary.ExternalDrained = len(external)
		summary.CommandsApplied += applied
		summary.DeltasDispatched += deltas
	}

	return summary
}

// Close tears the world down: barrier queue, binders, contexts, then
// the service container in reverse registration order. The sweep
// walks the router's and context registry's own entity keys, so
// attachments on entities destroyed behind the world's back are
// still released.
func (w *World) Close() {
	w.barrier.Close()
	for _, id := range w.contexts.Entities() {
		w.contexts.DetachAll(id)
	}
	for _, id := range w.router.Entities() {
		w.router.DetachEntity(id)
	}
	w.services.Close()
}

// setComponent applies a deferred component write. Dead targets are a
// silent no-op. Returns the number of deltas dispatched.
func (w *World) setComponent(id EntityID, t ComponentType, value any) int {
	if !w.registry.IsAlive(id) {
		return 0
	}
	view, err := w.storage.View(t)
	if err != nil {
		w.logger.Warn("apply: component not registered", "component", string(t))
		return 0
	}
	store, ok := view.(ComponentStore)
	if !ok {
		w.logger.Warn("apply: component view is read-only", "component", string(t))
		return 0
	}

	kind := DeltaAdded
	if store.Has(id) {
		kind = DeltaChanged
	}
	if err := store.Set(id, value); err != nil {
		w.logger.Warn("apply: component write rejected", "component", string(t), "err", err)
		return 0
	}
	return w.router.Dispatch(Delta{Kind: kind, Entity: id, Component: t, Value: value})
}

// removeComponent applies a deferred component removal.
func (w *World) removeComponent(id EntityID, t ComponentType) int {
	if !w.registry.IsAlive(id) {
		return 0
	}
	view, err := w.storage.View(t)
	if err != nil {
		w.logger.Warn("apply: component not registered", "component", string(t))
		return 0
	}
	store, ok := view.(ComponentStore)
	if !ok {
		return 0
	}
	if !store.Remove(id) {
		return 0
	}
	return w.router.Dispatch(Delta{Kind: DeltaRemoved, Entity: id, Component: t})
}

// destroyEntity applies a deferred destroy: contexts deinitialize,
// binders detach, component data clears, then the slot recycles.
// Stale handles are a silent no-op.
func (w *World) destroyEntity(id EntityID) {
	if !w.registry.IsAlive(id) {
		return
	}
	w.contexts.DetachAll(id)
	w.router.DetachEntity(id)
	w.storage.Each(func(store ComponentStore) {
		store.Remove(id)
	})
	w.registry.Destroy(id)
}

// destroyAllEntities tears down every live entity, then clears the
// registry wholesale so reservations still in flight cannot commit
// into the emptied world.
func (w *World) destroyAllEntities() {
	w.registry.Each(func(id EntityID) bool {
		w.contexts.DetachAll(id)
		w.router.DetachEntity(id)
		w.storage.Each(func(store ComponentStore) {
			store.Remove(id)
		})
		return true
	})
	w.registry.DestroyAll()
}

func (w *World) setSingleton(t ComponentType, value any) {
	w.singletonMu.Lock()
	w.singletons[t] = value
	w.singletonMu.Unlock()
}

func (w *World) removeSingleton(t ComponentType) {
	w.singletonMu.Lock()
	delete(w.singletons, t)
	w.singletonMu.Unlock()
}
