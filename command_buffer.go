package detecs

// CommandBuffer is a write session against one world. Every mutating
// call only enqueues a typed operation; nothing is applied until the
// world's barrier runs. Close is the only way to submit the buffer
// and the buffer must not be touched afterwards: reuse after close is
// a programmer error and panics immediately.
//
// Multiple buffers may be recorded concurrently by different systems
// within one step; application is single-threaded at the barrier, in
// submission order, with each buffer's operations kept in enqueue
// order.
type CommandBuffer struct {
	world  *World
	ops    []command
	closed bool
}

// Len reports how many operations are queued.
func (b *CommandBuffer) Len() int {
	return len(b.ops)
}

// CreateEntity reserves an id+generation pair immediately so further
// operations can be chained against it within this buffer. The entity
// is not visible to queries until the create operation applies.
func (b *CommandBuffer) CreateEntity() EntityID {
	b.ensureOpen()
	id := b.world.registry.Reserve()
	b.ops = append(b.ops, createEntityCommand{entity: id})
	return id
}

// DestroyEntity enqueues an entity deletion.
func (b *CommandBuffer) DestroyEntity(id EntityID) {
	b.ensureOpen()
	b.ops = append(b.ops, destroyEntityCommand{entity: id})
}

// AddComponent enqueues a component addition. Adding over an existing
// component behaves as a replace at apply time.
func (b *CommandBuffer) AddComponent(id EntityID, component ComponentType, value any) {
	b.ensureOpen()
	b.ops = append(b.ops, setComponentCommand{entity: id, component: component, value: value})
}

// ReplaceComponent enqueues a component replacement. Replacing a
// component the entity does not yet hold behaves as an add.
func (b *CommandBuffer) ReplaceComponent(id EntityID, component ComponentType, value any) {
	b.ensureOpen()
	b.ops = append(b.ops, setComponentCommand{entity: id, component: component, value: value})
}

// RemoveComponent enqueues a component removal.
func (b *CommandBuffer) RemoveComponent(id EntityID, component ComponentType) {
	b.ensureOpen()
	b.ops = append(b.ops, removeComponentCommand{entity: id, component: component})
}

// SetSingleton enqueues a singleton value write.
func (b *CommandBuffer) SetSingleton(component ComponentType, value any) {
	b.ensureOpen()
	b.ops = append(b.ops, setSingletonCommand{component: component, value: value})
}

// RemoveSingleton enqueues a singleton removal.
func (b *CommandBuffer) RemoveSingleton(component ComponentType) {
	b.ensureOpen()
	b.ops = append(b.ops, removeSingletonCommand{component: component})
}

// DestroyAllEntities enqueues destruction of every live entity.
func (b *CommandBuffer) DestroyAllEntities() {
	b.ensureOpen()
	b.ops = append(b.ops, destroyAllCommand{})
}

// Close submits the buffer to the world's barrier queue and returns a
// handle that reports the apply outcome after the next flush. An
// empty buffer closes without scheduling anything.
func (b *CommandBuffer) Close() (*FlushHandle, error) {
	b.ensureOpen()
	b.closed = true
	if len(b.ops) == 0 {
		return completedFlushHandle(), nil
	}
	return b.world.barrier.Submit(b)
}

func (b *CommandBuffer) ensureOpen() {
	if b.closed {
		panic(ErrBufferClosed)
	}
}

func (b *CommandBuffer) applyAll(world *World) (applied, deltas int) {
	for _, op := range b.ops {
		deltas += op.apply(world)
		applied++
	}
	return applied, deltas
}
