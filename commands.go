package detecs

// command is one deferred operation recorded by a buffer. Applying a
// command never fails: a command whose target entity is dead at apply
// time is a silent no-op. Deferred execution makes record/apply races
// routine, so stale targets are the designed recovery path, not an
// error. apply returns the number of deltas it dispatched.
type command interface {
	apply(world *World) int
}

type createEntityCommand struct {
	entity EntityID
}

type destroyEntityCommand struct {
	entity EntityID
}

type setComponentCommand struct {
	entity    EntityID
	component ComponentType
	value     any
}

type removeComponentCommand struct {
	entity    EntityID
	component ComponentType
}

type setSingletonCommand struct {
	component ComponentType
	value     any
}

type removeSingletonCommand struct {
	component ComponentType
}

type destroyAllCommand struct{}

func (c createEntityCommand) apply(world *World) int {
	// The id was reserved at record time; commit makes it visible.
	// A stale reservation means the slot was recycled underneath us,
	// which only happens after a destroy-all; drop it silently.
	world.registry.Commit(c.entity)
	return 0
}

func (c destroyEntityCommand) apply(world *World) int {
	world.destroyEntity(c.entity)
	return 0
}

func (c setComponentCommand) apply(world *World) int {
	return world.setComponent(c.entity, c.component, c.value)
}

func (c removeComponentCommand) apply(world *World) int {
	return world.removeComponent(c.entity, c.component)
}

func (c setSingletonCommand) apply(world *World) int {
	world.setSingleton(c.component, c.value)
	return 0
}

func (c removeSingletonCommand) apply(world *World) int {
	world.removeSingleton(c.component)
	return 0
}

func (destroyAllCommand) apply(world *World) int {
	world.destroyAllEntities()
	return 0
}

var (
	_ command = createEntityCommand{}
	_ command = destroyEntityCommand{}
	_ command = setComponentCommand{}
	_ command = removeComponentCommand{}
	_ command = setSingletonCommand{}
	_ command = removeSingletonCommand{}
	_ command = destroyAllCommand{}
)
