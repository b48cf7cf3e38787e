package detecs

import "fmt"

// ExternalCommandKind tags one boundary operation.
type ExternalCommandKind uint8

const (
	ExternalKindCreateEntity ExternalCommandKind = iota
	ExternalKindDestroyEntity
	ExternalKindAddComponent
	ExternalKindReplaceComponent
	ExternalKindRemoveComponent
	ExternalKindSetSingleton
	ExternalKindRemoveSingleton
)

// CreationCallback runs at drain time with the newly reserved entity
// and the active buffer, so follow-up operations can be chained
// atomically once the id is known. It must not call back into the
// world outside the supplied buffer.
type CreationCallback func(entity EntityID, buf *CommandBuffer)

// ExternalCommand is a read-only descriptor for a host-originated
// mutation. Instances are built only through the validating
// constructors below; the world drains queued descriptors into a real
// command buffer at the next barrier, so the no-op-on-death guarantee
// of the deferred pipeline carries over unchanged.
type ExternalCommand struct {
	kind      ExternalCommandKind
	entity    EntityID
	component ComponentType
	value     any
	onCreate  CreationCallback
}

// Kind returns the operation tag.
func (c ExternalCommand) Kind() ExternalCommandKind { return c.kind }

// Entity returns the target entity, zero for create and singleton kinds.
func (c ExternalCommand) Entity() EntityID { return c.entity }

// Component returns the component type, empty for entity kinds.
func (c ExternalCommand) Component() ComponentType { return c.component }

// ExternalCreateEntity requests a new entity. The optional callback
// receives the reserved id and the draining buffer.
func ExternalCreateEntity(onCreate CreationCallback) ExternalCommand {
	return ExternalCommand{kind: ExternalKindCreateEntity, onCreate: onCreate}
}

// ExternalDestroyEntity requests destruction of an existing entity.
func ExternalDestroyEntity(entity EntityID) (ExternalCommand, error) {
	if entity.IsZero() {
		return ExternalCommand{}, fmt.Errorf("%w: destroy needs a target entity", ErrInvalidExternalCommand)
	}
	return ExternalCommand{kind: ExternalKindDestroyEntity, entity: entity}, nil
}

// ExternalAddComponent requests a component addition.
func ExternalAddComponent(entity EntityID, component ComponentType, value any) (ExternalCommand, error) {
	if err := validateComponentTarget(entity, component); err != nil {
		return ExternalCommand{}, err
	}
	return ExternalCommand{kind: ExternalKindAddComponent, entity: entity, component: component, value: value}, nil
}

// ExternalReplaceComponent requests a component replacement.
func ExternalReplaceComponent(entity EntityID, component ComponentType, value any) (ExternalCommand, error) {
	if err := validateComponentTarget(entity, component); err != nil {
		return ExternalCommand{}, err
	}
	return ExternalCommand{kind: ExternalKindReplaceComponent, entity: entity, component: component, value: value}, nil
}

// ExternalRemoveComponent requests a component removal.
func ExternalRemoveComponent(entity EntityID, component ComponentType) (ExternalCommand, error) {
	if err := validateComponentTarget(entity, component); err != nil {
		return ExternalCommand{}, err
	}
	return ExternalCommand{kind: ExternalKindRemoveComponent, entity: entity, component: component}, nil
}

// ExternalSetSingleton requests a singleton write.
func ExternalSetSingleton(component ComponentType, value any) (ExternalCommand, error) {
	if component == "" {
		return ExternalCommand{}, fmt.Errorf("%w: singleton needs a component type", ErrInvalidExternalCommand)
	}
	return ExternalCommand{kind: ExternalKindSetSingleton, component: component, value: value}, nil
}

// ExternalRemoveSingleton requests a singleton removal.
func ExternalRemoveSingleton(component ComponentType) (ExternalCommand, error) {
	if component == "" {
		return ExternalCommand{}, fmt.Errorf("%w: singleton needs a component type", ErrInvalidExternalCommand)
	}
	return ExternalCommand{kind: ExternalKindRemoveSingleton, component: component}, nil
}

func validateComponentTarget(entity EntityID, component ComponentType) error {
	if entity.IsZero() {
		return fmt.Errorf("%w: component operation needs a target entity", ErrInvalidExternalCommand)
	}
	if component == "" {
		return fmt.Errorf("%w: component operation needs a component type", ErrInvalidExternalCommand)
	}
	return nil
}

// record transcribes the descriptor into a live buffer during drain.
func (c ExternalCommand) record(buf *CommandBuffer) {
	switch c.kind {
	case ExternalKindCreateEntity:
		id := buf.CreateEntity()
		if c.onCreate != nil {
			c.onCreate(id, buf)
		}
	case ExternalKindDestroyEntity:
		buf.DestroyEntity(c.entity)
	case ExternalKindAddComponent:
		buf.AddComponent(c.entity, c.component, c.value)
	case ExternalKindReplaceComponent:
		buf.ReplaceComponent(c.entity, c.component, c.value)
	case ExternalKindRemoveComponent:
		buf.RemoveComponent(c.entity, c.component)
	case ExternalKindSetSingleton:
		buf.SetSingleton(c.component, c.value)
	case ExternalKindRemoveSingleton:
		buf.RemoveSingleton(c.component)
	}
}
