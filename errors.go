package detecs

import "errors"

var (
	// ErrComponentAlreadyRegistered indicates an attempt to register the same component twice.
	ErrComponentAlreadyRegistered = errors.New("detecs: component already registered")
	// ErrComponentNotRegistered signals lookup on an unknown component type.
	ErrComponentNotRegistered = errors.New("detecs: component not registered")
	// ErrNilStorageStrategy is returned when storage registration receives a nil strategy.
	ErrNilStorageStrategy = errors.New("detecs: nil storage strategy")
	// ErrNilComponentStore is returned when a strategy produces a nil store.
	ErrNilComponentStore = errors.New("detecs: strategy returned nil store")
	// ErrBufferClosed indicates a command buffer was used after Close.
	ErrBufferClosed = errors.New("detecs: command buffer used after close")
	// ErrBarrierClosed indicates jobs cannot be submitted because the barrier queue shut down.
	ErrBarrierClosed = errors.New("detecs: barrier queue closed")
	// ErrDuplicateSystem indicates one system name was registered twice in a set.
	ErrDuplicateSystem = errors.New("detecs: system registered twice")
	// ErrConflictingPhase indicates one system declared more than one phase.
	ErrConflictingPhase = errors.New("detecs: system declares more than one phase")
	// ErrScheduleCycle indicates ordering constraints form a cycle within a phase.
	ErrScheduleCycle = errors.New("detecs: ordering cycle within phase")
	// ErrContainerSealed indicates registration was attempted after Seal.
	ErrContainerSealed = errors.New("detecs: service container sealed")
	// ErrContainerClosed indicates use of a container after Close.
	ErrContainerClosed = errors.New("detecs: service container closed")
	// ErrServiceNotFound signals resolution of an unregistered service.
	ErrServiceNotFound = errors.New("detecs: service not registered")
	// ErrInvalidExternalCommand is returned by external constructors on bad arguments.
	ErrInvalidExternalCommand = errors.New("detecs: invalid external command")
	// ErrWorldDestroyed indicates a world handle no longer resolves.
	ErrWorldDestroyed = errors.New("detecs: world destroyed")
)
