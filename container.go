package detecs

import (
	"fmt"
	"io"
	"sync"
)

// ServiceFactory builds a new service instance per resolution.
type ServiceFactory func(c *ServiceContainer) (any, error)

// ServiceStopper is honored during container teardown. io.Closer works
// too; disposal errors are swallowed so one failing service cannot
// block cleanup of the rest.
type ServiceStopper interface {
	Stop() error
}

type serviceEntry struct {
	name    string
	value   any
	factory ServiceFactory
}

// ServiceContainer is a small hierarchical dependency registry used to
// wire internal runtime services. Registration happens during
// composition; Seal freezes the registry, and registering afterwards
// is a programmer error that panics. Close tears down deterministically
// in reverse: child scopes in reverse creation order, then owned
// singleton instances in reverse registration order.
type ServiceContainer struct {
	mu       sync.Mutex
	parent   *ServiceContainer
	children []*ServiceContainer
	entries  []serviceEntry
	index    map[string]int
	logger   Logger
	sealed   bool
	closed   bool
}

// NewServiceContainer constructs a root container.
func NewServiceContainer(logger Logger) *ServiceContainer {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &ServiceContainer{
		index:  make(map[string]int),
		logger: logger,
	}
}

// Child creates a nested scope. Resolution falls back to the parent;
// teardown of the parent closes children first.
func (c *ServiceContainer) Child() *ServiceContainer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		panic(ErrContainerClosed)
	}
	child := &ServiceContainer{
		parent: c,
		index:  make(map[string]int),
		logger: c.logger,
	}
	c.children = append(c.children, child)
	return child
}

// Register binds a singleton instance under a name.
func (c *ServiceContainer) Register(name string, value any) error {
	return c.register(serviceEntry{name: name, value: value})
}

// RegisterFactory binds a factory producing a fresh instance on every
// Resolve. Factory products are not owned by the container and are not
// part of teardown.
func (c *ServiceContainer) RegisterFactory(name string, factory ServiceFactory) error {
	if factory == nil {
		return fmt.Errorf("detecs: nil factory for service %s", name)
	}
	return c.register(serviceEntry{name: name, factory: factory})
}

func (c *ServiceContainer) register(entry serviceEntry) error {
	if entry.name == "" {
		return fmt.Errorf("detecs: service requires a name")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		panic(ErrContainerClosed)
	}
	if c.sealed {
		panic(fmt.Errorf("%w: cannot register %s", ErrContainerSealed, entry.name))
	}
	if _, exists := c.index[entry.name]; exists {
		return fmt.Errorf("detecs: service %s already registered", entry.name)
	}
	c.index[entry.name] = len(c.entries)
	c.entries = append(c.entries, entry)
	return nil
}

// Seal freezes registration for this scope. Idempotent.
func (c *ServiceContainer) Seal() {
	c.mu.Lock()
	c.sealed = true
	c.mu.Unlock()
}

// Sealed reports whether registration is frozen.
func (c *ServiceContainer) Sealed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sealed
}

// Resolve returns the service bound under name, consulting parent
// scopes when the local scope misses. Factories run per call.
func (c *ServiceContainer) Resolve(name string) (any, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrContainerClosed
	}
	idx, ok := c.index[name]
	var entry serviceEntry
	if ok {
		entry = c.entries[idx]
	}
	parent := c.parent
	c.mu.Unlock()

	if !ok {
		if parent != nil {
			return parent.Resolve(name)
		}
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}
	if entry.factory != nil {
		return entry.factory(c)
	}
	return entry.value, nil
}

// Close tears the scope down: children in reverse creation order, then
// owned instances in reverse registration order. Disposal errors are
// logged and swallowed. Idempotent.
func (c *ServiceContainer) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	children := c.children
	entries := c.entries
	c.children = nil
	c.entries = nil
	c.mu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Close()
	}
	for i := len(entries) - 1; i >= 0; i-- {
		c.dispose(entries[i])
	}
}

func (c *ServiceContainer) dispose(entry serviceEntry) {
	if entry.value == nil {
		return
	}
	var err error
	switch v := entry.value.(type) {
	case ServiceStopper:
		err = v.Stop()
	case io.Closer:
		err = v.Close()
	default:
		return
	}
	if err != nil {
		c.logger.Warn("service disposal failed", "service", entry.name, "err", err)
	}
}
