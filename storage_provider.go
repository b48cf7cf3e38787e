package detecs

import (
	"sort"
	"sync"
)

type storageProvider struct {
	mu     sync.RWMutex
	stores map[ComponentType]ComponentStore
	order  []ComponentType
}

func newStorageProvider() *storageProvider {
	return &storageProvider{stores: make(map[ComponentType]ComponentStore)}
}

func (p *storageProvider) RegisterComponent(t ComponentType, strategy StorageStrategy) error {
	if strategy == nil {
		return ErrNilStorageStrategy
	}

	store := strategy.NewStore(t)
	if store == nil {
		return ErrNilComponentStore
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.stores[t]; exists {
		return ErrComponentAlreadyRegistered
	}

	p.stores[t] = store
	p.order = append(p.order, t)
	sort.Slice(p.order, func(i, j int) bool { return p.order[i] < p.order[j] })
	return nil
}

func (p *storageProvider) View(t ComponentType) (ComponentView, error) {
	p.mu.RLock()
	store, ok := p.stores[t]
	p.mu.RUnlock()

	if !ok {
		return nil, ErrComponentNotRegistered
	}

	return store, nil
}

// Each visits every store in component-type order, which keeps
// snapshot synthesis and destroy cleanup deterministic.
func (p *storageProvider) Each(fn func(ComponentStore)) {
	p.mu.RLock()
	order := append([]ComponentType(nil), p.order...)
	stores := p.stores
	p.mu.RUnlock()

	for _, t := range order {
		fn(stores[t])
	}
}

var _ StorageProvider = (*storageProvider)(nil)
