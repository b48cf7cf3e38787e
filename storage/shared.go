package storage

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	detecs "github.com/arkavel/detecs"
)

// sharedStrategy creates stores where many entities reference one
// deduplicated component instance. Useful when large entity counts
// carry identical data (tile flags, base stats for a mob family).
//
// Shared values are immutable from the entity's perspective: to change
// one entity's value, replace the component with a new value.
type sharedStrategy struct{}

// NewSharedStrategy constructs a shared storage strategy.
func NewSharedStrategy() detecs.StorageStrategy {
	return sharedStrategy{}
}

func (sharedStrategy) Name() string {
	return "shared"
}

func (sharedStrategy) NewStore(t detecs.ComponentType) detecs.ComponentStore {
	return &sharedStore{
		typ:        t,
		refs:       make(map[detecs.EntityID]uint32),
		values:     make(map[uint32]*sharedValue),
		nextSlotID: 1,
	}
}

type sharedValue struct {
	data     any
	refCount int
}

type sharedStore struct {
	mu         sync.RWMutex
	typ        detecs.ComponentType
	refs       map[detecs.EntityID]uint32
	values     map[uint32]*sharedValue
	nextSlotID uint32
}

func (s *sharedStore) ComponentType() detecs.ComponentType {
	return s.typ
}

func (s *sharedStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.refs)
}

func (s *sharedStore) Has(id detecs.EntityID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.refs[id]
	return ok
}

func (s *sharedStore) Get(id detecs.EntityID) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.refs[id]
	if !ok {
		return nil, false
	}
	value, ok := s.values[slot]
	if !ok {
		return nil, false
	}
	return value.data, true
}

// Iterate visits entities in ascending id order so that iteration
// order never depends on map layout.
func (s *sharedStore) Iterate(fn func(detecs.EntityID, any) bool) {
	s.mu.RLock()
	ids := make([]detecs.EntityID, 0, len(s.refs))
	for id := range s.refs {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		value, ok := s.Get(id)
		if !ok {
			continue
		}
		if !fn(id, value) {
			return
		}
	}
}

func (s *sharedStore) Set(id detecs.EntityID, value any) error {
	if id.IsZero() {
		return fmt.Errorf("shared: cannot set zero entity")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if oldSlot, ok := s.refs[id]; ok {
		s.releaseLocked(oldSlot)
	}
	s.refs[id] = s.internLocked(value)
	return nil
}

func (s *sharedStore) Remove(id detecs.EntityID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.refs[id]
	if !ok {
		return false
	}
	delete(s.refs, id)
	s.releaseLocked(slot)
	return true
}

func (s *sharedStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs = make(map[detecs.EntityID]uint32)
	s.values = make(map[uint32]*sharedValue)
}

// internLocked deduplicates by deep equality and returns the slot id
// holding the value.
func (s *sharedStore) internLocked(value any) uint32 {
	for slot, existing := range s.values {
		if reflect.DeepEqual(existing.data, value) {
			existing.refCount++
			return slot
		}
	}

	slot := s.nextSlotID
	s.nextSlotID++
	s.values[slot] = &sharedValue{data: value, refCount: 1}
	return slot
}

func (s *sharedStore) releaseLocked(slot uint32) {
	value, ok := s.values[slot]
	if !ok {
		return
	}
	value.refCount--
	if value.refCount <= 0 {
		delete(s.values, slot)
	}
}

// Stats reports sharing efficiency for debugging and tuning.
func (s *sharedStore) Stats() SharedStorageStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	unique := len(s.values)
	if unique == 0 {
		unique = 1
	}
	return SharedStorageStats{
		EntityCount:      len(s.refs),
		UniqueValueCount: len(s.values),
		SharingRatio:     float64(len(s.refs)) / float64(unique),
	}
}

// SharedStorageStats describes how well values are being shared.
type SharedStorageStats struct {
	EntityCount      int
	UniqueValueCount int
	SharingRatio     float64
}

var _ detecs.ComponentStore = (*sharedStore)(nil)
