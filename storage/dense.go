package storage

import (
	"fmt"

	detecs "github.com/arkavel/detecs"
)

type denseStrategy struct{}

// NewDenseStrategy constructs a dense storage strategy. Slots are
// addressed directly by entity index, so lookup is O(1) and iteration
// runs in index order.
func NewDenseStrategy() detecs.StorageStrategy {
	return denseStrategy{}
}

func (denseStrategy) Name() string {
	return "dense"
}

func (denseStrategy) NewStore(t detecs.ComponentType) detecs.ComponentStore {
	return &denseStore{typ: t}
}

type denseStore struct {
	typ         detecs.ComponentType
	occupied    detecs.Bitset
	generations []uint32
	values      []any
	count       int
}

func (s *denseStore) ComponentType() detecs.ComponentType {
	return s.typ
}

func (s *denseStore) Len() int {
	return s.count
}

func (s *denseStore) Has(id detecs.EntityID) bool {
	idx := int(id.Index())
	if idx >= len(s.generations) {
		return false
	}
	return s.occupied.Test(idx) && s.generations[idx] == id.Generation()
}

func (s *denseStore) Get(id detecs.EntityID) (any, bool) {
	if !s.Has(id) {
		return nil, false
	}
	return s.values[int(id.Index())], true
}

// Iterate visits occupied slots in ascending index order.
func (s *denseStore) Iterate(fn func(detecs.EntityID, any) bool) {
	for idx := range s.values {
		if !s.occupied.Test(idx) {
			continue
		}
		id := detecs.NewEntityID(uint32(idx), s.generations[idx])
		if !fn(id, s.values[idx]) {
			return
		}
	}
}

func (s *denseStore) Set(id detecs.EntityID, value any) error {
	if id.IsZero() {
		return fmt.Errorf("dense: cannot set zero entity")
	}
	idx := int(id.Index())
	s.ensureCapacity(idx + 1)
	if !s.occupied.Test(idx) {
		s.count++
	}
	s.occupied.Set(idx)
	s.generations[idx] = id.Generation()
	s.values[idx] = value
	return nil
}

func (s *denseStore) Remove(id detecs.EntityID) bool {
	if !s.Has(id) {
		return false
	}
	idx := int(id.Index())
	s.occupied.Clear(idx)
	s.values[idx] = nil
	s.count--
	return true
}

func (s *denseStore) Clear() {
	s.occupied.Reset()
	for i := range s.values {
		s.values[i] = nil
		s.generations[i] = 0
	}
	s.count = 0
}

func (s *denseStore) ensureCapacity(size int) {
	if size <= len(s.values) {
		return
	}
	diff := size - len(s.values)
	s.values = append(s.values, make([]any, diff)...)
	s.generations = append(s.generations, make([]uint32, diff)...)
}

var _ detecs.ComponentStore = (*denseStore)(nil)
