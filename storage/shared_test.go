package storage

import (
	"testing"

	detecs "github.com/arkavel/detecs"
)

type mobStats struct {
	Health int
	Attack int
}

func TestSharedStoreBasicOperations(t *testing.T) {
	store := NewSharedStrategy().NewStore("stats")
	if store.ComponentType() != "stats" {
		t.Fatalf("expected component type stats, got %s", store.ComponentType())
	}

	a := detecs.NewEntityID(1, 1)
	b := detecs.NewEntityID(2, 1)
	zombie := mobStats{Health: 50, Attack: 10}

	if err := store.Set(a, zombie); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(b, zombie); err != nil {
		t.Fatalf("set: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 entities, got %d", store.Len())
	}
	if v, ok := store.Get(a); !ok || v.(mobStats).Health != 50 {
		t.Fatalf("unexpected value %v (ok=%v)", v, ok)
	}
}

func TestSharedStoreDeduplicatesValues(t *testing.T) {
	store := NewSharedStrategy().NewStore("stats").(*sharedStore)

	zombie := mobStats{Health: 50, Attack: 10}
	player := mobStats{Health: 100, Attack: 25}
	store.Set(detecs.NewEntityID(1, 1), zombie)
	store.Set(detecs.NewEntityID(2, 1), zombie)
	store.Set(detecs.NewEntityID(3, 1), zombie)
	store.Set(detecs.NewEntityID(4, 1), player)

	stats := store.Stats()
	if stats.EntityCount != 4 {
		t.Fatalf("expected 4 entities, got %d", stats.EntityCount)
	}
	if stats.UniqueValueCount != 2 {
		t.Fatalf("expected 2 unique values, got %d", stats.UniqueValueCount)
	}
	if stats.SharingRatio != 2.0 {
		t.Fatalf("expected sharing ratio 2.0, got %f", stats.SharingRatio)
	}
}

func TestSharedStoreRemoveReleasesUnusedValues(t *testing.T) {
	store := NewSharedStrategy().NewStore("stats").(*sharedStore)

	a := detecs.NewEntityID(1, 1)
	b := detecs.NewEntityID(2, 1)
	shared := mobStats{Health: 50}
	store.Set(a, shared)
	store.Set(b, shared)

	if !store.Remove(a) {
		t.Fatalf("remove should succeed")
	}
	if store.Stats().UniqueValueCount != 1 {
		t.Fatalf("value still referenced, must not be released")
	}

	if !store.Remove(b) {
		t.Fatalf("remove should succeed")
	}
	if store.Stats().UniqueValueCount != 0 {
		t.Fatalf("unreferenced value should be released")
	}
	if store.Remove(b) {
		t.Fatalf("double remove should fail")
	}
}

func TestSharedStoreReplaceMovesReference(t *testing.T) {
	store := NewSharedStrategy().NewStore("stats").(*sharedStore)

	id := detecs.NewEntityID(1, 1)
	store.Set(id, mobStats{Health: 50})
	store.Set(id, mobStats{Health: 100})

	if store.Len() != 1 {
		t.Fatalf("replace must not duplicate the entity, got %d", store.Len())
	}
	if store.Stats().UniqueValueCount != 1 {
		t.Fatalf("old value should be released, got %d unique", store.Stats().UniqueValueCount)
	}
	if v, _ := store.Get(id); v.(mobStats).Health != 100 {
		t.Fatalf("expected replaced value, got %v", v)
	}
}

func TestSharedStoreIteratesInEntityOrder(t *testing.T) {
	store := NewSharedStrategy().NewStore("stats")
	for _, idx := range []uint32{7, 1, 4} {
		store.Set(detecs.NewEntityID(idx, 1), mobStats{Health: int(idx)})
	}

	var order []uint32
	store.Iterate(func(id detecs.EntityID, _ any) bool {
		order = append(order, id.Index())
		return true
	})

	want := []uint32{1, 4, 7}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

func TestSharedStoreClearAndZeroEntity(t *testing.T) {
	store := NewSharedStrategy().NewStore("stats")
	if err := store.Set(detecs.EntityID(0), mobStats{}); err == nil {
		t.Fatalf("expected error for zero entity")
	}

	store.Set(detecs.NewEntityID(1, 1), mobStats{Health: 1})
	store.Clear()
	if store.Len() != 0 {
		t.Fatalf("expected empty store after clear, got %d", store.Len())
	}
}
