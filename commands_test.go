package detecs_test

import "testing"

func TestDestroyThenReplaceIsSilentNoOp(t *testing.T) {
	w := newTestWorld(t)

	setup := w.NewBuffer()
	id := setup.CreateEntity()
	setup.AddComponent(id, healthType, health{HP: 5})
	setup.Close()
	w.Flush()

	buf := w.NewBuffer()
	buf.DestroyEntity(id)
	buf.ReplaceComponent(id, healthType, health{HP: 50})
	buf.Close()
	summary := w.Flush()

	if w.Registry().IsAlive(id) {
		t.Fatalf("entity should be destroyed")
	}
	view, _ := w.ViewComponent(healthType)
	if view.Has(id) {
		t.Fatalf("component write on a dead entity must not land")
	}
	// Both ops count as applied even though the second dropped.
	if summary.CommandsApplied != 2 {
		t.Fatalf("expected 2 applied ops, got %d", summary.CommandsApplied)
	}
}

func TestAddThenReplaceLeavesFinalValue(t *testing.T) {
	w := newTestWorld(t)

	buf := w.NewBuffer()
	id := buf.CreateEntity()
	buf.AddComponent(id, positionType, position{X: 1})
	buf.ReplaceComponent(id, positionType, position{X: 2})
	buf.Close()
	w.Flush()

	view, _ := w.ViewComponent(positionType)
	got, ok := view.Get(id)
	if !ok || got.(position).X != 2 {
		t.Fatalf("expected final value {2 0}, got %v (ok=%v)", got, ok)
	}
}

func TestStaleHandleMutationIsSilentNoOp(t *testing.T) {
	w := newTestWorld(t)

	setup := w.NewBuffer()
	id := setup.CreateEntity()
	setup.Close()
	w.Flush()

	kill := w.NewBuffer()
	kill.DestroyEntity(id)
	kill.Close()
	w.Flush()

	// The host still holds the old handle and keeps mutating with it.
	late := w.NewBuffer()
	late.AddComponent(id, positionType, position{X: 9})
	late.DestroyEntity(id)
	late.Close()
	summary := w.Flush()

	if summary.DeltasDispatched != 0 {
		t.Fatalf("dead-target ops must not dispatch deltas, got %d", summary.DeltasDispatched)
	}
	view, _ := w.ViewComponent(positionType)
	if view.Len() != 0 {
		t.Fatalf("no component data should exist")
	}
}

func TestSingletonSetAndRemove(t *testing.T) {
	w := newTestWorld(t)

	buf := w.NewBuffer()
	buf.SetSingleton("clock", 42)
	buf.Close()
	w.Flush()

	v, ok := w.Singleton("clock")
	if !ok || v.(int) != 42 {
		t.Fatalf("expected singleton 42, got %v (ok=%v)", v, ok)
	}

	buf = w.NewBuffer()
	buf.RemoveSingleton("clock")
	buf.Close()
	w.Flush()

	if _, ok := w.Singleton("clock"); ok {
		t.Fatalf("singleton should be removed")
	}
}

func TestDestroyAllEntitiesClearsWorld(t *testing.T) {
	w := newTestWorld(t)

	buf := w.NewBuffer()
	a := buf.CreateEntity()
	b := buf.CreateEntity()
	buf.AddComponent(a, positionType, position{X: 1})
	buf.AddComponent(b, healthType, health{HP: 1})
	buf.Close()
	w.Flush()

	buf = w.NewBuffer()
	buf.DestroyAllEntities()
	buf.Close()
	w.Flush()

	if w.Registry().Count() != 0 {
		t.Fatalf("expected empty registry, got %d", w.Registry().Count())
	}
	pos, _ := w.ViewComponent(positionType)
	hp, _ := w.ViewComponent(healthType)
	if pos.Len() != 0 || hp.Len() != 0 {
		t.Fatalf("component stores should be empty, got %d/%d", pos.Len(), hp.Len())
	}
}

func TestDestroyAllInvalidatesPendingCreate(t *testing.T) {
	w := newTestWorld(t)

	// The create is recorded first but its buffer is submitted after
	// the destroy-all, so the clear lands before the commit.
	late := w.NewBuffer()
	id := late.CreateEntity()
	late.AddComponent(id, positionType, position{X: 3})

	wipe := w.NewBuffer()
	wipe.DestroyAllEntities()
	wipe.Close()
	late.Close()
	w.Flush()

	if w.Registry().IsAlive(id) {
		t.Fatalf("create reserved before destroy-all must not come alive after it")
	}
	if w.Registry().Count() != 0 {
		t.Fatalf("expected empty registry, got %d", w.Registry().Count())
	}
}

func TestRecycledSlotDoesNotResurrectOldHandle(t *testing.T) {
	w := newTestWorld(t)

	buf := w.NewBuffer()
	old := buf.CreateEntity()
	buf.Close()
	w.Flush()

	buf = w.NewBuffer()
	buf.DestroyEntity(old)
	buf.Close()
	w.Flush()

	buf = w.NewBuffer()
	fresh := buf.CreateEntity()
	buf.AddComponent(old, positionType, position{X: 3})
	buf.Close()
	w.Flush()

	if fresh.Index() != old.Index() {
		t.Fatalf("expected slot recycle, got index %d vs %d", fresh.Index(), old.Index())
	}
	if !w.Registry().IsAlive(fresh) {
		t.Fatalf("fresh entity should be alive")
	}
	view, _ := w.ViewComponent(positionType)
	if view.Has(fresh) || view.Has(old) {
		t.Fatalf("write through the stale handle must not reach the recycled slot")
	}
}
