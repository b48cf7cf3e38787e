package detecs_test

import (
	"errors"
	"testing"

	detecs "github.com/arkavel/detecs"
	"github.com/arkavel/detecs/storage"
)

func TestWorldComponentRegistration(t *testing.T) {
	w := detecs.NewWorld()
	if err := w.RegisterComponent(positionType, storage.NewDenseStrategy()); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := w.RegisterComponent(positionType, storage.NewDenseStrategy()); !errors.Is(err, detecs.ErrComponentAlreadyRegistered) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if err := w.RegisterComponent(healthType, nil); !errors.Is(err, detecs.ErrNilStorageStrategy) {
		t.Fatalf("expected nil strategy error, got %v", err)
	}
	if _, err := w.ViewComponent("velocity"); !errors.Is(err, detecs.ErrComponentNotRegistered) {
		t.Fatalf("expected not-registered error, got %v", err)
	}
}

func TestWorldDirectoryHandleResolution(t *testing.T) {
	dir := detecs.NewWorldDirectory()
	w := detecs.NewWorld()
	handle := dir.Add(w)

	resolved, err := handle.Resolve()
	if err != nil || resolved != w {
		t.Fatalf("resolve failed: %v %v", resolved, err)
	}
	if handle.ID() != w.ID() {
		t.Fatalf("handle id mismatch")
	}

	dir.Remove(w.ID())
	if _, err := handle.Resolve(); !errors.Is(err, detecs.ErrWorldDestroyed) {
		t.Fatalf("expected ErrWorldDestroyed after removal, got %v", err)
	}

	// A handle must be re-resolved before each use; a second world
	// under the same directory never answers for the removed id.
	other := detecs.NewWorld()
	dir.Add(other)
	if _, err := handle.Resolve(); !errors.Is(err, detecs.ErrWorldDestroyed) {
		t.Fatalf("stale handle should keep failing, got %v", err)
	}
}

func TestWorldCloseTearsDownBindersAndContexts(t *testing.T) {
	w := newTestWorld(t)

	buf := w.NewBuffer()
	id := buf.CreateEntity()
	buf.Close()
	w.Flush()

	ctx := &audioContext{}
	binder := &recordingBinder{}
	w.Contexts().Attach(id, ctx)
	w.Router().Attach(id, binder)

	w.Close()

	if ctx.deinits != 1 {
		t.Fatalf("world close must deinit contexts, got %d", ctx.deinits)
	}
	if len(w.Router().Attached(id)) != 0 {
		t.Fatalf("world close must detach binders")
	}
}

func TestWorldCloseSweepsAttachmentsOnDeadEntities(t *testing.T) {
	w := newTestWorld(t)

	// Destroying through the registry directly bypasses the barrier's
	// detach sweep; close must still release the attachments.
	id := w.Registry().Create()
	ctx := &audioContext{}
	binder := &recordingBinder{}
	w.Contexts().Attach(id, ctx)
	w.Router().Attach(id, binder)
	w.Registry().Destroy(id)

	w.Close()

	if ctx.deinits != 1 {
		t.Fatalf("world close must deinit contexts on dead entities, got %d", ctx.deinits)
	}
	if len(w.Router().Attached(id)) != 0 {
		t.Fatalf("world close must detach binders on dead entities")
	}
}

func TestWorldFlushSummaryCounts(t *testing.T) {
	w := newTestWorld(t)

	buf := w.NewBuffer()
	id := buf.CreateEntity()
	buf.AddComponent(id, positionType, position{X: 1})
	buf.Close()

	cmd, err := detecs.ExternalSetSingleton("speed", 3.5)
	if err != nil {
		t.Fatalf("constructor: %v", err)
	}
	w.QueueExternal(cmd)

	summary := w.Flush()
	if summary.Buffers != 1 {
		t.Fatalf("expected 1 buffer, got %d", summary.Buffers)
	}
	if summary.CommandsApplied != 3 {
		t.Fatalf("expected 3 applied commands, got %d", summary.CommandsApplied)
	}
	if summary.ExternalDrained != 1 {
		t.Fatalf("expected 1 drained external command, got %d", summary.ExternalDrained)
	}

	// Nothing pending: the next flush is empty.
	next := w.Flush()
	if next.Buffers != 0 || next.CommandsApplied != 0 || next.ExternalDrained != 0 {
		t.Fatalf("expected an empty flush, got %+v", next)
	}
}

func TestWorldIDsAreUnique(t *testing.T) {
	a := detecs.NewWorld()
	b := detecs.NewWorld()
	if a.ID() == b.ID() {
		t.Fatalf("worlds should carry distinct ids")
	}
	if a.ID().String() == "" {
		t.Fatalf("world id should render")
	}
}
