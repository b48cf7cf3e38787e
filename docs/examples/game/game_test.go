package game_test

import (
	"context"
	"testing"
	"time"

	detecs "github.com/arkavel/detecs"
	"github.com/arkavel/detecs/docs/examples/game"
)

func TestDemoSimulationMovesEntities(t *testing.T) {
	w := detecs.NewWorld()
	if err := game.RegisterComponents(w); err != nil {
		t.Fatalf("register: %v", err)
	}

	set := game.Systems(5, game.Bounds{Width: 100, Height: 100})
	plan, err := detecs.BuildPlan(set, nil)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	sched, err := detecs.NewScheduler(w, plan)
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}

	if err := sched.Run(context.Background(), 10, 100*time.Millisecond); err != nil {
		t.Fatalf("run: %v", err)
	}

	if w.Registry().Count() != 5 {
		t.Fatalf("expected 5 entities, got %d", w.Registry().Count())
	}

	positions, _ := w.ViewComponent(game.PositionType)
	moved := 0
	positions.Iterate(func(id detecs.EntityID, component any) bool {
		if component.(game.Position).X != 0 {
			moved++
		}
		return true
	})
	if moved != 5 {
		t.Fatalf("expected every entity to have moved, got %d", moved)
	}
}

func TestSpriteBinderTracksPosition(t *testing.T) {
	w := detecs.NewWorld()
	if err := game.RegisterComponents(w); err != nil {
		t.Fatalf("register: %v", err)
	}

	buf := w.NewBuffer()
	id := buf.CreateEntity()
	buf.AddComponent(id, game.PositionType, game.Position{X: 3, Y: 4})
	buf.Close()
	w.Flush()

	binder := &game.SpriteBinder{Sheet: "hero"}
	w.Router().Attach(id, binder)

	if !binder.Visible || binder.X != 3 || binder.Y != 4 {
		t.Fatalf("snapshot should seed the sprite, got %+v", binder)
	}

	buf = w.NewBuffer()
	buf.ReplaceComponent(id, game.PositionType, game.Position{X: 8, Y: 9})
	buf.Close()
	w.Flush()
	w.Router().ApplyPass()

	if binder.X != 8 || binder.Y != 9 || binder.Applied != 1 {
		t.Fatalf("binder should track changes, got %+v", binder)
	}

	binder.Finish()
	w.Router().ApplyPass()
	if binder.Applied != 1 {
		t.Fatalf("finished binder must stop receiving applies, got %d", binder.Applied)
	}
}
