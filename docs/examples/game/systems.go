package game

import (
	"context"

	detecs "github.com/arkavel/detecs"
	"github.com/arkavel/detecs/storage"
)

// RegisterComponents installs the demo component stores. Bounds uses
// the shared strategy because every entity carries the same value.
func RegisterComponents(w *detecs.World) error {
	if err := w.RegisterComponent(PositionType, storage.NewDenseStrategy()); err != nil {
		return err
	}
	if err := w.RegisterComponent(VelocityType, storage.NewDenseStrategy()); err != nil {
		return err
	}
	return w.RegisterComponent(BoundsType, storage.NewSharedStrategy())
}

// Systems returns the demo system set: spawn, movement and collision
// in the fixed pipeline, sprite sync in the frame pipeline.
func Systems(spawnCount int, bounds Bounds) *detecs.SystemSet {
	set := detecs.NewSystemSet()
	set.Add(&SpawnSystem{Count: spawnCount, Bounds: bounds})
	set.Add(MovementSystem{})
	set.Add(CollisionSystem{})
	return set
}

// SpawnSystem creates the demo entities on the first tick.
type SpawnSystem struct {
	Count  int
	Bounds Bounds

	spawned bool
}

func (*SpawnSystem) Descriptor() detecs.SystemDescriptor {
	return detecs.SystemDescriptor{Name: "spawn", Phase: detecs.PhaseFixedDecision}
}

func (s *SpawnSystem) Run(ctx context.Context, exec detecs.ExecutionContext) error {
	if s.spawned {
		return nil
	}
	s.spawned = true

	buf := exec.Buffer()
	for i := 0; i < s.Count; i++ {
		id := buf.CreateEntity()
		buf.AddComponent(id, PositionType, Position{X: float64(i), Y: 0})
		buf.AddComponent(id, VelocityType, Velocity{DX: 1, DY: float64(i % 3)})
		buf.AddComponent(id, BoundsType, s.Bounds)
	}
	exec.Logger().Info("spawned entities", "count", s.Count)
	return nil
}

// MovementSystem integrates velocity into position.
type MovementSystem struct{}

func (MovementSystem) Descriptor() detecs.SystemDescriptor {
	return detecs.SystemDescriptor{Name: "movement", Phase: detecs.PhaseFixedSimulation}
}

func (MovementSystem) Run(ctx context.Context, exec detecs.ExecutionContext) error {
	positions, err := exec.World().ViewComponent(PositionType)
	if err != nil {
		return err
	}
	velocities, err := exec.World().ViewComponent(VelocityType)
	if err != nil {
		return err
	}

	dt := exec.TimeDelta().Seconds()
	buf := exec.Buffer()
	positions.Iterate(func(id detecs.EntityID, component any) bool {
		pos := component.(Position)
		vel, ok := velocities.Get(id)
		if !ok {
			return true
		}
		v := vel.(Velocity)
		pos.X += v.DX * dt
		pos.Y += v.DY * dt
		buf.ReplaceComponent(id, PositionType, pos)
		return true
	})
	return nil
}

// CollisionSystem bounces entities off the shared playfield bounds. It
// reads the positions written by movement in the previous step; the
// barrier applies both systems' buffers between steps.
type CollisionSystem struct{}

func (CollisionSystem) Descriptor() detecs.SystemDescriptor {
	return detecs.SystemDescriptor{
		Name:  "collision",
		Phase: detecs.PhaseFixedSimulation,
		After: []string{"movement"},
	}
}

func (CollisionSystem) Run(ctx context.Context, exec detecs.ExecutionContext) error {
	positions, err := exec.World().ViewComponent(PositionType)
	if err != nil {
		return err
	}
	velocities, err := exec.World().ViewComponent(VelocityType)
	if err != nil {
		return err
	}
	boundsView, err := exec.World().ViewComponent(BoundsType)
	if err != nil {
		return err
	}

	buf := exec.Buffer()
	positions.Iterate(func(id detecs.EntityID, component any) bool {
		pos := component.(Position)
		b, ok := boundsView.Get(id)
		if !ok {
			return true
		}
		bounds := b.(Bounds)
		vel, ok := velocities.Get(id)
		if !ok {
			return true
		}
		v := vel.(Velocity)

		flipped := false
		if pos.X < 0 || pos.X > bounds.Width {
			v.DX = -v.DX
			flipped = true
		}
		if pos.Y < 0 || pos.Y > bounds.Height {
			v.DY = -v.DY
			flipped = true
		}
		if flipped {
			buf.ReplaceComponent(id, VelocityType, v)
		}
		return true
	})
	return nil
}
