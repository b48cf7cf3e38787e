package game

import detecs "github.com/arkavel/detecs"

// SpriteBinder mirrors an entity's position into presentation-side
// sprite state. It owns only view state; the simulation never reads
// it back.
type SpriteBinder struct {
	Sheet string

	X, Y    float64
	Visible bool
	dirty   bool
	done    bool

	// Applied counts completed apply passes, for tests and demos.
	Applied int
}

func (b *SpriteBinder) ApplyOrder() int { return 10 }

func (b *SpriteBinder) Interests() []detecs.ComponentType {
	return []detecs.ComponentType{PositionType}
}

func (b *SpriteBinder) HandleDelta(delta detecs.Delta) {
	switch delta.Kind {
	case detecs.DeltaRemoved:
		b.Visible = false
	case detecs.DeltaSnapshot, detecs.DeltaAdded, detecs.DeltaChanged:
		pos := delta.Value.(Position)
		b.X, b.Y = pos.X, pos.Y
		b.Visible = true
	}
	b.dirty = true
}

func (b *SpriteBinder) Update(entity detecs.EntityID, world *detecs.World) {
	if !b.dirty {
		return
	}
	b.dirty = false
	b.Applied++
}

// Finish permanently retires the binder from apply passes.
func (b *SpriteBinder) Finish() { b.done = true }

func (b *SpriteBinder) Finished() bool { return b.done }

var (
	_ detecs.Binder         = (*SpriteBinder)(nil)
	_ detecs.BinderFinisher = (*SpriteBinder)(nil)
)
