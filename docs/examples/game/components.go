package game

import detecs "github.com/arkavel/detecs"

// Component types used by the demo simulation.
const (
	PositionType detecs.ComponentType = "Position"
	VelocityType detecs.ComponentType = "Velocity"
	BoundsType   detecs.ComponentType = "Bounds"
)

// Position is the entity's location on the playfield.
type Position struct {
	X, Y float64
}

// Velocity is applied once per fixed step.
type Velocity struct {
	DX, DY float64
}

// Bounds is the shared playfield limit. Every entity references the
// same value, which makes it a natural fit for the shared strategy.
type Bounds struct {
	Width, Height float64
}
