package sim

import (
	"github.com/san-kum/flocksim/internal/dynamo"
	"github.com/san-kum/flocksim/internal/physics"
)

type Metric interface {
	Name() string
	Observe(ps []physics.Particle, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(ps []physics.Particle, step int, t float64)
}

type Options struct {
	Dt   float64
	Seed int64

	// CellWidth of the neighbor grid; zero derives it from the cutoff.
	CellWidth float64

	// ValidateState makes Step fail on NaN or Inf particle state.
	ValidateState bool
}

// Sample is one point of a tracked particle trajectory.
type Sample struct {
	Pos   dynamo.Vec2
	Theta float64
}

// Velocity is the heading unit vector of the sample.
func (s Sample) Velocity() dynamo.Vec2 {
	return dynamo.Unit(s.Theta)
}
