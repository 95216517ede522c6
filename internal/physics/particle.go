package physics

import (
	"math"

	"github.com/san-kum/flocksim/internal/dynamo"
)

// Accumulator holds the per-step interaction sums of a particle.
// Which fields a model uses depends on the model.
type Accumulator struct {
	Sum         dynamo.Vec2 // heading or velocity sum
	Force       dynamo.Vec2
	Torque      float64
	PhaseTorque float64
	Neighbors   int
}

// Delta is a contribution to an Accumulator produced by one pair interaction.
type Delta Accumulator

// Apply adds d to the accumulator.
func (a *Accumulator) Apply(d Delta) {
	a.Sum = a.Sum.Add(d.Sum)
	a.Force = a.Force.Add(d.Force)
	a.Torque += d.Torque
	a.PhaseTorque += d.PhaseTorque
	a.Neighbors += d.Neighbors
}

// Negate returns the delta that undoes d.
func (d Delta) Negate() Delta {
	return Delta{
		Sum:         d.Sum.Scale(-1),
		Force:       d.Force.Scale(-1),
		Torque:      -d.Torque,
		PhaseTorque: -d.PhaseTorque,
		Neighbors:   -d.Neighbors,
	}
}

// Particle is a self-propelled point particle.
//
// Vel is always the unit vector of Theta; use SetHeading to change either.
type Particle struct {
	Pos   dynamo.Vec2
	Vel   dynamo.Vec2
	Theta float64
	Phi   float64 // secondary phase, Phase model only
	Speed float64
	Acc   Accumulator
}

// NewParticle places a particle at pos with heading theta.
func NewParticle(pos dynamo.Vec2, theta float64) Particle {
	p := Particle{Pos: pos}
	p.SetHeading(theta)
	return p
}

func (p *Particle) SetHeading(theta float64) {
	p.Theta = theta
	p.Vel = dynamo.Unit(theta)
}

func (p *Particle) IsValid() bool {
	return p.Pos.IsValid() && p.Vel.IsValid() &&
		!math.IsNaN(p.Theta) && !math.IsInf(p.Theta, 0) &&
		!math.IsNaN(p.Phi) && !math.IsInf(p.Phi, 0)
}

// Clone copies a population.
func Clone(ps []Particle) []Particle {
	c := make([]Particle, len(ps))
	copy(c, ps)
	return c
}
