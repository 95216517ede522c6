package lyapunov

import (
	"fmt"
	"math"

	"github.com/san-kum/flocksim/internal/dynamo"
	"github.com/san-kum/flocksim/internal/physics"
)

// Vector is a flat deviation with three entries per particle: dx, dy, dθ.
type Vector []float64

func (v Vector) Dot(o Vector) float64 {
	var s float64
	for i := range v {
		s += v[i] * o[i]
	}
	return s
}

func (v Vector) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Scale multiplies v in place.
func (v Vector) Scale(f float64) {
	for i := range v {
		v[i] *= f
	}
}

// AddScaled adds f·o to v in place.
func (v Vector) AddScaled(o Vector, f float64) {
	for i := range v {
		v[i] += f * o[i]
	}
}

func (v Vector) Clone() Vector {
	c := make(Vector, len(v))
	copy(c, v)
	return c
}

// Deviation measures pert against ref. Positions use the minimum image and
// heading differences are reduced to [-π, π].
func Deviation(ref, pert []physics.Particle, box dynamo.Box) (Vector, error) {
	if len(ref) != len(pert) {
		return nil, fmt.Errorf("%w: reference has %d particles, perturbed copy %d",
			dynamo.ErrDimensionMismatch, len(ref), len(pert))
	}
	v := make(Vector, 3*len(ref))
	for i := range ref {
		d := box.Displacement(pert[i].Pos, ref[i].Pos)
		v[3*i] = d.X
		v[3*i+1] = d.Y
		v[3*i+2] = math.Remainder(pert[i].Theta-ref[i].Theta, 2*math.Pi)
	}
	return v, nil
}

// Apply returns ref displaced by v, positions wrapped into box.
func Apply(ref []physics.Particle, v Vector, box dynamo.Box) ([]physics.Particle, error) {
	if len(v) != 3*len(ref) {
		return nil, fmt.Errorf("%w: deviation of length %d for %d particles",
			dynamo.ErrDimensionMismatch, len(v), len(ref))
	}
	ps := physics.Clone(ref)
	for i := range ps {
		ps[i].Pos = box.Wrap(ps[i].Pos.Add(dynamo.Vec2{X: v[3*i], Y: v[3*i+1]}))
		ps[i].SetHeading(ps[i].Theta + v[3*i+2])
	}
	return ps, nil
}
