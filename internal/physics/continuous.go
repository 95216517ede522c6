package physics

import (
	"math"

	"github.com/san-kum/flocksim/internal/dynamo"
)

// Continuous couples headings through a sine alignment torque and a
// chirality term built from the cross product of separation and heading.
// G damps the accumulated torque before the Gaussian noise is added.
type Continuous struct {
	base
	g     float64
	alpha float64
	kamp  float64
}

func newContinuous(cfg Config, dt float64) *Continuous {
	c := cfg.Continuous
	return &Continuous{
		base:  base{kind: cfg.Kind, speed: cfg.Speed, noise: cfg.Noise, radius: cfg.Radius},
		g:     c.G,
		alpha: c.Alpha,
		kamp:  math.Sqrt(2 * c.K * dt),
	}
}

func (m *Continuous) Init(p *Particle) {
	p.Speed = m.speed
	m.Reset(p)
}

func (m *Continuous) Reset(p *Particle) {
	p.Acc = Accumulator{Neighbors: 1}
}

func (m *Continuous) Interact(a, b *Particle, box dynamo.Box) (Delta, Delta, bool) {
	dr := box.Displacement(a.Pos, b.Pos)
	d2 := dr.Square()
	if d2 >= m.radius*m.radius {
		return Delta{}, Delta{}, false
	}
	ta, tb := chiralTorques(a, b, dr, math.Sqrt(d2), m.alpha)
	return Delta{Torque: ta, Neighbors: 1}, Delta{Torque: tb, Neighbors: 1}, true
}

// chiralTorques is shared with the Phase model.
func chiralTorques(a, b *Particle, dr dynamo.Vec2, d, alpha float64) (float64, float64) {
	t := (1 - alpha) * alignment(a, b) / math.Pi
	ta := t - alpha*dr.Cross(a.Vel)/(math.Pi*d)
	tb := -t + alpha*dr.Cross(b.Vel)/(math.Pi*d)
	return ta, tb
}

func (m *Continuous) Advance(p *Particle, box dynamo.Box, rng *dynamo.Rand, dt float64) {
	torque := m.g*p.Acc.Torque + rng.Gaussian(m.noise)
	p.SetHeading(p.Theta + torque*dt)

	disp := p.Vel.Scale(m.speed * dt)
	disp.X += rng.Gaussian(m.kamp)
	disp.Y += rng.Gaussian(m.kamp)
	move(p, box, disp)
	m.Reset(p)
}
