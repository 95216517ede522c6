package physics

import (
	"math"

	"github.com/san-kum/flocksim/internal/dynamo"
)

// Vicsek aligns each particle with the circular mean heading of its
// neighborhood (itself included) and adds uniform angular noise.
type Vicsek struct {
	base
}

func newVicsek(cfg Config) *Vicsek {
	return &Vicsek{base{kind: cfg.Kind, speed: cfg.Speed, noise: cfg.Noise, radius: cfg.Radius}}
}

func (m *Vicsek) Init(p *Particle) {
	p.Speed = m.speed
	m.Reset(p)
}

// Reset leaves no self term; Advance adds the particle's own velocity back.
func (m *Vicsek) Reset(p *Particle) {
	p.Acc = Accumulator{}
}

func (m *Vicsek) Interact(a, b *Particle, box dynamo.Box) (Delta, Delta, bool) {
	dr := box.Displacement(a.Pos, b.Pos)
	if dr.Square() >= m.radius*m.radius {
		return Delta{}, Delta{}, false
	}
	return Delta{Sum: b.Vel, Neighbors: 1}, Delta{Sum: a.Vel, Neighbors: 1}, true
}

func (m *Vicsek) Advance(p *Particle, box dynamo.Box, rng *dynamo.Rand, dt float64) {
	heading := p.Theta
	if p.Acc.Neighbors > 0 {
		heading = p.Acc.Sum.Add(p.Vel).Angle()
	}
	// the draw happens even at zero noise so the stream does not depend on it
	heading += m.noise * rng.Angle()

	p.SetHeading(heading)
	move(p, box, p.Vel.Scale(m.speed*dt))
	m.Reset(p)
}

// VicsekVelocity averages neighbor velocities and adds a short-range Fermi
// repulsion below Rc. Noise is scaled by the neighbor count.
type VicsekVelocity struct {
	base
	beta float64
	rc   float64
}

func newVicsekVelocity(cfg Config) *VicsekVelocity {
	return &VicsekVelocity{
		base: base{kind: cfg.Kind, speed: cfg.Speed, noise: cfg.Noise, radius: cfg.Radius},
		beta: cfg.VicsekVelocity.Beta,
		rc:   cfg.VicsekVelocity.Rc,
	}
}

func (m *VicsekVelocity) Init(p *Particle) {
	p.Speed = m.speed
	m.Reset(p)
}

func (m *VicsekVelocity) Reset(p *Particle) {
	p.Acc = Accumulator{}
}

func (m *VicsekVelocity) Interact(a, b *Particle, box dynamo.Box) (Delta, Delta, bool) {
	dr := box.Displacement(a.Pos, b.Pos)
	d2 := dr.Square()
	if d2 >= m.radius*m.radius {
		return Delta{}, Delta{}, false
	}

	da := Delta{Sum: b.Vel, Neighbors: 1}
	db := Delta{Sum: a.Vel, Neighbors: 1}

	if d := math.Sqrt(d2); d < m.rc {
		f := dr.Scale(m.beta / (1 + math.Exp(d/m.rc-2)) / d)
		da.Force = f
		db.Force = f.Scale(-1)
	}
	return da, db, true
}

func (m *VicsekVelocity) Advance(p *Particle, box dynamo.Box, rng *dynamo.Rand, dt float64) {
	resultant := p.Vel
	if p.Acc.Neighbors > 0 {
		resultant = p.Acc.Sum.Add(p.Acc.Force)
	}
	kick := dynamo.Unit(rng.Angle()).Scale(float64(p.Acc.Neighbors) * m.noise)
	resultant = resultant.Add(kick)

	p.SetHeading(resultant.Angle())
	move(p, box, p.Vel.Scale(m.speed*dt))
	m.Reset(p)
}
