package physics

import (
	"math"

	"github.com/san-kum/flocksim/internal/dynamo"
)

// Yukawa pushes particles apart with a force that diverges at Sigma and
// vanishes at Rc, and aligns them inside Rf.
type Yukawa struct {
	base
	g      float64
	a      float64
	sigma  float64
	rf, rc float64
}

func newYukawa(cfg Config) *Yukawa {
	y := cfg.Yukawa
	return &Yukawa{
		base:  base{kind: cfg.Kind, speed: cfg.Speed, noise: cfg.Noise, radius: math.Max(y.Rf, y.Rc)},
		g:     y.G,
		a:     y.A,
		sigma: y.Sigma,
		rf:    y.Rf,
		rc:    y.Rc,
	}
}

func (m *Yukawa) Init(p *Particle) {
	p.Speed = m.speed
	m.Reset(p)
}

func (m *Yukawa) Reset(p *Particle) {
	p.Acc = Accumulator{Neighbors: 1}
}

func (m *Yukawa) Interact(a, b *Particle, box dynamo.Box) (Delta, Delta, bool) {
	dr := box.Displacement(a.Pos, b.Pos)
	d := dr.Norm()
	if d >= m.radius {
		return Delta{}, Delta{}, false
	}

	var da, db Delta
	if d < m.rc {
		gap := m.rc - d
		core := d - m.sigma
		f := dr.Scale(m.a * gap * gap / (core * core) / d)
		da.Force = f
		db.Force = f.Scale(-1)
	}
	if d < m.rf {
		t := m.g * alignment(a, b) / math.Pi
		da.Torque, db.Torque = t, -t
		da.Neighbors, db.Neighbors = 1, 1
	}
	return da, db, true
}

// ForceAt returns the repulsion magnitude at distance d, zero beyond Rc.
func (m *Yukawa) ForceAt(d float64) float64 {
	if d >= m.rc {
		return 0
	}
	gap, core := m.rc-d, d-m.sigma
	return m.a * gap * gap / (core * core)
}

func (m *Yukawa) Advance(p *Particle, box dynamo.Box, rng *dynamo.Rand, dt float64) {
	torque := p.Acc.Torque + rng.Gaussian(m.noise)
	p.SetHeading(p.Theta + torque*dt)
	move(p, box, p.Vel.Scale(m.speed).Add(p.Acc.Force).Scale(dt))
	m.Reset(p)
}
