package physics

import (
	"math"

	"github.com/san-kum/flocksim/internal/dynamo"
)

// Zoned applies piecewise torques over concentric zones: alignment inside
// XiA, anti-alignment between XiA and Xi, and a radial torque that turns
// particles away from each other inside XiR.
type Zoned struct {
	base
	muPlus, muMinus float64
	kappa           float64
	xiR, xiA        float64
}

func newZoned(cfg Config, dt float64) *Zoned {
	z := cfg.Zoned
	// rotational noise comes only from DPhi; Noise is ignored
	noise := diffusionAmplitude(z.DPhi, dt)
	return &Zoned{
		base:    base{kind: cfg.Kind, speed: cfg.Speed, noise: noise, radius: z.Xi},
		muPlus:  z.MuPlus,
		muMinus: z.MuMinus,
		kappa:   z.Kappa,
		xiR:     z.XiR,
		xiA:     z.XiA,
	}
}

func (m *Zoned) Init(p *Particle) {
	p.Speed = m.speed
	m.Reset(p)
}

func (m *Zoned) Reset(p *Particle) {
	p.Acc = Accumulator{Neighbors: 1}
}

func (m *Zoned) Interact(a, b *Particle, box dynamo.Box) (Delta, Delta, bool) {
	dr := box.Displacement(a.Pos, b.Pos)
	d := dr.Norm()
	xi := m.radius
	if d >= xi {
		return Delta{}, Delta{}, false
	}

	var t float64
	if d < m.xiA {
		t = m.muPlus * (1 - d*d/(m.xiA*m.xiA)) * alignment(a, b)
	} else {
		w := xi - m.xiA
		t = m.muMinus * 4 * (d - m.xiA) * (xi - d) * math.Sin(a.Theta-b.Theta) / (w * w)
	}
	da := Delta{Torque: t, Neighbors: 1}
	db := Delta{Torque: -t, Neighbors: 1}

	if d < m.xiR {
		bearing := math.Atan2(-dr.Y, -dr.X)
		k := m.kappa * (1 - d/m.xiR)
		da.Torque += k * math.Sin(a.Theta-bearing)
		db.Torque -= k * math.Sin(b.Theta-bearing)
	}
	return da, db, true
}

func (m *Zoned) Advance(p *Particle, box dynamo.Box, rng *dynamo.Rand, dt float64) {
	torque := p.Acc.Torque + rng.Gaussian(m.noise)
	p.SetHeading(p.Theta + torque*dt)
	move(p, box, p.Vel.Scale(m.speed*dt))
	m.Reset(p)
}
