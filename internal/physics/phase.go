package physics

import (
	"math"

	"github.com/san-kum/flocksim/internal/dynamo"
)

// Phase extends Continuous with a second angle Phi. Phi has its own
// coupling radius and noise, and sets the speed as vmid + vamp·cos(Phi).
type Phase struct {
	base
	g, gPhi    float64
	alpha      float64
	rPhi       float64
	omega      float64
	noisePhi   float64
	kamp       float64
	vmid, vamp float64
}

func newPhase(cfg Config, dt float64) *Phase {
	p := cfg.Phase
	return &Phase{
		base:     base{kind: cfg.Kind, speed: cfg.Speed, noise: diffusionAmplitude(p.Dr, dt), radius: cfg.Radius},
		g:        p.G,
		gPhi:     p.GPhi,
		alpha:    p.Alpha,
		rPhi:     p.RPhi,
		omega:    p.Omega,
		noisePhi: diffusionAmplitude(p.DPhi, dt),
		kamp:     math.Sqrt(2 * p.K * dt),
		vmid:     (p.VMax + p.VMin) / 2,
		vamp:     (p.VMax - p.VMin) / 2,
	}
}

func (m *Phase) Cutoff() float64 {
	return math.Max(m.radius, m.rPhi)
}

func (m *Phase) Init(p *Particle) {
	p.Speed = m.vmid + m.vamp*math.Cos(p.Phi)
	m.Reset(p)
}

func (m *Phase) Reset(p *Particle) {
	p.Acc = Accumulator{Neighbors: 1, PhaseTorque: m.omega}
}

func (m *Phase) Interact(a, b *Particle, box dynamo.Box) (Delta, Delta, bool) {
	dr := box.Displacement(a.Pos, b.Pos)
	d := dr.Norm()

	var da, db Delta
	ok := false
	if d < m.radius {
		da.Torque, db.Torque = chiralTorques(a, b, dr, d, m.alpha)
		da.Neighbors, db.Neighbors = 1, 1
		ok = true
	}
	if d < m.rPhi {
		t := m.gPhi * math.Sin(b.Phi-a.Phi) / math.Pi
		da.PhaseTorque, db.PhaseTorque = t, -t
		ok = true
	}
	return da, db, ok
}

func (m *Phase) Advance(p *Particle, box dynamo.Box, rng *dynamo.Rand, dt float64) {
	torque := m.g*p.Acc.Torque + rng.Gaussian(m.noise)
	phaseTorque := p.Acc.PhaseTorque + rng.Gaussian(m.noisePhi)
	p.SetHeading(p.Theta + torque*dt)
	p.Phi += phaseTorque * dt
	p.Speed = m.vmid + m.vamp*math.Cos(p.Phi)

	disp := p.Vel.Scale(p.Speed * dt)
	disp.X += rng.Gaussian(m.kamp)
	disp.Y += rng.Gaussian(m.kamp)
	move(p, box, disp)
	m.Reset(p)
}
