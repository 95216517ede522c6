package metrics

import (
	"math"

	"github.com/san-kum/flocksim/internal/dynamo"
	"github.com/san-kum/flocksim/internal/physics"
)

// OrderParameter returns |Σ v| / N, 1 for a perfectly aligned flock and
// about 1/sqrt(N) for random headings.
func OrderParameter(ps []physics.Particle) float64 {
	if len(ps) == 0 {
		return 0
	}
	var sum dynamo.Vec2
	for i := range ps {
		sum = sum.Add(ps[i].Vel)
	}
	return sum.Norm() / float64(len(ps))
}

// MeanHeading is the circular mean of the headings.
func MeanHeading(ps []physics.Particle) float64 {
	var sum dynamo.Vec2
	for i := range ps {
		sum = sum.Add(ps[i].Vel)
	}
	return sum.Angle()
}

// Polarization averages the order parameter over observed steps.
type Polarization struct {
	name    string
	total   float64
	last    float64
	samples int
}

func NewPolarization() *Polarization {
	return &Polarization{name: "polarization"}
}

func (p *Polarization) Name() string { return p.name }

func (p *Polarization) Observe(ps []physics.Particle, t float64) {
	p.last = OrderParameter(ps)
	p.total += p.last
	p.samples++
}

func (p *Polarization) Value() float64 {
	if p.samples == 0 {
		return 0
	}
	return p.total / float64(p.samples)
}

// Last is the order parameter of the most recent step.
func (p *Polarization) Last() float64 { return p.last }

func (p *Polarization) Reset() {
	p.total = 0
	p.last = 0
	p.samples = 0
}

// PolarizationSpread tracks the largest swing of the order parameter
// relative to its first sample.
type PolarizationSpread struct {
	name    string
	initial float64
	maxDev  float64
	samples int
}

func NewPolarizationSpread() *PolarizationSpread {
	return &PolarizationSpread{name: "polarization_spread"}
}

func (s *PolarizationSpread) Name() string { return s.name }

func (s *PolarizationSpread) Observe(ps []physics.Particle, t float64) {
	phi := OrderParameter(ps)
	if s.samples == 0 {
		s.initial = phi
	}
	s.samples++
	s.maxDev = math.Max(s.maxDev, math.Abs(phi-s.initial))
}

func (s *PolarizationSpread) Value() float64 { return s.maxDev }

func (s *PolarizationSpread) Reset() {
	s.initial = 0
	s.maxDev = 0
	s.samples = 0
}
