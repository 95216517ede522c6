package metrics

import (
	"github.com/san-kum/flocksim/internal/physics"
	"github.com/san-kum/flocksim/internal/sim"
)

// Stability is the fraction of observed steps in which every particle had
// finite state.
type Stability struct {
	name       string
	violations int
	samples    int
}

func NewStability() *Stability {
	return &Stability{name: "stability"}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(ps []physics.Particle, t float64) {
	s.samples++
	for i := range ps {
		if !ps[i].IsValid() {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// Standard returns the metrics recorded for every run.
func Standard() []sim.Metric {
	return []sim.Metric{NewPolarization(), NewMeanSpeed(), NewStability()}
}
