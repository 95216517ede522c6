package metrics

import "github.com/san-kum/flocksim/internal/physics"

// MeanSpeed is the time average of the population mean speed.
type MeanSpeed struct {
	name    string
	sum     float64
	samples int
}

func NewMeanSpeed() *MeanSpeed {
	return &MeanSpeed{name: "mean_speed"}
}

func (m *MeanSpeed) Name() string { return m.name }

func (m *MeanSpeed) Observe(ps []physics.Particle, t float64) {
	if len(ps) == 0 {
		return
	}
	var s float64
	for i := range ps {
		s += ps[i].Speed
	}
	m.sum += s / float64(len(ps))
	m.samples++
}

func (m *MeanSpeed) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanSpeed) Reset() {
	m.sum = 0
	m.samples = 0
}
