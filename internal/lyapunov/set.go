package lyapunov

import (
	"fmt"

	"github.com/san-kum/flocksim/internal/dynamo"
	"github.com/san-kum/flocksim/internal/physics"
)

type Options struct {
	// Amplitude bounds each displacement component, drawn from U(-A, A).
	Amplitude float64 `yaml:"amplitude" toml:"amplitude" json:"amplitude"`

	// PerturbedParticles is how many particles are drawn per direction.
	// Draws may repeat, in which case the later draw wins.
	PerturbedParticles int `yaml:"perturbed_particles" toml:"perturbed_particles" json:"perturbed_particles"`
}

func DefaultOptions() Options {
	return Options{Amplitude: 1e-2, PerturbedParticles: 20}
}

func (o Options) Validate() error {
	if o.Amplitude <= 0 {
		return fmt.Errorf("%w: perturbation amplitude must be positive, got %g", dynamo.ErrConfig, o.Amplitude)
	}
	if o.PerturbedParticles <= 0 {
		return fmt.Errorf("%w: perturbed particle count must be positive, got %d", dynamo.ErrConfig, o.PerturbedParticles)
	}
	return nil
}

// Set is the ordered collection of direction displacements.
type Set struct {
	Directions []Vector
}

// Initialize draws count directions for a population of n particles.
func Initialize(count, n int, opts Options, rng *dynamo.Rand) (*Set, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if count <= 0 || n <= 0 {
		return nil, fmt.Errorf("%w: need directions and particles, got %d and %d", dynamo.ErrConfig, count, n)
	}

	s := &Set{Directions: make([]Vector, count)}
	for d := range s.Directions {
		v := make(Vector, 3*n)
		for k := 0; k < opts.PerturbedParticles; k++ {
			i := rng.Intn(n)
			v[3*i] = rng.Uniform(-opts.Amplitude, opts.Amplitude)
			v[3*i+1] = rng.Uniform(-opts.Amplitude, opts.Amplitude)
		}
		s.Directions[d] = v
	}
	return s, nil
}

func (s *Set) Len() int { return len(s.Directions) }

// State returns the perturbed population of direction i.
func (s *Set) State(i int, ref []physics.Particle, box dynamo.Box) ([]physics.Particle, error) {
	if i < 0 || i >= len(s.Directions) {
		return nil, fmt.Errorf("%w: direction %d not in [0,%d)", dynamo.ErrConfig, i, len(s.Directions))
	}
	return Apply(ref, s.Directions[i], box)
}

// Norms returns the norm of every direction.
func (s *Set) Norms() []float64 {
	out := make([]float64, len(s.Directions))
	for i, v := range s.Directions {
		out[i] = v.Norm()
	}
	return out
}

// AssignDirections returns the directions node evolves out of count.
func AssignDirections(node, nodes, count int) []int {
	var out []int
	for i := 0; i < count; i++ {
		if i%nodes == node {
			out = append(out, i)
		}
	}
	return out
}

// Owner is the node that evolves direction i.
func Owner(i, nodes int) int { return i % nodes }

// Pack flattens the set as [count, length, data...] for transfer.
func (s *Set) Pack() []float64 {
	if len(s.Directions) == 0 {
		return []float64{0, 0}
	}
	l := len(s.Directions[0])
	buf := make([]float64, 0, 2+len(s.Directions)*l)
	buf = append(buf, float64(len(s.Directions)), float64(l))
	for _, v := range s.Directions {
		buf = append(buf, v...)
	}
	return buf
}

func UnpackSet(buf []float64) (*Set, error) {
	if len(buf) < 2 {
		return nil, fmt.Errorf("%w: set buffer of length %d", dynamo.ErrDimensionMismatch, len(buf))
	}
	count, l := int(buf[0]), int(buf[1])
	if count < 0 || l < 0 || len(buf) != 2+count*l {
		return nil, fmt.Errorf("%w: set header %dx%d for buffer of length %d",
			dynamo.ErrDimensionMismatch, count, l, len(buf))
	}
	s := &Set{Directions: make([]Vector, count)}
	for i := range s.Directions {
		s.Directions[i] = Vector(buf[2+i*l : 2+(i+1)*l]).Clone()
	}
	return s, nil
}

// stateWidth is the number of values per packed particle: x, y, θ, φ.
const stateWidth = 4

// PackState flattens a population for transfer.
func PackState(ps []physics.Particle) []float64 {
	buf := make([]float64, 0, stateWidth*len(ps))
	for _, p := range ps {
		buf = append(buf, p.Pos.X, p.Pos.Y, p.Theta, p.Phi)
	}
	return buf
}

func UnpackState(buf []float64) ([]physics.Particle, error) {
	if len(buf)%stateWidth != 0 {
		return nil, fmt.Errorf("%w: state buffer of length %d", dynamo.ErrDimensionMismatch, len(buf))
	}
	ps := make([]physics.Particle, len(buf)/stateWidth)
	for i := range ps {
		b := buf[stateWidth*i:]
		ps[i] = physics.NewParticle(dynamo.Vec2{X: b[0], Y: b[1]}, b[2])
		ps[i].Phi = b[3]
	}
	return ps, nil
}
