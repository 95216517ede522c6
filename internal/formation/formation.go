// Package formation generates initial particle populations.
package formation

import (
	"fmt"
	"math"

	"github.com/san-kum/flocksim/internal/dynamo"
	"github.com/san-kum/flocksim/internal/physics"
)

// Count returns the particle count for a density on box, rounded.
func Count(density float64, box dynamo.Box) int {
	return int(math.Round(density * box.Area()))
}

// Random places n particles uniformly at least wall away from the domain
// edges, with uniform headings.
func Random(n int, box dynamo.Box, wall float64, rng *dynamo.Rand) ([]physics.Particle, error) {
	if 2*wall >= box.Lx || 2*wall >= box.Ly || wall < 0 {
		return nil, fmt.Errorf("%w: wall distance %g does not fit a %gx%g domain", dynamo.ErrConfig, wall, box.Lx, box.Ly)
	}
	ps := make([]physics.Particle, n)
	for i := range ps {
		pos := dynamo.Vec2{
			X: rng.Uniform(wall, box.Lx-wall),
			Y: rng.Uniform(wall, box.Ly-wall),
		}
		ps[i] = physics.NewParticle(pos, rng.Angle())
	}
	return ps, nil
}

// Polar places n particles uniformly, all heading along +x.
func Polar(n int, box dynamo.Box, rng *dynamo.Rand) []physics.Particle {
	ps := make([]physics.Particle, n)
	for i := range ps {
		ps[i] = physics.NewParticle(rng.Point(box), 0)
	}
	return ps
}

// TriangleLattice fills rows of a triangular lattice with the given
// spacing, starting from the origin, with uniform headings.
func TriangleLattice(n int, box dynamo.Box, spacing float64, rng *dynamo.Rand) ([]physics.Particle, error) {
	if spacing <= 0 {
		return nil, fmt.Errorf("%w: lattice spacing must be positive, got %g", dynamo.ErrConfig, spacing)
	}
	rowHeight := spacing * math.Sqrt(3) / 2
	cols := int(box.Lx / spacing)
	rows := int(box.Ly / rowHeight)
	if cols*rows < n {
		return nil, fmt.Errorf("%w: lattice of spacing %g holds %d particles, need %d",
			dynamo.ErrConfig, spacing, cols*rows, n)
	}

	ps := make([]physics.Particle, 0, n)
	for r := 0; r < rows && len(ps) < n; r++ {
		shift := 0.0
		if r%2 == 1 {
			shift = spacing / 2
		}
		for c := 0; c < cols && len(ps) < n; c++ {
			pos := box.Wrap(dynamo.Vec2{X: float64(c)*spacing + shift, Y: float64(r) * rowHeight})
			ps = append(ps, physics.NewParticle(pos, rng.Angle()))
		}
	}
	return ps, nil
}

// Circle places n particles uniformly in a disk of the given radius at the
// domain center.
func Circle(n int, box dynamo.Box, radius float64, rng *dynamo.Rand) ([]physics.Particle, error) {
	if radius <= 0 || 2*radius > math.Min(box.Lx, box.Ly) {
		return nil, fmt.Errorf("%w: circle radius %g does not fit a %gx%g domain", dynamo.ErrConfig, radius, box.Lx, box.Ly)
	}
	center := dynamo.Vec2{X: box.Lx / 2, Y: box.Ly / 2}
	ps := make([]physics.Particle, n)
	for i := range ps {
		// sqrt keeps the areal density uniform
		r := radius * math.Sqrt(rng.Float64())
		pos := box.Wrap(center.Add(dynamo.Unit(rng.Angle()).Scale(r)))
		ps[i] = physics.NewParticle(pos, rng.Angle())
	}
	return ps, nil
}

// SingleVortex places n particles uniformly, each heading tangent to the
// circle around the domain center (counterclockwise).
func SingleVortex(n int, box dynamo.Box, rng *dynamo.Rand) []physics.Particle {
	center := dynamo.Vec2{X: box.Lx / 2, Y: box.Ly / 2}
	ps := make([]physics.Particle, n)
	for i := range ps {
		pos := rng.Point(box)
		ps[i] = physics.NewParticle(pos, vortexHeading(pos, center, 1))
	}
	return ps
}

// FourVortex splits the domain in quadrants, each holding a vortex of
// alternating sense, so neighboring vortices counter-rotate.
func FourVortex(n int, box dynamo.Box, rng *dynamo.Rand) []physics.Particle {
	hx, hy := box.Lx/2, box.Ly/2
	ps := make([]physics.Particle, n)
	for i := range ps {
		pos := rng.Point(box)
		qx, qy := int(pos.X/hx), int(pos.Y/hy)
		qx, qy = min(qx, 1), min(qy, 1)
		center := dynamo.Vec2{X: (float64(qx) + 0.5) * hx, Y: (float64(qy) + 0.5) * hy}
		sense := 1.0
		if (qx+qy)%2 == 1 {
			sense = -1
		}
		ps[i] = physics.NewParticle(pos, vortexHeading(pos, center, sense))
	}
	return ps
}

func vortexHeading(pos, center dynamo.Vec2, sense float64) float64 {
	d := pos.Sub(center)
	return d.Angle() + sense*math.Pi/2
}
