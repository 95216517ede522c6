package dynamo

import (
	"fmt"
	"math"
)

// Box is the periodic domain [0,Lx)×[0,Ly).
type Box struct {
	Lx, Ly float64
}

func NewBox(lx, ly float64) Box {
	return Box{Lx: lx, Ly: ly}
}

func (b Box) Validate() error {
	if b.Lx <= 0 || b.Ly <= 0 {
		return fmt.Errorf("%w: domain size must be positive, got %gx%g", ErrConfig, b.Lx, b.Ly)
	}
	return nil
}

func (b Box) Area() float64 { return b.Lx * b.Ly }

// MinImage returns the shortest representative of displacement d on the torus.
func (b Box) MinImage(d Vec2) Vec2 {
	return Vec2{
		X: d.X - b.Lx*math.Floor(d.X/b.Lx+0.5),
		Y: d.Y - b.Ly*math.Floor(d.Y/b.Ly+0.5),
	}
}

// Displacement returns a-b under the minimum-image convention.
func (b Box) Displacement(a, c Vec2) Vec2 {
	return b.MinImage(a.Sub(c))
}

func (b Box) Distance(a, c Vec2) float64 {
	return b.Displacement(a, c).Norm()
}

// Wrap maps p into [0,Lx)×[0,Ly).
func (b Box) Wrap(p Vec2) Vec2 {
	return Vec2{X: wrap(p.X, b.Lx), Y: wrap(p.Y, b.Ly)}
}

func (b Box) Contains(p Vec2) bool {
	return p.X >= 0 && p.X < b.Lx && p.Y >= 0 && p.Y < b.Ly
}

func wrap(x, l float64) float64 {
	x = math.Mod(x, l)
	if x < 0 {
		x += l
	}
	// a tiny negative x rounds up to l after the shift
	if x >= l {
		x = 0
	}
	return x
}
