package formation

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/flocksim/internal/dynamo"
	"github.com/san-kum/flocksim/internal/physics"
)

var box = dynamo.NewBox(10, 10)

func inside(t *testing.T, ps []physics.Particle) {
	t.Helper()
	for i, p := range ps {
		if !box.Contains(p.Pos) {
			t.Fatalf("particle %d at %v is outside the domain", i, p.Pos)
		}
		if p.Vel != dynamo.Unit(p.Theta) {
			t.Fatalf("particle %d velocity does not match heading", i)
		}
	}
}

func TestCount(t *testing.T) {
	if got := Count(1.5, box); got != 150 {
		t.Errorf("expected 150, got %d", got)
	}
}

func TestRandomWall(t *testing.T) {
	ps, err := Random(500, box, 1, dynamo.NewRand(1))
	if err != nil {
		t.Fatal(err)
	}
	inside(t, ps)
	for _, p := range ps {
		if p.Pos.X < 1 || p.Pos.X > 9 || p.Pos.Y < 1 || p.Pos.Y > 9 {
			t.Fatalf("particle at %v closer than 1 to a wall", p.Pos)
		}
	}

	if _, err := Random(5, box, 5, dynamo.NewRand(1)); !errors.Is(err, dynamo.ErrConfig) {
		t.Errorf("expected ErrConfig, got %v", err)
	}
}

func TestPolar(t *testing.T) {
	ps := Polar(50, box, dynamo.NewRand(2))
	inside(t, ps)
	for _, p := range ps {
		if p.Theta != 0 {
			t.Fatalf("expected heading 0, got %v", p.Theta)
		}
	}
}

func TestTriangleLattice(t *testing.T) {
	ps, err := TriangleLattice(60, box, 1, dynamo.NewRand(3))
	if err != nil {
		t.Fatal(err)
	}
	if len(ps) != 60 {
		t.Fatalf("expected 60 particles, got %d", len(ps))
	}
	inside(t, ps)

	for i := range ps {
		for j := i + 1; j < len(ps); j++ {
			if d := box.Distance(ps[i].Pos, ps[j].Pos); d < 1-1e-9 {
				t.Fatalf("particles %d and %d only %v apart", i, j, d)
			}
		}
	}

	if _, err := TriangleLattice(1000, box, 1, dynamo.NewRand(3)); !errors.Is(err, dynamo.ErrConfig) {
		t.Errorf("expected ErrConfig for an overfull lattice, got %v", err)
	}
}

func TestCircle(t *testing.T) {
	ps, err := Circle(200, box, 3, dynamo.NewRand(4))
	if err != nil {
		t.Fatal(err)
	}
	inside(t, ps)
	center := dynamo.Vec2{X: 5, Y: 5}
	for _, p := range ps {
		if d := box.Distance(p.Pos, center); d > 3+1e-12 {
			t.Fatalf("particle %v is %v from the center", p.Pos, d)
		}
	}
}

func TestSingleVortexTangent(t *testing.T) {
	ps := SingleVortex(100, box, dynamo.NewRand(5))
	inside(t, ps)
	center := dynamo.Vec2{X: 5, Y: 5}
	for _, p := range ps {
		radial := p.Pos.Sub(center)
		if math.Abs(radial.Dot(p.Vel)) > 1e-9*radial.Norm() {
			t.Fatalf("heading at %v is not tangent", p.Pos)
		}
		if radial.Cross(p.Vel) <= 0 {
			t.Fatalf("vortex at %v does not turn counterclockwise", p.Pos)
		}
	}
}

func TestFourVortexSenses(t *testing.T) {
	ps := FourVortex(400, box, dynamo.NewRand(6))
	inside(t, ps)
	for _, p := range ps {
		qx, qy := int(p.Pos.X/5), int(p.Pos.Y/5)
		center := dynamo.Vec2{X: float64(qx)*5 + 2.5, Y: float64(qy)*5 + 2.5}
		cross := p.Pos.Sub(center).Cross(p.Vel)
		if (qx+qy)%2 == 0 && cross <= 0 || (qx+qy)%2 == 1 && cross >= 0 {
			t.Fatalf("quadrant (%d,%d) has the wrong sense at %v", qx, qy, p.Pos)
		}
	}
}
