package grid

import (
	"errors"
	"testing"

	"github.com/san-kum/flocksim/internal/dynamo"
	"github.com/san-kum/flocksim/internal/physics"
)

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name    string
		box     dynamo.Box
		cutoff  float64
		width   float64
		wantErr bool
		wantNx  int
	}{
		{"derived width", dynamo.NewBox(10, 10), 1, 0, false, 10},
		{"derived non-integer", dynamo.NewBox(10.5, 10.5), 1, 0, false, 10},
		{"explicit divisor", dynamo.NewBox(12, 12), 1, 2, false, 6},
		{"width below cutoff", dynamo.NewBox(10, 10), 1, 0.5, true, 0},
		{"width not a divisor", dynamo.NewBox(10, 10), 1, 3, true, 0},
		{"too few cells", dynamo.NewBox(2, 2), 1, 0, true, 0},
		{"bad box", dynamo.NewBox(0, 10), 1, 0, true, 0},
		{"bad cutoff", dynamo.NewBox(10, 10), 0, 0, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(tt.box, tt.cutoff, tt.width)
			if tt.wantErr {
				if !errors.Is(err, dynamo.ErrConfig) {
					t.Errorf("expected ErrConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			nx, _ := g.Dims()
			if nx != tt.wantNx {
				t.Errorf("expected %d cells, got %d", tt.wantNx, nx)
			}
			wx, _ := g.Width()
			if wx < tt.cutoff {
				t.Errorf("cell width %g below cutoff %g", wx, tt.cutoff)
			}
		})
	}
}

func population(n int, box dynamo.Box, seed int64) []physics.Particle {
	rng := dynamo.NewRand(seed)
	ps := make([]physics.Particle, n)
	for i := range ps {
		ps[i] = physics.NewParticle(rng.Point(box), rng.Angle())
	}
	return ps
}

type pairKey struct{ i, j int }

func key(i, j int) pairKey {
	if i > j {
		i, j = j, i
	}
	return pairKey{i, j}
}

func TestCandidatePairsComplete(t *testing.T) {
	box := dynamo.NewBox(10, 8)
	ps := population(400, box, 42)

	// particles on the edges exercise the wrap-around adjacency
	ps = append(ps,
		physics.NewParticle(dynamo.Vec2{X: 0.05, Y: 0.05}, 0),
		physics.NewParticle(dynamo.Vec2{X: 9.95, Y: 7.95}, 0),
		physics.NewParticle(dynamo.Vec2{X: 9.99, Y: 4}, 0),
	)

	g, err := New(box, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	g.Rebuild(ps)

	seen := make(map[pairKey]int)
	g.ForEachCandidatePair(func(i, j int) {
		if i == j {
			t.Fatalf("self pair %d", i)
		}
		seen[key(i, j)]++
	})

	for k, n := range seen {
		if n != 1 {
			t.Errorf("pair %v visited %d times", k, n)
		}
	}

	for i := range ps {
		for j := i + 1; j < len(ps); j++ {
			if box.Distance(ps[i].Pos, ps[j].Pos) < 1 {
				if seen[key(i, j)] != 1 {
					t.Errorf("close pair (%d,%d) not visited", i, j)
				}
			}
		}
	}
}

func TestCandidatePairsKnownLayout(t *testing.T) {
	box := dynamo.NewBox(5, 5)
	pos := []dynamo.Vec2{
		{X: 0.2, Y: 0.2},
		{X: 4.9, Y: 0.3},
		{X: 0.3, Y: 4.8},
		{X: 2.5, Y: 2.5},
		{X: 2.9, Y: 2.4},
	}
	ps := make([]physics.Particle, len(pos))
	for i, p := range pos {
		ps[i] = physics.NewParticle(p, 0)
	}

	g, err := New(box, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	g.Rebuild(ps)

	within := make(map[pairKey]bool)
	g.ForEachCandidatePair(func(i, j int) {
		if box.Distance(ps[i].Pos, ps[j].Pos) < 1 {
			within[key(i, j)] = true
		}
	})

	want := map[pairKey]bool{{0, 1}: true, {0, 2}: true, {1, 2}: true, {3, 4}: true}
	if len(within) != len(want) {
		t.Fatalf("expected %d close pairs, got %v", len(want), within)
	}
	for k := range want {
		if !within[k] {
			t.Errorf("missing pair %v", k)
		}
	}
}

func TestAdopt(t *testing.T) {
	box := dynamo.NewBox(10, 10)
	ref := population(50, box, 1)
	pert := physics.Clone(ref)
	pert[0].Pos = box.Wrap(pert[0].Pos.Add(dynamo.Vec2{X: 3}))

	a, _ := New(box, 1, 0)
	b, _ := New(box, 1, 0)
	a.Rebuild(ref)
	b.Rebuild(pert)

	if err := b.Adopt(a); err != nil {
		t.Fatal(err)
	}
	ma, mb := a.Membership(), b.Membership()
	for i := range ma {
		if ma[i] != mb[i] {
			t.Fatalf("membership differs at %d: %d vs %d", i, ma[i], mb[i])
		}
	}

	c, _ := New(box, 2, 0)
	if err := c.Adopt(a); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestCellOfEdge(t *testing.T) {
	g, _ := New(dynamo.NewBox(10, 10), 1, 0)
	if c := g.CellOf(dynamo.Vec2{X: 9.999999999999998, Y: 0}); c != 9 {
		t.Errorf("expected last column, got %d", c)
	}
}

var sink int

func BenchmarkCandidatePairs(b *testing.B) {
	box := dynamo.NewBox(32, 32)
	ps := population(4096, box, 9)
	g, _ := New(box, 1, 0)
	g.Rebuild(ps)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		n := 0
		g.ForEachCandidatePair(func(i, j int) { n++ })
		sink = n
	}
}
