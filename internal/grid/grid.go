// Package grid implements a cell list over the periodic domain.
//
// The domain is cut into nx×ny equal cells at least one cutoff wide, so any
// pair closer than the cutoff sits in the same cell or in one of the eight
// cells around it. Pairs are enumerated over a half shell (the cell itself
// plus four of its neighbors) so each unordered pair is visited once.
//
// A Grid is valid only right after Rebuild. Callers may let it go stale
// for a few steps as long as no particle crosses more than one cell.
package grid

import (
	"fmt"
	"math"

	"github.com/san-kum/flocksim/internal/dynamo"
	"github.com/san-kum/flocksim/internal/physics"
)

// widthTolerance absorbs rounding when checking that a width divides L.
const widthTolerance = 1e-9

// half-shell offsets; together with the cell itself they cover every
// neighbor pair exactly once
var forward = [4][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}}

type Grid struct {
	box    dynamo.Box
	nx, ny int
	wx, wy float64
	cells  [][]int
	member []int // cell index per particle
}

// New builds an empty grid. A zero width picks the smallest cells that are
// at least cutoff wide and divide the domain exactly.
func New(box dynamo.Box, cutoff, width float64) (*Grid, error) {
	if err := box.Validate(); err != nil {
		return nil, err
	}
	if cutoff <= 0 {
		return nil, fmt.Errorf("%w: cutoff must be positive, got %g", dynamo.ErrConfig, cutoff)
	}

	var nx, ny int
	if width == 0 {
		nx = int(math.Floor(box.Lx / cutoff))
		ny = int(math.Floor(box.Ly / cutoff))
	} else {
		if width < cutoff {
			return nil, fmt.Errorf("%w: cell width %g is below the cutoff %g", dynamo.ErrConfig, width, cutoff)
		}
		var err error
		if nx, err = divisions(box.Lx, width); err != nil {
			return nil, err
		}
		if ny, err = divisions(box.Ly, width); err != nil {
			return nil, err
		}
	}
	if nx < 3 || ny < 3 {
		return nil, fmt.Errorf("%w: %gx%g domain holds %dx%d cells, need at least 3 per axis",
			dynamo.ErrConfig, box.Lx, box.Ly, nx, ny)
	}

	g := &Grid{
		box:   box,
		nx:    nx,
		ny:    ny,
		wx:    box.Lx / float64(nx),
		wy:    box.Ly / float64(ny),
		cells: make([][]int, nx*ny),
	}
	return g, nil
}

func divisions(l, width float64) (int, error) {
	n := math.Round(l / width)
	if n < 1 || math.Abs(n*width-l) > widthTolerance*l {
		return 0, fmt.Errorf("%w: domain length %g is not a multiple of cell width %g", dynamo.ErrConfig, l, width)
	}
	return int(n), nil
}

// Dims returns the number of cells along each axis.
func (g *Grid) Dims() (int, int) { return g.nx, g.ny }

// Width returns the cell edge lengths.
func (g *Grid) Width() (float64, float64) { return g.wx, g.wy }

// CellOf returns the row-major index of the cell containing p.
// p must already be wrapped into the domain.
func (g *Grid) CellOf(p dynamo.Vec2) int {
	cx := min(int(p.X/g.wx), g.nx-1)
	cy := min(int(p.Y/g.wy), g.ny-1)
	return cy*g.nx + cx
}

// Rebuild clears every cell and bins the particles by position.
func (g *Grid) Rebuild(ps []physics.Particle) {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	if cap(g.member) < len(ps) {
		g.member = make([]int, len(ps))
	}
	g.member = g.member[:len(ps)]

	for i := range ps {
		c := g.CellOf(ps[i].Pos)
		g.cells[c] = append(g.cells[c], i)
		g.member[i] = c
	}
}

// Len returns the number of binned particles.
func (g *Grid) Len() int { return len(g.member) }

// Membership returns a copy of the cell index of every particle.
func (g *Grid) Membership() []int {
	m := make([]int, len(g.member))
	copy(m, g.member)
	return m
}

// Adopt copies the cell assignment of other, so a perturbed population is
// paired exactly like the reference one.
func (g *Grid) Adopt(other *Grid) error {
	if g.nx != other.nx || g.ny != other.ny {
		return fmt.Errorf("%w: grid %dx%d cannot adopt %dx%d",
			dynamo.ErrDimensionMismatch, g.nx, g.ny, other.nx, other.ny)
	}
	for i := range g.cells {
		g.cells[i] = append(g.cells[i][:0], other.cells[i]...)
	}
	g.member = append(g.member[:0], other.member...)
	return nil
}

// ForEachCandidatePair calls fn once for every unordered pair of particles
// in the same or adjacent cells.
func (g *Grid) ForEachCandidatePair(fn func(i, j int)) {
	for cy := 0; cy < g.ny; cy++ {
		for cx := 0; cx < g.nx; cx++ {
			here := g.cells[cy*g.nx+cx]

			for a := 0; a < len(here); a++ {
				for b := a + 1; b < len(here); b++ {
					fn(here[a], here[b])
				}
			}

			for _, off := range forward {
				nx := (cx + off[0] + g.nx) % g.nx
				ny := (cy + off[1]) % g.ny
				there := g.cells[ny*g.nx+nx]
				for _, i := range here {
					for _, j := range there {
						fn(i, j)
					}
				}
			}
		}
	}
}
