package dynamo

import (
	"math"
	"math/rand"
)

// Rand is a seeded random source. Two Rands built from the same seed
// produce the same sequence, which is what makes runs reproducible.
type Rand struct {
	r *rand.Rand
}

func NewRand(seed int64) *Rand {
	return &Rand{r: rand.New(rand.NewSource(seed))}
}

// Uniform draws from [lo, hi).
func (g *Rand) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*g.r.Float64()
}

// Angle draws from [-π, π).
func (g *Rand) Angle() float64 {
	return g.Uniform(-math.Pi, math.Pi)
}

// Gaussian draws from N(0, sigma²).
func (g *Rand) Gaussian(sigma float64) float64 {
	return sigma * g.r.NormFloat64()
}

func (g *Rand) Intn(n int) int {
	return g.r.Intn(n)
}

func (g *Rand) Float64() float64 {
	return g.r.Float64()
}

// Point draws a uniform point inside box.
func (g *Rand) Point(box Box) Vec2 {
	return Vec2{X: g.Uniform(0, box.Lx), Y: g.Uniform(0, box.Ly)}
}
