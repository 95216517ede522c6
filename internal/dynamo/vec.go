package dynamo

import "math"

// Vec2 is a plain 2D vector.
type Vec2 struct {
	X, Y float64
}

// Unit returns the unit vector pointing at angle theta.
func Unit(theta float64) Vec2 {
	sin, cos := math.Sincos(theta)
	return Vec2{X: cos, Y: sin}
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

func (v Vec2) Scale(f float64) Vec2 { return Vec2{v.X * f, v.Y * f} }

func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }

// Cross returns the z component of v × o.
func (v Vec2) Cross(o Vec2) float64 { return v.X*o.Y - v.Y*o.X }

// Square returns |v|².
func (v Vec2) Square() float64 { return v.X*v.X + v.Y*v.Y }

func (v Vec2) Norm() float64 { return math.Hypot(v.X, v.Y) }

// Angle returns the direction of v in (-π, π].
func (v Vec2) Angle() float64 { return math.Atan2(v.Y, v.X) }

func (v Vec2) IsValid() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}
