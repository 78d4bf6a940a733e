package core

import "math"

// Vec2 is a 2D vector value type used for particle positions and velocities.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{v.X + o.X, v.Y + o.Y}
}

func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{v.X - o.X, v.Y - o.Y}
}

func (v Vec2) Scale(f float64) Vec2 {
	return Vec2{v.X * f, v.Y * f}
}

func (v Vec2) Dot(o Vec2) float64 {
	return v.X*o.X + v.Y*o.Y
}

func (v Vec2) Len() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// LenSq avoids the square root for proximity comparisons.
func (v Vec2) LenSq() float64 {
	return v.X*v.X + v.Y*v.Y
}

// Norm returns the unit vector, or the zero vector for zero input.
func (v Vec2) Norm() Vec2 {
	l := v.Len()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}

// Rotate rotates the vector by theta radians counterclockwise.
func (v Vec2) Rotate(theta float64) Vec2 {
	c, s := math.Cos(theta), math.Sin(theta)
	return Vec2{v.X*c - v.Y*s, v.X*s + v.Y*c}
}

// ClampLen caps the vector length at max, preserving direction.
func (v Vec2) ClampLen(max float64) Vec2 {
	if max <= 0 {
		return Vec2{}
	}
	if l := v.Len(); l > max {
		return v.Scale(max / l)
	}
	return v
}

// Mid returns the midpoint between v and o.
func (v Vec2) Mid(o Vec2) Vec2 {
	return Vec2{(v.X + o.X) / 2, (v.Y + o.Y) / 2}
}

// Rect is an axis-aligned bounding rectangle for the simulation area.
type Rect struct {
	Min Vec2 `json:"min"`
	Max Vec2 `json:"max"`
}

func (r Rect) Width() float64  { return r.Max.X - r.Min.X }
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

func (r Rect) Center() Vec2 {
	return Vec2{(r.Min.X + r.Max.X) / 2, (r.Min.Y + r.Max.Y) / 2}
}

func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}
