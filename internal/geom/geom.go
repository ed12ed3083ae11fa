// Package geom provides the flat-plane helpers shared by the simulation.
package geom

import "math"

// Vec2 is a point or direction on the arena plane.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v+o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }

// Sub returns v-o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }

// Scale returns v*s.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{X: v.X * s, Y: v.Y * s} }

// Dot returns the dot product of v and o.
func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }

// Len returns the euclidean length.
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// Dist is the euclidean distance between two points.
func Dist(a, b Vec2) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// DistSq avoids the square root for threshold comparisons.
func DistSq(a, b Vec2) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}

// Bearing is the angle from a toward b in radians.
func Bearing(from, to Vec2) float64 {
	return math.Atan2(to.Y-from.Y, to.X-from.X)
}

// FromAngle returns the unit vector for angle scaled by length.
func FromAngle(angle, length float64) Vec2 {
	return Vec2{X: math.Cos(angle) * length, Y: math.Sin(angle) * length}
}

// Toward moves from by step along the bearing to target.
func Toward(from, target Vec2, step float64) Vec2 {
	return from.Add(FromAngle(Bearing(from, target), step))
}

// Centroid averages the given points. It returns the zero vector for none.
func Centroid(points []Vec2) Vec2 {
	if len(points) == 0 {
		return Vec2{}
	}
	var sum Vec2
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Scale(1 / float64(len(points)))
}

// Round snaps a position to whole units for the wire.
func Round(v Vec2) Vec2 {
	return Vec2{X: math.Round(v.X), Y: math.Round(v.Y)}
}

// Clamp limits value to [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
