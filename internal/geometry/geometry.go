// Package geometry provides the planar primitives used by pose classification.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a 2D keypoint position. The coordinate space is whatever the
// upstream estimator reports; it only has to be consistent within a frame.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) vec() r2.Vec { return r2.Vec(p) }

// Equal reports whether two points coincide exactly.
func (p Point) Equal(q Point) bool {
	return p.X == q.X && p.Y == q.Y
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return r2.Norm(r2.Sub(b.vec(), a.vec()))
}

// AngleDegrees returns the direction of the segment a->b measured from the
// positive X axis, in degrees within (-180, 180]. It is undefined for a == b;
// callers must not pass coincident points.
func AngleDegrees(a, b Point) float64 {
	d := r2.Sub(b.vec(), a.vec())
	deg := math.Atan2(d.Y, d.X) / math.Pi * 180
	// atan2 yields -180 for (-x, -0); fold it onto the closed end of the range.
	if deg == -180 {
		deg = 180
	}
	return deg
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Point) Point {
	return Point(r2.Scale(0.5, r2.Add(a.vec(), b.vec())))
}
