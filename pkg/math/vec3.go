// Package math provides the vector type used by the mesh repair code.
package math

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vec3 is a 3D vector backed by gonum's r3.Vec.
type Vec3 r3.Vec

// Up is the fallback normal used when no geometry is available.
var Up = Vec3{X: 0, Y: 1, Z: 0}

// FromArray32 converts a float32 triple as stored in model files.
func FromArray32(a [3]float32) Vec3 {
	return Vec3{X: float64(a[0]), Y: float64(a[1]), Z: float64(a[2])}
}

// Array32 converts v back to a float32 triple.
func (v Vec3) Array32() [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3(r3.Add(r3.Vec(v), r3.Vec(other)))
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3(r3.Sub(r3.Vec(v), r3.Vec(other)))
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3(r3.Scale(s, r3.Vec(v)))
}

// Dot returns the dot product.
func (v Vec3) Dot(other Vec3) float64 {
	return r3.Dot(r3.Vec(v), r3.Vec(other))
}

// Cross returns the cross product.
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3(r3.Cross(r3.Vec(v), r3.Vec(other)))
}

// Length returns the magnitude.
func (v Vec3) Length() float64 {
	return r3.Norm(r3.Vec(v))
}

// IsZero reports whether every component is exactly zero.
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// Normalize returns a unit vector, or the zero vector when v has no length.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return Vec3{X: v.X / l, Y: v.Y / l, Z: v.Z / l}
}

// IsUnit reports whether the length of v is within tol of 1.
func (v Vec3) IsUnit(tol float64) bool {
	return math.Abs(v.Length()-1) <= tol
}

// NearEquals reports whether every component differs by at most tol.
func (v Vec3) NearEquals(other Vec3, tol float64) bool {
	return math.Abs(v.X-other.X) <= tol &&
		math.Abs(v.Y-other.Y) <= tol &&
		math.Abs(v.Z-other.Z) <= tol
}
