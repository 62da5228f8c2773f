package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Up is the world up axis. The square is laid out on the X/Z plane.
var Up = mgl64.Vec3{0, 1, 0}

func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Finite reports whether f is neither NaN nor infinite.
func Finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// FiniteVec reports whether every component of v is finite.
func FiniteVec(v mgl64.Vec3) bool {
	return Finite(v[0]) && Finite(v[1]) && Finite(v[2])
}

// Flat drops the vertical component of v.
func Flat(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v[0], 0, v[2]}
}

// Direction returns the unit vector from -> to on the ground plane. The zero
// vector is returned when the points coincide, instead of the NaNs that
// mgl64.Vec3.Normalize would produce.
func Direction(from, to mgl64.Vec3) mgl64.Vec3 {
	d := Flat(to.Sub(from))
	l := d.Len()
	if l < 1e-9 || !Finite(l) {
		return mgl64.Vec3{}
	}
	return d.Mul(1 / l)
}

// Distance is the Euclidean distance between a and b.
func Distance(a, b mgl64.Vec3) float64 {
	return a.Sub(b).Len()
}

// FlatDistance is the distance between a and b ignoring height.
func FlatDistance(a, b mgl64.Vec3) float64 {
	return Flat(a.Sub(b)).Len()
}

// Heading returns the yaw angle (radians) of a direction on the ground plane,
// measured from +Z toward +X.
func Heading(dir mgl64.Vec3) float64 {
	return math.Atan2(dir[0], dir[2])
}

// FromHeading is the inverse of Heading.
func FromHeading(yaw float64) mgl64.Vec3 {
	return mgl64.Vec3{math.Sin(yaw), 0, math.Cos(yaw)}
}
