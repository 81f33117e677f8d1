package geometry

import (
	"gonum.org/v1/gonum/floats"
)

// SquaredL2 calculates the squared Euclidean distance between two points.
// Assumes points have the same dimension (caller's responsibility).
func SquaredL2(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// L2 calculates the Euclidean distance between two points.
func L2(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// Centroid returns the arithmetic mean of points, or nil if there are none.
func Centroid(points [][]float64) []float64 {
	if len(points) == 0 {
		return nil
	}
	out := make([]float64, len(points[0]))
	for _, p := range points {
		floats.Add(out, p)
	}
	floats.Scale(1/float64(len(points)), out)
	return out
}
