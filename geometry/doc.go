// Package geometry provides points, distances and axis-aligned bounding boxes
// in 1, 2 or 3 dimensions.
//
// Distances are computed with gonum's floats package, except SquaredL2 which
// sums in coordinate order so that every rank gets bit-identical results for
// the same inputs.
package geometry
