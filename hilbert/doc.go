// Package hilbert implements a deterministic spatial hash: points inside a
// bounding box map to their position along a Hilbert space-filling curve,
// recursively subdivided to a fixed depth.
//
// Two points share a key iff they fall in the same leaf cell, so the key is a
// lossy identity proxy that does not depend on partitioning or arrival order.
// Callers compare RelativeTolerance against the smallest feature they must
// distinguish, and may assert CheckResolution on the points they hash.
//
//	h, err := hilbert.New(box, hilbert.DefaultDepth)
//	key := h.Key([]float64{0.3, 0.7})
package hilbert
