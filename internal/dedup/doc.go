// Package dedup removes co-located duplicate elements and nodes, and assigns
// partition-agnostic global ids, using Hilbert keys as location identity.
//
// Duplicates are detected within one rank: the first entity per key is kept
// and later ones are removed through the buffer set. When a removed duplicate
// carried a different global id than the kept entity, and some rank still
// holds the removed id, global ids disagree across ranks and the pass reports
// that renumbering is required.
package dedup
