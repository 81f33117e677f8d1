// Package local implements transport.Transport in process: one World shared by
// N goroutines, one Comm per rank.
//
// Collective calls are matched by their position in each rank's call sequence.
// When ranks issue different collectives at the same position every participant
// fails with transport.ErrCollectiveMismatch.
//
// After a call fails through context cancellation or ErrInFlightLimit the World
// must be discarded: the remaining ranks' sequences no longer line up.
package local
