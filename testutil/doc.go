// Package testutil provides fixtures for meshadapt tests.
//
// This package is intended for use in tests and benchmarks only.
//
// # Partitioned Grids
//
//	m := testutil.QuadGrid(4, 2, size, rank) // 4x2 quads striped over size ranks
//	m := testutil.LineGrid(8, size, rank)
//
// # Running Ranks
//
//	testutil.RunRanks(t, 2, func(ctx context.Context, tr transport.Transport) error {
//	    ...
//	})
package testutil
