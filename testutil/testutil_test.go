package testutil

import (
	"context"
	"testing"

	"github.com/hupe1980/meshadapt/mesh"
	"github.com/hupe1980/meshadapt/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuadGrid_SingleRank(t *testing.T) {
	m := QuadGrid(3, 2, 1, 0)
	require.NoError(t, m.Validate())
	assert.Equal(t, 6, m.NumElements())
	assert.Equal(t, 12, m.Dict(mesh.GeometryDict).Size())

	c, err := m.ElementCentroid(0, 4)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 1.5}, c)
}

func TestQuadGrid_Striped(t *testing.T) {
	// Columns 0,1 on rank 0 and columns 2,3 on rank 1.
	m0 := QuadGrid(4, 1, 2, 0)
	m1 := QuadGrid(4, 1, 2, 1)
	require.NoError(t, m0.Validate())
	require.NoError(t, m1.Validate())

	assert.Equal(t, []uint64{0, 1}, m0.Entities(0).GlobalIDs.Data())
	assert.Equal(t, []uint64{2, 3}, m1.Entities(0).GlobalIDs.Data())
	assert.Equal(t, 6, m0.Dict(mesh.GeometryDict).Size())
	assert.Equal(t, 6, m1.Dict(mesh.GeometryDict).Size())

	// The interface column x=2 (ids 2 and 7) is owned by rank 0 on both sides.
	require.NoError(t, m1.RebuildNodeIndexes())
	for _, gid := range []uint64{2, 7} {
		i, ok := m1.LookupNode(mesh.GeometryDict, gid)
		require.True(t, ok)
		assert.Equal(t, uint32(0), m1.Dict(mesh.GeometryDict).Ranks.At(i))
	}
}

func TestLineGrid(t *testing.T) {
	m := LineGrid(4, 2, 1)
	require.NoError(t, m.Validate())
	assert.Equal(t, []uint64{2, 3}, m.Entities(0).GlobalIDs.Data())
	assert.Equal(t, []uint64{2, 3, 4}, m.Dict(mesh.GeometryDict).GlobalIDs.Data())
	assert.Equal(t, []uint32{0, 1, 1}, m.Dict(mesh.GeometryDict).Ranks.Data())
}

func TestRNG(t *testing.T) {
	a, b := NewRNG(4711), NewRNG(4711)
	assert.Equal(t, a.Point(3), b.Point(3))
	assert.Equal(t, int64(4711), a.Seed())
	assert.Len(t, a.Perm(5), 5)
	v := a.Float64()
	assert.True(t, v >= 0 && v < 1)
	assert.Less(t, a.Intn(3), 3)
}

func TestRunRanks(t *testing.T) {
	RunRanks(t, 3, func(ctx context.Context, tr transport.Transport) error {
		return tr.Barrier(ctx)
	})
}
