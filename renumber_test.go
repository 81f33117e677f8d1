package meshadapt

import (
	"context"
	"testing"

	"github.com/hupe1980/meshadapt/mesh"
	"github.com/hupe1980/meshadapt/testutil"
	"github.com/hupe1980/meshadapt/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignPartitionAgnosticIndices(t *testing.T) {
	meshes := []*mesh.Mesh{triangles(t, 0), triangles(t, 100)}
	metrics := &BasicMetricsCollector{}

	testutil.RunRanks(t, 2, func(ctx context.Context, tr transport.Transport) error {
		a, err := New(meshes[tr.Rank()], tr, WithMetricsCollector(metrics))
		if err != nil {
			return err
		}
		if err := a.Prepare(); err != nil {
			return err
		}
		if err := a.AssignPartitionAgnosticGlobalIndices(ctx, mesh.GeometryDict); err != nil {
			return err
		}
		if err := a.AssignPartitionAgnosticElementIndices(ctx); err != nil {
			return err
		}
		return a.Finish()
	})

	for r, m := range meshes {
		dict := m.Dict(mesh.GeometryDict)
		assert.Equal(t, []uint64{0, 1, 2, 3}, gidsOf(dict.GlobalIDs), "rank %d", r)
		assert.Equal(t, []uint32{0, 0, 0, 0}, dict.Ranks.Data(), "rank %d", r)
		assert.Equal(t, []uint64{0, 1}, gidsOf(m.Entities(0).GlobalIDs), "rank %d", r)
		assert.Equal(t, []uint64{0, 1, 3}, m.Entities(0).Spaces[0].Connectivity.Row(0), "rank %d", r)
		assert.NoError(t, m.Validate())
	}
	assert.Equal(t, int64(12), metrics.GetStats().Renumbered)
}

func TestAssignPartitionAgnosticGlobalIndices_Errors(t *testing.T) {
	ctx := context.Background()
	m := triangles(t, 0)
	dg, err := m.AddDictionary("dg", false)
	require.NoError(t, err)

	a, err := New(m, testutil.Self())
	require.NoError(t, err)

	assert.ErrorIs(t, a.AssignPartitionAgnosticGlobalIndices(ctx, mesh.GeometryDict), ErrInvalidState)
	require.NoError(t, a.Prepare())
	assert.ErrorIs(t, a.AssignPartitionAgnosticGlobalIndices(ctx, dg), ErrNotImplemented)
	assert.ErrorIs(t, a.AssignPartitionAgnosticGlobalIndices(ctx, 7), ErrInvariant)
}

func TestRemoveDuplicates_Renumbering(t *testing.T) {
	doubled := func(rank int) *mesh.Mesh {
		if rank == 0 {
			return triangles(t, 0, 100)
		}
		return triangles(t, 100, 0)
	}

	t.Run("Rejected", func(t *testing.T) {
		meshes := []*mesh.Mesh{doubled(0), doubled(1)}
		testutil.RunRanks(t, 2, func(ctx context.Context, tr transport.Transport) error {
			a, err := New(meshes[tr.Rank()], tr)
			if err != nil {
				return err
			}
			if err := a.Prepare(); err != nil {
				return err
			}
			assert.ErrorIs(t, a.RemoveDuplicateElementsAndNodes(ctx), ErrRenumberingRequired)
			return nil
		})
		// The removal itself is kept.
		for _, m := range meshes {
			assert.Equal(t, 2, m.NumElements())
			assert.Equal(t, 4, m.Dict(mesh.GeometryDict).Size())
		}
		assert.Equal(t, []uint64{100, 101, 102, 103}, gidsOf(meshes[1].Dict(mesh.GeometryDict).GlobalIDs))
	})

	t.Run("AutoRenumber", func(t *testing.T) {
		meshes := []*mesh.Mesh{doubled(0), doubled(1)}
		testutil.RunRanks(t, 2, func(ctx context.Context, tr transport.Transport) error {
			a, err := New(meshes[tr.Rank()], tr, WithAutoRenumber(true))
			if err != nil {
				return err
			}
			if err := a.Prepare(); err != nil {
				return err
			}
			if err := a.RemoveDuplicateElementsAndNodes(ctx); err != nil {
				return err
			}
			return a.Finish()
		})
		for _, m := range meshes {
			assert.Equal(t, []uint64{0, 1, 2, 3}, gidsOf(m.Dict(mesh.GeometryDict).GlobalIDs))
			assert.Equal(t, []uint64{0, 1}, gidsOf(m.Entities(0).GlobalIDs))
			assert.NoError(t, m.Validate())
		}
	})
}
