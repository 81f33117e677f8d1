package dedup

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"testing"

	"github.com/hupe1980/meshadapt/geometry"
	"github.com/hupe1980/meshadapt/hilbert"
	"github.com/hupe1980/meshadapt/internal/buffer"
	"github.com/hupe1980/meshadapt/mesh"
	"github.com/hupe1980/meshadapt/testutil"
	"github.com/hupe1980/meshadapt/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.DiscardHandler)

var debug = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

// doubledGrid returns a 2x1 quad grid in global connectivity mode holding two
// co-located copies. The copy appended first keeps the original ids when
// shiftedFirst is false; the other copy has every id shifted by 100.
func doubledGrid(shiftedFirst bool) (*mesh.Mesh, error) {
	src := testutil.QuadGrid(2, 1, 1, 0)
	if err := src.ConnectivityToGlobal(); err != nil {
		return nil, err
	}
	m, err := mesh.New("doubled", 2)
	if err != nil {
		return nil, err
	}
	e, err := m.AddEntities("cells", mesh.Quad2D)
	if err != nil {
		return nil, err
	}
	m.SetGlobalConnectivity(true)

	shifts := []uint64{0, 100}
	if shiftedFirst {
		shifts = []uint64{100, 0}
	}
	dict := src.Dict(mesh.GeometryDict)
	ent := src.Entities(0)
	for _, s := range shifts {
		for i := 0; i < dict.Size(); i++ {
			c := slices.Clone(src.Coordinates(i))
			m.AppendGeometryNode(dict.GlobalIDs.At(i)+s, 0, c...)
		}
		for i := 0; i < ent.Size(); i++ {
			conn := slices.Clone(ent.Spaces[0].Connectivity.Row(i))
			for k := range conn {
				conn[k] += s
			}
			m.AppendElement(e, ent.GlobalIDs.At(i)+s, 0, conn)
		}
	}
	return m, m.RebuildNodeIndex(mesh.GeometryDict)
}

func TestRemoveDuplicates_SingleRank(t *testing.T) {
	testutil.RunRanks(t, 1, func(ctx context.Context, tr transport.Transport) error {
		m, err := doubledGrid(false)
		if err != nil {
			return err
		}
		h, err := NewHasher(ctx, tr, m, hilbert.DefaultDepth)
		if err != nil {
			return err
		}
		bufs := buffer.NewSet(m)

		res, err := RemoveDuplicateElements(ctx, tr, bufs, h, discard)
		if err != nil {
			return err
		}
		assert.Equal(t, 2, res.Removed)
		assert.False(t, res.Renumber)

		res, err = RemoveDuplicateNodes(ctx, tr, bufs, mesh.GeometryDict, h, discard)
		if err != nil {
			return err
		}
		assert.Equal(t, 6, res.Removed)
		assert.False(t, res.Renumber)

		bufs.FlushElements()
		bufs.FlushNodes()
		assert.Equal(t, 2, m.Entities(0).Size())
		assert.Equal(t, 6, m.Dict(mesh.GeometryDict).Size())
		for _, gid := range m.Entities(0).Spaces[0].Connectivity.Data() {
			assert.Less(t, gid, uint64(100))
		}
		return m.ConnectivityToLocal()
	})
}

func TestRemoveDuplicates_PendingRows(t *testing.T) {
	testutil.RunRanks(t, 1, func(ctx context.Context, tr transport.Transport) error {
		m, err := doubledGrid(false)
		if err != nil {
			return err
		}
		bufs := buffer.NewSet(m)
		bufs.AddElement(0, 500, 0, [][]uint64{{0, 1, 4, 3}})

		_, err = RemoveDuplicateElements(ctx, tr, bufs, nil, discard)
		assert.ErrorIs(t, err, ErrPendingRows)
		return nil
	})
}

func TestRemoveDuplicateNodes_RequiresGlobalConnectivity(t *testing.T) {
	testutil.RunRanks(t, 1, func(ctx context.Context, tr transport.Transport) error {
		m := testutil.QuadGrid(2, 1, 1, 0)
		_, err := RemoveDuplicateNodes(ctx, tr, buffer.NewSet(m), mesh.GeometryDict, nil, discard)
		assert.ErrorIs(t, err, mesh.ErrConnectivityMode)
		return nil
	})
}

func TestRemoveDuplicates_CrossRankConflictThenRenumber(t *testing.T) {
	testutil.RunRanks(t, 2, func(ctx context.Context, tr transport.Transport) error {
		// Each rank keeps the copy the other rank drops.
		m, err := doubledGrid(tr.Rank() == 1)
		if err != nil {
			return err
		}
		h, err := NewHasher(ctx, tr, m, hilbert.DefaultDepth)
		if err != nil {
			return err
		}
		bufs := buffer.NewSet(m)

		res, err := RemoveDuplicateElements(ctx, tr, bufs, h, discard)
		if err != nil {
			return err
		}
		assert.True(t, res.Renumber)
		res, err = RemoveDuplicateNodes(ctx, tr, bufs, mesh.GeometryDict, h, discard)
		if err != nil {
			return err
		}
		assert.True(t, res.Renumber)
		bufs.FlushElements()
		bufs.FlushNodes()

		if err := RenumberNodes(ctx, tr, m, mesh.GeometryDict, h, discard); err != nil {
			return err
		}
		if err := m.RebuildNodeIndex(mesh.GeometryDict); err != nil {
			return err
		}
		if err := RenumberElements(ctx, tr, m, h, discard); err != nil {
			return err
		}

		nodes := slices.Sorted(slices.Values(m.Dict(mesh.GeometryDict).GlobalIDs.Data()))
		elems := slices.Sorted(slices.Values(m.Entities(0).GlobalIDs.Data()))
		allNodes, err := transport.AllGatherUint64s(ctx, tr, nodes)
		if err != nil {
			return err
		}
		allElems, err := transport.AllGatherUint64s(ctx, tr, elems)
		if err != nil {
			return err
		}
		assert.Equal(t, allNodes[0], allNodes[1])
		assert.Equal(t, allElems[0], allElems[1])
		for _, r := range m.Dict(mesh.GeometryDict).Ranks.Data() {
			assert.Equal(t, uint32(0), r)
		}
		return m.ConnectivityToLocal()
	})
}

func TestClaim_LowestRankWins(t *testing.T) {
	keys := [][]uint64{
		{10, 20},
		{20, 30},
		{30, 10, 40},
	}
	wantIDs := [][]uint64{
		{0, 1},
		{1, 3},
		{3, 0, 6},
	}
	wantOwners := [][]uint32{
		{0, 0},
		{0, 1},
		{1, 0, 2},
	}
	testutil.RunRanks(t, 3, func(ctx context.Context, tr transport.Transport) error {
		ids, owners, err := claim(ctx, tr, keys[tr.Rank()], nil)
		if err != nil {
			return err
		}
		assert.Equal(t, wantIDs[tr.Rank()], ids, "rank %d", tr.Rank())
		assert.Equal(t, wantOwners[tr.Rank()], owners, "rank %d", tr.Rank())
		return nil
	})
}

func TestClaim_PartitionAgnostic(t *testing.T) {
	// The same line split two different ways must yield the same id per location.
	idsFor := func(size int) map[float64]uint64 {
		out := make(map[float64]uint64)
		results := make([]map[float64]uint64, size)
		testutil.RunRanks(t, size, func(ctx context.Context, tr transport.Transport) error {
			m := testutil.LineGrid(6, size, tr.Rank())
			h, err := NewHasher(ctx, tr, m, hilbert.DefaultDepth)
			if err != nil {
				return err
			}
			if err := RenumberNodes(ctx, tr, m, mesh.GeometryDict, h, discard); err != nil {
				return err
			}
			local := make(map[float64]uint64)
			for i, gid := range m.Dict(mesh.GeometryDict).GlobalIDs.Data() {
				local[m.Coordinates(i)[0]] = gid
			}
			results[tr.Rank()] = local
			return nil
		})
		for _, r := range results {
			for x, gid := range r {
				if prev, ok := out[x]; ok {
					assert.Equal(t, prev, gid, "ranks disagree at x=%v", x)
				}
				out[x] = gid
			}
		}
		return out
	}

	single := idsFor(1)
	require.Len(t, single, 7)
	multi := idsFor(3)
	require.Len(t, multi, 7)

	// Ids are unique per location in both runs.
	seen := map[uint64]bool{}
	for _, gid := range multi {
		assert.False(t, seen[gid])
		seen[gid] = true
	}
}

func TestRenumberNodes_Errors(t *testing.T) {
	testutil.RunRanks(t, 1, func(ctx context.Context, tr transport.Transport) error {
		m := testutil.QuadGrid(1, 1, 1, 0)
		p0, err := m.AddDictionary("p0", false)
		if err != nil {
			return err
		}
		h, err := NewHasher(ctx, tr, m, hilbert.DefaultDepth)
		if err != nil {
			return err
		}
		assert.ErrorIs(t, RenumberNodes(ctx, tr, m, p0, h, discard), ErrDiscontinuous)

		m.AppendGeometryNode(99, 0, 0, 0)
		assert.ErrorIs(t, RenumberNodes(ctx, tr, m, mesh.GeometryDict, h, discard), ErrKeyCollision)
		return nil
	})
}

func TestNewHasher_EmptyMesh(t *testing.T) {
	testutil.RunRanks(t, 2, func(ctx context.Context, tr transport.Transport) error {
		m, err := mesh.New("empty", 3)
		if err != nil {
			return err
		}
		h, err := NewHasher(ctx, tr, m, hilbert.DefaultDepth)
		if err != nil {
			return err
		}
		assert.Nil(t, h)
		return RenumberNodes(ctx, tr, m, mesh.GeometryDict, h, discard)
	})
}

func TestRemoveDuplicateNodes_ResolutionCheckedWhenDebugging(t *testing.T) {
	box, err := geometry.BoxOf(1, [][]float64{{0}, {2}})
	require.NoError(t, err)
	h, err := hilbert.New(box, hilbert.DefaultDepth)
	require.NoError(t, err)

	// Rank 0 holds nodes out to x=4, beyond the hasher box.
	line := func(rank int) (*mesh.Mesh, error) {
		m := testutil.LineGrid(4-2*rank, 1, 0)
		return m, m.ConnectivityToGlobal()
	}

	testutil.RunRanks(t, 2, func(ctx context.Context, tr transport.Transport) error {
		m, err := line(tr.Rank())
		if err != nil {
			return err
		}
		_, err = RemoveDuplicateNodes(ctx, tr, buffer.NewSet(m), mesh.GeometryDict, h, debug)
		assert.ErrorIs(t, err, hilbert.ErrUnresolved, "rank %d", tr.Rank())
		return nil
	})

	testutil.RunRanks(t, 2, func(ctx context.Context, tr transport.Transport) error {
		m, err := line(tr.Rank())
		if err != nil {
			return err
		}
		_, err = RemoveDuplicateNodes(ctx, tr, buffer.NewSet(m), mesh.GeometryDict, h, discard)
		return err
	})
}

func TestClaim_KeyErrorFailsEveryRank(t *testing.T) {
	testutil.RunRanks(t, 2, func(ctx context.Context, tr transport.Transport) error {
		var keyErr error
		if tr.Rank() == 1 {
			keyErr = hilbert.ErrUnresolved
		}
		_, _, err := claim(ctx, tr, []uint64{uint64(tr.Rank())}, keyErr)
		assert.ErrorIs(t, err, hilbert.ErrUnresolved)
		return nil
	})
}
