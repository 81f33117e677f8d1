package meshadapt

import (
	"errors"
	"testing"

	"github.com/hupe1980/meshadapt/mesh"
	"github.com/hupe1980/meshadapt/testutil"
	"github.com/hupe1980/meshadapt/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// triangles returns two triangles over the unit square per shift, each copy
// with node and element ids offset by its shift.
func triangles(t testing.TB, shifts ...uint64) *mesh.Mesh {
	t.Helper()
	m, err := mesh.New("triangles", 2)
	require.NoError(t, err)
	e, err := m.AddEntities("cells", mesh.Triag2D)
	require.NoError(t, err)
	for _, s := range shifts {
		n0 := uint64(m.AppendGeometryNode(s, 0, 0, 0))
		n1 := uint64(m.AppendGeometryNode(s+1, 0, 1, 0))
		n2 := uint64(m.AppendGeometryNode(s+2, 0, 0, 1))
		n3 := uint64(m.AppendGeometryNode(s+3, 0, 1, 1))
		m.AppendElement(e, s, 0, []uint64{n0, n1, n3})
		m.AppendElement(e, s+1, 0, []uint64{n0, n3, n2})
	}
	return m
}

func gidsOf(tbl *mesh.Table[uint64]) []uint64 {
	return append([]uint64(nil), tbl.Data()...)
}

func TestAdaptor_StateMachine(t *testing.T) {
	a, err := New(testutil.QuadGrid(2, 1, 1, 0), testutil.Self())
	require.NoError(t, err)
	assert.Equal(t, StateIdle, a.State())

	_, err = a.AddNode(wire.PackedNode{})
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorIs(t, a.RemoveElement(0, 0), ErrInvalidState)
	assert.ErrorIs(t, a.Finish(), ErrInvalidState)

	require.NoError(t, a.Prepare())
	assert.Equal(t, StateBuffersOpen, a.State())
	assert.ErrorIs(t, a.Prepare(), ErrInvalidState)

	require.NoError(t, a.Finish())
	assert.Equal(t, StateIdle, a.State())
	assert.Equal(t, Stale(0), a.Stale())
}

func TestAdaptor_New(t *testing.T) {
	comm := testutil.Self()

	t.Run("InvalidDepth", func(t *testing.T) {
		_, err := New(testutil.QuadGrid(1, 1, 1, 0), comm, WithHilbertDepth(33))
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("GlobalConnectivityIsLocalized", func(t *testing.T) {
		m := testutil.QuadGrid(2, 1, 1, 0)
		require.NoError(t, m.ConnectivityToGlobal())
		a, err := New(m, comm)
		require.NoError(t, err)
		assert.False(t, a.Mesh().GlobalConnectivity())
		assert.Equal(t, StateIdle, a.State())
		assert.Len(t, a.Mesh().NodeElements(mesh.GeometryDict, 1), 2)
	})

	t.Run("NilArguments", func(t *testing.T) {
		_, err := New(nil, comm)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestAdaptor_IdempotentAdd(t *testing.T) {
	a, err := New(testutil.QuadGrid(2, 1, 1, 0), testutil.Self())
	require.NoError(t, err)
	require.NoError(t, a.Prepare())

	node := func(gid uint64, x, y float64) wire.PackedNode {
		return wire.PackedNode{Dict: mesh.GeometryDict, GlobalID: gid, Values: []mesh.Row{mesh.FloatRow(x, y)}}
	}
	for _, rec := range []wire.PackedNode{node(100, 3, 0), node(101, 3, 1)} {
		added, err := a.AddNode(rec)
		require.NoError(t, err)
		assert.True(t, added)
		added, err = a.AddNode(rec)
		require.NoError(t, err)
		assert.False(t, added, "second add of node %d", rec.GlobalID)
	}

	elem := wire.PackedElement{Entities: 0, GlobalID: 50, Connectivity: [][]uint64{{2, 100, 101, 5}}}
	added, err := a.AddElement(elem)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = a.AddElement(elem)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, StateConnectivityGlobal, a.State())
	assert.True(t, a.Stale().Has(PendingElementFlush|PendingNodeFlush))

	require.NoError(t, a.Finish())
	m := a.Mesh()
	assert.Equal(t, 3, m.Entities(0).Size())
	assert.Equal(t, 8, m.Dict(mesh.GeometryDict).Size())
	require.NoError(t, m.Validate())

	i, ok := m.LookupElement(0, 50)
	require.True(t, ok)
	var gids []uint64
	for _, n := range m.Entities(0).Spaces[0].Connectivity.Row(i) {
		gids = append(gids, m.Dict(mesh.GeometryDict).GlobalIDs.At(int(n)))
	}
	assert.Equal(t, []uint64{2, 100, 101, 5}, gids)
	assert.Equal(t, []float64{3, 1}, m.Coordinates(7))
}

func TestAdaptor_RemoveNode(t *testing.T) {
	a, err := New(testutil.QuadGrid(2, 1, 1, 0), testutil.Self())
	require.NoError(t, err)
	require.NoError(t, a.Prepare())

	err = a.RemoveNode(mesh.GeometryDict, 0)
	require.ErrorIs(t, err, ErrInvariant)
	var ie *InvariantError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "geometry", ie.Entity)
	assert.Equal(t, 0, ie.Index)

	require.NoError(t, a.RemoveElement(0, 0))
	require.NoError(t, a.RemoveNode(mesh.GeometryDict, 0))
	require.NoError(t, a.RemoveNode(mesh.GeometryDict, 3))
	assert.ErrorIs(t, a.RemoveNode(mesh.GeometryDict, 1), ErrInvariant)
	require.NoError(t, a.Finish())

	m := a.Mesh()
	assert.Equal(t, []uint64{1}, gidsOf(m.Entities(0).GlobalIDs))
	// Surviving nodes keep their relative order.
	assert.Equal(t, []uint64{1, 4, 2, 5}, gidsOf(m.Dict(mesh.GeometryDict).GlobalIDs))
	require.NoError(t, m.Validate())
	assert.Equal(t, []uint64{0, 2, 3, 1}, m.Entities(0).Spaces[0].Connectivity.Row(0))
}

func TestAdaptor_RemoveNodeAfterGlobalize(t *testing.T) {
	a, err := New(testutil.QuadGrid(1, 1, 1, 0), testutil.Self())
	require.NoError(t, err)
	require.NoError(t, a.Prepare())

	_, err = a.AddNode(wire.PackedNode{Dict: mesh.GeometryDict, GlobalID: 9, Values: []mesh.Row{mesh.FloatRow(5, 5)}})
	require.NoError(t, err)
	_, err = a.AddElement(wire.PackedElement{GlobalID: 7, Connectivity: [][]uint64{{1, 9, 3, 2}}})
	require.NoError(t, err)

	// The staged element now references the staged node.
	assert.ErrorIs(t, a.RemoveNode(mesh.GeometryDict, 4), ErrInvariant)
	require.NoError(t, a.RemoveElement(0, 1))
	require.NoError(t, a.RemoveNode(mesh.GeometryDict, 4))
	require.NoError(t, a.Finish())
	assert.Equal(t, 1, a.Mesh().Entities(0).Size())
	assert.Equal(t, 4, a.Mesh().Dict(mesh.GeometryDict).Size())
}

func TestAdaptor_InvariantErrors(t *testing.T) {
	a, err := New(testutil.QuadGrid(1, 1, 1, 0), testutil.Self())
	require.NoError(t, err)
	require.NoError(t, a.Prepare())

	tests := []struct {
		name string
		run  func() error
	}{
		{"ElementOutOfRange", func() error { return a.RemoveElement(0, 9) }},
		{"GroupOutOfRange", func() error { return a.RemoveElement(3, 0) }},
		{"NodeOutOfRange", func() error { return a.RemoveNode(mesh.GeometryDict, -1) }},
		{"ConnectivityWidth", func() error {
			_, err := a.AddElement(wire.PackedElement{Connectivity: [][]uint64{{0, 1, 2}}})
			return err
		}},
		{"ConnectivityRows", func() error {
			_, err := a.AddElement(wire.PackedElement{})
			return err
		}},
		{"OwnerRank", func() error {
			_, err := a.AddNode(wire.PackedNode{Rank: 5, Values: []mesh.Row{mesh.FloatRow(0, 0)}})
			return err
		}},
		{"ValueRow", func() error {
			_, err := a.AddNode(wire.PackedNode{Values: []mesh.Row{mesh.IntRow(0, 0)}})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), ErrInvariant)
		})
	}
	require.NoError(t, a.Finish())
	assert.Equal(t, 1, a.Mesh().Entities(0).Size())
}

func TestStaleString(t *testing.T) {
	assert.Equal(t, "none", Stale(0).String())
	assert.Equal(t, "glb_to_loc|node_flush", (StaleGlbToLoc | PendingNodeFlush).String())
	assert.Equal(t, "ConnectivityGlobal", StateConnectivityGlobal.String())
}

func TestErrRenumberingRequired(t *testing.T) {
	assert.ErrorIs(t, ErrRenumberingRequired, ErrNotImplemented)
	err := &InvariantError{Entity: "cells", Index: 3, Reason: "width", Expected: 4, Actual: 3}
	assert.ErrorIs(t, err, ErrInvariant)
	assert.Contains(t, err.Error(), "cells[3]: width (expected 4, got 3)")
}
