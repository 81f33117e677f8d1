package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoQuads builds
//
//	3---4---5
//	| 0 | 1 |
//	0---1---2
func twoQuads(t *testing.T) (*Mesh, EntitiesIdx) {
	t.Helper()
	m, err := New("test", 2)
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		m.AppendGeometryNode(uint64(100+i), 0, float64(i%3), float64(i/3))
	}
	e, err := m.AddEntities("cells", Quad2D)
	require.NoError(t, err)
	m.AppendElement(e, 10, 0, []uint64{0, 1, 4, 3})
	m.AppendElement(e, 11, 0, []uint64{1, 2, 5, 4})
	return m, e
}

func TestTable(t *testing.T) {
	tb := NewTable[int](2)
	assert.Equal(t, 0, tb.Append(1, 2))
	assert.Equal(t, 1, tb.Append(3, 4))
	assert.Equal(t, 2, tb.Len())
	assert.Equal(t, []int{3, 4}, tb.Row(1))
	assert.Equal(t, 3, tb.At(1))

	tb.Set(0, []int{9, 8})
	tb.SetAt(1, 7)
	assert.Equal(t, []int{9, 8, 7, 4}, tb.Data())

	c := tb.Clone()
	c.SetAt(0, 0)
	assert.Equal(t, 9, tb.At(0))

	tb.Grow(1)
	assert.Equal(t, []int{0, 0}, tb.Row(2))

	assert.Panics(t, func() { tb.Append(1) })
	assert.Panics(t, func() { tb.Replace([]int{1, 2, 3}) })
	assert.Panics(t, func() { NewTable[int](0) })

	// Appending to a row slice must not clobber the next row.
	row := tb.Row(0)
	_ = append(row, 42)
	assert.Equal(t, 7, tb.At(1))
}

func TestNew(t *testing.T) {
	m, err := New("m", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Dim())
	assert.Equal(t, 1, m.NumDicts())
	assert.Equal(t, "coordinates", m.Field(CoordinatesField).Name)
	assert.Equal(t, 3, m.Field(CoordinatesField).Width())

	_, err = New("bad", 4)
	require.ErrorIs(t, err, ErrInvalidStructure)
}

func TestStructure(t *testing.T) {
	m, e := twoQuads(t)

	_, err := m.AddEntities("cells", Quad2D)
	require.ErrorIs(t, err, ErrDuplicate)

	p0, err := m.AddDictionary("p0", false)
	require.NoError(t, err)
	_, err = m.AddDictionary("p0", false)
	require.ErrorIs(t, err, ErrDuplicate)

	f, err := m.AddField("pressure", p0, KindFloat64, 1)
	require.NoError(t, err)
	_, err = m.AddField("pressure", p0, KindFloat64, 1)
	require.ErrorIs(t, err, ErrDuplicate)
	_, err = m.AddField("flags", p0, KindInt64, 2)
	require.NoError(t, err)

	s, err := m.AddSpace(e, p0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, s)
	assert.Equal(t, 2, m.Entities(e).Spaces[s].Connectivity.Len(), "existing elements get rows")
	assert.Equal(t, 1, m.SpaceFor(e, p0))
	assert.Equal(t, 0, m.SpaceFor(e, GeometryDict))

	got, ok := m.FieldByName(p0, "pressure")
	require.True(t, ok)
	assert.Equal(t, f, got)

	d, ok := m.DictByName("p0")
	require.True(t, ok)
	assert.Equal(t, p0, d)

	_, ok = m.EntitiesByName("missing")
	assert.False(t, ok)

	i := m.AppendNode(p0, 7, 1)
	assert.Equal(t, 0, i)
	assert.Equal(t, 1, m.Field(f).Len())
	require.NoError(t, m.Validate())
}

func TestShapes(t *testing.T) {
	s, ok := ShapeByName("Hexa3D")
	require.True(t, ok)
	assert.Equal(t, 8, s.Nodes)
	assert.Len(t, s.Faces, 6)
	_, ok = ShapeByName("Prism3D")
	assert.False(t, ok)
}

func TestConnectivityRoundTrip(t *testing.T) {
	m, e := twoQuads(t)
	before := append([]uint64(nil), m.Entities(e).Spaces[0].Connectivity.Data()...)

	require.NoError(t, m.ConnectivityToGlobal())
	assert.True(t, m.GlobalConnectivity())
	assert.Equal(t, []uint64{101, 102, 105, 104}, m.Entities(e).Spaces[0].Connectivity.Row(1))

	require.NoError(t, m.ConnectivityToLocal())
	assert.False(t, m.GlobalConnectivity())
	assert.Equal(t, before, m.Entities(e).Spaces[0].Connectivity.Data())
}

func TestConnectivityToLocal_MissingNode(t *testing.T) {
	m, e := twoQuads(t)
	require.NoError(t, m.ConnectivityToGlobal())
	m.Entities(e).Spaces[0].Connectivity.SetAt(0, 999)

	err := m.ConnectivityToLocal()
	require.ErrorIs(t, err, ErrNotFound)
	assert.True(t, m.GlobalConnectivity(), "failed conversion leaves the mesh unchanged")
}

func TestIndexes(t *testing.T) {
	m, e := twoQuads(t)
	require.NoError(t, m.RebuildNodeIndexes())
	require.NoError(t, m.RebuildElementIndexes())

	i, ok := m.LookupNode(GeometryDict, 104)
	require.True(t, ok)
	assert.Equal(t, 4, i)

	i, ok = m.LookupElement(e, 11)
	require.True(t, ok)
	assert.Equal(t, 1, i)

	m.Entities(e).GlobalIDs.SetAt(1, 10)
	require.ErrorIs(t, m.RebuildElementIndex(e), ErrDuplicate)
}

func TestNodeElements(t *testing.T) {
	m, e := twoQuads(t)
	require.NoError(t, m.RebuildNodeElements())

	assert.Equal(t, []ElemRef{{e, 0}}, m.NodeElements(GeometryDict, 0))
	assert.Equal(t, []ElemRef{{e, 0}, {e, 1}}, m.NodeElements(GeometryDict, 1))
	assert.Equal(t, []ElemRef{{e, 1}}, m.NodeElements(GeometryDict, 5))
	assert.Nil(t, m.NodeElements(GeometryDict, 6))

	require.NoError(t, m.ConnectivityToGlobal())
	require.ErrorIs(t, m.RebuildNodeElements(), ErrConnectivityMode)
}

func TestCentroidAndBox(t *testing.T) {
	m, e := twoQuads(t)
	c, err := m.ElementCentroid(e, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 0.5}, c)

	b := m.BoundingBox()
	assert.Equal(t, []float64{0, 0}, b.Min)
	assert.Equal(t, []float64{2, 1}, b.Max)

	// Global mode resolves through the node index.
	require.NoError(t, m.ConnectivityToGlobal())
	require.NoError(t, m.RebuildNodeIndexes())
	c, err = m.ElementCentroid(e, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5}, c)
}

func TestMaxGlobalIDs(t *testing.T) {
	m, e := twoQuads(t)
	mx, ok := m.MaxNodeGlobalID(GeometryDict)
	require.True(t, ok)
	assert.Equal(t, uint64(105), mx)

	mx, ok = m.MaxElementGlobalID(e)
	require.True(t, ok)
	assert.Equal(t, uint64(11), mx)

	empty, _ := New("empty", 2)
	_, ok = empty.MaxNodeGlobalID(GeometryDict)
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	m, e := twoQuads(t)
	require.NoError(t, m.Validate())

	m.Entities(e).Spaces[0].Connectivity.SetAt(1, 42)
	require.ErrorIs(t, m.Validate(), ErrInvalidStructure)

	m, e = twoQuads(t)
	m.Entities(e).Ranks.Append(0)
	require.ErrorIs(t, m.Validate(), ErrInvalidStructure)
}

func TestCloneAndTranslate(t *testing.T) {
	m, _ := twoQuads(t)
	c := m.Clone()
	c.Translate(10, 0)
	assert.Equal(t, []float64{10, 0}, c.Coordinates(0))
	assert.Equal(t, []float64{0, 0}, m.Coordinates(0))
	require.NoError(t, c.Validate())
	require.NoError(t, c.RebuildNodeElements())
}

func TestFieldRows(t *testing.T) {
	m, err := New("m", 2)
	require.NoError(t, err)
	flags, err := m.AddField("flags", GeometryDict, KindInt64, 2)
	require.NoError(t, err)
	m.AppendGeometryNode(1, 0, 0.5, 0.25)

	f := m.Field(flags)
	assert.Equal(t, IntRow(0, 0), f.RowAt(0))
	require.NoError(t, f.SetRow(0, IntRow(3, -4)))
	assert.Equal(t, []int64{3, -4}, f.I.Row(0))

	require.ErrorIs(t, f.SetRow(0, FloatRow(1, 2)), ErrInvalidStructure)
	require.ErrorIs(t, f.SetRow(0, IntRow(1)), ErrInvalidStructure)

	coords := m.Field(CoordinatesField).RowAt(0)
	assert.Equal(t, FloatRow(0.5, 0.25), coords)
	coords.F[0] = 9
	assert.Equal(t, 0.5, m.Coordinates(0)[0], "RowAt returns a copy")

	assert.Equal(t, FloatRow(0, 0), m.Field(CoordinatesField).ZeroRow())
	r := IntRow(1, 2)
	c := r.Clone()
	c.I[0] = 5
	assert.Equal(t, int64(1), r.I[0])
}
