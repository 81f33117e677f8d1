package mesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/meshadapt/geometry"
)

var (
	// ErrInvalidStructure is returned when tables of a collection disagree in
	// size or a connectivity entry is out of range.
	ErrInvalidStructure = errors.New("mesh: invalid structure")

	// ErrNotFound is returned when a name or global id is unknown.
	ErrNotFound = errors.New("mesh: not found")

	// ErrDuplicate is returned when a name or global id appears twice.
	ErrDuplicate = errors.New("mesh: duplicate")

	// ErrConnectivityMode is returned when an operation requires the other
	// connectivity representation.
	ErrConnectivityMode = errors.New("mesh: wrong connectivity mode")
)

// Dictionary is a node collection: the global id and owner rank of each node,
// plus the fields defined on it.
//
// A continuous dictionary shares nodes between elements; a discontinuous one
// holds per-element nodes.
type Dictionary struct {
	Name       string
	Continuous bool
	GlobalIDs  *Table[uint64]
	Ranks      *Table[uint32]
	Fields     []FieldIdx

	glbToLoc map[uint64]int
}

// Size returns the number of nodes.
func (d *Dictionary) Size() int { return d.GlobalIDs.Len() }

// Space binds an element group to a dictionary: one connectivity row per element.
type Space struct {
	Dict         DictIdx
	Connectivity *Table[uint64]
}

// Entities is a group of elements of one shape. Spaces[0] is the geometry space.
type Entities struct {
	Name      string
	Shape     Shape
	GlobalIDs *Table[uint64]
	Ranks     *Table[uint32]
	Spaces    []Space

	glbToLoc map[uint64]int
}

// Size returns the number of elements.
func (e *Entities) Size() int { return e.GlobalIDs.Len() }

// Mesh is a flat, index-addressed mesh partition held by one rank.
//
// Connectivity tables hold either local node indices or node global ids, see
// GlobalConnectivity.
type Mesh struct {
	Name string

	dim        int
	dicts      []*Dictionary
	entities   []*Entities
	fields     []*Field
	globalConn bool

	// node -> elements, per dictionary
	nodeElems [][][]ElemRef
}

// New returns a mesh of dimension dim with an empty geometry dictionary
// carrying the coordinates field.
func New(name string, dim int) (*Mesh, error) {
	if dim < 1 || dim > 3 {
		return nil, fmt.Errorf("%w: dimension %d", ErrInvalidStructure, dim)
	}
	m := &Mesh{Name: name, dim: dim}
	if _, err := m.AddDictionary("geometry", true); err != nil {
		return nil, err
	}
	if _, err := m.AddField("coordinates", GeometryDict, KindFloat64, dim); err != nil {
		return nil, err
	}
	return m, nil
}

// Dim returns the spatial dimension.
func (m *Mesh) Dim() int { return m.dim }

// NumDicts returns the number of dictionaries.
func (m *Mesh) NumDicts() int { return len(m.dicts) }

// NumEntities returns the number of element groups.
func (m *Mesh) NumEntities() int { return len(m.entities) }

// NumFields returns the number of fields.
func (m *Mesh) NumFields() int { return len(m.fields) }

// Dict returns dictionary d.
func (m *Mesh) Dict(d DictIdx) *Dictionary { return m.dicts[d] }

// Entities returns element group e.
func (m *Mesh) Entities(e EntitiesIdx) *Entities { return m.entities[e] }

// Field returns field f.
func (m *Mesh) Field(f FieldIdx) *Field { return m.fields[f] }

// NumElements returns the number of elements over all groups.
func (m *Mesh) NumElements() int {
	n := 0
	for _, e := range m.entities {
		n += e.Size()
	}
	return n
}

// DictByName looks up a dictionary.
func (m *Mesh) DictByName(name string) (DictIdx, bool) {
	for i, d := range m.dicts {
		if d.Name == name {
			return DictIdx(i), true
		}
	}
	return 0, false
}

// EntitiesByName looks up an element group.
func (m *Mesh) EntitiesByName(name string) (EntitiesIdx, bool) {
	for i, e := range m.entities {
		if e.Name == name {
			return EntitiesIdx(i), true
		}
	}
	return 0, false
}

// FieldByName looks up a field of dictionary d.
func (m *Mesh) FieldByName(d DictIdx, name string) (FieldIdx, bool) {
	for _, f := range m.dicts[d].Fields {
		if m.fields[f].Name == name {
			return f, true
		}
	}
	return 0, false
}

// AddDictionary creates an empty dictionary.
func (m *Mesh) AddDictionary(name string, continuous bool) (DictIdx, error) {
	if _, ok := m.DictByName(name); ok {
		return 0, fmt.Errorf("%w: dictionary %q", ErrDuplicate, name)
	}
	m.dicts = append(m.dicts, &Dictionary{
		Name:       name,
		Continuous: continuous,
		GlobalIDs:  NewTable[uint64](1),
		Ranks:      NewTable[uint32](1),
	})
	m.nodeElems = append(m.nodeElems, nil)
	return DictIdx(len(m.dicts) - 1), nil
}

// AddField creates a field on dictionary d with one zero row per existing node.
func (m *Mesh) AddField(name string, d DictIdx, kind Kind, width int) (FieldIdx, error) {
	if err := m.checkDict(d); err != nil {
		return 0, err
	}
	if width < 1 {
		return 0, fmt.Errorf("%w: field %q of width %d", ErrInvalidStructure, name, width)
	}
	if _, ok := m.FieldByName(d, name); ok {
		return 0, fmt.Errorf("%w: field %q on dictionary %q", ErrDuplicate, name, m.dicts[d].Name)
	}
	f, err := newField(name, d, kind, width)
	if err != nil {
		return 0, err
	}
	f.Grow(m.dicts[d].Size())
	m.fields = append(m.fields, f)
	idx := FieldIdx(len(m.fields) - 1)
	m.dicts[d].Fields = append(m.dicts[d].Fields, idx)
	return idx, nil
}

// AddEntities creates an empty element group whose geometry space uses the
// geometry dictionary.
func (m *Mesh) AddEntities(name string, shape Shape) (EntitiesIdx, error) {
	if _, ok := m.EntitiesByName(name); ok {
		return 0, fmt.Errorf("%w: entities %q", ErrDuplicate, name)
	}
	if shape.Nodes < 1 {
		return 0, fmt.Errorf("%w: shape %q without nodes", ErrInvalidStructure, shape.Name)
	}
	m.entities = append(m.entities, &Entities{
		Name:      name,
		Shape:     shape,
		GlobalIDs: NewTable[uint64](1),
		Ranks:     NewTable[uint32](1),
		Spaces:    []Space{{Dict: GeometryDict, Connectivity: NewTable[uint64](shape.Nodes)}},
	})
	return EntitiesIdx(len(m.entities) - 1), nil
}

// AddSpace binds element group e to dictionary d with width nodes per element.
// Existing elements get zero rows.
func (m *Mesh) AddSpace(e EntitiesIdx, d DictIdx, width int) (int, error) {
	if err := m.checkEntities(e); err != nil {
		return 0, err
	}
	if err := m.checkDict(d); err != nil {
		return 0, err
	}
	if width < 1 {
		return 0, fmt.Errorf("%w: space of width %d", ErrInvalidStructure, width)
	}
	ent := m.entities[e]
	for _, s := range ent.Spaces {
		if s.Dict == d {
			return 0, fmt.Errorf("%w: entities %q already bound to dictionary %q", ErrDuplicate, ent.Name, m.dicts[d].Name)
		}
	}
	conn := NewTable[uint64](width)
	conn.Grow(ent.Size())
	ent.Spaces = append(ent.Spaces, Space{Dict: d, Connectivity: conn})
	return len(ent.Spaces) - 1, nil
}

// SpaceFor returns the index of the space of e bound to d, or -1.
func (m *Mesh) SpaceFor(e EntitiesIdx, d DictIdx) int {
	for i, s := range m.entities[e].Spaces {
		if s.Dict == d {
			return i
		}
	}
	return -1
}

// AppendNode appends a node with zero field rows and returns its index.
func (m *Mesh) AppendNode(d DictIdx, gid uint64, rank uint32) int {
	dict := m.dicts[d]
	i := dict.GlobalIDs.Append(gid)
	dict.Ranks.Append(rank)
	for _, f := range dict.Fields {
		m.fields[f].Grow(1)
	}
	return i
}

// AppendGeometryNode appends a vertex with the given coordinates.
func (m *Mesh) AppendGeometryNode(gid uint64, rank uint32, coords ...float64) int {
	i := m.AppendNode(GeometryDict, gid, rank)
	m.fields[CoordinatesField].F.Set(i, coords)
	return i
}

// AppendElement appends an element with one connectivity row per space.
func (m *Mesh) AppendElement(e EntitiesIdx, gid uint64, rank uint32, conn ...[]uint64) int {
	ent := m.entities[e]
	if len(conn) != len(ent.Spaces) {
		panic(fmt.Sprintf("mesh: %d connectivity rows for entities %q with %d spaces", len(conn), ent.Name, len(ent.Spaces)))
	}
	i := ent.GlobalIDs.Append(gid)
	ent.Ranks.Append(rank)
	for s, row := range conn {
		ent.Spaces[s].Connectivity.Append(row...)
	}
	return i
}

// Coordinates returns the coordinates of geometry node i. The slice aliases the mesh.
func (m *Mesh) Coordinates(i int) []float64 {
	return m.fields[CoordinatesField].F.Row(i)
}

// BoundingBox returns the extent of the local geometry nodes.
func (m *Mesh) BoundingBox() geometry.Box {
	b := geometry.NewBox(m.dim)
	coords := m.fields[CoordinatesField].F
	for i := 0; i < coords.Len(); i++ {
		_ = b.Extend(coords.Row(i))
	}
	return b
}

// ElementCentroid returns the centroid of element (e, i) computed from its
// geometry nodes. Works in both connectivity modes; the node index must be
// current in global mode.
func (m *Mesh) ElementCentroid(e EntitiesIdx, i int) ([]float64, error) {
	row := m.entities[e].Spaces[0].Connectivity.Row(i)
	points := make([][]float64, len(row))
	for k, v := range row {
		n, err := m.nodeIndex(GeometryDict, v)
		if err != nil {
			return nil, fmt.Errorf("centroid of %s: %w", ElemRef{e, i}, err)
		}
		points[k] = m.Coordinates(n)
	}
	return geometry.Centroid(points), nil
}

// MaxNodeGlobalID returns the largest global id of dictionary d, or false if empty.
func (m *Mesh) MaxNodeGlobalID(d DictIdx) (uint64, bool) {
	return maxOf(m.dicts[d].GlobalIDs)
}

// MaxElementGlobalID returns the largest global id of group e, or false if empty.
func (m *Mesh) MaxElementGlobalID(e EntitiesIdx) (uint64, bool) {
	return maxOf(m.entities[e].GlobalIDs)
}

func maxOf(t *Table[uint64]) (uint64, bool) {
	if t.Len() == 0 {
		return 0, false
	}
	var mx uint64
	for _, v := range t.Data() {
		mx = max(mx, v)
	}
	return mx, true
}

// Clone returns a deep copy without derived indexes.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{Name: m.Name, dim: m.dim, globalConn: m.globalConn}
	for _, d := range m.dicts {
		c.dicts = append(c.dicts, &Dictionary{
			Name:       d.Name,
			Continuous: d.Continuous,
			GlobalIDs:  d.GlobalIDs.Clone(),
			Ranks:      d.Ranks.Clone(),
			Fields:     append([]FieldIdx(nil), d.Fields...),
		})
	}
	for _, e := range m.entities {
		ce := &Entities{
			Name:      e.Name,
			Shape:     e.Shape,
			GlobalIDs: e.GlobalIDs.Clone(),
			Ranks:     e.Ranks.Clone(),
		}
		for _, s := range e.Spaces {
			ce.Spaces = append(ce.Spaces, Space{Dict: s.Dict, Connectivity: s.Connectivity.Clone()})
		}
		c.entities = append(c.entities, ce)
	}
	for _, f := range m.fields {
		c.fields = append(c.fields, f.clone())
	}
	c.nodeElems = make([][][]ElemRef, len(c.dicts))
	return c
}

// Translate shifts every geometry node by delta.
func (m *Mesh) Translate(delta ...float64) {
	coords := m.fields[CoordinatesField].F
	for i := 0; i < coords.Len(); i++ {
		row := coords.Row(i)
		for k := range row {
			row[k] += delta[k]
		}
	}
}

func (m *Mesh) checkDict(d DictIdx) error {
	if d < 0 || int(d) >= len(m.dicts) {
		return fmt.Errorf("%w: dictionary %d", ErrNotFound, d)
	}
	return nil
}

func (m *Mesh) checkEntities(e EntitiesIdx) error {
	if e < 0 || int(e) >= len(m.entities) {
		return fmt.Errorf("%w: entities %d", ErrNotFound, e)
	}
	return nil
}

// nodeIndex resolves a connectivity entry of dictionary d to a local index.
func (m *Mesh) nodeIndex(d DictIdx, v uint64) (int, error) {
	if m.globalConn {
		i, ok := m.LookupNode(d, v)
		if !ok {
			return 0, fmt.Errorf("%w: node %d in dictionary %q", ErrNotFound, v, m.dicts[d].Name)
		}
		return i, nil
	}
	if v >= uint64(m.dicts[d].Size()) || v > math.MaxInt {
		return 0, fmt.Errorf("%w: node index %d, dictionary %q has %d nodes", ErrInvalidStructure, v, m.dicts[d].Name, m.dicts[d].Size())
	}
	return int(v), nil
}
