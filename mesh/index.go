package mesh

import "fmt"

// DictIdx addresses a dictionary within a Mesh.
type DictIdx int

// EntitiesIdx addresses an element group within a Mesh.
type EntitiesIdx int

// FieldIdx addresses a field within a Mesh.
type FieldIdx int

// GeometryDict is the dictionary holding the mesh vertices.
const GeometryDict DictIdx = 0

// CoordinatesField is the coordinates field of the geometry dictionary.
const CoordinatesField FieldIdx = 0

// ElemRef identifies one element by group and local index.
type ElemRef struct {
	Entities EntitiesIdx
	Index    int
}

func (r ElemRef) String() string { return fmt.Sprintf("elem(%d:%d)", r.Entities, r.Index) }

// NodeRef identifies one node by dictionary and local index.
type NodeRef struct {
	Dict  DictIdx
	Index int
}

func (r NodeRef) String() string { return fmt.Sprintf("node(%d:%d)", r.Dict, r.Index) }
