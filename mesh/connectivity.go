package mesh

import "fmt"

// GlobalConnectivity reports whether connectivity tables hold node global ids
// instead of local indices.
func (m *Mesh) GlobalConnectivity() bool { return m.globalConn }

// RebuildNodeIndex rebuilds the global id to local index map of dictionary d.
func (m *Mesh) RebuildNodeIndex(d DictIdx) error {
	dict := m.dicts[d]
	idx, err := buildIndex(dict.GlobalIDs, "dictionary "+dict.Name)
	if err != nil {
		return err
	}
	dict.glbToLoc = idx
	return nil
}

// RebuildNodeIndexes rebuilds the maps of every dictionary.
func (m *Mesh) RebuildNodeIndexes() error {
	for d := range m.dicts {
		if err := m.RebuildNodeIndex(DictIdx(d)); err != nil {
			return err
		}
	}
	return nil
}

// LookupNode returns the local index of node gid in dictionary d.
// The result is only valid after RebuildNodeIndex.
func (m *Mesh) LookupNode(d DictIdx, gid uint64) (int, bool) {
	i, ok := m.dicts[d].glbToLoc[gid]
	return i, ok
}

// RebuildElementIndex rebuilds the global id to local index map of group e.
func (m *Mesh) RebuildElementIndex(e EntitiesIdx) error {
	ent := m.entities[e]
	idx, err := buildIndex(ent.GlobalIDs, "entities "+ent.Name)
	if err != nil {
		return err
	}
	ent.glbToLoc = idx
	return nil
}

// RebuildElementIndexes rebuilds the maps of every element group.
func (m *Mesh) RebuildElementIndexes() error {
	for e := range m.entities {
		if err := m.RebuildElementIndex(EntitiesIdx(e)); err != nil {
			return err
		}
	}
	return nil
}

// LookupElement returns the local index of element gid in group e.
// The result is only valid after RebuildElementIndex.
func (m *Mesh) LookupElement(e EntitiesIdx, gid uint64) (int, bool) {
	i, ok := m.entities[e].glbToLoc[gid]
	return i, ok
}

func buildIndex(gids *Table[uint64], what string) (map[uint64]int, error) {
	idx := make(map[uint64]int, gids.Len())
	for i, gid := range gids.Data() {
		if prev, ok := idx[gid]; ok {
			return nil, fmt.Errorf("%w: global id %d at %d and %d in %s", ErrDuplicate, gid, prev, i, what)
		}
		idx[gid] = i
	}
	return idx, nil
}

// ConnectivityToGlobal rewrites every connectivity entry from local node
// index to node global id.
func (m *Mesh) ConnectivityToGlobal() error {
	if m.globalConn {
		return nil
	}
	if err := m.checkLocalConnectivity(); err != nil {
		return err
	}
	for _, ent := range m.entities {
		for _, s := range ent.Spaces {
			gids := m.dicts[s.Dict].GlobalIDs
			data := s.Connectivity.Data()
			for k, v := range data {
				data[k] = gids.At(int(v))
			}
		}
	}
	m.globalConn = true
	return nil
}

// ConnectivityToLocal rewrites every connectivity entry from node global id
// to local index. Node indexes are rebuilt first.
func (m *Mesh) ConnectivityToLocal() error {
	if !m.globalConn {
		return nil
	}
	if err := m.RebuildNodeIndexes(); err != nil {
		return err
	}
	// Resolve everything before writing so a failure leaves the mesh unchanged.
	resolved := make([][][]uint64, len(m.entities))
	for e, ent := range m.entities {
		resolved[e] = make([][]uint64, len(ent.Spaces))
		for si, s := range ent.Spaces {
			data := s.Connectivity.Data()
			out := make([]uint64, len(data))
			for k, gid := range data {
				i, ok := m.LookupNode(s.Dict, gid)
				if !ok {
					return fmt.Errorf("%w: entities %q element %d references node %d missing from dictionary %q",
						ErrNotFound, ent.Name, k/s.Connectivity.Width(), gid, m.dicts[s.Dict].Name)
				}
				out[k] = uint64(i)
			}
			resolved[e][si] = out
		}
	}
	for e, ent := range m.entities {
		for si, s := range ent.Spaces {
			s.Connectivity.Replace(resolved[e][si])
		}
	}
	m.globalConn = false
	return nil
}

// SetGlobalConnectivity declares the connectivity representation without
// rewriting tables, for meshes built directly in global ids.
func (m *Mesh) SetGlobalConnectivity(global bool) { m.globalConn = global }

// RebuildNodeElements rebuilds the node to element connectivity of every
// dictionary. Connectivity must be local.
func (m *Mesh) RebuildNodeElements() error {
	if m.globalConn {
		return fmt.Errorf("%w: node-element connectivity needs local indices", ErrConnectivityMode)
	}
	if err := m.checkLocalConnectivity(); err != nil {
		return err
	}
	for d := range m.dicts {
		m.nodeElems[d] = make([][]ElemRef, m.dicts[d].Size())
	}
	for e, ent := range m.entities {
		for _, s := range ent.Spaces {
			ne := m.nodeElems[s.Dict]
			for i := 0; i < s.Connectivity.Len(); i++ {
				for _, v := range s.Connectivity.Row(i) {
					refs := ne[v]
					// Elements may list a node twice (degenerate shapes).
					if n := len(refs); n > 0 && refs[n-1] == (ElemRef{EntitiesIdx(e), i}) {
						continue
					}
					ne[v] = append(refs, ElemRef{EntitiesIdx(e), i})
				}
			}
		}
	}
	return nil
}

// NodeElements returns the elements referencing node i of dictionary d.
// The result is only valid after RebuildNodeElements.
func (m *Mesh) NodeElements(d DictIdx, i int) []ElemRef {
	ne := m.nodeElems[d]
	if i < 0 || i >= len(ne) {
		return nil
	}
	return ne[i]
}

func (m *Mesh) checkLocalConnectivity() error {
	for _, ent := range m.entities {
		for _, s := range ent.Spaces {
			n := uint64(m.dicts[s.Dict].Size())
			for k, v := range s.Connectivity.Data() {
				if v >= n {
					return fmt.Errorf("%w: entities %q element %d references node %d, dictionary %q has %d nodes",
						ErrInvalidStructure, ent.Name, k/s.Connectivity.Width(), v, m.dicts[s.Dict].Name, n)
				}
			}
		}
	}
	return nil
}

// Validate checks that the tables of every collection agree in size and, in
// local mode, that connectivity entries are in range.
func (m *Mesh) Validate() error {
	for _, d := range m.dicts {
		if d.Ranks.Len() != d.Size() {
			return fmt.Errorf("%w: dictionary %q has %d ranks for %d nodes", ErrInvalidStructure, d.Name, d.Ranks.Len(), d.Size())
		}
		for _, f := range d.Fields {
			if got := m.fields[f].Len(); got != d.Size() {
				return fmt.Errorf("%w: field %q has %d rows for %d nodes", ErrInvalidStructure, m.fields[f].Name, got, d.Size())
			}
		}
	}
	for _, e := range m.entities {
		if e.Ranks.Len() != e.Size() {
			return fmt.Errorf("%w: entities %q has %d ranks for %d elements", ErrInvalidStructure, e.Name, e.Ranks.Len(), e.Size())
		}
		for _, s := range e.Spaces {
			if got := s.Connectivity.Len(); got != e.Size() {
				return fmt.Errorf("%w: entities %q space on %q has %d rows for %d elements",
					ErrInvalidStructure, e.Name, m.dicts[s.Dict].Name, got, e.Size())
			}
		}
	}
	if !m.globalConn {
		return m.checkLocalConnectivity()
	}
	return nil
}
