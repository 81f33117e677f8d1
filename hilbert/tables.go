package hilbert

// Vertex labels follow the Gray code order of the unit cell corners; bit k of a
// vertex (from the highest) selects min or max along axis k. subcells[q][i] is
// the label of the parent corner that, averaged with corner q, gives corner i
// of sub-cell q.

var vertices1 = [][]int{{0}, {1}}

var subcells1 = [][]int{
	{0, 1},
	{0, 1},
}

var vertices2 = [][]int{{0, 0}, {0, 1}, {1, 1}, {1, 0}}

var subcells2 = [][]int{
	{0, 3, 2, 1},
	{0, 1, 2, 3},
	{0, 1, 2, 3},
	{2, 1, 0, 3},
}

var vertices3 = [][]int{
	{0, 0, 0}, {0, 0, 1}, {0, 1, 1}, {0, 1, 0},
	{1, 1, 0}, {1, 1, 1}, {1, 0, 1}, {1, 0, 0},
}

var subcells3 = [][]int{
	{0, 3, 4, 7, 6, 5, 2, 1},
	{0, 1, 6, 7, 4, 5, 2, 3},
	{0, 1, 2, 3, 4, 5, 6, 7},
	{6, 7, 0, 1, 2, 3, 4, 5},
	{2, 3, 0, 1, 6, 7, 4, 5},
	{4, 5, 2, 3, 0, 1, 6, 7},
	{4, 5, 2, 3, 0, 1, 6, 7},
	{6, 5, 2, 1, 0, 3, 4, 7},
}

func tables(dim int) (vertices, subcells [][]int) {
	switch dim {
	case 1:
		return vertices1, subcells1
	case 2:
		return vertices2, subcells2
	case 3:
		return vertices3, subcells3
	}
	return nil, nil
}
