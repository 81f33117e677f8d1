package mesh

// Shape describes an element type: its dimension, vertex count and faces.
// Faces list local vertex numbers.
type Shape struct {
	Name  string
	Dim   int
	Nodes int
	Faces [][]int
}

var (
	Line2 = Shape{Name: "Line2", Dim: 1, Nodes: 2, Faces: [][]int{{0}, {1}}}

	Triag2D = Shape{Name: "Triag2D", Dim: 2, Nodes: 3, Faces: [][]int{{0, 1}, {1, 2}, {2, 0}}}

	Quad2D = Shape{Name: "Quad2D", Dim: 2, Nodes: 4, Faces: [][]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}}}

	Tetra3D = Shape{Name: "Tetra3D", Dim: 3, Nodes: 4, Faces: [][]int{{0, 2, 1}, {0, 1, 3}, {1, 2, 3}, {0, 3, 2}}}

	Hexa3D = Shape{Name: "Hexa3D", Dim: 3, Nodes: 8, Faces: [][]int{
		{0, 3, 2, 1}, {4, 5, 6, 7}, {0, 1, 5, 4},
		{1, 2, 6, 5}, {2, 3, 7, 6}, {3, 0, 4, 7},
	}}
)

var shapes = map[string]Shape{
	Line2.Name:   Line2,
	Triag2D.Name: Triag2D,
	Quad2D.Name:  Quad2D,
	Tetra3D.Name: Tetra3D,
	Hexa3D.Name:  Hexa3D,
}

// ShapeByName returns the built-in shape called name.
func ShapeByName(name string) (Shape, bool) {
	s, ok := shapes[name]
	return s, ok
}
