package mesh

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// tetrahedron returns the unit corner tetrahedron with outward winding
func tetrahedron() *Mesh {
	return &Mesh{
		Vertices: []r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 0, Y: 0, Z: 1}},
		Faces:    [][3]int{{0, 2, 1}, {0, 1, 3}, {0, 3, 2}, {1, 2, 3}},
	}
}

func TestTopology_Tetrahedron(t *testing.T) {
	m := tetrahedron()

	assert.Len(t, m.Edges(), 6)
	assert.Equal(t, 2, m.EulerCharacteristic())
	assert.True(t, m.IsClosed())
	assert.False(t, m.Empty())

	open := &Mesh{Vertices: m.Vertices, Faces: m.Faces[:3]}
	assert.False(t, open.IsClosed())
	assert.Equal(t, 1, open.EulerCharacteristic())

	assert.False(t, (&Mesh{}).IsClosed())
	assert.Equal(t, 0, (&Mesh{}).EulerCharacteristic())
}

func meanVertex(m *Mesh) r3.Vec {
	var c r3.Vec
	for _, v := range m.Vertices {
		c = r3.Add(c, v)
	}
	return r3.Scale(1/float64(len(m.Vertices)), c)
}

func TestMeasures_Tetrahedron(t *testing.T) {
	m := tetrahedron()

	assert.InDelta(t, 1.5+math.Sqrt(3)/2, m.SurfaceArea(), 1e-12)
	assert.InDelta(t, 1.0/6, m.EnclosedVolume(), 1e-12)

	b := m.Bounds()
	assert.Equal(t, r3.Vec{}, b.Min)
	assert.Equal(t, r3.Vec{X: 1, Y: 1, Z: 1}, b.Max)

	c := meanVertex(m)
	assert.InDelta(t, 0.25, c.X, 1e-12)
	assert.InDelta(t, 0.25, c.Y, 1e-12)
	assert.InDelta(t, 0.25, c.Z, 1e-12)
}

func TestComputeNormals_PointOutward(t *testing.T) {
	m := tetrahedron()
	m.ComputeNormals()
	require.Len(t, m.Normals, len(m.Vertices))

	centre := meanVertex(m)
	for i, n := range m.Normals {
		assert.InDelta(t, 1.0, r3.Norm(n), 1e-12)
		out := r3.Sub(m.Vertices[i], centre)
		assert.Greater(t, r3.Dot(n, out), 0.0, "normal %d points inward", i)
	}
}

func TestScale(t *testing.T) {
	m := tetrahedron()
	m.Scale(r3.Vec{X: 2, Y: 3, Z: 4})

	assert.Equal(t, r3.Vec{X: 2, Y: 3, Z: 4}, m.Bounds().Max)
	assert.InDelta(t, 24.0/6, m.EnclosedVolume(), 1e-12)
}

func TestNeighbors(t *testing.T) {
	m := &Mesh{
		Vertices: make([]r3.Vec, 5),
		Faces:    [][3]int{{0, 1, 2}, {0, 2, 3}},
	}
	want := [][]int{{1, 2, 3}, {0, 2}, {0, 1, 3}, {0, 2}, nil}
	if diff := cmp.Diff(want, m.Neighbors()); diff != "" {
		t.Errorf("Neighbors mismatch (-want +got):\n%s", diff)
	}
}

func TestSmooth_ZeroIterationsCopies(t *testing.T) {
	m := tetrahedron()
	out := Smooth(m, 0, 0.1)

	if diff := cmp.Diff(m, out); diff != "" {
		t.Errorf("Smooth(0) changed the mesh (-want +got):\n%s", diff)
	}
	out.Vertices[0].X = 9
	assert.Equal(t, 0.0, m.Vertices[0].X)
}

func TestSmooth_Associative(t *testing.T) {
	m := tetrahedron()

	twoStep := Smooth(Smooth(m, 3, 0.1), 4, 0.1)
	oneStep := Smooth(m, 7, 0.1)

	require.Len(t, twoStep.Vertices, len(oneStep.Vertices))
	for i := range oneStep.Vertices {
		d := r3.Norm(r3.Sub(oneStep.Vertices[i], twoStep.Vertices[i]))
		assert.InDelta(t, 0, d, 1e-12, "vertex %d", i)
	}
}

func TestSmooth_KeepsFacesAndInput(t *testing.T) {
	m := tetrahedron()
	before := m.Clone()

	out := Smooth(m, 10, 0.5)

	assert.Equal(t, m.Faces, out.Faces)
	if diff := cmp.Diff(before, m); diff != "" {
		t.Errorf("input mutated (-want +got):\n%s", diff)
	}
	// every vertex of a tetrahedron neighbours the other three, so the
	// shape contracts toward its centroid
	assert.Less(t, out.SurfaceArea(), m.SurfaceArea())
	c0, c1 := meanVertex(m), meanVertex(out)
	assert.InDelta(t, c0.X, c1.X, 1e-12)
}

func TestSmooth_RecomputesNormals(t *testing.T) {
	m := tetrahedron()
	m.ComputeNormals()

	out := Smooth(m, 2, 0.1)
	require.Len(t, out.Normals, len(out.Vertices))

	plain := Smooth(tetrahedron(), 2, 0.1)
	assert.Nil(t, plain.Normals)
}

func TestWeld_Soup(t *testing.T) {
	// two triangles sharing the edge (1,0,0)-(0,1,0), given as a soup
	verts := []r3.Vec{
		{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0},
		{X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0},
	}
	faces := [][3]int{{0, 1, 2}, {3, 4, 5}}

	m := Weld(verts, faces, 0)
	assert.Len(t, m.Vertices, 4)
	want := [][3]int{{0, 1, 2}, {1, 3, 2}}
	if diff := cmp.Diff(want, m.Faces); diff != "" {
		t.Errorf("faces mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, m.Edges(), 5)
}

func TestWeld_Tolerance(t *testing.T) {
	verts := []r3.Vec{
		{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0},
		{X: 1 + 1e-9, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1 - 1e-9, Z: 0},
	}
	faces := [][3]int{{0, 1, 2}, {3, 4, 5}}

	assert.Len(t, Weld(verts, faces, 0).Vertices, 6)
	assert.Len(t, Weld(verts, faces, 1e-6).Vertices, 4)
}

func TestWeld_DropsCollapsedFaces(t *testing.T) {
	verts := []r3.Vec{{X: 0}, {X: 1}, {X: 1}, {X: 0, Y: 1}}
	faces := [][3]int{{0, 1, 2}, {0, 1, 3}}

	m := Weld(verts, faces, 0)
	assert.Len(t, m.Vertices, 3)
	assert.Equal(t, [][3]int{{0, 1, 2}}, m.Faces)

	assert.Empty(t, Weld(nil, nil, 0).Faces)
}
