// Package mesh defines the indexed triangle mesh produced by surface
// reconstruction, together with topology checks, Laplacian smoothing and
// vertex welding.
package mesh

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mesh is a polygonal surface: vertices, triangles as vertex index
// triples, and optional per-vertex normals parallel to Vertices.
type Mesh struct {
	Vertices []r3.Vec
	Faces    [][3]int
	Normals  []r3.Vec
}

// Edge is an undirected mesh edge with A < B
type Edge struct {
	A, B int
}

func newEdge(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{A: a, B: b}
}

// Clone returns a deep copy
func (m *Mesh) Clone() *Mesh {
	out := &Mesh{
		Vertices: append([]r3.Vec(nil), m.Vertices...),
		Faces:    append([][3]int(nil), m.Faces...),
	}
	if m.Normals != nil {
		out.Normals = append([]r3.Vec(nil), m.Normals...)
	}
	return out
}

// Empty reports whether the mesh has no faces
func (m *Mesh) Empty() bool {
	return len(m.Faces) == 0
}

// FaceNormal returns the unnormalised normal of face i; its length is twice
// the triangle area
func (m *Mesh) FaceNormal(i int) r3.Vec {
	f := m.Faces[i]
	a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
	return r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
}

// ComputeNormals sets per-vertex normals to the normalised, area-weighted
// sum of the normals of the adjacent faces
func (m *Mesh) ComputeNormals() {
	normals := make([]r3.Vec, len(m.Vertices))
	for i, f := range m.Faces {
		n := m.FaceNormal(i)
		for _, v := range f {
			normals[v] = r3.Add(normals[v], n)
		}
	}
	for i, n := range normals {
		if l := r3.Norm(n); l > 0 {
			normals[i] = r3.Scale(1/l, n)
		}
	}
	m.Normals = normals
}

// EdgeFaces counts the faces using each undirected edge
func (m *Mesh) EdgeFaces() map[Edge]int {
	counts := make(map[Edge]int, len(m.Faces)*3/2)
	for _, f := range m.Faces {
		counts[newEdge(f[0], f[1])]++
		counts[newEdge(f[1], f[2])]++
		counts[newEdge(f[2], f[0])]++
	}
	return counts
}

// Edges returns the unique undirected edges in a stable order
func (m *Mesh) Edges() []Edge {
	counts := m.EdgeFaces()
	edges := make([]Edge, 0, len(counts))
	for e := range counts {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].A != edges[j].A {
			return edges[i].A < edges[j].A
		}
		return edges[i].B < edges[j].B
	})
	return edges
}

// EulerCharacteristic returns V - E + F counting only vertices used by a face
func (m *Mesh) EulerCharacteristic() int {
	used := make(map[int]struct{}, len(m.Vertices))
	for _, f := range m.Faces {
		for _, v := range f {
			used[v] = struct{}{}
		}
	}
	return len(used) - len(m.EdgeFaces()) + len(m.Faces)
}

// IsClosed reports whether every edge is shared by exactly two faces
func (m *Mesh) IsClosed() bool {
	if len(m.Faces) == 0 {
		return false
	}
	for _, n := range m.EdgeFaces() {
		if n != 2 {
			return false
		}
	}
	return true
}

// Neighbors returns the sorted edge-connected neighbours of every vertex
func (m *Mesh) Neighbors() [][]int {
	sets := make([]map[int]struct{}, len(m.Vertices))
	link := func(a, b int) {
		if sets[a] == nil {
			sets[a] = make(map[int]struct{})
		}
		sets[a][b] = struct{}{}
	}
	for _, f := range m.Faces {
		for k := 0; k < 3; k++ {
			a, b := f[k], f[(k+1)%3]
			link(a, b)
			link(b, a)
		}
	}

	out := make([][]int, len(m.Vertices))
	for i, s := range sets {
		if len(s) == 0 {
			continue
		}
		nb := make([]int, 0, len(s))
		for j := range s {
			nb = append(nb, j)
		}
		sort.Ints(nb)
		out[i] = nb
	}
	return out
}

// Bounds returns the axis-aligned bounding box of the vertices
func (m *Mesh) Bounds() r3.Box {
	if len(m.Vertices) == 0 {
		return r3.Box{}
	}
	xs := make([]float64, len(m.Vertices))
	ys := make([]float64, len(m.Vertices))
	zs := make([]float64, len(m.Vertices))
	for i, v := range m.Vertices {
		xs[i], ys[i], zs[i] = v.X, v.Y, v.Z
	}
	return r3.Box{
		Min: r3.Vec{X: floats.Min(xs), Y: floats.Min(ys), Z: floats.Min(zs)},
		Max: r3.Vec{X: floats.Max(xs), Y: floats.Max(ys), Z: floats.Max(zs)},
	}
}

// SurfaceArea returns the total triangle area
func (m *Mesh) SurfaceArea() float64 {
	areas := make([]float64, len(m.Faces))
	for i := range m.Faces {
		areas[i] = r3.Norm(m.FaceNormal(i)) / 2
	}
	return floats.Sum(areas)
}

// EnclosedVolume returns the signed volume enclosed by a closed,
// consistently wound mesh. Outward-facing triangles give a positive value.
func (m *Mesh) EnclosedVolume() float64 {
	vols := make([]float64, len(m.Faces))
	for i, f := range m.Faces {
		a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		vols[i] = r3.Dot(a, r3.Cross(b, c)) / 6
	}
	return floats.Sum(vols)
}

// Scale multiplies every vertex coordinate per axis in place. Normals are
// recomputed when present, since non-uniform scaling changes them.
func (m *Mesh) Scale(s r3.Vec) {
	for i, v := range m.Vertices {
		m.Vertices[i] = r3.Vec{X: v.X * s.X, Y: v.Y * s.Y, Z: v.Z * s.Z}
	}
	if m.Normals != nil {
		m.ComputeNormals()
	}
}
