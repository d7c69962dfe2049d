package mesh

import (
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// vertexPoint is a mesh vertex stored in the k-d tree
type vertexPoint struct {
	r3.Vec
	index int
}

// Compare implements the kdtree.Comparable interface
func (p vertexPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(vertexPoint)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	case 2:
		return p.Z - q.Z
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the KD-tree
func (p vertexPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between two points
func (p vertexPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(vertexPoint)
	d := r3.Sub(p.Vec, q.Vec)
	return r3.Dot(d, d)
}

// vertexPoints is a collection of vertexPoint that satisfies kdtree.Interface
type vertexPoints []vertexPoint

func (p vertexPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p vertexPoints) Len() int                              { return len(p) }
func (p vertexPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements the kdtree.Interface method
func (p vertexPoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(vertexPlane{vertexPoints: p, Dim: d}, kdtree.MedianOfRandoms(vertexPlane{vertexPoints: p, Dim: d}, 100))
}

// vertexPlane implements sort.Interface and kdtree.SortSlicer for vertexPoints
type vertexPlane struct {
	vertexPoints
	kdtree.Dim
}

func (p vertexPlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.vertexPoints[i].X < p.vertexPoints[j].X
	case 1:
		return p.vertexPoints[i].Y < p.vertexPoints[j].Y
	case 2:
		return p.vertexPoints[i].Z < p.vertexPoints[j].Z
	default:
		panic("illegal dimension")
	}
}

func (p vertexPlane) Slice(start, end int) kdtree.SortSlicer {
	return vertexPlane{vertexPoints: p.vertexPoints[start:end], Dim: p.Dim}
}

func (p vertexPlane) Swap(i, j int) {
	p.vertexPoints[i], p.vertexPoints[j] = p.vertexPoints[j], p.vertexPoints[i]
}

// Weld builds an indexed mesh from vertices and faces, merging vertices
// that lie within tolerance of an earlier vertex. Faces that collapse
// onto fewer than three distinct vertices are dropped. A triangle soup
// (three fresh vertices per face) becomes a shared-vertex mesh.
func Weld(vertices []r3.Vec, faces [][3]int, tolerance float64) *Mesh {
	out := &Mesh{}
	if len(vertices) == 0 {
		return out
	}

	pts := make(vertexPoints, len(vertices))
	for i, v := range vertices {
		pts[i] = vertexPoint{Vec: v, index: i}
	}
	tree := kdtree.New(pts, false)

	remap := make([]int, len(vertices))
	for i := range remap {
		remap[i] = -1
	}
	maxDist := tolerance * tolerance

	for i, v := range vertices {
		if remap[i] >= 0 {
			continue
		}
		id := len(out.Vertices)
		out.Vertices = append(out.Vertices, v)
		remap[i] = id

		keeper := kdtree.NewDistKeeper(maxDist)
		tree.NearestSet(keeper, vertexPoint{Vec: v, index: -1})
		for _, cd := range keeper.Heap {
			if cd.Comparable == nil {
				continue
			}
			j := cd.Comparable.(vertexPoint).index
			if remap[j] < 0 {
				remap[j] = id
			}
		}
	}

	out.Faces = make([][3]int, 0, len(faces))
	for _, f := range faces {
		g := [3]int{remap[f[0]], remap[f[1]], remap[f[2]]}
		if g[0] == g[1] || g[1] == g[2] || g[0] == g[2] {
			continue
		}
		out.Faces = append(out.Faces, g)
	}
	return out
}
