package mesh

import "gonum.org/v1/gonum/spatial/r3"

// Smooth returns a copy of m relaxed by Laplacian smoothing. Every
// iteration moves each vertex toward the centroid of its edge-connected
// neighbours by relaxation times the offset, reading positions from the
// previous iteration only. Boundary and feature vertices move like any
// other. The iteration count is fixed; there is no convergence test, so
// Smooth(Smooth(m, a, r), b, r) equals Smooth(m, a+b, r).
//
// Faces are copied unchanged. Normals are recomputed if m carried them.
func Smooth(m *Mesh, iterations int, relaxation float64) *Mesh {
	out := m.Clone()
	if iterations <= 0 || len(m.Vertices) == 0 {
		return out
	}

	neighbors := m.Neighbors()
	cur := out.Vertices
	next := make([]r3.Vec, len(cur))

	for it := 0; it < iterations; it++ {
		for i, p := range cur {
			nb := neighbors[i]
			if len(nb) == 0 {
				next[i] = p
				continue
			}
			var c r3.Vec
			for _, j := range nb {
				c = r3.Add(c, cur[j])
			}
			c = r3.Scale(1/float64(len(nb)), c)
			next[i] = r3.Add(p, r3.Scale(relaxation, r3.Sub(c, p)))
		}
		cur, next = next, cur
	}

	out.Vertices = cur
	if m.Normals != nil {
		out.ComputeNormals()
	}
	return out
}
