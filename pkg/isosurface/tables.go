package isosurface

import "gonum.org/v1/gonum/spatial/r3"

// Cube corners, numbered
//
//	c0 (0,0,0)  c1 (1,0,0)  c2 (1,1,0)  c3 (0,1,0)
//	c4 (0,0,1)  c5 (1,0,1)  c6 (1,1,1)  c7 (0,1,1)
var cornerOffsets = [8][3]int{
	{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
}

// Cube edges as corner pairs; the first corner is always the lower one
var edgeCorners = [12][2]int{
	{0, 1}, {1, 2}, {3, 2}, {0, 3},
	{4, 5}, {5, 6}, {7, 6}, {4, 7},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// Cube faces as corner cycles
var cubeFaces = [6][4]int{
	{0, 1, 2, 3}, {4, 5, 6, 7},
	{0, 1, 5, 4}, {3, 2, 6, 7},
	{0, 3, 7, 4}, {1, 2, 6, 5},
}

var (
	// edgeTable[c] has bit e set when edge e crosses the surface in case c
	edgeTable [256]uint16
	// triTable[c] lists the triangles of case c as vertex slot triples.
	// Slots 0-11 are edge vertices, slot 12+k is the centre of
	// centreTable[c][k].
	triTable [256][][3]int
	// centreTable[c] lists the loops of case c that are triangulated around
	// an extra centre vertex
	centreTable [256][][]int
	// edgeAxis is the axis (0 x, 1 y, 2 z) along which each edge runs
	edgeAxis [12]int
	// edgeFaces has bit f set when edge e lies on cubeFaces[f]
	edgeFaces [12]uint8
)

// maxSlots bounds the vertex slots a single case can reference
const maxSlots = 16

func init() {
	for e, c := range edgeCorners {
		a, b := cornerOffsets[c[0]], cornerOffsets[c[1]]
		for axis := 0; axis < 3; axis++ {
			if a[axis] != b[axis] {
				edgeAxis[e] = axis
			}
		}
	}
	for f, q := range cubeFaces {
		for i := 0; i < 4; i++ {
			edgeFaces[edgeBetween(q[i], q[(i+1)%4])] |= 1 << uint(f)
		}
	}
	for c := 0; c < 256; c++ {
		edgeTable[c], triTable[c], centreTable[c] = buildCase(uint8(c))
	}
}

// edgeBetween returns the edge joining corners a and b
func edgeBetween(a, b int) int {
	for e, c := range edgeCorners {
		if (c[0] == a && c[1] == b) || (c[0] == b && c[1] == a) {
			return e
		}
	}
	panic("corners are not adjacent")
}

// buildCase derives the crossing edges and triangles for one corner
// classification. Each cube face contributes contour segments between its
// crossing edges; a face with four crossings pairs the edges around each
// inside corner. Segments from all faces join into closed loops, each loop
// is wound so its normal points from inside toward outside corners, and
// then fanned into triangles.
func buildCase(c uint8) (uint16, [][3]int, [][]int) {
	inside := func(k int) bool { return c>>uint(k)&1 == 1 }

	var mask uint16
	for e, ec := range edgeCorners {
		if inside(ec[0]) != inside(ec[1]) {
			mask |= 1 << uint(e)
		}
	}
	if mask == 0 {
		return 0, nil, nil
	}

	var links [12][]int
	connect := func(a, b int) {
		links[a] = append(links[a], b)
		links[b] = append(links[b], a)
	}

	for _, q := range cubeFaces {
		var fe [4]int
		var crossing []int
		for i := 0; i < 4; i++ {
			fe[i] = edgeBetween(q[i], q[(i+1)%4])
			if inside(q[i]) != inside(q[(i+1)%4]) {
				crossing = append(crossing, i)
			}
		}
		switch len(crossing) {
		case 2:
			connect(fe[crossing[0]], fe[crossing[1]])
		case 4:
			for k := 0; k < 4; k++ {
				if inside(q[k]) {
					connect(fe[(k+3)%4], fe[k])
				}
			}
		}
	}

	var tris [][3]int
	var centres [][]int
	var visited [12]bool
	for start := 0; start < 12; start++ {
		if mask&(1<<uint(start)) == 0 || visited[start] {
			continue
		}

		loop := []int{start}
		visited[start] = true
		prev, cur := -1, start
		for {
			next := links[cur][0]
			if next == prev {
				next = links[cur][1]
			}
			if next == start {
				break
			}
			loop = append(loop, next)
			visited[next] = true
			prev, cur = cur, next
		}

		orient(loop, inside)
		n := len(loop)
		if s := fanApex(loop); s >= 0 {
			for i := 1; i+1 < n; i++ {
				tris = append(tris, [3]int{loop[s], loop[(s+i)%n], loop[(s+i+1)%n]})
			}
			continue
		}
		slot := 12 + len(centres)
		centres = append(centres, loop)
		for i := range loop {
			tris = append(tris, [3]int{slot, loop[i], loop[(i+1)%n]})
		}
	}
	return mask, tris, centres
}

// fanApex returns the position in loop of a vertex that can be fanned from
// without any diagonal lying in a cube face, or -1 if there is none. A
// diagonal on a face would also be produced by the neighbouring cell.
func fanApex(loop []int) int {
	n := len(loop)
	for s := range loop {
		ok := true
		for i := 2; i+1 < n && ok; i++ {
			if edgeFaces[loop[s]]&edgeFaces[loop[(s+i)%n]] != 0 {
				ok = false
			}
		}
		if ok {
			return s
		}
	}
	return -1
}

// orient reverses loop in place when its normal points toward the inside
func orient(loop []int, inside func(int) bool) {
	var normal, outward r3.Vec
	for i, e := range loop {
		p := edgeMidpoint(e)
		q := edgeMidpoint(loop[(i+1)%len(loop)])
		normal = r3.Add(normal, r3.Cross(p, q))

		a, b := edgeCorners[e][0], edgeCorners[e][1]
		if inside(b) {
			a, b = b, a
		}
		outward = r3.Add(outward, r3.Sub(cornerVec(b), cornerVec(a)))
	}
	if r3.Dot(normal, outward) < 0 {
		for i, j := 0, len(loop)-1; i < j; i, j = i+1, j-1 {
			loop[i], loop[j] = loop[j], loop[i]
		}
	}
}

func cornerVec(k int) r3.Vec {
	o := cornerOffsets[k]
	return r3.Vec{X: float64(o[0]), Y: float64(o[1]), Z: float64(o[2])}
}

func edgeMidpoint(e int) r3.Vec {
	return r3.Scale(0.5, r3.Add(cornerVec(edgeCorners[e][0]), cornerVec(edgeCorners[e][1])))
}
