// Package isosurface extracts triangle meshes from voxel grids with the
// marching cubes algorithm.
//
// Grid axes map to mesh axes as x = width (column), y = height (row) and
// z = depth (slice). Vertex coordinates are voxel indices multiplied by the
// configured spacing.
package isosurface

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"nodulemesh/internal/models"
	"nodulemesh/pkg/mesh"
	"nodulemesh/pkg/volume"
)

// Options controls surface extraction
type Options struct {
	// IsoValue separates foreground (value >= IsoValue) from background
	IsoValue float64
	// ComputeNormals fills per-vertex normals on the result
	ComputeNormals bool
	// CloseBoundary surrounds the grid with background so that foreground
	// touching the grid edge still yields a closed surface
	CloseBoundary bool
	// Spacing scales vertex coordinates; the zero value means unit spacing
	Spacing models.Spacing
}

// DefaultOptions returns options suited to binary 0/1 volumes
func DefaultOptions() Options {
	return Options{
		IsoValue:       0.5,
		ComputeNormals: true,
		Spacing:        models.UnitSpacing,
	}
}

// Extract runs marching cubes over every cell of eight neighbouring voxels
// and returns an indexed mesh. Vertices on a shared cell edge are emitted
// once. Grids without any surface crossing produce an empty mesh.
func Extract(vol *models.Volume, opts Options) (*mesh.Mesh, error) {
	if vol == nil {
		return nil, errors.New("nil volume")
	}
	if vol.Width < 0 || vol.Height < 0 || vol.Depth < 0 || len(vol.Data) != vol.Width*vol.Height*vol.Depth {
		return nil, fmt.Errorf("volume data length %d does not match shape %v", len(vol.Data), vol.Shape())
	}
	if math.IsNaN(opts.IsoValue) || math.IsInf(opts.IsoValue, 0) {
		return nil, fmt.Errorf("invalid iso value %v", opts.IsoValue)
	}
	spacing := opts.Spacing
	if spacing == (models.Spacing{}) {
		spacing = models.UnitSpacing
	}
	if spacing.X <= 0 || spacing.Y <= 0 || spacing.Z <= 0 {
		return nil, fmt.Errorf("spacing must be positive, got %+v", spacing)
	}

	src, shift := vol, 0.0
	if opts.CloseBoundary {
		src, shift = volume.Pad(vol, 1), -1
	}

	x := &extractor{
		vol:     src,
		iso:     opts.IsoValue,
		shift:   shift,
		spacing: spacing,
		cache:   make(map[int]int),
		m:       &mesh.Mesh{},
	}
	x.run()

	if opts.ComputeNormals && len(x.m.Faces) > 0 {
		x.m.ComputeNormals()
	}
	return x.m, nil
}

type extractor struct {
	vol     *models.Volume
	iso     float64
	shift   float64
	spacing models.Spacing
	// cache maps voxel index*3+axis of an edge's lower corner to a vertex
	cache map[int]int
	m     *mesh.Mesh
}

func (x *extractor) run() {
	w, h, d := x.vol.Width, x.vol.Height, x.vol.Depth
	var values [8]float64
	var slots [maxSlots]int

	for k := 0; k+1 < d; k++ {
		for j := 0; j+1 < h; j++ {
			for i := 0; i+1 < w; i++ {
				var c uint8
				for n, o := range cornerOffsets {
					values[n] = x.vol.Data[x.vol.Index(i+o[0], j+o[1], k+o[2])]
					if values[n] >= x.iso {
						c |= 1 << uint(n)
					}
				}
				mask := edgeTable[c]
				if mask == 0 {
					continue
				}

				for e := 0; e < 12; e++ {
					if mask&(1<<uint(e)) != 0 {
						slots[e] = x.vertex(i, j, k, e, &values)
					}
				}
				for n, loop := range centreTable[c] {
					slots[12+n] = x.centre(loop, &slots)
				}
				for _, t := range triTable[c] {
					x.m.Faces = append(x.m.Faces, [3]int{slots[t[0]], slots[t[1]], slots[t[2]]})
				}
			}
		}
	}
}

// vertex returns the index of the interpolated vertex on edge e of the
// cell whose lowest corner is (i, j, k), creating it on first use
func (x *extractor) vertex(i, j, k, e int, values *[8]float64) int {
	a, b := edgeCorners[e][0], edgeCorners[e][1]
	o := cornerOffsets[a]
	key := x.vol.Index(i+o[0], j+o[1], k+o[2])*3 + edgeAxis[e]
	if id, ok := x.cache[key]; ok {
		return id
	}

	va, vb := values[a], values[b]
	t := 0.5
	if vb != va {
		t = (x.iso - va) / (vb - va)
	}
	p := [3]float64{float64(i + o[0]), float64(j + o[1]), float64(k + o[2])}
	p[edgeAxis[e]] += t

	v := r3.Vec{
		X: (p[0] + x.shift) * x.spacing.X,
		Y: (p[1] + x.shift) * x.spacing.Y,
		Z: (p[2] + x.shift) * x.spacing.Z,
	}
	id := len(x.m.Vertices)
	x.m.Vertices = append(x.m.Vertices, v)
	x.cache[key] = id
	return id
}

// centre adds a vertex at the mean of the edge vertices of loop. Centre
// vertices belong to a single cell and are never shared.
func (x *extractor) centre(loop []int, slots *[maxSlots]int) int {
	var sum r3.Vec
	for _, e := range loop {
		sum = r3.Add(sum, x.m.Vertices[slots[e]])
	}
	id := len(x.m.Vertices)
	x.m.Vertices = append(x.m.Vertices, r3.Scale(1/float64(len(loop)), sum))
	return id
}
