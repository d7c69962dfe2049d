package models

// Spacing is the physical size of a voxel along each axis
type Spacing struct {
	X, Y, Z float64
}

// UnitSpacing is one unit per voxel along every axis
var UnitSpacing = Spacing{X: 1, Y: 1, Z: 1}

// Volume represents a 3D voxel grid stacked from 2D masks
type Volume struct {
	// Data is the 3D volume data as a 1D array in row-major order:
	// index = z*Width*Height + y*Width + x
	Data []float64

	// Width is the width of the volume in voxels (x axis)
	Width int

	// Height is the height of the volume in voxels (y axis)
	Height int

	// Depth is the number of stacked slices (z axis)
	Depth int
}

// NewVolume allocates a zero-filled volume
func NewVolume(width, height, depth int) *Volume {
	return &Volume{
		Data:   make([]float64, width*height*depth),
		Width:  width,
		Height: height,
		Depth:  depth,
	}
}

// Index returns the flat index of voxel (x, y, z)
func (v *Volume) Index(x, y, z int) int {
	return z*v.Width*v.Height + y*v.Width + x
}

// At returns the value of voxel (x, y, z). Voxels outside the grid read as 0.
func (v *Volume) At(x, y, z int) float64 {
	if x < 0 || y < 0 || z < 0 || x >= v.Width || y >= v.Height || z >= v.Depth {
		return 0
	}
	return v.Data[v.Index(x, y, z)]
}

// Set stores a value at voxel (x, y, z)
func (v *Volume) Set(x, y, z int, value float64) {
	v.Data[v.Index(x, y, z)] = value
}

// Shape returns the grid dimensions in (depth, height, width) order
func (v *Volume) Shape() [3]int {
	return [3]int{v.Depth, v.Height, v.Width}
}

// SliceZ returns the values of slice z as a row-major view into Data
func (v *Volume) SliceZ(z int) []float64 {
	size := v.Width * v.Height
	return v.Data[z*size : (z+1)*size]
}
