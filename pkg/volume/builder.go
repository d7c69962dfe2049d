// Package volume stacks 2D binary masks into a 3D voxel grid.
//
// Slices are stacked in the order they are supplied. A wrongly ordered
// sequence still produces a valid grid, just a geometrically wrong one, so
// callers must put slices in anatomical order first (see Order).
package volume

import (
	"errors"
	"fmt"

	"nodulemesh/internal/models"
)

// ErrNoSlices is returned when Build receives no masks
var ErrNoSlices = errors.New("no slices to stack")

// ShapeMismatchError reports a slice whose size differs from the first one
type ShapeMismatchError struct {
	Index    int
	Filename string

	// Expected and Got are (height, width)
	Expected [2]int
	Got      [2]int
}

func (e *ShapeMismatchError) Error() string {
	name := ""
	if e.Filename != "" {
		name = fmt.Sprintf(" (%s)", e.Filename)
	}
	return fmt.Sprintf("slice %d%s has shape %dx%d, expected %dx%d",
		e.Index, name, e.Got[0], e.Got[1], e.Expected[0], e.Expected[1])
}

// Build stacks masks along the depth axis into a volume of shape
// (len(masks), height, width). All masks must share the same size; the
// first mismatch aborts with a *ShapeMismatchError before anything is
// allocated.
func Build(masks []*models.Mask) (*models.Volume, error) {
	if len(masks) == 0 {
		return nil, ErrNoSlices
	}

	width, height := masks[0].Width, masks[0].Height
	for i, m := range masks {
		if m.Width != width || m.Height != height {
			return nil, &ShapeMismatchError{
				Index:    i,
				Filename: m.Filename,
				Expected: [2]int{height, width},
				Got:      [2]int{m.Height, m.Width},
			}
		}
	}

	vol := models.NewVolume(width, height, len(masks))
	for z, m := range masks {
		dst := vol.SliceZ(z)
		for i, v := range m.Data {
			if v != 0 {
				dst[i] = 1
			}
		}
	}
	return vol, nil
}

// Pad returns a copy of vol surrounded by n voxels of background on every
// side. Voxel (x, y, z) of the input lands at (x+n, y+n, z+n).
func Pad(vol *models.Volume, n int) *models.Volume {
	if n <= 0 {
		out := models.NewVolume(vol.Width, vol.Height, vol.Depth)
		copy(out.Data, vol.Data)
		return out
	}

	out := models.NewVolume(vol.Width+2*n, vol.Height+2*n, vol.Depth+2*n)
	for z := 0; z < vol.Depth; z++ {
		for y := 0; y < vol.Height; y++ {
			src := vol.Data[vol.Index(0, y, z) : vol.Index(0, y, z)+vol.Width]
			dst := out.Index(n, y+n, z+n)
			copy(out.Data[dst:dst+vol.Width], src)
		}
	}
	return out
}
