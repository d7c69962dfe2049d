package models

import (
	"fmt"
	"image"
)

// Mask represents a single 2D binary segmentation mask with metadata
type Mask struct {
	// Data holds one value per pixel in row-major order, 0 for background
	// and 1 for foreground
	Data []uint8

	// Width and Height are the mask dimensions in pixels
	Width  int
	Height int

	// Filename is the file the mask was loaded from, if any
	Filename string
}

// NewMask allocates an empty mask of the given size
func NewMask(width, height int) *Mask {
	return &Mask{
		Data:   make([]uint8, width*height),
		Width:  width,
		Height: height,
	}
}

// MaskFromRows builds a mask from a slice of rows. Any nonzero value is
// treated as foreground. All rows must have the same length.
func MaskFromRows(rows [][]uint8) (*Mask, error) {
	if len(rows) == 0 {
		return NewMask(0, 0), nil
	}
	width := len(rows[0])
	m := NewMask(width, len(rows))
	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", y, len(row), width)
		}
		for x, v := range row {
			if v != 0 {
				m.Data[y*width+x] = 1
			}
		}
	}
	return m, nil
}

// At reports whether the pixel at (x, y) is foreground. Pixels outside
// the mask are background.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Data[y*m.Width+x] != 0
}

// Set marks the pixel at (x, y) as foreground or background
func (m *Mask) Set(x, y int, on bool) {
	if on {
		m.Data[y*m.Width+x] = 1
	} else {
		m.Data[y*m.Width+x] = 0
	}
}

// Count returns the number of foreground pixels
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Data {
		if v != 0 {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the mask
func (m *Mask) Clone() *Mask {
	c := &Mask{
		Data:     make([]uint8, len(m.Data)),
		Width:    m.Width,
		Height:   m.Height,
		Filename: m.Filename,
	}
	copy(c.Data, m.Data)
	return c
}

// Bounds returns the mask rectangle in image coordinates
func (m *Mask) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}
