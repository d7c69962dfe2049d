package regions

import (
	"fmt"

	"nodulemesh/internal/models"
)

// Labels is a labeled mask: every connected foreground component carries a
// unique positive label and background is 0.
type Labels struct {
	Data   []int
	Width  int
	Height int

	// Count is the number of components; labels run from 1 to Count
	Count int
}

// At returns the label at (x, y)
func (l *Labels) At(x, y int) int {
	return l.Data[y*l.Width+x]
}

var (
	offsets4 = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	offsets8 = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

// Label assigns component labels by flood fill. Components are numbered in
// raster order of their first pixel. Connectivity must be 4 or 8.
func Label(m *models.Mask, connectivity int) (*Labels, error) {
	var offsets [][2]int
	switch connectivity {
	case 4:
		offsets = offsets4
	case 8:
		offsets = offsets8
	default:
		return nil, fmt.Errorf("connectivity must be 4 or 8, got %d", connectivity)
	}

	w, h := m.Width, m.Height
	l := &Labels{
		Data:   make([]int, w*h),
		Width:  w,
		Height: h,
	}

	var queue []int
	for start, v := range m.Data {
		if v == 0 || l.Data[start] != 0 {
			continue
		}
		l.Count++
		label := l.Count
		l.Data[start] = label

		queue = append(queue[:0], start)
		for len(queue) > 0 {
			idx := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			x, y := idx%w, idx/w

			for _, off := range offsets {
				nx, ny := x+off[0], y+off[1]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				nidx := ny*w + nx
				if m.Data[nidx] != 0 && l.Data[nidx] == 0 {
					l.Data[nidx] = label
					queue = append(queue, nidx)
				}
			}
		}
	}

	return l, nil
}
