package regions

import "nodulemesh/internal/models"

// Dilate grows the foreground with a size×size square structuring element.
// Pixels outside the mask count as background.
func Dilate(m *models.Mask, size int) *models.Mask {
	lo, hi := reach(size)
	// dilation reflects the element
	return squareFilter(m, hi, lo, false, 0)
}

// Erode shrinks the foreground with a size×size square structuring element.
// Pixels outside the mask count as foreground, so objects touching the
// border are not eaten away from outside.
func Erode(m *models.Mask, size int) *models.Mask {
	lo, hi := reach(size)
	return squareFilter(m, lo, hi, true, 1)
}

// Close fills holes and gaps narrower than the structuring element:
// a dilation followed by an erosion with the same square. The input is
// not modified and the result always contains the input foreground.
func Close(m *models.Mask, size int) *models.Mask {
	if size <= 1 {
		return m.Clone()
	}
	return Erode(Dilate(m, size), size)
}

// reach returns how far a square of the given size extends before and
// after its origin. The origin sits at size/2.
func reach(size int) (before, after int) {
	if size < 1 {
		size = 1
	}
	before = size / 2
	after = size - 1 - before
	return before, after
}

// squareFilter applies a separable min (all=true) or max filter over the
// window [i-before, i+after] along rows and then columns.
func squareFilter(m *models.Mask, before, after int, all bool, border uint8) *models.Mask {
	w, h := m.Width, m.Height
	tmp := make([]uint8, w*h)
	out := models.NewMask(w, h)
	out.Filename = m.Filename

	line := make([]uint8, max(w, h))
	res := make([]uint8, max(w, h))
	prefix := make([]int, max(w, h)+1)

	for y := 0; y < h; y++ {
		filterLine(m.Data[y*w:(y+1)*w], tmp[y*w:(y+1)*w], prefix, before, after, all, border)
	}
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			line[y] = tmp[y*w+x]
		}
		filterLine(line[:h], res[:h], prefix, before, after, all, border)
		for y := 0; y < h; y++ {
			out.Data[y*w+x] = res[y]
		}
	}
	return out
}

func filterLine(in, out []uint8, prefix []int, before, after int, all bool, border uint8) {
	n := len(in)
	prefix[0] = 0
	for i, v := range in {
		prefix[i+1] = prefix[i]
		if v != 0 {
			prefix[i+1]++
		}
	}

	window := before + after + 1
	for i := 0; i < n; i++ {
		lo := max(0, i-before)
		hi := min(n-1, i+after)
		count := prefix[hi+1] - prefix[lo]
		if border != 0 {
			count += window - (hi - lo + 1)
		}

		var on bool
		if all {
			on = count == window
		} else {
			on = count > 0
		}
		if on {
			out[i] = 1
		} else {
			out[i] = 0
		}
	}
}
