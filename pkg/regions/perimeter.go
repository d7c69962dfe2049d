package regions

import "math"

// perimeterWeights maps a boundary neighbourhood code to its contribution.
// The code of a pixel is 1 for itself, 2 per boundary pixel among its four
// direct neighbours and 10 per boundary pixel on a diagonal, counted only
// for boundary pixels. Straight runs weigh 1, diagonal steps √2 and corners
// between the two (1+√2)/2.
var perimeterWeights = func() [50]float64 {
	var w [50]float64
	for _, c := range []int{5, 7, 15, 17, 25, 27} {
		w[c] = 1
	}
	for _, c := range []int{21, 33} {
		w[c] = math.Sqrt2
	}
	for _, c := range []int{13, 23} {
		w[c] = (1 + math.Sqrt2) / 2
	}
	return w
}()

// perimeter estimates the boundary length of the foreground in a w×h
// image. Boundary pixels are foreground pixels with at least one
// background 4-neighbour, where outside the image counts as background.
func perimeter(img []uint8, w, h int) float64 {
	at := func(src []uint8, x, y int) uint8 {
		if x < 0 || y < 0 || x >= w || y >= h {
			return 0
		}
		return src[y*w+x]
	}

	border := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if img[y*w+x] == 0 {
				continue
			}
			inner := at(img, x-1, y) != 0 && at(img, x+1, y) != 0 &&
				at(img, x, y-1) != 0 && at(img, x, y+1) != 0
			if !inner {
				border[y*w+x] = 1
			}
		}
	}

	var total float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			code := int(at(border, x, y)) +
				2*int(at(border, x-1, y)+at(border, x+1, y)+at(border, x, y-1)+at(border, x, y+1)) +
				10*int(at(border, x-1, y-1)+at(border, x+1, y-1)+at(border, x-1, y+1)+at(border, x+1, y+1))
			total += perimeterWeights[code]
		}
	}
	return total
}
