package regions

import (
	"image"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
)

// ConvexHull returns the convex hull of points in counter-clockwise order
// using Andrew's monotone chain. Duplicate and collinear points are dropped.
func ConvexHull(points []r2.Vec) []r2.Vec {
	pts := append([]r2.Vec(nil), points...)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})

	uniq := pts[:0]
	for i, p := range pts {
		if i == 0 || p != pts[i-1] {
			uniq = append(uniq, p)
		}
	}
	pts = uniq
	if len(pts) < 3 {
		return pts
	}

	hull := make([]r2.Vec, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && turn(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && turn(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// turn is positive when a, b, c make a counter-clockwise turn
func turn(a, b, c r2.Vec) float64 {
	return r2.Cross(r2.Sub(b, a), r2.Sub(c, a))
}

// PolygonArea returns the unsigned area enclosed by a simple polygon
func PolygonArea(poly []r2.Vec) float64 {
	if len(poly) < 3 {
		return 0
	}
	var sum float64
	for i, p := range poly {
		q := poly[(i+1)%len(poly)]
		sum += r2.Cross(p, q)
	}
	return math.Abs(sum) / 2
}

// pixelHullPoints returns the outer corners of the pixel squares covering
// coords. Only the extreme pixels of each row can lie on the hull.
func pixelHullPoints(coords []image.Point) []r2.Vec {
	type span struct{ lo, hi int }
	rows := make(map[int]span)
	for _, c := range coords {
		s, ok := rows[c.Y]
		if !ok {
			rows[c.Y] = span{c.X, c.X}
			continue
		}
		if c.X < s.lo {
			s.lo = c.X
		}
		if c.X > s.hi {
			s.hi = c.X
		}
		rows[c.Y] = s
	}

	points := make([]r2.Vec, 0, 4*len(rows))
	for y, s := range rows {
		fy := float64(y)
		lo, hi := float64(s.lo), float64(s.hi+1)
		points = append(points,
			r2.Vec{X: lo, Y: fy},
			r2.Vec{X: lo, Y: fy + 1},
			r2.Vec{X: hi, Y: fy},
			r2.Vec{X: hi, Y: fy + 1},
		)
	}
	return points
}
