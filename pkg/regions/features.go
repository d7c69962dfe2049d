// Package regions measures shape descriptors of the connected components of
// a binary segmentation mask: area, perimeter, best-fit ellipse axes,
// eccentricity, convex hull area, solidity and aspect ratio.
package regions

import (
	"image"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"nodulemesh/internal/models"
)

// Options controls region extraction
type Options struct {
	// ClosingSize is the side of the square used to close holes before
	// labeling. Values below 2 disable closing.
	ClosingSize int

	// Connectivity is 4 or 8
	Connectivity int

	// PixelSpacing scales lengths by s and areas by s²
	PixelSpacing float64
}

// DefaultOptions returns a 5×5 closing, 8-connectivity and unit spacing
func DefaultOptions() Options {
	return Options{
		ClosingSize:  5,
		Connectivity: 8,
		PixelSpacing: 1,
	}
}

// Region is the feature record of one labeled component. Undefined values
// are NaN and flagged by EllipseDefined and SolidityDefined.
type Region struct {
	Label  int
	Coords []image.Point
	BBox   image.Rectangle

	// Centroid in pixel units, (x, y)
	CentroidX, CentroidY float64

	Area      float64
	Perimeter float64

	// Best-fit ellipse with the same second central moments
	MajorAxisLength float64
	MinorAxisLength float64
	Eccentricity    float64
	AspectRatio     float64
	EllipseDefined  bool

	ConvexArea      float64
	Solidity        float64
	SolidityDefined bool
}

// Degenerate reports whether any feature of the region is undefined
func (r Region) Degenerate() bool {
	return !r.EllipseDefined || !r.SolidityDefined
}

// Extract closes the mask, labels it and measures every component. Regions
// are returned in label order. The input mask is not modified.
func Extract(m *models.Mask, opts Options) ([]Region, error) {
	if opts.PixelSpacing <= 0 {
		opts.PixelSpacing = 1
	}

	labels, err := Components(m, opts)
	if err != nil {
		return nil, err
	}

	coords := make([][]image.Point, labels.Count+1)
	for idx, l := range labels.Data {
		if l == 0 {
			continue
		}
		coords[l] = append(coords[l], image.Point{X: idx % labels.Width, Y: idx / labels.Width})
	}

	regions := make([]Region, 0, labels.Count)
	for l := 1; l <= labels.Count; l++ {
		regions = append(regions, measure(l, coords[l], opts.PixelSpacing))
	}
	return regions, nil
}

// Components returns the labeled components Extract measures: the mask
// closed with opts.ClosingSize and labeled with opts.Connectivity
func Components(m *models.Mask, opts Options) (*Labels, error) {
	return Label(Close(m, opts.ClosingSize), opts.Connectivity)
}

// ExtractMap is Extract keyed by label
func ExtractMap(m *models.Mask, opts Options) (map[int]Region, error) {
	regions, err := Extract(m, opts)
	if err != nil {
		return nil, err
	}
	out := make(map[int]Region, len(regions))
	for _, r := range regions {
		out[r.Label] = r
	}
	return out, nil
}

func measure(label int, coords []image.Point, spacing float64) Region {
	r := Region{
		Label:  label,
		Coords: coords,
	}
	n := len(coords)
	if n == 0 {
		r.MajorAxisLength, r.MinorAxisLength = math.NaN(), math.NaN()
		r.Eccentricity, r.AspectRatio = math.NaN(), math.NaN()
		r.ConvexArea, r.Solidity = 0, math.NaN()
		return r
	}

	r.BBox = image.Rectangle{Min: coords[0], Max: coords[0].Add(image.Pt(1, 1))}
	var sumX, sumY float64
	for _, c := range coords {
		r.BBox = r.BBox.Union(image.Rectangle{Min: c, Max: c.Add(image.Pt(1, 1))})
		sumX += float64(c.X)
		sumY += float64(c.Y)
	}
	r.CentroidX = sumX / float64(n) * spacing
	r.CentroidY = sumY / float64(n) * spacing
	r.Area = float64(n) * spacing * spacing

	// perimeter is measured on the bounding box crop of the region
	w, h := r.BBox.Dx(), r.BBox.Dy()
	crop := make([]uint8, w*h)
	for _, c := range coords {
		crop[(c.Y-r.BBox.Min.Y)*w+(c.X-r.BBox.Min.X)] = 1
	}
	r.Perimeter = perimeter(crop, w, h) * spacing

	r.MajorAxisLength, r.MinorAxisLength, r.Eccentricity, r.EllipseDefined = ellipse(coords)
	r.MajorAxisLength *= spacing
	r.MinorAxisLength *= spacing
	r.AspectRatio = math.NaN()
	if r.EllipseDefined {
		if r.MinorAxisLength > 0 {
			r.AspectRatio = r.MajorAxisLength / r.MinorAxisLength
		} else {
			r.EllipseDefined = false
		}
	}

	hull := ConvexHull(pixelHullPoints(coords))
	r.ConvexArea = PolygonArea(hull) * spacing * spacing
	r.Solidity = math.NaN()
	if len(hull) >= 3 && r.ConvexArea > 0 {
		r.Solidity = r.Area / r.ConvexArea
		r.SolidityDefined = true
	}

	return r
}

// ellipse returns the axis lengths and eccentricity of the ellipse with the
// same normalised second central moments as the pixel set. Regions with
// fewer than two pixels have no ellipse.
func ellipse(coords []image.Point) (major, minor, ecc float64, ok bool) {
	n := len(coords)
	if n < 2 {
		return math.NaN(), math.NaN(), math.NaN(), false
	}

	data := make([]float64, 0, 2*n)
	for _, c := range coords {
		data = append(data, float64(c.Y), float64(c.X))
	}
	x := mat.NewDense(n, 2, data)

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, x, nil)
	// population moments, not the unbiased estimate
	cov.ScaleSym(float64(n-1)/float64(n), &cov)

	var eig mat.EigenSym
	if !eig.Factorize(&cov, false) {
		return math.NaN(), math.NaN(), math.NaN(), false
	}
	vals := eig.Values(nil)
	l1, l2 := math.Max(vals[0], vals[1]), math.Max(0, math.Min(vals[0], vals[1]))
	if l1 <= 0 {
		return math.NaN(), math.NaN(), math.NaN(), false
	}

	major = 4 * math.Sqrt(l1)
	minor = 4 * math.Sqrt(l2)
	ecc = math.Sqrt(1 - l2/l1)
	return major, minor, ecc, true
}
