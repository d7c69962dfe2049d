package visualization

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"nodulemesh/pkg/regions"
)

// LabelImage renders a labeled mask with one colour per component on a
// black background
func LabelImage(l *regions.Labels) *image.RGBA {
	palette := generateColors(l.Count)
	img := image.NewRGBA(image.Rect(0, 0, l.Width, l.Height))
	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			c := color.RGBA{A: 255}
			if id := l.At(x, y); id > 0 {
				c = palette[id-1].(color.RGBA)
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// PlotMask draws img with each region's number at its pixel centroid and
// saves the plot to path; the extension picks the format
func PlotMask(img image.Image, regs []regions.Region, title, path string) error {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x (px)"
	p.Y.Label.Text = "y (px)"
	p.X.Min, p.X.Max = 0, w
	p.Y.Min, p.Y.Max = 0, h

	p.Add(plotter.NewImage(img, 0, 0, w, h))

	if len(regs) > 0 {
		labels := plotter.XYLabels{
			XYs:    make(plotter.XYs, len(regs)),
			Labels: make([]string, len(regs)),
		}
		for i, r := range regs {
			cx, cy := pixelCentroid(r)
			// image rows grow downward, plot y grows upward
			labels.XYs[i] = plotter.XY{X: cx + 0.5, Y: h - cy - 0.5}
			labels.Labels[i] = strconv.Itoa(r.Label)
		}
		l, err := plotter.NewLabels(labels)
		if err != nil {
			return fmt.Errorf("region labels: %w", err)
		}
		for i := range l.TextStyle {
			l.TextStyle[i].Color = color.RGBA{R: 255, A: 255}
		}
		p.Add(l)
	}

	size := vg.Length(math.Max(4, math.Min(10, w/32))) * vg.Inch
	if err := p.Save(size, size*vg.Length(h/math.Max(w, 1)), path); err != nil {
		return fmt.Errorf("save mask plot: %w", err)
	}
	return nil
}

// pixelCentroid is the region centroid in pixels regardless of the
// spacing its features were measured with
func pixelCentroid(r regions.Region) (x, y float64) {
	if len(r.Coords) == 0 {
		return r.CentroidX, r.CentroidY
	}
	for _, p := range r.Coords {
		x += float64(p.X)
		y += float64(p.Y)
	}
	n := float64(len(r.Coords))
	return x / n, y / n
}

func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL (all in [0, 1]) to 8-bit RGB
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	if s == 0 {
		v := uint8(math.Round(l * 255))
		return v, v, v
	}

	q := l + s - l*s
	if l < 0.5 {
		q = l * (1 + s)
	}
	p := 2*l - q

	channel := func(t float64) uint8 {
		if t < 0 {
			t++
		}
		if t > 1 {
			t--
		}
		var v float64
		switch {
		case t < 1.0/6:
			v = p + (q-p)*6*t
		case t < 0.5:
			v = q
		case t < 2.0/3:
			v = p + (q-p)*(2.0/3-t)*6
		default:
			v = p
		}
		return uint8(math.Round(v * 255))
	}
	return channel(h + 1.0/3), channel(h), channel(h - 1.0/3)
}
