// Package loader reads segmentation masks stored as NumPy .npy arrays.
//
// Arrays may carry extra singleton dimensions, as produced by batch
// prediction pipelines (for example (1, H, W, 1)). Those are squeezed away
// before the data is binarised with value > 0.
package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sbinet/npyio"

	"nodulemesh/internal/models"
)

// ErrInputMissing is returned when an operation has no input files or no
// file matches the requested selection.
var ErrInputMissing = errors.New("input missing")

// Array is a dense C-ordered numeric array converted to float64
type Array struct {
	Data  []float64
	Shape []int
}

// ReadArray decodes a .npy stream into an Array
func ReadArray(r io.Reader) (*Array, error) {
	nr, err := npyio.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read npy header: %w", err)
	}
	descr := nr.Header.Descr
	if descr.Fortran {
		return nil, fmt.Errorf("fortran-ordered arrays are not supported")
	}

	var data []float64
	switch strings.TrimLeft(descr.Type, "<|=") {
	case "b1":
		var v []bool
		if err := nr.Read(&v); err != nil {
			return nil, fmt.Errorf("failed to read bool array: %w", err)
		}
		data = make([]float64, len(v))
		for i, b := range v {
			if b {
				data[i] = 1
			}
		}
	case "u1":
		data, err = readAs[uint8](nr)
	case "i1":
		data, err = readAs[int8](nr)
	case "u2":
		data, err = readAs[uint16](nr)
	case "i2":
		data, err = readAs[int16](nr)
	case "u4":
		data, err = readAs[uint32](nr)
	case "i4":
		data, err = readAs[int32](nr)
	case "u8":
		data, err = readAs[uint64](nr)
	case "i8":
		data, err = readAs[int64](nr)
	case "f4":
		data, err = readAs[float32](nr)
	case "f8":
		data, err = readAs[float64](nr)
	default:
		return nil, fmt.Errorf("unsupported npy dtype %q", descr.Type)
	}
	if err != nil {
		return nil, err
	}

	shape := append([]int(nil), descr.Shape...)
	if n := product(shape); n != len(data) {
		return nil, fmt.Errorf("npy shape %v holds %d values, read %d", shape, n, len(data))
	}
	return &Array{Data: data, Shape: shape}, nil
}

type number interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~uint64 | ~int64 | ~float32 | ~float64
}

func readAs[T number](nr *npyio.Reader) ([]float64, error) {
	var v []T
	if err := nr.Read(&v); err != nil {
		return nil, fmt.Errorf("failed to read %s array: %w", nr.Header.Descr.Type, err)
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out, nil
}

func product(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Squeeze drops singleton dimensions until exactly dims remain. A leading
// batch axis and a trailing channel axis go first, then inner singletons
// from the left, so (1, 1, W, 1) becomes (1, W). Arrays with fewer
// dimensions are padded with leading singletons. It fails when more than
// dims non-singleton dimensions are present.
func Squeeze(shape []int, dims int) ([]int, error) {
	out := append([]int(nil), shape...)
	if len(out) > dims && out[0] == 1 {
		out = out[1:]
	}
	if len(out) > dims && out[len(out)-1] == 1 {
		out = out[:len(out)-1]
	}
	for len(out) > dims {
		idx := -1
		for i, d := range out {
			if d == 1 {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("cannot squeeze shape %v to %d dimensions", shape, dims)
		}
		out = append(out[:idx], out[idx+1:]...)
	}
	for len(out) < dims {
		out = append([]int{1}, out...)
	}
	return out, nil
}

// ReadMask decodes a .npy stream as a 2D binary mask
func ReadMask(r io.Reader) (*models.Mask, error) {
	arr, err := ReadArray(r)
	if err != nil {
		return nil, err
	}
	shape, err := Squeeze(arr.Shape, 2)
	if err != nil {
		return nil, err
	}

	m := models.NewMask(shape[1], shape[0])
	for i, v := range arr.Data {
		if v > 0 {
			m.Data[i] = 1
		}
	}
	return m, nil
}

// LoadMask loads a 2D binary mask from a .npy file
func LoadMask(path string) (*models.Mask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := ReadMask(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load mask %s: %w", path, err)
	}
	m.Filename = path
	return m, nil
}

// LoadVolume loads a 3D array from a single .npy file as a voxel grid.
// The array is interpreted as (depth, height, width) and binarised.
func LoadVolume(path string) (*models.Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	arr, err := ReadArray(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load volume %s: %w", path, err)
	}
	shape, err := Squeeze(arr.Shape, 3)
	if err != nil {
		return nil, fmt.Errorf("failed to load volume %s: %w", path, err)
	}

	vol := models.NewVolume(shape[2], shape[1], shape[0])
	for i, v := range arr.Data {
		if v > 0 {
			vol.Data[i] = 1
		}
	}
	return vol, nil
}

// Find returns the first path whose base name contains substr
func Find(paths []string, substr string) (string, error) {
	if len(paths) == 0 {
		return "", fmt.Errorf("no files loaded: %w", ErrInputMissing)
	}
	for _, p := range paths {
		if strings.Contains(filepath.Base(p), substr) {
			return p, nil
		}
	}
	return "", fmt.Errorf("no file matching %q: %w", substr, ErrInputMissing)
}

// ListDir returns the .npy files in dir, sorted by file name
func ListDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.ToLower(filepath.Ext(e.Name())) == ".npy" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no .npy files in %s: %w", dir, ErrInputMissing)
	}
	return paths, nil
}
