package reconstruction

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sbinet/npyio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"nodulemesh/pkg/config"
	"nodulemesh/pkg/mesh"
	"nodulemesh/pkg/stl"
	"nodulemesh/pkg/volume"
)

// writeMask stores a width×height mask as a float64 .npy file
func writeMask(t *testing.T, dir, name string, width, height int, on func(x, y int) bool) string {
	t.Helper()
	data := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if on(x, y) {
				data[y*width+x] = 1
			}
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, npyio.Write(f, mat.NewDense(height, width, data)))
	return path
}

func centredSquare(x, y int) bool {
	return x >= 1 && x <= 2 && y >= 1 && y <= 2
}

// recordingRenderer keeps the last surface it was given
type recordingRenderer struct {
	last      *mesh.Mesh
	calls     int
	panicNext bool
}

func (r *recordingRenderer) Render(m *mesh.Mesh) error {
	if r.panicNext {
		r.panicNext = false
		panic("renderer exploded")
	}
	r.calls++
	r.last = m
	return nil
}

func TestGenerateReport(t *testing.T) {
	dir := t.TempDir()
	other := writeMask(t, dir, "scan_1_prediction.npy", 20, 20, func(x, y int) bool { return true })
	rep := writeMask(t, dir, "scan_0_prediction.npy", 20, 20, func(x, y int) bool {
		return x >= 5 && x < 11 && y >= 5 && y < 9
	})

	r := NewReconstructor(config.DefaultConfig())
	res, err := r.GenerateReport([]string{other, rep})
	require.NoError(t, err)

	assert.Equal(t, rep, res.File)
	require.Len(t, res.Regions, 1)
	assert.True(t, strings.HasPrefix(res.Text, "Nodule Features:\n\nNodule 1 Features:\n"))
	assert.Contains(t, res.Text, "Area: 24.000 mm²\n")
	assert.Contains(t, res.Text, "Perimeter: 16.000 mm\n")
	assert.Contains(t, res.Text, "Solidity: 1.000\n")
	assert.Empty(t, res.Preview)
}

func TestGenerateReport_MissingInput(t *testing.T) {
	r := NewReconstructor(nil)

	_, err := r.GenerateReport(nil)
	assert.ErrorIs(t, err, ErrInputMissing)

	dir := t.TempDir()
	path := writeMask(t, dir, "scan_3_prediction.npy", 4, 4, centredSquare)
	_, err = r.GenerateReport([]string{path})
	assert.ErrorIs(t, err, ErrInputMissing)
}

func TestGenerateReport_Preview(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	dir := t.TempDir()
	rep := writeMask(t, dir, "a_0_prediction.npy", 32, 32, func(x, y int) bool {
		return x >= 8 && x < 20 && y >= 10 && y < 18
	})

	cfg := config.DefaultConfig()
	cfg.Output.PreviewDir = filepath.Join(dir, "previews")
	res, err := NewReconstructor(cfg).GenerateReport([]string{rep})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cfg.Output.PreviewDir, "mask_a_0_prediction.png"), res.Preview)
	assert.FileExists(t, res.Preview)
}

func TestGenerateModel(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeMask(t, dir, "slice_3.npy", 4, 4, centredSquare),
		writeMask(t, dir, "slice_1.npy", 4, 4, centredSquare),
		writeMask(t, dir, "slice_2.npy", 4, 4, centredSquare),
	}

	cfg := config.DefaultConfig()
	cfg.Reconstruction.CloseBoundary = true
	cfg.Reconstruction.SliceOrder = config.OrderNatural
	cfg.Reconstruction.SliceGap = 2

	renderer := &recordingRenderer{}
	res, err := NewReconstructor(cfg, WithRenderer(renderer)).GenerateModel(paths)
	require.NoError(t, err)

	assert.Equal(t, []string{paths[1], paths[2], paths[0]}, res.Files)
	assert.Equal(t, [3]int{3, 4, 4}, res.Volume.Shape())

	require.Equal(t, 1, renderer.calls)
	m := renderer.last
	assert.Same(t, res.Mesh, m)
	assert.True(t, m.IsClosed())
	assert.Equal(t, 2, m.EulerCharacteristic())
	assert.Len(t, m.Normals, len(m.Vertices))

	b := m.Bounds()
	assert.Equal(t, r3.Vec{X: 0.5, Y: 0.5, Z: -1}, b.Min)
	assert.Equal(t, r3.Vec{X: 2.5, Y: 2.5, Z: 5}, b.Max)
}

func TestGenerateModel_Smoothing(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.npy", "b.npy", "c.npy"} {
		paths = append(paths, writeMask(t, dir, name, 4, 4, centredSquare))
	}

	cfg := config.DefaultConfig()
	cfg.Reconstruction.CloseBoundary = true
	plain, err := NewReconstructor(cfg, WithRenderer(&recordingRenderer{})).GenerateModel(paths)
	require.NoError(t, err)

	cfg.Smoothing.Enabled = true
	cfg.Smoothing.Iterations = 10
	smoothed, err := NewReconstructor(cfg, WithRenderer(&recordingRenderer{})).GenerateModel(paths)
	require.NoError(t, err)

	assert.Equal(t, plain.Mesh.Faces, smoothed.Mesh.Faces)
	assert.NotEqual(t, plain.Mesh.Vertices, smoothed.Mesh.Vertices)
	assert.Less(t, smoothed.Mesh.SurfaceArea(), plain.Mesh.SurfaceArea())
}

func TestGenerateModel_WritesSTL(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeMask(t, dir, "s0.npy", 4, 4, centredSquare),
		writeMask(t, dir, "s1.npy", 4, 4, centredSquare),
	}

	cfg := config.DefaultConfig()
	cfg.Reconstruction.CloseBoundary = true
	cfg.Output.STLFile = filepath.Join(dir, "out", "model.stl")
	cfg.Output.PreviewDir = filepath.Join(dir, "previews")

	res, err := NewReconstructor(cfg).GenerateModel(paths)
	require.NoError(t, err)
	assert.Len(t, res.Previews, 2)

	loaded, err := stl.Load(cfg.Output.STLFile)
	require.NoError(t, err)
	assert.Len(t, loaded.Faces, len(res.Mesh.Faces))
	assert.True(t, loaded.IsClosed())
}

func TestGenerateModel_Errors(t *testing.T) {
	r := NewReconstructor(nil, WithRenderer(&recordingRenderer{}))

	_, err := r.GenerateModel(nil)
	assert.ErrorIs(t, err, ErrInputMissing)

	dir := t.TempDir()
	paths := []string{
		writeMask(t, dir, "s0.npy", 4, 4, centredSquare),
		writeMask(t, dir, "s1.npy", 5, 4, centredSquare),
	}
	_, err = r.GenerateModel(paths)
	var mismatch *volume.ShapeMismatchError
	require.True(t, errors.As(err, &mismatch), "expected ShapeMismatchError, got %v", err)
	assert.Equal(t, 1, mismatch.Index)

	_, err = r.GenerateModel([]string{filepath.Join(dir, "missing.npy")})
	assert.Error(t, err)
}

func TestGenerateModel_EmptySurface(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeMask(t, dir, "s0.npy", 4, 4, func(x, y int) bool { return false }),
		writeMask(t, dir, "s1.npy", 4, 4, func(x, y int) bool { return false }),
	}

	renderer := &recordingRenderer{}
	res, err := NewReconstructor(nil, WithRenderer(renderer)).GenerateModel(paths)
	require.NoError(t, err)
	assert.True(t, res.Mesh.Empty())
	assert.Equal(t, 1, renderer.calls)
}

func TestOperationError_RecoversAndStaysUsable(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeMask(t, dir, "s0.npy", 4, 4, centredSquare),
		writeMask(t, dir, "s1.npy", 4, 4, centredSquare),
	}

	var logs bytes.Buffer
	renderer := &recordingRenderer{panicNext: true}
	r := NewReconstructor(nil,
		WithRenderer(renderer),
		WithLogger(zerolog.New(&logs)),
	)

	res, err := r.GenerateModel(paths)
	assert.Nil(t, res)
	var opErr *OperationError
	require.True(t, errors.As(err, &opErr), "expected OperationError, got %v", err)
	assert.Equal(t, "model", opErr.Op)
	assert.Contains(t, err.Error(), "renderer exploded")
	assert.Contains(t, logs.String(), `"component":"reconstruction"`)

	res, err = r.GenerateModel(paths)
	require.NoError(t, err)
	assert.NotNil(t, res.Mesh)
	assert.Equal(t, 1, renderer.calls)
}

func TestGenerateVolumeModel(t *testing.T) {
	dir := t.TempDir()
	path := writeMask(t, dir, "grid.npy", 4, 4, centredSquare)

	cfg := config.DefaultConfig()
	cfg.Reconstruction.CloseBoundary = true
	renderer := &recordingRenderer{}
	r := NewReconstructor(cfg, WithRenderer(renderer))

	res, err := r.GenerateVolumeModel(path)
	require.NoError(t, err)
	assert.Equal(t, [3]int{1, 4, 4}, res.Volume.Shape())
	assert.Equal(t, []string{path}, res.Files)
	assert.True(t, res.Mesh.IsClosed())
	assert.Equal(t, 2, res.Mesh.EulerCharacteristic())
	assert.Equal(t, 1, renderer.calls)

	_, err = r.GenerateVolumeModel("")
	assert.ErrorIs(t, err, ErrInputMissing)
}

func TestSTLRenderer_ChecksWrittenFile(t *testing.T) {
	dir := t.TempDir()
	tetra := &mesh.Mesh{
		Vertices: []r3.Vec{{}, {X: 1}, {Y: 1}, {Z: 1}},
		Faces:    [][3]int{{0, 2, 1}, {0, 1, 3}, {0, 3, 2}, {1, 2, 3}},
	}
	r := &STLRenderer{Path: filepath.Join(dir, "tetra.stl")}
	require.NoError(t, r.Render(tetra))

	// a facet whose corners weld together does not survive the round trip
	collapsed := &mesh.Mesh{
		Vertices: []r3.Vec{{}, {}, {X: 1}},
		Faces:    [][3]int{{0, 1, 2}},
	}
	r = &STLRenderer{Path: filepath.Join(dir, "collapsed.stl")}
	err := r.Render(collapsed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "holds 0 facets")

	r.Options.ASCII = true
	assert.NoError(t, r.Render(collapsed), "text files are not read back")
}
