// Package reconstruction ties the pipeline together. A Reconstructor turns
// a selection of segmentation mask files into either a textual feature
// report for one representative slice, or a 3D surface model of the whole
// stack handed to a Renderer.
//
// The two operations are:
//  1. GenerateReport: pick the representative slice, close small holes,
//     label connected regions and measure their shape features
//  2. GenerateModel: order and stack every slice into a voxel grid, extract
//     the isosurface with marching cubes, optionally smooth it, and render
package reconstruction

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"nodulemesh/internal/logger"
	"nodulemesh/internal/models"
	"nodulemesh/pkg/config"
	"nodulemesh/pkg/isosurface"
	"nodulemesh/pkg/loader"
	"nodulemesh/pkg/mesh"
	"nodulemesh/pkg/regions"
	"nodulemesh/pkg/stl"
	"nodulemesh/pkg/visualization"
	"nodulemesh/pkg/volume"
)

// ErrInputMissing is returned when no files were selected or the
// representative slice is absent from the selection
var ErrInputMissing = loader.ErrInputMissing

// OperationError reports an operation that failed unexpectedly. The
// Reconstructor stays usable afterwards.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// Renderer displays or stores a finished surface
type Renderer interface {
	Render(m *mesh.Mesh) error
}

// STLRenderer writes the surface to an STL file. Binary files are read
// back and welded to check that no facet was lost and a closed surface
// is still closed.
type STLRenderer struct {
	Path    string
	Options stl.Options
}

// Render implements Renderer
func (s *STLRenderer) Render(m *mesh.Mesh) error {
	if dir := filepath.Dir(s.Path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := stl.Save(s.Path, m, s.Options); err != nil {
		return err
	}
	if s.Options.ASCII {
		return nil
	}

	written, err := stl.Load(s.Path)
	if err != nil {
		return fmt.Errorf("failed to verify %s: %w", s.Path, err)
	}
	if len(written.Faces) != len(m.Faces) {
		return fmt.Errorf("%s holds %d facets, expected %d", s.Path, len(written.Faces), len(m.Faces))
	}
	if m.IsClosed() && !written.IsClosed() {
		return fmt.Errorf("%s is no longer a closed surface", s.Path)
	}
	return nil
}

// ReportResult is the outcome of GenerateReport
type ReportResult struct {
	// File is the representative slice the report was computed on
	File    string
	Mask    *models.Mask
	Regions []regions.Region
	Text    string

	// Preview is the mask plot path, empty when previews are disabled
	Preview string
}

// ModelResult is the outcome of GenerateModel
type ModelResult struct {
	// Files lists the slices in stacking order
	Files  []string
	Volume *models.Volume
	Mesh   *mesh.Mesh

	// Previews lists the written slice images, if any
	Previews []string
}

// Option configures a Reconstructor
type Option func(*Reconstructor)

// WithLogger sets the logger used for progress output
func WithLogger(l zerolog.Logger) Option {
	return func(r *Reconstructor) {
		r.log = logger.Component(l, "reconstruction")
	}
}

// WithRenderer replaces the default STL file renderer
func WithRenderer(renderer Renderer) Option {
	return func(r *Reconstructor) {
		r.renderer = renderer
	}
}

// Reconstructor runs report and model generation. It holds no state
// between calls, but calls must not overlap.
type Reconstructor struct {
	cfg      *config.Config
	log      zerolog.Logger
	renderer Renderer
}

// NewReconstructor creates a reconstructor for cfg; a nil cfg uses the
// defaults
func NewReconstructor(cfg *config.Config, opts ...Option) *Reconstructor {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	r := &Reconstructor{
		cfg: cfg,
		log: zerolog.Nop(),
		renderer: &STLRenderer{
			Path: cfg.Output.STLFile,
			Options: stl.Options{
				ASCII: cfg.Output.ASCIISTL,
				Name:  "nodule",
			},
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// recoverOperation converts a panic inside op into an *OperationError
func (r *Reconstructor) recoverOperation(op string, err *error) {
	if p := recover(); p != nil {
		r.log.Error().Str("operation", op).Interface("panic", p).Msg("operation aborted")
		*err = &OperationError{Op: op, Err: fmt.Errorf("panic: %v", p)}
	}
}

// GenerateReport measures the regions of the representative slice, the
// first path whose file name contains the configured match string
func (r *Reconstructor) GenerateReport(paths []string) (res *ReportResult, err error) {
	defer r.recoverOperation("report", &err)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no slices selected: %w", ErrInputMissing)
	}

	file, err := loader.Find(paths, r.cfg.Report.RepresentativeMatch)
	if err != nil {
		return nil, err
	}
	r.log.Info().Str("file", file).Msg("Step 1: Loading representative slice")

	mask, err := loader.LoadMask(file)
	if err != nil {
		return nil, err
	}
	r.log.Debug().Int("width", mask.Width).Int("height", mask.Height).Int("foreground", mask.Count()).Msg("mask loaded")

	r.log.Info().Msg("Step 2: Extracting region features")
	regOpts := regions.Options{
		ClosingSize:  r.cfg.Report.ClosingSize,
		Connectivity: r.cfg.Report.Connectivity,
		PixelSpacing: r.cfg.Report.PixelSpacing,
	}
	regs, err := regions.Extract(mask, regOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to extract regions: %w", err)
	}
	for _, reg := range regs {
		if reg.Degenerate() {
			r.log.Warn().Int("region", reg.Label).Float64("area", reg.Area).Msg("region too small for shape features")
		}
	}

	opts := regions.DefaultReportOptions()
	opts.AreaUnit = r.cfg.Report.AreaUnit
	opts.LengthUnit = r.cfg.Report.LengthUnit

	out := &ReportResult{
		File:    file,
		Mask:    mask,
		Regions: regs,
		Text:    regions.Report(regs, opts),
	}

	if dir := r.cfg.Output.PreviewDir; dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create preview directory: %w", err)
		}
		labels, err := regions.Components(mask, regOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to label regions: %w", err)
		}
		base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		out.Preview = filepath.Join(dir, "mask_"+base+".png")
		if err := visualization.PlotMask(visualization.LabelImage(labels), regs, "Labeled Mask", out.Preview); err != nil {
			return nil, err
		}
		r.log.Info().Str("file", out.Preview).Msg("mask preview saved")
	}

	r.log.Info().Int("regions", len(regs)).Msg("Report complete")
	return out, nil
}

// GenerateModel stacks every selected slice into a voxel grid, extracts
// its surface and passes it to the renderer
func (r *Reconstructor) GenerateModel(paths []string) (res *ModelResult, err error) {
	defer r.recoverOperation("model", &err)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no slices selected: %w", ErrInputMissing)
	}

	ordered, err := volume.Order(paths, r.cfg.Reconstruction.SliceOrder)
	if err != nil {
		return nil, err
	}

	r.log.Info().Int("slices", len(ordered)).Msg("Step 1: Loading input slices")
	masks := make([]*models.Mask, len(ordered))
	for i, path := range ordered {
		if masks[i], err = loader.LoadMask(path); err != nil {
			return nil, err
		}
	}

	r.log.Info().Msg("Step 2: Building voxel grid")
	vol, err := volume.Build(masks)
	if err != nil {
		return nil, fmt.Errorf("failed to build volume: %w", err)
	}
	return r.surface(&ModelResult{Files: ordered, Volume: vol})
}

// GenerateVolumeModel is GenerateModel for a single file holding the whole
// (depth, height, width) grid
func (r *Reconstructor) GenerateVolumeModel(path string) (res *ModelResult, err error) {
	defer r.recoverOperation("model", &err)

	if path == "" {
		return nil, fmt.Errorf("no volume selected: %w", ErrInputMissing)
	}

	r.log.Info().Str("file", path).Msg("Step 1: Loading volume")
	vol, err := loader.LoadVolume(path)
	if err != nil {
		return nil, err
	}
	return r.surface(&ModelResult{Files: []string{path}, Volume: vol})
}

// surface runs the grid to renderer half of model generation on out.Volume
func (r *Reconstructor) surface(out *ModelResult) (*ModelResult, error) {
	vol := out.Volume
	shape := vol.Shape()
	r.log.Debug().Ints("shape", shape[:]).Msg("volume built")

	r.log.Info().Msg("Step 3: Extracting isosurface")
	spacing := r.cfg.Report.PixelSpacing
	m, err := isosurface.Extract(vol, isosurface.Options{
		IsoValue:       r.cfg.Reconstruction.IsoValue,
		ComputeNormals: r.cfg.Reconstruction.ComputeNormals,
		CloseBoundary:  r.cfg.Reconstruction.CloseBoundary,
		Spacing:        models.Spacing{X: spacing, Y: spacing, Z: r.cfg.Reconstruction.SliceGap},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to extract surface: %w", err)
	}
	if m.Empty() {
		r.log.Warn().Msg("no foreground boundary found, surface is empty")
	} else {
		b := m.Bounds()
		r.log.Debug().
			Floats64("min", []float64{b.Min.X, b.Min.Y, b.Min.Z}).
			Floats64("max", []float64{b.Max.X, b.Max.Y, b.Max.Z}).
			Msg("surface extent")
	}

	if s := r.cfg.Smoothing; s.Enabled && !m.Empty() {
		r.log.Info().Int("iterations", s.Iterations).Float64("relaxation", s.Relaxation).Msg("Step 4: Smoothing surface")
		m = mesh.Smooth(m, s.Iterations, s.Relaxation)
	}
	out.Mesh = m

	r.log.Info().
		Int("vertices", len(m.Vertices)).
		Int("faces", len(m.Faces)).
		Bool("closed", m.IsClosed()).
		Int("euler", m.EulerCharacteristic()).
		Float64("area", m.SurfaceArea()).
		Float64("volume", m.EnclosedVolume()).
		Msg("Surface ready")

	if dir := r.cfg.Output.PreviewDir; dir != "" {
		if out.Previews, err = visualization.NewViewer(vol).SaveSliceSequence("z", dir); err != nil {
			return nil, fmt.Errorf("failed to save previews: %w", err)
		}
		r.log.Info().Int("images", len(out.Previews)).Str("dir", dir).Msg("slice previews saved")
	}

	r.log.Info().Msg("Step 5: Rendering surface")
	if err := r.renderer.Render(m); err != nil {
		return nil, fmt.Errorf("failed to render surface: %w", err)
	}

	return out, nil
}
