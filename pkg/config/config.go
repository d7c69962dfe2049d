// Package config provides configuration loading and management for nodulemesh.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Slice ordering modes accepted by Reconstruction.SliceOrder
const (
	OrderSelection = "selection"
	OrderLexical   = "lexical"
	OrderNatural   = "natural"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Report parameters for the region feature extractor
	Report struct {
		// ClosingSize is the side length of the square structuring element
		// used to close small holes before labeling
		ClosingSize int `yaml:"closingSize"`

		// Connectivity is 4 or 8
		Connectivity int `yaml:"connectivity"`

		// RepresentativeMatch selects the slice used for the report: the
		// first loaded file whose name contains this substring
		RepresentativeMatch string `yaml:"representativeMatch"`

		// PixelSpacing is the physical size of one pixel
		PixelSpacing float64 `yaml:"pixelSpacing"`

		// Unit suffixes printed after area and length features
		AreaUnit   string `yaml:"areaUnit"`
		LengthUnit string `yaml:"lengthUnit"`
	} `yaml:"report"`

	// Reconstruction parameters for the voxel grid and isosurface
	Reconstruction struct {
		// IsoValue is the threshold separating background from foreground
		IsoValue float64 `yaml:"isoValue"`

		// ComputeNormals requests per-vertex normals on the extracted mesh
		ComputeNormals bool `yaml:"computeNormals"`

		// CloseBoundary pads the grid with background so surfaces touching
		// the grid border are closed
		CloseBoundary bool `yaml:"closeBoundary"`

		// SliceOrder is one of selection, lexical or natural
		SliceOrder string `yaml:"sliceOrder"`

		// SliceGap is the z spacing applied when exporting the model
		SliceGap float64 `yaml:"sliceGap"`
	} `yaml:"reconstruction"`

	// Smoothing parameters for the Laplacian post-pass
	Smoothing struct {
		Enabled    bool    `yaml:"enabled"`
		Iterations int     `yaml:"iterations"`
		Relaxation float64 `yaml:"relaxation"`
	} `yaml:"smoothing"`

	// Output parameters
	Output struct {
		// STLFile is where the model is written
		STLFile string `yaml:"stlFile"`

		// ASCIISTL writes text STL instead of binary
		ASCIISTL bool `yaml:"asciiSTL"`

		// PreviewDir receives PNG previews when set
		PreviewDir string `yaml:"previewDir"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Report.ClosingSize = 5
	cfg.Report.Connectivity = 8
	cfg.Report.RepresentativeMatch = "_0_prediction"
	cfg.Report.PixelSpacing = 1.0
	cfg.Report.AreaUnit = "mm²"
	cfg.Report.LengthUnit = "mm"

	cfg.Reconstruction.IsoValue = 0.5
	cfg.Reconstruction.ComputeNormals = true
	cfg.Reconstruction.CloseBoundary = false
	cfg.Reconstruction.SliceOrder = OrderSelection
	cfg.Reconstruction.SliceGap = 1.0

	cfg.Smoothing.Enabled = false
	cfg.Smoothing.Iterations = 100
	cfg.Smoothing.Relaxation = 0.1

	cfg.Output.STLFile = "output.stl"
	cfg.Output.Verbose = false

	return cfg
}

// Validate checks that the configuration values are usable
func (c *Config) Validate() error {
	var errs []error
	if c.Report.ClosingSize < 1 {
		errs = append(errs, fmt.Errorf("report.closingSize must be at least 1, got %d", c.Report.ClosingSize))
	}
	if c.Report.Connectivity != 4 && c.Report.Connectivity != 8 {
		errs = append(errs, fmt.Errorf("report.connectivity must be 4 or 8, got %d", c.Report.Connectivity))
	}
	if !(c.Report.PixelSpacing > 0) || math.IsInf(c.Report.PixelSpacing, 1) {
		errs = append(errs, fmt.Errorf("report.pixelSpacing must be positive, got %g", c.Report.PixelSpacing))
	}
	if math.IsNaN(c.Reconstruction.IsoValue) || math.IsInf(c.Reconstruction.IsoValue, 0) {
		errs = append(errs, fmt.Errorf("reconstruction.isoValue must be finite, got %g", c.Reconstruction.IsoValue))
	}
	switch c.Reconstruction.SliceOrder {
	case OrderSelection, OrderLexical, OrderNatural:
	default:
		errs = append(errs, fmt.Errorf("reconstruction.sliceOrder %q is not one of selection, lexical, natural", c.Reconstruction.SliceOrder))
	}
	if !(c.Reconstruction.SliceGap > 0) || math.IsInf(c.Reconstruction.SliceGap, 1) {
		errs = append(errs, fmt.Errorf("reconstruction.sliceGap must be positive, got %g", c.Reconstruction.SliceGap))
	}
	if c.Smoothing.Iterations < 0 {
		errs = append(errs, fmt.Errorf("smoothing.iterations must not be negative, got %d", c.Smoothing.Iterations))
	}
	if math.IsNaN(c.Smoothing.Relaxation) || math.IsInf(c.Smoothing.Relaxation, 0) {
		errs = append(errs, fmt.Errorf("smoothing.relaxation must be finite, got %g", c.Smoothing.Relaxation))
	}
	return errors.Join(errs...)
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
