package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"nodulemesh/internal/logger"
	"nodulemesh/pkg/config"
	"nodulemesh/pkg/loader"
	"nodulemesh/pkg/reconstruction"
)

const usage = `Usage: nodulemesh <command> [flags] [files...]

Commands:
  report       print shape features of the representative slice
  model        reconstruct a 3D surface from all slices and write STL
  init-config  write a default configuration file

Run "nodulemesh <command> -h" for the flags of a command.
`

func main() {
	log := logger.NewConsole(os.Getenv("NODULEMESH_DEBUG") != "")
	if err := run(os.Args[1:], os.Stdout, &log); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			log.Error().Err(err).Msg("nodulemesh failed")
		}
		os.Exit(1)
	}
}

// run executes one command. The logger is rebuilt once the configuration
// is known, so -verbose can raise the level.
func run(args []string, stdout io.Writer, log *zerolog.Logger) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return errors.New("no command given")
	}

	cmd, args := args[0], args[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stdout)

	configPath := fs.String("config", "", "YAML configuration file")
	inputDir := fs.String("input", "", "Directory of .npy slices (instead of listing files)")
	verbose := fs.Bool("verbose", false, "Enable debug logging")

	var (
		match, output, order, previews, volumePath *string
		smooth, ascii                              *bool
	)
	switch cmd {
	case "report":
		match = fs.String("match", "", "Substring selecting the representative slice")
		previews = fs.String("previews", "", "Directory for the mask plot")
	case "model":
		output = fs.String("output", "", "Output STL file")
		order = fs.String("order", "", "Slice order: selection, lexical or natural")
		smooth = fs.Bool("smooth", false, "Apply Laplacian smoothing")
		ascii = fs.Bool("ascii", false, "Write ASCII STL")
		previews = fs.String("previews", "", "Directory for slice previews")
		volumePath = fs.String("volume", "", "Single 3D .npy file instead of slices")
	case "init-config":
	default:
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd == "init-config" {
		path := *configPath
		if path == "" {
			path = "nodulemesh.yaml"
		}
		if err := config.CreateDefaultConfigFile(path); err != nil {
			return err
		}
		log.Info().Str("file", path).Msg("default configuration written")
		return nil
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if match != nil && *match != "" {
		cfg.Report.RepresentativeMatch = *match
	}
	if previews != nil && *previews != "" {
		cfg.Output.PreviewDir = *previews
	}
	if output != nil && *output != "" {
		cfg.Output.STLFile = *output
	}
	if order != nil && *order != "" {
		cfg.Reconstruction.SliceOrder = *order
	}
	if smooth != nil && *smooth {
		cfg.Smoothing.Enabled = true
	}
	if ascii != nil && *ascii {
		cfg.Output.ASCIISTL = true
	}
	if *verbose {
		cfg.Output.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Output.Verbose {
		*log = log.Level(zerolog.DebugLevel)
	}

	files := fs.Args()
	if *inputDir != "" {
		if files, err = loader.ListDir(*inputDir); err != nil {
			return err
		}
	}

	r := reconstruction.NewReconstructor(cfg, reconstruction.WithLogger(*log))
	start := time.Now()

	switch cmd {
	case "report":
		res, err := r.GenerateReport(files)
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, res.Text)

	case "model":
		var res *reconstruction.ModelResult
		if *volumePath != "" {
			res, err = r.GenerateVolumeModel(*volumePath)
		} else {
			res, err = r.GenerateModel(files)
		}
		if err != nil {
			return err
		}
		log.Info().
			Str("file", cfg.Output.STLFile).
			Int("slices", res.Volume.Depth).
			Int("faces", len(res.Mesh.Faces)).
			Dur("elapsed", time.Since(start)).
			Msg("Reconstruction completed")
	}
	return nil
}
