// simplefusion drives the fusion engine end to end: load configuration,
// stream posed frames from a directory of raw fixtures, integrate each one,
// and export the resulting mesh on shutdown (spec §6, §9).
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/aarnaud1/SimpleFusion/config"
	"github.com/aarnaud1/SimpleFusion/fusion"
	"github.com/aarnaud1/SimpleFusion/stream"
)

func main() {
	logger := log.New(os.Stderr, "[simplefusion] ", log.LstdFlags)
	if err := run(logger); err != nil {
		logger.Printf("fatal: %v", err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	switch err.(type) {
	case *fusion.ConfigurationError, *fusion.IoError:
		return 1
	default:
		return 2
	}
}

func run(logger *log.Logger) error {
	configFile := flag.String("config", "", "path to a YAML config file")
	voxelRes := flag.Float64("voxelRes", 0, "metres per voxel")
	tau := flag.Float64("tau", 0, "truncation distance in metres")
	minDist := flag.Float64("minDist", 0, "minimum accepted depth, metres")
	maxDist := flag.Float64("maxDist", 0, "maximum accepted depth, metres (0 = unbounded)")
	updateMesh := flag.Bool("updateMesh", false, "recompute touched blocks' mesh every frame")
	useOPC := flag.Bool("useOPC", false, "use the surface-normal (ordered point cloud) integrator")
	noExport := flag.Bool("noExport", false, "skip the PLY export on shutdown")
	preload := flag.String("preload", "", "directory of dumped blocks to preload before streaming")
	dumpBlocks := flag.String("dumpBlocks", "", "directory to dump blocks to after streaming")
	outputDir := flag.String("outputDir", "", "directory for the exported mesh")
	outputFile := flag.String("outputFile", "", "file name for the exported mesh")
	datasetType := flag.String("datasetType", "", "dataset preset: fr1, icl1, or synthetic0")
	dataset := flag.String("dataset", "", "directory of .frame fixtures to stream")
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}
	flags := config.Flags{
		VoxelRes: float32(*voxelRes), Tau: float32(*tau),
		MinDist: float32(*minDist), MaxDist: float32(*maxDist),
		Preload: *preload, DumpBlocks: *dumpBlocks,
		OutputDir: *outputDir, OutputFile: *outputFile,
		DatasetType: *datasetType, Dataset: *dataset,
	}
	if set["updateMesh"] {
		flags.UpdateMesh = updateMesh
	}
	if set["useOPC"] {
		flags.UseOPC = useOPC
	}
	if set["noExport"] {
		flags.NoExport = noExport
	}
	cfg.Resolve(flags)
	if err := cfg.Validate(); err != nil {
		return err
	}

	datasetTag := config.DatasetTag(cfg.DatasetType)
	intrinsics, err := config.IntrinsicsFor(datasetTag, cfg.MaxFrameWidth, cfg.MaxFrameHeight)
	if err != nil {
		return err
	}
	camParams, err := config.CameraParametersFor(datasetTag, intrinsics, cfg.MaxFrameWidth, cfg.MaxFrameHeight)
	if err != nil {
		return err
	}

	engine, err := fusion.NewEngine(cfg.FusionParameters(), camParams)
	if err != nil {
		return err
	}

	if cfg.Preload != "" {
		logger.Printf("preloading blocks from %s", cfg.Preload)
		if err := fusion.Preload(engine.Volume(), cfg.Preload); err != nil {
			return err
		}
	}

	if cfg.Dataset == "" {
		return fusion.NewConfigurationError("Dataset", cfg.Dataset, "must not be empty")
	}
	reader, err := stream.NewRawReader(cfg.Dataset)
	if err != nil {
		return err
	}

	frameCount := 0
	for {
		frame, ok, err := reader.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := engine.IntegrateFrame(frame); err != nil {
			return err
		}
		frameCount++
	}
	logger.Printf("integrated %d frames", frameCount)

	if cfg.DumpBlocks != "" {
		logger.Printf("dumping blocks to %s", cfg.DumpBlocks)
		if err := fusion.DumpAll(engine.Volume(), cfg.DumpBlocks); err != nil {
			return err
		}
	}

	exportPath := ""
	if !cfg.NoExport {
		dir := cfg.OutputDir
		if dir == "" {
			dir = "."
		}
		file := cfg.OutputFile
		if file == "" {
			file = "mesh.ply"
		}
		exportPath = filepath.Join(dir, file)
	}
	if err := engine.Shutdown(exportPath); err != nil {
		return err
	}
	if exportPath != "" {
		logger.Printf("exported mesh to %s", exportPath)
	}
	return nil
}
