// Package config loads and resolves the process-wide settings for the
// simplefusion driver: a YAML file (struct tags in the style of
// occupancyGrid's map.yaml loader) overlaid with CLI flags.
package config

import (
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aarnaud1/SimpleFusion/fusion"
	"github.com/aarnaud1/SimpleFusion/mat"
)

// DatasetTag selects one of the built-in axis-permutation/model-transform
// presets (spec §6, §9; grounded on original_source's Parameters.hpp
// per-dataset tables).
type DatasetTag string

const (
	DatasetFr1        DatasetTag = "fr1"
	DatasetIcl1       DatasetTag = "icl1"
	DatasetSynthetic0 DatasetTag = "synthetic0"
)

// Parameters mirrors fusion.Parameters' fields plus the driver-only
// settings a YAML file or CLI flags can set: persistence/export paths and
// the dataset tag used to resolve CameraParameters.
type Parameters struct {
	VoxelRes float32 `yaml:"voxel_res"`
	Tau      float32 `yaml:"tau"`
	MinDist  float32 `yaml:"min_dist"`
	MaxDist  float32 `yaml:"max_dist"`

	MaxFrameWidth  int `yaml:"max_frame_width"`
	MaxFrameHeight int `yaml:"max_frame_height"`

	UpdateMesh bool `yaml:"update_mesh"`
	UseOPC     bool `yaml:"use_opc"`
	NoExport   bool `yaml:"no_export"`

	Preload     string `yaml:"preload"`
	DumpBlocks  string `yaml:"dump_blocks"`
	OutputDir   string `yaml:"output_dir"`
	OutputFile  string `yaml:"output_file"`
	DatasetType string `yaml:"dataset_type"`
	Dataset     string `yaml:"dataset"`
}

// Flags holds CLI-flag overrides; a zero value for any field means "not
// set on the command line" and Resolve leaves the YAML-sourced value
// alone (grounded on mu-bmd-renderer's config.Flags/Resolve pattern).
type Flags struct {
	VoxelRes float32
	Tau      float32
	MinDist  float32
	MaxDist  float32

	UpdateMesh *bool
	UseOPC     *bool
	NoExport   *bool

	Preload     string
	DumpBlocks  string
	OutputDir   string
	OutputFile  string
	DatasetType string
	Dataset     string
}

// Load reads and parses a YAML config file. An empty path is not an
// error: Parameters zero value is returned, to be filled entirely by
// Resolve's CLI overlay. A path that cannot be read is an IoError.
func Load(path string) (Parameters, error) {
	if path == "" {
		return Parameters{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Parameters{}, fusion.NewIoError("read", path, err)
	}
	var p Parameters
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Parameters{}, fusion.NewIoError("parse", path, err)
	}
	return p, nil
}

// Resolve merges flags into p, CLI taking precedence over whatever the
// YAML file set (drsaluml-mu-bmd-to-webp's config.Resolve pattern).
func (p *Parameters) Resolve(flags Flags) {
	if flags.VoxelRes > 0 {
		p.VoxelRes = flags.VoxelRes
	}
	if flags.Tau > 0 {
		p.Tau = flags.Tau
	}
	if flags.MinDist > 0 {
		p.MinDist = flags.MinDist
	}
	if flags.MaxDist > 0 {
		p.MaxDist = flags.MaxDist
	}
	if flags.UpdateMesh != nil {
		p.UpdateMesh = *flags.UpdateMesh
	}
	if flags.UseOPC != nil {
		p.UseOPC = *flags.UseOPC
	}
	if flags.NoExport != nil {
		p.NoExport = *flags.NoExport
	}
	if flags.Preload != "" {
		p.Preload = flags.Preload
	}
	if flags.DumpBlocks != "" {
		p.DumpBlocks = flags.DumpBlocks
	}
	if flags.OutputDir != "" {
		p.OutputDir = flags.OutputDir
	}
	if flags.OutputFile != "" {
		p.OutputFile = flags.OutputFile
	}
	if flags.DatasetType != "" {
		p.DatasetType = flags.DatasetType
	}
	if flags.Dataset != "" {
		p.Dataset = flags.Dataset
	}
}

// Validate checks the merged parameters, returning a *fusion.ConfigurationError
// for anything spec §7 names as fatal at startup.
func (p Parameters) Validate() error {
	fp := fusion.Parameters{
		VoxelRes: p.VoxelRes, Tau: p.Tau,
		MaxFrameWidth: p.MaxFrameWidth, MaxFrameHeight: p.MaxFrameHeight,
		MinDist: p.MinDist, MaxDist: p.MaxDist,
	}
	if err := fp.Validate(); err != nil {
		return err
	}
	switch DatasetTag(p.DatasetType) {
	case DatasetFr1, DatasetIcl1, DatasetSynthetic0:
	default:
		return fusion.NewConfigurationError("DatasetType", p.DatasetType, "unknown dataset tag")
	}
	return nil
}

// FusionParameters extracts the fusion.Parameters subset Engine needs.
func (p Parameters) FusionParameters() fusion.Parameters {
	return fusion.Parameters{
		VoxelRes:       p.VoxelRes,
		Tau:            p.Tau,
		MaxFrameWidth:  p.MaxFrameWidth,
		MaxFrameHeight: p.MaxFrameHeight,
		MinDist:        p.MinDist,
		MaxDist:        p.MaxDist,
		UpdateMesh:     p.UpdateMesh,
		UseOPC:         p.UseOPC,
	}
}

// CameraParametersFor resolves the dataset tag to a fusion.CameraParameters
// preset (spec §6, §9; grounded on original_source/main/include/Parameters.hpp's
// FR1_PARAMS/ICL1_PARAMS/SYNTHETIC_0_PARAMS tables).
func CameraParametersFor(tag DatasetTag, intrinsics fusion.CameraIntrinsics, width, height int) (fusion.CameraParameters, error) {
	base := fusion.CameraParameters{
		Width: width, Height: height,
		Intrinsics:     intrinsics,
		ModelTransform: mat.Identity(),
	}
	switch tag {
	case DatasetFr1:
		base.AxisPermutation = axisPermutFr1
		base.InverseOrder = false
	case DatasetIcl1:
		base.AxisPermutation = axisPermutIcl1
		base.InverseOrder = false
	case DatasetSynthetic0:
		base.AxisPermutation = axisPermutSynthetic0
		base.InverseOrder = true
	default:
		return fusion.CameraParameters{}, fusion.NewConfigurationError("DatasetType", string(tag), "unknown dataset tag")
	}
	return base, nil
}

// IntrinsicsFor returns the pinhole intrinsics Parameters.hpp pins to each
// dataset tag (fr1: INTRINSICS; icl1: ICL_INTRINSICS_1; synthetic0: derived
// from the renderer's 50-degree vertical field of view over width/height).
func IntrinsicsFor(tag DatasetTag, width, height int) (fusion.CameraIntrinsics, error) {
	switch tag {
	case DatasetFr1:
		return fusion.CameraIntrinsics{Fx: 525.0, Fy: 525.0, Cx: 319.5, Cy: 239.5}, nil
	case DatasetIcl1:
		return fusion.CameraIntrinsics{Fx: 481.20, Fy: -480.0, Cx: 319.5, Cy: 239.5}, nil
	case DatasetSynthetic0:
		tanHalfFov := float32(math.Tan(50.0 * math.Pi / 180.0))
		return fusion.CameraIntrinsics{
			Fx: float32(width/2) * tanHalfFov, Fy: float32(height/2) * tanHalfFov,
			Cx: float32(width / 2), Cy: float32(height / 2),
		}, nil
	default:
		return fusion.CameraIntrinsics{}, fusion.NewConfigurationError("DatasetType", string(tag), "unknown dataset tag")
	}
}

// axisPermutFr1/Icl1/Synthetic0 are the AXIS_PERMUT diagonal sign-flip
// matrices from Parameters.hpp's FR1_PARAMS/ICL1_PARAMS/SYNTHETIC_0_PARAMS.
var (
	axisPermutFr1 = mat.Mat4{
		1, 0, 0, 0,
		0, -1, 0, 0,
		0, 0, -1, 0,
		0, 0, 0, 1,
	}
	axisPermutIcl1 = mat.Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, -1, 0,
		0, 0, 0, 1,
	}
	axisPermutSynthetic0 = mat.Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, -1, 0,
		0, 0, 0, 1,
	}
)
