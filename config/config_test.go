package config

import (
	"os"
	"testing"

	"github.com/aarnaud1/SimpleFusion/fusion"
)

func TestLoadMissingPathReturnsZeroValue(t *testing.T) {
	p, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p != (Parameters{}) {
		t.Errorf("expected a zero-value Parameters, got %+v", p)
	}
}

func TestLoadParsesYaml(t *testing.T) {
	path := t.TempDir() + "/config.yaml"
	content := "voxel_res: 0.01\ntau: 0.025\ndataset_type: fr1\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.VoxelRes != 0.01 || p.Tau != 0.025 || p.DatasetType != "fr1" {
		t.Errorf("p = %+v, want voxel_res=0.01 tau=0.025 dataset_type=fr1", p)
	}
}

func TestResolveCliOverridesYaml(t *testing.T) {
	p := Parameters{VoxelRes: 0.02, OutputDir: "from-yaml"}
	useOPC := true
	p.Resolve(Flags{VoxelRes: 0.01, OutputDir: "from-cli", UseOPC: &useOPC})
	if p.VoxelRes != 0.01 {
		t.Errorf("VoxelRes = %v, want 0.01 (CLI override)", p.VoxelRes)
	}
	if p.OutputDir != "from-cli" {
		t.Errorf("OutputDir = %v, want from-cli", p.OutputDir)
	}
	if !p.UseOPC {
		t.Error("expected UseOPC to be set from the flag")
	}
}

func TestValidateRejectsUnknownDataset(t *testing.T) {
	p := Parameters{VoxelRes: 0.01, Tau: 0.025, DatasetType: "nonexistent"}
	err := p.Validate()
	if err == nil {
		t.Fatal("expected a ConfigurationError for an unknown dataset tag")
	}
	if _, ok := err.(*fusion.ConfigurationError); !ok {
		t.Errorf("err = %T, want *fusion.ConfigurationError", err)
	}
}

func TestValidateAcceptsKnownDataset(t *testing.T) {
	p := Parameters{VoxelRes: 0.01, Tau: 0.025, DatasetType: "synthetic0"}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestCameraParametersForUnknownTag(t *testing.T) {
	_, err := CameraParametersFor(DatasetTag("bogus"), fusion.CameraIntrinsics{}, 640, 480)
	if err == nil {
		t.Fatal("expected an error for an unknown dataset tag")
	}
}

func TestCameraParametersForFr1IclDistinctAxisPermutation(t *testing.T) {
	fr1, err := CameraParametersFor(DatasetFr1, fusion.CameraIntrinsics{}, 640, 480)
	if err != nil {
		t.Fatalf("CameraParametersFor(fr1): %v", err)
	}
	icl1, err := CameraParametersFor(DatasetIcl1, fusion.CameraIntrinsics{}, 640, 480)
	if err != nil {
		t.Fatalf("CameraParametersFor(icl1): %v", err)
	}
	if fr1.AxisPermutation == icl1.AxisPermutation {
		t.Error("fr1 and icl1 should not share the same axis permutation matrix")
	}
	if fr1.AxisPermutation[5] != -1 {
		t.Errorf("fr1 AXIS_PERMUT[1][1] = %v, want -1", fr1.AxisPermutation[5])
	}
	if icl1.AxisPermutation[5] != 1 {
		t.Errorf("icl1 AXIS_PERMUT[1][1] = %v, want 1", icl1.AxisPermutation[5])
	}
}

func TestIntrinsicsForKnownTags(t *testing.T) {
	fr1, err := IntrinsicsFor(DatasetFr1, 640, 480)
	if err != nil {
		t.Fatalf("IntrinsicsFor(fr1): %v", err)
	}
	if fr1.Cx == 0 || fr1.Cy == 0 {
		t.Errorf("fr1 intrinsics = %+v, want a nonzero principal point", fr1)
	}

	icl1, err := IntrinsicsFor(DatasetIcl1, 640, 480)
	if err != nil {
		t.Fatalf("IntrinsicsFor(icl1): %v", err)
	}
	if icl1.Fy >= 0 {
		t.Errorf("icl1 Fy = %v, want a negative focal length per Parameters.hpp", icl1.Fy)
	}

	synth, err := IntrinsicsFor(DatasetSynthetic0, 640, 480)
	if err != nil {
		t.Fatalf("IntrinsicsFor(synthetic0): %v", err)
	}
	if synth.Cx != 320 || synth.Cy != 240 {
		t.Errorf("synthetic0 principal point = (%v,%v), want (320,240)", synth.Cx, synth.Cy)
	}
}

func TestIntrinsicsForUnknownTag(t *testing.T) {
	if _, err := IntrinsicsFor(DatasetTag("bogus"), 640, 480); err == nil {
		t.Fatal("expected an error for an unknown dataset tag")
	}
}
