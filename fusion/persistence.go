package fusion

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/aarnaud1/SimpleFusion/mat"
)

func writeFloatArray(w io.Writer, arr *[BlockVolume]float32) error {
	var buf [4 * BlockVolume]byte
	for i, v := range arr {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	_, err := w.Write(buf[:])
	return err
}

func writeVec3Array(w io.Writer, arr *[BlockVolume]mat.Vec3) error {
	var buf [12 * BlockVolume]byte
	for i, v := range arr {
		binary.LittleEndian.PutUint32(buf[12*i:], math.Float32bits(v[0]))
		binary.LittleEndian.PutUint32(buf[12*i+4:], math.Float32bits(v[1]))
		binary.LittleEndian.PutUint32(buf[12*i+8:], math.Float32bits(v[2]))
	}
	_, err := w.Write(buf[:])
	return err
}

func readFloatArray(r io.Reader, arr *[BlockVolume]float32) error {
	var buf [4 * BlockVolume]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	for i := range arr {
		arr[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return nil
}

func readVec3Array(r io.Reader, arr *[BlockVolume]mat.Vec3) error {
	var buf [12 * BlockVolume]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	for i := range arr {
		arr[i] = mat.Vec3{
			math.Float32frombits(binary.LittleEndian.Uint32(buf[12*i:])),
			math.Float32frombits(binary.LittleEndian.Uint32(buf[12*i+4:])),
			math.Float32frombits(binary.LittleEndian.Uint32(buf[12*i+8:])),
		}
	}
	return nil
}

// blockFileName formats the file name pattern used by both DumpAll and
// Preload (spec §4.8, §6).
func blockFileName(id BlockId) string {
	return fmt.Sprintf("%d_%d_%d.gz", id.X, id.Y, id.Z)
}

func dumpBlock(block *VoxelBlock, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return NewIoError("create", path, err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)

	useColour := byte(0)
	if block.UseColour() {
		useColour = 1
	}
	if _, err := gz.Write([]byte{useColour}); err != nil {
		return NewIoError("write", path, err)
	}
	if err := writeFloatArray(gz, block.RawTsdf()); err != nil {
		return NewIoError("write", path, err)
	}
	if err := writeFloatArray(gz, block.RawWeight()); err != nil {
		return NewIoError("write", path, err)
	}
	if err := writeVec3Array(gz, block.RawGradient()); err != nil {
		return NewIoError("write", path, err)
	}
	if block.UseColour() {
		if err := writeVec3Array(gz, block.RawColour()); err != nil {
			return NewIoError("write", path, err)
		}
	}
	if err := gz.Close(); err != nil {
		return NewIoError("close", path, err)
	}
	return nil
}

// DumpAll writes every block in vol to dir, one DEFLATE-compressed file per
// block named by blockFileName (spec §4.8).
func DumpAll(vol *Volume, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return NewIoError("mkdir", dir, err)
	}
	for _, id := range vol.AllIds() {
		block := vol.GetBlock(id)
		if block == nil {
			continue
		}
		if err := dumpBlock(block, filepath.Join(dir, blockFileName(id))); err != nil {
			return err
		}
	}
	return nil
}

func parseBlockStem(stem string) (BlockId, error) {
	parts := strings.Split(stem, "_")
	if len(parts) != 3 {
		return BlockId{}, fmt.Errorf("expected X_Y_Z, got %q", stem)
	}
	coords := make([]int32, 3)
	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			return BlockId{}, fmt.Errorf("component %q: %w", p, err)
		}
		coords[i] = int32(v)
	}
	return BlockId{coords[0], coords[1], coords[2]}, nil
}

func preloadBlock(vol *Volume, id BlockId, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return NewIoError("open", path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return NewIoError("decompress", path, err)
	}
	defer gz.Close()

	var useColourByte [1]byte
	if _, err := io.ReadFull(gz, useColourByte[:]); err != nil {
		return NewIoError("read", path, err)
	}
	fileHasColour := useColourByte[0] != 0

	vol.AddBlock(id)
	block := vol.GetBlock(id)

	if err := readFloatArray(gz, block.RawTsdf()); err != nil {
		return NewIoError("read", path, err)
	}
	if err := readFloatArray(gz, block.RawWeight()); err != nil {
		return NewIoError("read", path, err)
	}
	if err := readVec3Array(gz, block.RawGradient()); err != nil {
		return NewIoError("read", path, err)
	}
	if fileHasColour {
		if err := readVec3Array(gz, block.RawColour()); err != nil {
			return NewIoError("read", path, err)
		}
	}
	return nil
}

// Preload reads every `.gz` entry in dir into vol, parsing the block id
// from the file stem and filling arrays in the order DumpAll wrote them
// (spec §4.8). Entries with a different extension are ignored; a
// malformed stem or a truncated/corrupt file is fatal.
func Preload(vol *Volume, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return NewIoError("readdir", dir, err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".gz") {
			continue
		}
		id, err := parseBlockStem(strings.TrimSuffix(name, ".gz"))
		if err != nil {
			return NewIoError("parse", filepath.Join(dir, name), err)
		}
		if err := preloadBlock(vol, id, filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}
