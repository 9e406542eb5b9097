// Package stream provides frame sources for the fusion core: the
// FrameSource interface the engine driver consumes, and RawReader, a
// fixed-layout test/reference fixture reader (spec §4.12). Decoding real
// sensor formats (TUM/ICL PNG/JPEG pairs) is out of scope per spec §1;
// RawReader exists so the core and its driver can be exercised end to end
// without that decoder.
package stream

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aarnaud1/SimpleFusion/fusion"
	"github.com/aarnaud1/SimpleFusion/mat"
)

// FrameSource yields posed frames one at a time. Next returns ok == false
// (with a nil error) once the source is exhausted.
type FrameSource interface {
	Next() (fusion.Frame, bool, error)
}

// rawHeaderSize is the fixed 16-byte header preceding each frame's
// payload (spec §4.12): width, height, hasColour, reserved, all uint32 LE.
const rawHeaderSize = 16

// RawReader reads frames named "NNNNNN.frame" from a directory, in
// lexicographic (== numeric, given fixed-width names) order.
type RawReader struct {
	dir   string
	files []string
	idx   int
}

// NewRawReader lists dir for ".frame" entries and returns a reader over
// them in sorted order.
func NewRawReader(dir string) (*RawReader, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fusion.NewIoError("readdir", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".frame") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return &RawReader{dir: dir, files: files}, nil
}

// Next reads and decodes the next frame in the directory.
func (r *RawReader) Next() (fusion.Frame, bool, error) {
	if r.idx >= len(r.files) {
		return fusion.Frame{}, false, nil
	}
	path := filepath.Join(r.dir, r.files[r.idx])
	r.idx++

	frame, err := readRawFrame(path)
	if err != nil {
		return fusion.Frame{}, false, err
	}
	return frame, true, nil
}

func readRawFrame(path string) (fusion.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return fusion.Frame{}, fusion.NewIoError("open", path, err)
	}
	defer f.Close()

	var header [rawHeaderSize]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		return fusion.Frame{}, fusion.NewIoError("read header", path, err)
	}
	width := int(binary.LittleEndian.Uint32(header[0:4]))
	height := int(binary.LittleEndian.Uint32(header[4:8]))
	hasColour := binary.LittleEndian.Uint32(header[8:12]) != 0

	depth := make([]uint16, width*height)
	depthBytes := make([]byte, 2*len(depth))
	if _, err := io.ReadFull(f, depthBytes); err != nil {
		return fusion.Frame{}, fusion.NewIoError("read depth", path, err)
	}
	for i := range depth {
		depth[i] = binary.LittleEndian.Uint16(depthBytes[2*i:])
	}

	var colour []uint8
	if hasColour {
		colour = make([]uint8, 3*width*height)
		if _, err := io.ReadFull(f, colour); err != nil {
			return fusion.Frame{}, fusion.NewIoError("read colour", path, err)
		}
	}

	var poseBytes [7 * 4]byte
	if _, err := io.ReadFull(f, poseBytes[:]); err != nil {
		return fusion.Frame{}, fusion.NewIoError("read pose", path, err)
	}
	var pose [7]float32
	for i := range pose {
		pose[i] = math.Float32frombits(binary.LittleEndian.Uint32(poseBytes[4*i:]))
	}

	return fusion.Frame{
		Depth:  depth,
		Colour: colour,
		Width:  width,
		Height: height,
		Pose: fusion.Pose{
			Translation: mat.Vec3{pose[0], pose[1], pose[2]},
			Rotation:    mat.NewQuat(pose[3], pose[4], pose[5], pose[6]),
		},
	}, nil
}

var _ FrameSource = (*RawReader)(nil)

func frameFileName(index int) string {
	return fmt.Sprintf("%06d.frame", index)
}
