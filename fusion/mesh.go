package fusion

import "github.com/aarnaud1/SimpleFusion/mat"

// Mesh is a structure-of-arrays of per-vertex position/colour/normal,
// three vertices per triangle; triangle t owns vertices [3t, 3t+1, 3t+2]
// (spec §3).
type Mesh struct {
	Positions []mat.Vec3
	Colours   []mat.Vec3
	Normals   []mat.Vec3
}

// NumTriangles returns the number of triangles in the mesh.
func (m *Mesh) NumTriangles() int {
	if m == nil {
		return 0
	}
	return len(m.Positions) / 3
}

func (m *Mesh) addVertex(pos, colour, normal mat.Vec3) {
	m.Positions = append(m.Positions, pos)
	m.Colours = append(m.Colours, colour)
	m.Normals = append(m.Normals, normal)
}
