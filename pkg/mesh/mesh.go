// Package mesh holds the in-memory vertex/face model and the per-vertex repair
// operations run over it: skin weight canonicalization and normal repair.
package mesh

import (
	"errors"
	"fmt"

	"github.com/Faultbox/weightfix/pkg/math"
)

// Mesh validation errors.
var (
	ErrFaceOutOfRange = errors.New("face references a vertex outside the mesh")
	ErrUnknownWeight  = errors.New("vertex has no recognized skin weight")
)

// Vertex is a single mesh vertex. Vertices have no identity beyond their index.
type Vertex struct {
	Position math.Vec3
	Normal   math.Vec3
	Weight   Weight
}

// Face is a triangle given by three vertex indices.
type Face [3]int

// Mesh is an ordered vertex list plus triangle list.
type Mesh struct {
	Vertices []Vertex
	Faces    []Face
}

// Positions returns the vertex positions in vertex order.
func (m *Mesh) Positions() []math.Vec3 {
	out := make([]math.Vec3, len(m.Vertices))
	for i := range m.Vertices {
		out[i] = m.Vertices[i].Position
	}
	return out
}

// Validate checks that every face index is in range and every vertex carries
// one of the known weight variants.
func (m *Mesh) Validate() error {
	n := len(m.Vertices)
	for fi, f := range m.Faces {
		for _, v := range f {
			if v < 0 || v >= n {
				return fmt.Errorf("%w: face %d vertex %d (vertex count %d)", ErrFaceOutOfRange, fi, v, n)
			}
		}
	}
	for vi := range m.Vertices {
		switch m.Vertices[vi].Weight.(type) {
		case Single, Dual, Quad:
		default:
			return fmt.Errorf("%w: vertex %d has %T", ErrUnknownWeight, vi, m.Vertices[vi].Weight)
		}
	}
	return nil
}

// CountByDeform returns how many vertices use each deform type.
func (m *Mesh) CountByDeform() map[DeformType]int {
	counts := make(map[DeformType]int)
	for _, v := range m.Vertices {
		if v.Weight != nil {
			counts[v.Weight.Deform()]++
		}
	}
	return counts
}
