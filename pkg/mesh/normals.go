package mesh

import (
	"fmt"

	"github.com/Faultbox/weightfix/pkg/math"
)

// DefaultNormalTolerance is how far a normal's length may drift from 1 before
// it is rescaled.
const DefaultNormalTolerance = 1e-6

// NormalRepair describes what RepairNormal did to one vertex.
type NormalRepair int

const (
	NormalUnchanged         NormalRepair = iota // Already unit length
	NormalRenormalized                          // Non-zero, rescaled to unit length
	NormalReconstructed                         // Zero, rebuilt from adjacent faces
	NormalFallbackIsolated                      // Zero, no adjacent faces; set to math.Up
	NormalFallbackCanceled                      // Zero, adjacent face normals cancel; first face's normal used
)

// String returns a short name for logs and reports.
func (r NormalRepair) String() string {
	switch r {
	case NormalUnchanged:
		return "unchanged"
	case NormalRenormalized:
		return "renormalized"
	case NormalReconstructed:
		return "reconstructed"
	case NormalFallbackIsolated:
		return "isolated"
	case NormalFallbackCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("NormalRepair(%d)", int(r))
	}
}

// Reconstructed reports whether the vertex started with a zero normal.
func (r NormalRepair) Reconstructed() bool {
	return r == NormalReconstructed || r.Fallback()
}

// Fallback reports whether a fixed fallback normal was substituted.
func (r NormalRepair) Fallback() bool {
	return r == NormalFallbackIsolated || r == NormalFallbackCanceled
}

// RepairNormal returns the repaired normal for vertex v.
func RepairNormal(v int, normal math.Vec3, positions []math.Vec3, adj *Adjacency, tol float64) (math.Vec3, NormalRepair) {
	if tol <= 0 {
		tol = DefaultNormalTolerance
	}
	if !normal.IsZero() {
		if normal.IsUnit(tol) {
			return normal, NormalUnchanged
		}
		return normal.Normalize(), NormalRenormalized
	}

	faces := adj.FacesOf(v)
	if len(faces) == 0 {
		return math.Up, NormalFallbackIsolated
	}
	var sum math.Vec3
	for _, f := range faces {
		sum = sum.Add(adj.FaceNormal(int(f), positions))
	}
	avg := sum.Scale(1 / float64(len(faces)))
	if avg.IsZero() {
		return adj.FaceNormal(int(faces[0]), positions), NormalFallbackCanceled
	}
	return avg.Normalize(), NormalReconstructed
}

// RepairNormals repairs the normals of vertices [start, end) in place and
// returns what happened to each, indexed from start.
func RepairNormals(m *Mesh, start, end int, positions []math.Vec3, adj *Adjacency, tol float64) []NormalRepair {
	out := make([]NormalRepair, end-start)
	for v := start; v < end; v++ {
		n, r := RepairNormal(v, m.Vertices[v].Normal, positions, adj, tol)
		m.Vertices[v].Normal = n
		out[v-start] = r
	}
	return out
}
