package mesh

import (
	"fmt"
	"sync"

	"github.com/Faultbox/weightfix/pkg/math"
)

// Adjacency maps each vertex to the faces that use it and memoizes one
// geometric normal per face. It is safe for concurrent readers once built.
type Adjacency struct {
	faces []Face

	// Incident faces of vertex v are faceIDs[offsets[v]:offsets[v+1]].
	offsets []int32
	faceIDs []int32

	normals []faceNormal
}

type faceNormal struct {
	once sync.Once
	n    math.Vec3
}

// BuildAdjacency indexes faces against a mesh of vertexCount vertices.
func BuildAdjacency(faces []Face, vertexCount int) (*Adjacency, error) {
	counts := make([]int32, vertexCount+1)
	for fi, f := range faces {
		for k, v := range f {
			if v < 0 || v >= vertexCount {
				return nil, fmt.Errorf("%w: face %d vertex %d (vertex count %d)", ErrFaceOutOfRange, fi, v, vertexCount)
			}
			if repeatsEarlier(f, k) {
				continue
			}
			counts[v+1]++
		}
	}
	for v := 1; v <= vertexCount; v++ {
		counts[v] += counts[v-1]
	}

	a := &Adjacency{
		faces:   faces,
		offsets: counts,
		faceIDs: make([]int32, counts[vertexCount]),
		normals: make([]faceNormal, len(faces)),
	}
	next := make([]int32, vertexCount)
	copy(next, counts[:vertexCount])
	for fi, f := range faces {
		for k, v := range f {
			if repeatsEarlier(f, k) {
				continue
			}
			a.faceIDs[next[v]] = int32(fi)
			next[v]++
		}
	}
	return a, nil
}

// repeatsEarlier reports whether f[k] already appeared at a lower corner.
func repeatsEarlier(f Face, k int) bool {
	for j := 0; j < k; j++ {
		if f[j] == f[k] {
			return true
		}
	}
	return false
}

// VertexCount returns the number of vertices the index was built for.
func (a *Adjacency) VertexCount() int {
	return len(a.offsets) - 1
}

// FacesOf returns the faces incident to vertex v in face order.
// The returned slice must not be modified.
func (a *Adjacency) FacesOf(v int) []int32 {
	return a.faceIDs[a.offsets[v]:a.offsets[v+1]]
}

// FaceNormal returns the unit normal of face f, computing it from positions on
// first use. Collinear faces get math.Up.
func (a *Adjacency) FaceNormal(f int, positions []math.Vec3) math.Vec3 {
	fn := &a.normals[f]
	fn.once.Do(func() {
		fn.n = geometricNormal(a.faces[f], positions)
	})
	return fn.n
}

// geometricNormal returns normalize((B-A) x (C-A)) for the face's corners in
// declared order.
func geometricNormal(f Face, positions []math.Vec3) math.Vec3 {
	p0, p1, p2 := positions[f[0]], positions[f[1]], positions[f[2]]
	n := p1.Sub(p0).Cross(p2.Sub(p0))
	if n.IsZero() {
		return math.Up
	}
	return n.Normalize()
}
