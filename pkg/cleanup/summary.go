package cleanup

import (
	"fmt"

	"github.com/Faultbox/weightfix/pkg/mesh"
)

// Fallback records a vertex whose normal could not be rebuilt from its faces.
type Fallback struct {
	Vertex int
	Reason mesh.NormalRepair
}

// Summary reports what a cleanup run changed.
type Summary struct {
	Vertices int

	WeightsChanged       int
	NormalsRenormalized  int
	NormalsReconstructed int // Includes fallbacks

	Fallbacks             []Fallback // Sorted by vertex
	NormalizationFailures []int      // Vertices whose quad weights sum to zero

	// AnyChange is false when nothing was modified and no output needs writing.
	AnyChange bool
}

// FallbacksUsed returns the number of fallback normals substituted.
func (s *Summary) FallbacksUsed() int {
	return len(s.Fallbacks)
}

// Merge adds other into s, shifting its vertex indices by vertexOffset.
func (s *Summary) Merge(other *Summary, vertexOffset int) {
	s.Vertices += other.Vertices
	s.WeightsChanged += other.WeightsChanged
	s.NormalsRenormalized += other.NormalsRenormalized
	s.NormalsReconstructed += other.NormalsReconstructed
	for _, f := range other.Fallbacks {
		s.Fallbacks = append(s.Fallbacks, Fallback{Vertex: f.Vertex + vertexOffset, Reason: f.Reason})
	}
	for _, v := range other.NormalizationFailures {
		s.NormalizationFailures = append(s.NormalizationFailures, v+vertexOffset)
	}
	s.AnyChange = s.AnyChange || other.AnyChange
}

func (s *Summary) updateAnyChange() {
	s.AnyChange = s.WeightsChanged != 0 ||
		s.NormalsRenormalized != 0 ||
		s.NormalsReconstructed != 0 ||
		len(s.Fallbacks) != 0
}

// Lines renders the summary as human-readable report lines.
func (s *Summary) Lines() []string {
	var lines []string
	if s.WeightsChanged > 0 {
		lines = append(lines, fmt.Sprintf("Fixed weights for %s of all vertices", s.ratio(s.WeightsChanged)))
	}
	if n := len(s.NormalizationFailures); n > 0 {
		lines = append(lines, fmt.Sprintf("Could not normalize zero-sum weights for %d vertices: %v", n, preview(s.NormalizationFailures)))
	}
	if s.NormalsRenormalized > 0 {
		lines = append(lines, fmt.Sprintf("Normalized normals for %s of all vertices", s.ratio(s.NormalsRenormalized)))
	}
	if s.NormalsReconstructed > 0 {
		lines = append(lines, fmt.Sprintf("Repaired invalid normals for %s of all vertices", s.ratio(s.NormalsReconstructed)))
	}
	if n := len(s.Fallbacks); n > 0 {
		lines = append(lines, fmt.Sprintf("Used fallback normal for %d vertices", n))
	}
	if !s.AnyChange {
		lines = append(lines, "No changes are required")
	}
	return lines
}

func (s *Summary) ratio(n int) string {
	if s.Vertices == 0 {
		return fmt.Sprintf("%d / 0", n)
	}
	return fmt.Sprintf("%d / %d = %.1f%%", n, s.Vertices, 100*float64(n)/float64(s.Vertices))
}

// preview returns at most the first 10 indices.
func preview(v []int) []int {
	if len(v) > 10 {
		return v[:10]
	}
	return v
}
