package cleanup

import "fmt"

// Stage is a point in a cleanup run. A run only ever moves forward:
// Start, Weights, Normals, Done.
type Stage int

const (
	StageStart Stage = iota
	StageWeights
	StageNormals
	StageDone
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageStart:
		return "start"
	case StageWeights:
		return "weights"
	case StageNormals:
		return "normals"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}
