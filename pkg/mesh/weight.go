package mesh

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

// DeformType is the weight format tag stored per vertex in PMX files.
type DeformType uint8

const (
	BDEF1 DeformType = 0 // One bone, full weight
	BDEF2 DeformType = 1 // Two bones, second weight implicit
	BDEF4 DeformType = 2 // Four bones, explicit weights
	SDEF  DeformType = 3 // BDEF2 plus spherical deform parameters
	QDEF  DeformType = 4 // Four bones, dual quaternion blending
)

// String returns the conventional format name.
func (t DeformType) String() string {
	switch t {
	case BDEF1:
		return "BDEF1"
	case BDEF2:
		return "BDEF2"
	case BDEF4:
		return "BDEF4"
	case SDEF:
		return "SDEF"
	case QDEF:
		return "QDEF"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// UnusedBone is the bone index written into empty quad slots.
const UnusedBone int32 = 0

// DefaultWeightTolerance is how far a quad weight sum may drift from 1.
const DefaultWeightTolerance = 1e-6

// Weight is a per-vertex skin weight record. It is one of Single, Dual or Quad.
type Weight interface {
	Deform() DeformType
	isWeight()
}

// Single binds a vertex fully to one bone (BDEF1).
type Single struct {
	Bone int32
}

// SDEFParams is the spherical deform payload carried by SDEF vertices.
// It is never inspected by the repair code.
type SDEFParams struct {
	C  [3]float32
	R0 [3]float32
	R1 [3]float32
}

// Dual blends two bones; the second bone's weight is 1 - Weight.
// A non-nil SDEF marks the record as SDEF rather than BDEF2.
type Dual struct {
	Bones  [2]int32
	Weight float64
	SDEF   *SDEFParams
}

// Quad blends up to four bones with explicit weights.
// QDEF marks the dual quaternion flavor, which is never reduced to Dual.
type Quad struct {
	Bones   [4]int32
	Weights [4]float64
	QDEF    bool
}

func (Single) Deform() DeformType { return BDEF1 }

func (d Dual) Deform() DeformType {
	if d.SDEF != nil {
		return SDEF
	}
	return BDEF2
}

func (q Quad) Deform() DeformType {
	if q.QDEF {
		return QDEF
	}
	return BDEF4
}

func (Single) isWeight() {}
func (Dual) isWeight()   {}
func (Quad) isWeight()   {}

// WeightOptions controls NormalizeWeight.
type WeightOptions struct {
	// Tolerance on |sum-1| before quad weights are rescaled. Zero means
	// DefaultWeightTolerance.
	Tolerance float64
	// KeepFormat disables every downgrade (Quad to Dual/Single, Dual to Single).
	KeepFormat bool
}

func (o WeightOptions) tolerance() float64 {
	if o.Tolerance > 0 {
		return o.Tolerance
	}
	return DefaultWeightTolerance
}

// WeightResult is the outcome of NormalizeWeight.
type WeightResult struct {
	Weight  Weight
	Changed bool
	// Failed is set when quad weights sum to exactly zero. Weight is then the
	// input record, untouched.
	Failed bool
}

// NormalizeWeight returns the canonical form of w.
func NormalizeWeight(w Weight, opts WeightOptions) WeightResult {
	switch w := w.(type) {
	case Dual:
		return normalizeDual(w, opts)
	case Quad:
		return normalizeQuad(w, opts)
	default:
		return WeightResult{Weight: w}
	}
}

func normalizeDual(d Dual, opts WeightOptions) WeightResult {
	if opts.KeepFormat {
		return WeightResult{Weight: d}
	}
	if d.Bones[0] == d.Bones[1] || d.Weight == 1 {
		return WeightResult{Weight: Single{Bone: d.Bones[0]}, Changed: true}
	}
	if d.Weight == 0 {
		return WeightResult{Weight: Single{Bone: d.Bones[1]}, Changed: true}
	}
	return WeightResult{Weight: d}
}

type quadSlot struct {
	bone   int32
	weight float64
}

func normalizeQuad(q Quad, opts WeightOptions) WeightResult {
	var slots [4]quadSlot
	for i := range slots {
		slots[i] = quadSlot{bone: q.Bones[i], weight: q.Weights[i]}
	}
	modified := false

	// Fold repeated bones into their first slot. An empty slot is skipped,
	// but the unused bone still counts as seen.
	for i := 1; i < len(slots); i++ {
		if slots[i].bone == UnusedBone && slots[i].weight == 0 {
			continue
		}
		for j := 0; j < i; j++ {
			if slots[j].bone == slots[i].bone {
				slots[j].weight += slots[i].weight
				slots[i] = quadSlot{bone: UnusedBone}
				modified = true
				break
			}
		}
	}

	before := slots
	slices.SortStableFunc(slots[:], func(a, b quadSlot) int {
		return cmp.Compare(b.weight, a.weight)
	})
	if slots != before {
		modified = true
	}

	for i := range slots {
		if slots[i].weight == 0 && slots[i].bone != UnusedBone {
			slots[i].bone = UnusedBone
			modified = true
		}
	}

	var sum float64
	for _, s := range slots {
		sum += s.weight
	}
	if math.Abs(sum-1) > opts.tolerance() {
		if sum == 0 {
			return WeightResult{Weight: q, Failed: true}
		}
		for i := range slots {
			slots[i].weight /= sum
		}
		modified = true
	}

	if !opts.KeepFormat {
		switch firstZeroSlot(slots) {
		case 1:
			return WeightResult{Weight: Single{Bone: slots[0].bone}, Changed: true}
		case 2:
			if !q.QDEF {
				return WeightResult{
					Weight:  Dual{Bones: [2]int32{slots[0].bone, slots[1].bone}, Weight: slots[0].weight},
					Changed: true,
				}
			}
		}
	}

	if !modified {
		return WeightResult{Weight: q}
	}
	out := Quad{QDEF: q.QDEF}
	for i, s := range slots {
		out.Bones[i] = s.bone
		out.Weights[i] = s.weight
	}
	return WeightResult{Weight: out, Changed: true}
}

// firstZeroSlot returns the index of the first zero weight, or -1.
func firstZeroSlot(slots [4]quadSlot) int {
	for i, s := range slots {
		if s.weight == 0 {
			return i
		}
	}
	return -1
}
