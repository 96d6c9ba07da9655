package mesh

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/weightfix/pkg/math"
)

func TestNormalRepair_String(t *testing.T) {
	tests := []struct {
		repair NormalRepair
		want   string
	}{
		{NormalUnchanged, "unchanged"},
		{NormalRenormalized, "renormalized"},
		{NormalReconstructed, "reconstructed"},
		{NormalFallbackIsolated, "isolated"},
		{NormalFallbackCanceled, "canceled"},
		{NormalRepair(42), "NormalRepair(42)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.repair.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRepairNormal_NonZero(t *testing.T) {
	adj, _ := BuildAdjacency(nil, 1)

	tests := []struct {
		name   string
		normal math.Vec3
		want   NormalRepair
	}{
		{"unit", math.Vec3{X: 0, Y: 0, Z: 1}, NormalUnchanged},
		{"long", math.Vec3{X: 0, Y: 3, Z: 4}, NormalRenormalized},
		{"short", math.Vec3{X: 0.1, Y: 0, Z: 0}, NormalRenormalized},
		{"within tolerance", math.Vec3{X: 0, Y: 0, Z: 1 + 1e-8}, NormalUnchanged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, r := RepairNormal(0, tt.normal, nil, adj, 0)
			if r != tt.want {
				t.Errorf("repair = %v, want %v", r, tt.want)
			}
			if gomath.Abs(n.Length()-1) > 1e-6 {
				t.Errorf("|n| = %v, want 1", n.Length())
			}
			if r == NormalUnchanged && n != tt.normal {
				t.Errorf("unchanged normal was modified: %v", n)
			}
		})
	}
}

func TestRepairNormal_SingleFace(t *testing.T) {
	positions := []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}}
	adj, err := BuildAdjacency([]Face{{0, 1, 2}}, 3)
	if err != nil {
		t.Fatalf("BuildAdjacency failed: %v", err)
	}

	n, r := RepairNormal(0, math.Vec3{}, positions, adj, 0)
	if r != NormalReconstructed {
		t.Errorf("repair = %v, want reconstructed", r)
	}
	if !n.NearEquals(math.Vec3{X: 0, Y: 0, Z: 1}, 1e-12) {
		t.Errorf("normal = %v, want (0,0,1)", n)
	}
}

func TestRepairNormal_Averaged(t *testing.T) {
	// Two faces sharing vertex 0, one facing +Z and one facing +X.
	positions := []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 0, Y: 0, Z: 1}}
	adj, err := BuildAdjacency([]Face{{0, 1, 2}, {0, 2, 3}}, 4)
	if err != nil {
		t.Fatalf("BuildAdjacency failed: %v", err)
	}

	n, r := RepairNormal(0, math.Vec3{}, positions, adj, 0)
	if r != NormalReconstructed {
		t.Errorf("repair = %v, want reconstructed", r)
	}
	s := 1 / gomath.Sqrt2
	if !n.NearEquals(math.Vec3{X: s, Y: 0, Z: s}, 1e-12) {
		t.Errorf("normal = %v, want (%v,0,%v)", n, s, s)
	}
}

func TestRepairNormal_Isolated(t *testing.T) {
	positions := []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 9, Y: 9, Z: 9}}
	adj, err := BuildAdjacency([]Face{{0, 1, 2}}, 4)
	if err != nil {
		t.Fatalf("BuildAdjacency failed: %v", err)
	}

	n, r := RepairNormal(3, math.Vec3{}, positions, adj, 0)
	if r != NormalFallbackIsolated {
		t.Errorf("repair = %v, want isolated", r)
	}
	if n != (math.Vec3{X: 0, Y: 1, Z: 0}) {
		t.Errorf("normal = %v, want exactly (0,1,0)", n)
	}
	if !r.Fallback() || !r.Reconstructed() {
		t.Error("isolated repair should count as a reconstructed fallback")
	}
}

func TestRepairNormal_Canceled(t *testing.T) {
	// The same triangle wound both ways: the face normals cancel exactly.
	positions := []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}}
	adj, err := BuildAdjacency([]Face{{0, 1, 2}, {0, 2, 1}}, 3)
	if err != nil {
		t.Fatalf("BuildAdjacency failed: %v", err)
	}

	n, r := RepairNormal(0, math.Vec3{}, positions, adj, 0)
	if r != NormalFallbackCanceled {
		t.Errorf("repair = %v, want canceled", r)
	}
	if n != (math.Vec3{X: 0, Y: 0, Z: 1}) {
		t.Errorf("normal = %v, want first face normal (0,0,1)", n)
	}
}

func TestRepairNormals_UnitInvariant(t *testing.T) {
	m := makeQuadMesh()
	m.Vertices[0].Normal = math.Vec3{}
	m.Vertices[1].Normal = math.Vec3{X: 0, Y: 0, Z: 2}
	m.Vertices[2].Normal = math.Vec3{X: 0, Y: 0, Z: 1}
	m.Vertices[3].Normal = math.Vec3{X: 0.3, Y: 0.3, Z: 0.3}
	m.Vertices[4].Normal = math.Vec3{}

	positions := m.Positions()
	adj, err := BuildAdjacency(m.Faces, len(m.Vertices))
	if err != nil {
		t.Fatalf("BuildAdjacency failed: %v", err)
	}

	got := RepairNormals(m, 0, len(m.Vertices), positions, adj, 0)
	want := []NormalRepair{NormalReconstructed, NormalRenormalized, NormalUnchanged, NormalRenormalized, NormalFallbackIsolated}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("vertex %d: repair = %v, want %v", i, got[i], want[i])
		}
	}
	for i, v := range m.Vertices {
		if gomath.Abs(v.Normal.Length()-1) > 1e-6 {
			t.Errorf("vertex %d: |n| = %v, want 1", i, v.Normal.Length())
		}
	}

	// A second pass over repaired normals changes nothing.
	again := RepairNormals(m, 0, len(m.Vertices), positions, adj, 0)
	for i, r := range again {
		if r != NormalUnchanged {
			t.Errorf("vertex %d: second pass repair = %v, want unchanged", i, r)
		}
	}
}
