package mesh

import (
	"errors"
	"testing"
)

func TestMesh_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m *Mesh)
		wantErr error
	}{
		{"valid", func(m *Mesh) {}, nil},
		{"face out of range", func(m *Mesh) { m.Faces = append(m.Faces, Face{0, 1, 9}) }, ErrFaceOutOfRange},
		{"nil weight", func(m *Mesh) { m.Vertices[2].Weight = nil }, ErrUnknownWeight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := makeQuadMesh()
			tt.mutate(m)
			err := m.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestMesh_CountByDeform(t *testing.T) {
	m := &Mesh{Vertices: []Vertex{
		{Weight: Single{Bone: 1}},
		{Weight: Dual{Bones: [2]int32{1, 2}, Weight: 0.5}},
		{Weight: Quad{QDEF: true}},
		{Weight: Quad{QDEF: true}},
	}}

	counts := m.CountByDeform()
	if counts[BDEF1] != 1 || counts[BDEF2] != 1 || counts[QDEF] != 2 || counts[BDEF4] != 0 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestMesh_Positions(t *testing.T) {
	m := makeQuadMesh()
	positions := m.Positions()
	if len(positions) != len(m.Vertices) {
		t.Fatalf("got %d positions, want %d", len(positions), len(m.Vertices))
	}
	for i := range positions {
		if positions[i] != m.Vertices[i].Position {
			t.Errorf("position %d = %v, want %v", i, positions[i], m.Vertices[i].Position)
		}
	}
}
