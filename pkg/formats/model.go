package formats

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Faultbox/weightfix/pkg/mesh"
)

// ErrUnsupportedModelFormat is returned for file extensions no codec handles.
var ErrUnsupportedModelFormat = errors.New("unsupported model format")

// Model is a loaded model file whose meshes can be repaired in place.
type Model interface {
	// Meshes returns the editable meshes. Changes take effect on Apply.
	Meshes() []*mesh.Mesh
	// Apply writes mesh changes back into the model.
	Apply() error
	// Save writes the model to path.
	Save(path string) error
}

// SupportedExtensions lists the model file extensions OpenModel accepts.
var SupportedExtensions = []string{".pmx", ".gltf", ".glb"}

// IsModelFile reports whether path has a supported model extension.
func IsModelFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// OpenModel loads a model, picking the codec by file extension.
func OpenModel(path string) (Model, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pmx":
		pmx, err := ParsePMXFile(path)
		if err != nil {
			return nil, err
		}
		return &pmxModel{pmx: pmx, mesh: pmx.Mesh()}, nil
	case ".gltf", ".glb":
		g, err := LoadGLTF(path)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModelFormat, filepath.Ext(path))
	}
}

type pmxModel struct {
	pmx  *PMX
	mesh *mesh.Mesh
}

func (m *pmxModel) Meshes() []*mesh.Mesh   { return []*mesh.Mesh{m.mesh} }
func (m *pmxModel) Apply() error           { return m.pmx.ApplyMesh(m.mesh) }
func (m *pmxModel) Save(path string) error { return m.pmx.WriteFile(path) }

// Meshes returns the mesh of every triangle primitive.
func (g *GLTF) Meshes() []*mesh.Mesh {
	meshes := make([]*mesh.Mesh, len(g.Primitives))
	for i, p := range g.Primitives {
		meshes[i] = p.Mesh
	}
	return meshes
}
