package formats

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/weightfix/pkg/math"
	"github.com/Faultbox/weightfix/pkg/mesh"
)

// ErrNoGLTFMeshes is returned when a document has no triangle primitive with positions.
var ErrNoGLTFMeshes = errors.New("glTF document has no triangle meshes")

// ErrGLTFJointOverflow is returned when a bone index does not fit an unsigned
// 16-bit glTF joint.
var ErrGLTFJointOverflow = errors.New("bone index does not fit a glTF joint")

// GLTFPrimitive is one triangle primitive of a glTF document viewed as a mesh.
type GLTFPrimitive struct {
	MeshIndex      int
	PrimitiveIndex int
	Name           string
	Mesh           *mesh.Mesh
	Skinned        bool // Primitive carries JOINTS_0 and WEIGHTS_0
}

// GLTF is a loaded glTF document together with the meshes built from it.
type GLTF struct {
	Document   *gltf.Document
	Primitives []*GLTFPrimitive
}

// LoadGLTF opens a .gltf or .glb file and builds one mesh per triangle primitive.
func LoadGLTF(path string) (*GLTF, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}
	return NewGLTF(doc)
}

// NewGLTF builds meshes for an already decoded document.
func NewGLTF(doc *gltf.Document) (*GLTF, error) {
	g := &GLTF{Document: doc}
	for mi, m := range doc.Meshes {
		for pi, prim := range m.Primitives {
			if prim.Mode != gltf.PrimitiveTriangles {
				continue
			}
			if _, ok := prim.Attributes[gltf.POSITION]; !ok {
				continue
			}
			p, err := readPrimitive(doc, prim)
			if err != nil {
				return nil, fmt.Errorf("mesh %q primitive %d: %w", m.Name, pi, err)
			}
			p.MeshIndex = mi
			p.PrimitiveIndex = pi
			p.Name = fmt.Sprintf("%s#%d", m.Name, pi)
			g.Primitives = append(g.Primitives, p)
		}
	}
	if len(g.Primitives) == 0 {
		return nil, ErrNoGLTFMeshes
	}
	return g, nil
}

func readPrimitive(doc *gltf.Document, prim *gltf.Primitive) (*GLTFPrimitive, error) {
	positions, err := modeler.ReadPosition(doc, doc.Accessors[prim.Attributes[gltf.POSITION]], nil)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	// Missing normals stay zero and get rebuilt from the faces.
	var normals [][3]float32
	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		normals, err = modeler.ReadNormal(doc, doc.Accessors[idx], nil)
		if err != nil {
			return nil, fmt.Errorf("read normals: %w", err)
		}
	}

	var joints [][4]uint16
	var weights [][4]float32
	jointsIdx, hasJoints := prim.Attributes[gltf.JOINTS_0]
	weightsIdx, hasWeights := prim.Attributes[gltf.WEIGHTS_0]
	skinned := hasJoints && hasWeights
	if skinned {
		joints, err = modeler.ReadJoints(doc, doc.Accessors[jointsIdx], nil)
		if err != nil {
			return nil, fmt.Errorf("read joints: %w", err)
		}
		weights, err = modeler.ReadWeights(doc, doc.Accessors[weightsIdx], nil)
		if err != nil {
			return nil, fmt.Errorf("read weights: %w", err)
		}
	}

	m := &mesh.Mesh{Vertices: make([]mesh.Vertex, len(positions))}
	for i, pos := range positions {
		v := mesh.Vertex{Position: math.FromArray32(pos), Weight: mesh.Single{Bone: mesh.UnusedBone}}
		if i < len(normals) {
			v.Normal = math.FromArray32(normals[i])
		}
		if skinned && i < len(joints) && i < len(weights) {
			q := mesh.Quad{}
			for k := 0; k < 4; k++ {
				q.Bones[k] = int32(joints[i][k])
				q.Weights[k] = float64(weights[i][k])
			}
			v.Weight = q
		}
		m.Vertices[i] = v
	}

	if prim.Indices != nil {
		indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("read indices: %w", err)
		}
		m.Faces = make([]mesh.Face, 0, len(indices)/3)
		for i := 0; i+2 < len(indices); i += 3 {
			m.Faces = append(m.Faces, mesh.Face{int(indices[i]), int(indices[i+1]), int(indices[i+2])})
		}
	} else {
		// No indices: consecutive vertex triples.
		m.Faces = make([]mesh.Face, 0, len(positions)/3)
		for i := 0; i+2 < len(positions); i += 3 {
			m.Faces = append(m.Faces, mesh.Face{i, i + 1, i + 2})
		}
	}

	return &GLTFPrimitive{Mesh: m, Skinned: skinned}, nil
}

// Apply writes the current normals, and joints and weights for skinned
// primitives, into the document as new accessors. The document is left
// unchanged when a bone index cannot be stored as a glTF joint.
func (g *GLTF) Apply() error {
	type skin struct {
		joints  [][4]uint16
		weights [][4]float32
	}
	skins := make([]*skin, len(g.Primitives))
	for pi, p := range g.Primitives {
		if !p.Skinned {
			continue
		}
		s := &skin{
			joints:  make([][4]uint16, len(p.Mesh.Vertices)),
			weights: make([][4]float32, len(p.Mesh.Vertices)),
		}
		for i, v := range p.Mesh.Vertices {
			var err error
			s.joints[i], s.weights[i], err = jointSlots(v.Weight)
			if err != nil {
				return fmt.Errorf("%s vertex %d: %w", p.Name, i, err)
			}
		}
		skins[pi] = s
	}

	doc := g.Document
	for pi, p := range g.Primitives {
		prim := doc.Meshes[p.MeshIndex].Primitives[p.PrimitiveIndex]

		normals := make([][3]float32, len(p.Mesh.Vertices))
		for i, v := range p.Mesh.Vertices {
			normals[i] = v.Normal.Array32()
		}
		prim.Attributes[gltf.NORMAL] = modeler.WriteNormal(doc, normals)

		if s := skins[pi]; s != nil {
			prim.Attributes[gltf.JOINTS_0] = modeler.WriteJoints(doc, s.joints)
			prim.Attributes[gltf.WEIGHTS_0] = modeler.WriteWeights(doc, s.weights)
		}
	}
	return nil
}

// jointSlots expands a weight variant into the four glTF influence slots.
func jointSlots(w mesh.Weight) ([4]uint16, [4]float32, error) {
	var joints [4]uint16
	var weights [4]float32
	var bones []int32
	switch w := w.(type) {
	case mesh.Single:
		bones = []int32{w.Bone}
		weights[0] = 1
	case mesh.Dual:
		bones = w.Bones[:]
		weights[0], weights[1] = float32(w.Weight), float32(1-w.Weight)
	case mesh.Quad:
		bones = w.Bones[:]
		for k := 0; k < 4; k++ {
			weights[k] = float32(w.Weights[k])
		}
	default:
		return joints, weights, fmt.Errorf("%w: %T", ErrUnknownDeformType, w)
	}
	for k, b := range bones {
		if b < 0 || b > 0xFFFF {
			return joints, weights, fmt.Errorf("%w: bone %d", ErrGLTFJointOverflow, b)
		}
		joints[k] = uint16(b)
	}
	return joints, weights, nil
}

// Save writes the document; .glb paths are written in binary form. JSON output
// embeds buffers that have no external URI, such as those loaded from a .glb.
func (g *GLTF) Save(path string) error {
	if strings.EqualFold(filepath.Ext(path), ".glb") {
		return gltf.SaveBinary(g.Document, path)
	}
	for _, b := range g.Document.Buffers {
		if b.URI == "" && len(b.Data) > 0 {
			b.EmbeddedResource()
		}
	}
	return gltf.Save(g.Document, path)
}
