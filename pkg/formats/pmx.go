// PMX (Polygon Model eXtended) model format reader and writer.
// The header, vertex and face blocks are decoded; everything after the faces
// (textures, materials, bones, morphs, frames, bodies, joints) is kept as raw
// bytes and written back unchanged.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/weightfix/pkg/encoding"
	"github.com/Faultbox/weightfix/pkg/math"
	"github.com/Faultbox/weightfix/pkg/mesh"
)

// PMX format errors.
var (
	ErrInvalidPMXMagic       = errors.New("invalid PMX magic: expected 'PMX '")
	ErrUnsupportedPMXVersion = errors.New("unsupported PMX version")
	ErrTruncatedPMXData      = errors.New("truncated PMX data")
	ErrInvalidPMXGlobals     = errors.New("invalid PMX globals")
	ErrInvalidPMXCount       = errors.New("invalid PMX element count")
	ErrUnknownDeformType     = errors.New("unknown PMX deform type")
	ErrPMXIndexOverflow      = errors.New("index does not fit PMX index size")
	ErrPMXMeshMismatch       = errors.New("mesh does not match PMX vertex count")
)

const pmxMagic = "PMX "

// pmxGlobalCount is the number of header globals defined by PMX 2.0/2.1.
const pmxGlobalCount = 8

// PMXHeader holds the PMX globals.
type PMXHeader struct {
	Version            float32               // 2.0 or 2.1
	Encoding           encoding.TextEncoding // Encoding of every string in the file
	AdditionalUVs      uint8                 // Extra vec4 per vertex (0-4)
	VertexIndexSize    uint8                 // 1, 2 or 4 bytes
	TextureIndexSize   uint8
	MaterialIndexSize  uint8
	BoneIndexSize      uint8
	MorphIndexSize     uint8
	RigidBodyIndexSize uint8
	ExtraGlobals       []byte // Globals past the eighth, kept as read
}

// PMXVertex is a decoded vertex record.
type PMXVertex struct {
	Position      [3]float32
	Normal        [3]float32
	UV            [2]float32
	AdditionalUVs [][4]float32
	Weight        mesh.Weight
	EdgeScale     float32
}

// PMX is a partially decoded PMX model.
type PMX struct {
	Header         PMXHeader
	Name           string
	NameEnglish    string
	Comment        string
	CommentEnglish string
	Vertices       []PMXVertex
	Faces          []mesh.Face
	Tail           []byte // Undecoded remainder of the file
}

// ParsePMX parses PMX data from a byte slice.
func ParsePMX(data []byte) (*PMX, error) {
	if len(data) < 9 {
		return nil, ErrTruncatedPMXData
	}
	if string(data[:4]) != pmxMagic {
		return nil, ErrInvalidPMXMagic
	}

	r := &pmxReader{r: bytes.NewReader(data[4:])}
	pmx := &PMX{}

	r.read(&pmx.Header.Version)
	if pmx.Header.Version != 2.0 && pmx.Header.Version != 2.1 {
		return nil, fmt.Errorf("%w: %.1f", ErrUnsupportedPMXVersion, pmx.Header.Version)
	}

	if err := r.readGlobals(&pmx.Header); err != nil {
		return nil, err
	}

	enc := pmx.Header.Encoding
	pmx.Name = r.text(enc)
	pmx.NameEnglish = r.text(enc)
	pmx.Comment = r.text(enc)
	pmx.CommentEnglish = r.text(enc)
	if r.err != nil {
		return nil, fmt.Errorf("reading model info: %w", r.err)
	}

	// Smallest vertex: position, normal, UV, deform byte, one bone index, edge scale.
	minVertexSize := 12 + 12 + 8 + 16*int(pmx.Header.AdditionalUVs) + 1 + int(pmx.Header.BoneIndexSize) + 4
	vertexCount := r.count(minVertexSize)
	if r.err != nil {
		return nil, fmt.Errorf("reading vertex count: %w", r.err)
	}
	pmx.Vertices = make([]PMXVertex, vertexCount)
	for i := range pmx.Vertices {
		if err := r.readVertex(&pmx.Vertices[i], &pmx.Header); err != nil {
			return nil, fmt.Errorf("parsing vertex %d: %w", i, err)
		}
	}

	indexCount := r.count(int(pmx.Header.VertexIndexSize))
	if r.err != nil {
		return nil, fmt.Errorf("reading face count: %w", r.err)
	}
	if indexCount%3 != 0 {
		return nil, fmt.Errorf("%w: %d face indices is not a multiple of 3", ErrInvalidPMXCount, indexCount)
	}
	pmx.Faces = make([]mesh.Face, indexCount/3)
	for i := range pmx.Faces {
		for k := 0; k < 3; k++ {
			pmx.Faces[i][k] = r.vertexIndex(pmx.Header.VertexIndexSize)
		}
	}
	if r.err != nil {
		return nil, fmt.Errorf("reading faces: %w", r.err)
	}

	pmx.Tail = make([]byte, r.r.Len())
	if _, err := io.ReadFull(r.r, pmx.Tail); err != nil {
		return nil, fmt.Errorf("reading remainder: %w", err)
	}
	return pmx, nil
}

// ParsePMXFile parses a PMX file from disk.
func ParsePMXFile(path string) (*PMX, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading PMX file: %w", err)
	}
	return ParsePMX(data)
}

// pmxReader wraps a reader and remembers the first error.
type pmxReader struct {
	r   *bytes.Reader
	err error
}

func (p *pmxReader) read(v any) {
	if p.err != nil {
		return
	}
	if err := binary.Read(p.r, binary.LittleEndian, v); err != nil {
		p.err = ErrTruncatedPMXData
	}
}

func (p *pmxReader) readGlobals(h *PMXHeader) error {
	var n uint8
	p.read(&n)
	if p.err != nil {
		return p.err
	}
	if n < pmxGlobalCount {
		return fmt.Errorf("%w: %d globals, need %d", ErrInvalidPMXGlobals, n, pmxGlobalCount)
	}
	globals := make([]byte, n)
	p.read(globals)
	if p.err != nil {
		return p.err
	}

	h.Encoding = encoding.TextEncoding(globals[0])
	h.AdditionalUVs = globals[1]
	h.VertexIndexSize = globals[2]
	h.TextureIndexSize = globals[3]
	h.MaterialIndexSize = globals[4]
	h.BoneIndexSize = globals[5]
	h.MorphIndexSize = globals[6]
	h.RigidBodyIndexSize = globals[7]
	if n > pmxGlobalCount {
		h.ExtraGlobals = globals[pmxGlobalCount:]
	}
	return h.validate()
}

func (h *PMXHeader) validate() error {
	if !h.Encoding.Valid() {
		return fmt.Errorf("%w: text encoding %d", ErrInvalidPMXGlobals, uint8(h.Encoding))
	}
	if h.AdditionalUVs > 4 {
		return fmt.Errorf("%w: %d additional UVs", ErrInvalidPMXGlobals, h.AdditionalUVs)
	}
	sizes := []struct {
		name string
		size uint8
	}{
		{"vertex", h.VertexIndexSize},
		{"texture", h.TextureIndexSize},
		{"material", h.MaterialIndexSize},
		{"bone", h.BoneIndexSize},
		{"morph", h.MorphIndexSize},
		{"rigid body", h.RigidBodyIndexSize},
	}
	for _, s := range sizes {
		if s.size != 1 && s.size != 2 && s.size != 4 {
			return fmt.Errorf("%w: %s index size %d", ErrInvalidPMXGlobals, s.name, s.size)
		}
	}
	return nil
}

// count reads an int32 element count and rejects counts that cannot fit in the
// remaining data.
func (p *pmxReader) count(minElementSize int) int {
	var n int32
	p.read(&n)
	if p.err != nil {
		return 0
	}
	if n < 0 || int64(n)*int64(minElementSize) > int64(p.r.Len()) {
		p.err = fmt.Errorf("%w: %d", ErrInvalidPMXCount, n)
		return 0
	}
	return int(n)
}

func (p *pmxReader) text(enc encoding.TextEncoding) string {
	n := p.count(1)
	if p.err != nil {
		return ""
	}
	buf := make([]byte, n)
	p.read(buf)
	if p.err != nil {
		return ""
	}
	s, err := encoding.Decode(buf, enc)
	if err != nil {
		p.err = err
		return ""
	}
	return encoding.TrimNullString(s)
}

// vertexIndex reads a vertex index. Sizes 1 and 2 are unsigned.
func (p *pmxReader) vertexIndex(size uint8) int {
	switch size {
	case 1:
		var v uint8
		p.read(&v)
		return int(v)
	case 2:
		var v uint16
		p.read(&v)
		return int(v)
	default:
		var v int32
		p.read(&v)
		return int(v)
	}
}

// boneIndex reads a signed bone index.
func (p *pmxReader) boneIndex(size uint8) int32 {
	switch size {
	case 1:
		var v int8
		p.read(&v)
		return int32(v)
	case 2:
		var v int16
		p.read(&v)
		return int32(v)
	default:
		var v int32
		p.read(&v)
		return v
	}
}

func (p *pmxReader) float() float32 {
	var f float32
	p.read(&f)
	return f
}

func (p *pmxReader) readVertex(v *PMXVertex, h *PMXHeader) error {
	p.read(&v.Position)
	p.read(&v.Normal)
	p.read(&v.UV)
	if h.AdditionalUVs > 0 {
		v.AdditionalUVs = make([][4]float32, h.AdditionalUVs)
		for i := range v.AdditionalUVs {
			p.read(&v.AdditionalUVs[i])
		}
	}

	var deform uint8
	p.read(&deform)
	if p.err != nil {
		return p.err
	}

	bs := h.BoneIndexSize
	switch mesh.DeformType(deform) {
	case mesh.BDEF1:
		v.Weight = mesh.Single{Bone: p.boneIndex(bs)}
	case mesh.BDEF2:
		d := mesh.Dual{}
		d.Bones[0] = p.boneIndex(bs)
		d.Bones[1] = p.boneIndex(bs)
		d.Weight = float64(p.float())
		v.Weight = d
	case mesh.SDEF:
		d := mesh.Dual{SDEF: &mesh.SDEFParams{}}
		d.Bones[0] = p.boneIndex(bs)
		d.Bones[1] = p.boneIndex(bs)
		d.Weight = float64(p.float())
		p.read(&d.SDEF.C)
		p.read(&d.SDEF.R0)
		p.read(&d.SDEF.R1)
		v.Weight = d
	case mesh.BDEF4, mesh.QDEF:
		q := mesh.Quad{QDEF: mesh.DeformType(deform) == mesh.QDEF}
		for i := range q.Bones {
			q.Bones[i] = p.boneIndex(bs)
		}
		for i := range q.Weights {
			q.Weights[i] = float64(p.float())
		}
		v.Weight = q
	default:
		return fmt.Errorf("%w: %d", ErrUnknownDeformType, deform)
	}

	p.read(&v.EdgeScale)
	return p.err
}

// Encode serializes the model back to PMX bytes.
func (pmx *PMX) Encode() ([]byte, error) {
	h := &pmx.Header
	if err := h.validate(); err != nil {
		return nil, err
	}

	w := &pmxWriter{}
	w.buf.WriteString(pmxMagic)
	w.write(h.Version)
	w.buf.WriteByte(byte(pmxGlobalCount + len(h.ExtraGlobals)))
	w.buf.Write([]byte{
		byte(h.Encoding), h.AdditionalUVs,
		h.VertexIndexSize, h.TextureIndexSize, h.MaterialIndexSize,
		h.BoneIndexSize, h.MorphIndexSize, h.RigidBodyIndexSize,
	})
	w.buf.Write(h.ExtraGlobals)

	for _, s := range []string{pmx.Name, pmx.NameEnglish, pmx.Comment, pmx.CommentEnglish} {
		if err := w.text(s, h.Encoding); err != nil {
			return nil, err
		}
	}

	w.write(int32(len(pmx.Vertices)))
	for i := range pmx.Vertices {
		if err := w.writeVertex(&pmx.Vertices[i], h); err != nil {
			return nil, fmt.Errorf("writing vertex %d: %w", i, err)
		}
	}

	w.write(int32(len(pmx.Faces) * 3))
	for i, f := range pmx.Faces {
		for _, v := range f {
			if err := w.vertexIndex(v, h.VertexIndexSize); err != nil {
				return nil, fmt.Errorf("writing face %d: %w", i, err)
			}
		}
	}

	w.buf.Write(pmx.Tail)
	return w.buf.Bytes(), nil
}

// WriteFile encodes the model and writes it to path.
func (pmx *PMX) WriteFile(path string) error {
	data, err := pmx.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

type pmxWriter struct {
	buf bytes.Buffer
}

func (w *pmxWriter) write(v any) {
	// Writes to a bytes.Buffer only fail for unsupported types.
	_ = binary.Write(&w.buf, binary.LittleEndian, v)
}

func (w *pmxWriter) text(s string, enc encoding.TextEncoding) error {
	data, err := encoding.Encode(s, enc)
	if err != nil {
		return err
	}
	w.write(int32(len(data)))
	w.buf.Write(data)
	return nil
}

func (w *pmxWriter) vertexIndex(v int, size uint8) error {
	switch size {
	case 1:
		if v < 0 || v > 0xFF {
			return fmt.Errorf("%w: vertex %d in %d byte", ErrPMXIndexOverflow, v, size)
		}
		w.write(uint8(v))
	case 2:
		if v < 0 || v > 0xFFFF {
			return fmt.Errorf("%w: vertex %d in %d bytes", ErrPMXIndexOverflow, v, size)
		}
		w.write(uint16(v))
	default:
		if v < 0 || v > 0x7FFFFFFF {
			return fmt.Errorf("%w: vertex %d in %d bytes", ErrPMXIndexOverflow, v, size)
		}
		w.write(int32(v))
	}
	return nil
}

func (w *pmxWriter) boneIndex(v int32, size uint8) error {
	switch size {
	case 1:
		if v < -128 || v > 127 {
			return fmt.Errorf("%w: bone %d in %d byte", ErrPMXIndexOverflow, v, size)
		}
		w.write(int8(v))
	case 2:
		if v < -32768 || v > 32767 {
			return fmt.Errorf("%w: bone %d in %d bytes", ErrPMXIndexOverflow, v, size)
		}
		w.write(int16(v))
	default:
		w.write(v)
	}
	return nil
}

func (w *pmxWriter) bones(size uint8, bones ...int32) error {
	for _, b := range bones {
		if err := w.boneIndex(b, size); err != nil {
			return err
		}
	}
	return nil
}

func (w *pmxWriter) writeVertex(v *PMXVertex, h *PMXHeader) error {
	if len(v.AdditionalUVs) != int(h.AdditionalUVs) {
		return fmt.Errorf("%w: %d additional UVs, header declares %d", ErrInvalidPMXCount, len(v.AdditionalUVs), h.AdditionalUVs)
	}
	w.write(v.Position)
	w.write(v.Normal)
	w.write(v.UV)
	for _, uv := range v.AdditionalUVs {
		w.write(uv)
	}

	if v.Weight == nil {
		return fmt.Errorf("%w: vertex has no weight", ErrUnknownDeformType)
	}
	w.buf.WriteByte(byte(v.Weight.Deform()))

	bs := h.BoneIndexSize
	switch wt := v.Weight.(type) {
	case mesh.Single:
		if err := w.bones(bs, wt.Bone); err != nil {
			return err
		}
	case mesh.Dual:
		if err := w.bones(bs, wt.Bones[:]...); err != nil {
			return err
		}
		w.write(float32(wt.Weight))
		if wt.SDEF != nil {
			w.write(wt.SDEF.C)
			w.write(wt.SDEF.R0)
			w.write(wt.SDEF.R1)
		}
	case mesh.Quad:
		if err := w.bones(bs, wt.Bones[:]...); err != nil {
			return err
		}
		for _, x := range wt.Weights {
			w.write(float32(x))
		}
	default:
		return fmt.Errorf("%w: %T", ErrUnknownDeformType, v.Weight)
	}

	w.write(v.EdgeScale)
	return nil
}

// Mesh returns the geometry and skinning of the model as a mesh. The mesh is a
// copy; use ApplyMesh to write changes back.
func (pmx *PMX) Mesh() *mesh.Mesh {
	m := &mesh.Mesh{
		Vertices: make([]mesh.Vertex, len(pmx.Vertices)),
		Faces:    append([]mesh.Face(nil), pmx.Faces...),
	}
	for i, v := range pmx.Vertices {
		m.Vertices[i] = mesh.Vertex{
			Position: math.FromArray32(v.Position),
			Normal:   math.FromArray32(v.Normal),
			Weight:   v.Weight,
		}
	}
	return m
}

// ApplyMesh copies normals and weights from m back into the model.
func (pmx *PMX) ApplyMesh(m *mesh.Mesh) error {
	if len(m.Vertices) != len(pmx.Vertices) {
		return fmt.Errorf("%w: mesh has %d vertices, model has %d", ErrPMXMeshMismatch, len(m.Vertices), len(pmx.Vertices))
	}
	for i := range pmx.Vertices {
		pmx.Vertices[i].Normal = m.Vertices[i].Normal.Array32()
		pmx.Vertices[i].Weight = m.Vertices[i].Weight
	}
	return nil
}
