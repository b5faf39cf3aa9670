// Package mesh holds the attribute pools and per-object indexed models
// built while converting OBJ data.
package mesh

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxVertices is the number of distinct vertices a model can address
// with 16-bit indices.
const MaxVertices = 1 << 16

// Mesh errors.
var (
	ErrIndexOutOfRange = errors.New("attribute index out of range")
	ErrDegenerateFace  = errors.New("face has fewer than 3 vertices")
	ErrVertexLimit     = errors.New("model exceeds 16-bit vertex index range")
)

// Pools are the file-global attribute sequences. They only grow, and
// every model built from one input shares the same Pools.
type Pools struct {
	Positions []mgl32.Vec3
	TexCoords []mgl32.Vec2
	Normals   []mgl32.Vec3
}

// AddPosition appends a position.
func (p *Pools) AddPosition(v mgl32.Vec3) {
	p.Positions = append(p.Positions, v)
}

// AddTexCoord appends a texture coordinate.
func (p *Pools) AddTexCoord(v mgl32.Vec2) {
	p.TexCoords = append(p.TexCoords, v)
}

// AddNormal appends a normal.
func (p *Pools) AddNormal(v mgl32.Vec3) {
	p.Normals = append(p.Normals, v)
}

// Vertex looks up the attributes referenced by ref.
func (p *Pools) Vertex(ref VertexRef) (Vertex, error) {
	if ref.Position < 0 || ref.Position >= len(p.Positions) {
		return Vertex{}, fmt.Errorf("%w: position %d (have %d)", ErrIndexOutOfRange, ref.Position+1, len(p.Positions))
	}
	if ref.TexCoord < 0 || ref.TexCoord >= len(p.TexCoords) {
		return Vertex{}, fmt.Errorf("%w: texcoord %d (have %d)", ErrIndexOutOfRange, ref.TexCoord+1, len(p.TexCoords))
	}
	if ref.Normal < 0 || ref.Normal >= len(p.Normals) {
		return Vertex{}, fmt.Errorf("%w: normal %d (have %d)", ErrIndexOutOfRange, ref.Normal+1, len(p.Normals))
	}
	return Vertex{
		Position: p.Positions[ref.Position],
		Normal:   p.Normals[ref.Normal],
		TexCoord: p.TexCoords[ref.TexCoord],
	}, nil
}

// VertexRef identifies one position/texcoord/normal combination by
// 0-based pool index. It is comparable and used directly as a map key.
type VertexRef struct {
	Position int
	TexCoord int
	Normal   int
}

// Vertex is one interleaved output vertex.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	TexCoord mgl32.Vec2
}

// Triangle holds three dense vertex indices in winding order.
type Triangle [3]uint16

// Model is one named object block with its own deduplicated vertex
// buffer and triangle list.
type Model struct {
	Name      string
	Vertices  []Vertex
	Triangles []Triangle

	indices map[VertexRef]uint16
	limit   int
}

// NewModel creates an empty model.
func NewModel(name string) *Model {
	return &Model{
		Name:    name,
		indices: make(map[VertexRef]uint16),
		limit:   MaxVertices,
	}
}

// Resolve returns the dense index for ref, appending v as a new vertex
// the first time ref is seen in this model.
func (m *Model) Resolve(ref VertexRef, v Vertex) (uint16, error) {
	if idx, ok := m.indices[ref]; ok {
		return idx, nil
	}
	if len(m.Vertices) >= m.limit {
		return 0, fmt.Errorf("%w: model %q has more than %d distinct vertices", ErrVertexLimit, m.Name, m.limit)
	}
	idx := uint16(len(m.Vertices))
	m.indices[ref] = idx
	m.Vertices = append(m.Vertices, v)
	return idx, nil
}

// AddFace fan-triangulates a polygon around its first vertex.
// All references are checked against pools before the model is touched,
// so a failed lookup leaves the model unchanged.
func (m *Model) AddFace(pools *Pools, refs []VertexRef) error {
	if len(refs) < 3 {
		return fmt.Errorf("%w: got %d", ErrDegenerateFace, len(refs))
	}

	verts := make([]Vertex, len(refs))
	for i, ref := range refs {
		v, err := pools.Vertex(ref)
		if err != nil {
			return fmt.Errorf("vertex %d: %w", i+1, err)
		}
		verts[i] = v
	}

	idx := make([]uint16, len(refs))
	for i, ref := range refs {
		n, err := m.Resolve(ref, verts[i])
		if err != nil {
			return err
		}
		idx[i] = n
	}

	for i := 2; i < len(idx); i++ {
		m.Triangles = append(m.Triangles, Triangle{idx[0], idx[i-1], idx[i]})
	}
	return nil
}

// Stats returns vertex and triangle counts.
func (m *Model) Stats() (vertices, triangles int) {
	return len(m.Vertices), len(m.Triangles)
}
