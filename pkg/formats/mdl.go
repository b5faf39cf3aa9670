// MDL (indexed binary mesh) writer and reader.

package formats

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"

	"github.com/grimace87/WavefrontConverter/pkg/mesh"
)

// MDLVersion is the only format version written and accepted.
const MDLVersion uint32 = 1

// MDLExtension is appended to the model name to form the output file name.
const MDLExtension = ".mdl"

// mdlHeaderSize covers version, both flags and the vertex count.
const mdlHeaderSize = 16

// MDL format errors.
var (
	ErrUnsupportedMDLVersion = errors.New("unsupported MDL version")
	ErrTruncatedMDLData      = errors.New("truncated MDL data")
	ErrInvalidMDLFlag        = errors.New("invalid MDL flag")
	ErrInvalidMDLIndex       = errors.New("MDL index out of range")
	ErrTrailingMDLData       = errors.New("trailing bytes after MDL data")
)

// MDLLayout selects which optional vertex attributes are stored.
// Position is always present and comes first, then normal, then texcoord.
type MDLLayout struct {
	Normals   bool
	TexCoords bool
}

// VertexSize returns the size of one vertex record in bytes.
func (l MDLLayout) VertexSize() int {
	size := 12
	if l.Normals {
		size += 12
	}
	if l.TexCoords {
		size += 8
	}
	return size
}

// String describes the layout.
func (l MDLLayout) String() string {
	switch {
	case l.Normals && l.TexCoords:
		return "position+normal+texcoord"
	case l.Normals:
		return "position+normal"
	case l.TexCoords:
		return "position+texcoord"
	default:
		return "position"
	}
}

// MDL is a decoded MDL file. Attributes absent from the layout are zero.
type MDL struct {
	Version   uint32
	Layout    MDLLayout
	Vertices  []mesh.Vertex
	Triangles []mesh.Triangle
}

// MDLFileName returns the output file name for a model.
func MDLFileName(name string) string {
	return name + MDLExtension
}

// EncodeMDL serializes m to w. All values are little-endian with no padding.
func EncodeMDL(w io.Writer, m *mesh.Model, layout MDLLayout) error {
	if len(m.Vertices) > mesh.MaxVertices {
		return fmt.Errorf("%w: model %q has %d vertices", mesh.ErrVertexLimit, m.Name, len(m.Vertices))
	}

	size := mdlHeaderSize + len(m.Vertices)*layout.VertexSize() + 4 + len(m.Triangles)*6
	buf := make([]byte, 0, size)

	le := binary.LittleEndian
	buf = le.AppendUint32(buf, MDLVersion)
	buf = le.AppendUint32(buf, boolFlag(layout.Normals))
	buf = le.AppendUint32(buf, boolFlag(layout.TexCoords))
	buf = le.AppendUint32(buf, uint32(len(m.Vertices)))

	for _, v := range m.Vertices {
		buf = appendFloats(buf, v.Position[:]...)
		if layout.Normals {
			buf = appendFloats(buf, v.Normal[:]...)
		}
		if layout.TexCoords {
			buf = appendFloats(buf, v.TexCoord[:]...)
		}
	}

	buf = le.AppendUint32(buf, uint32(len(m.Triangles)))
	for _, tri := range m.Triangles {
		buf = le.AppendUint16(buf, tri[0])
		buf = le.AppendUint16(buf, tri[1])
		buf = le.AppendUint16(buf, tri[2])
	}

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("writing MDL data: %w", err)
	}
	return nil
}

// WriteMDLFile writes m to dir/<name>.mdl, replacing any existing file,
// and returns the path written.
func WriteMDLFile(dir string, m *mesh.Model, layout MDLLayout) (path string, err error) {
	path = filepath.Join(dir, MDLFileName(m.Name))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating MDL file: %w", err)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	if err := EncodeMDL(f, m, layout); err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return path, nil
}

func boolFlag(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func appendFloats(buf []byte, values ...float32) []byte {
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf
}

// ParseMDL parses MDL data from a byte slice.
func ParseMDL(data []byte) (*MDL, error) {
	r := &mdlReader{data: data}

	version := r.uint32()
	normals := r.uint32()
	texCoords := r.uint32()
	vertexCount := r.uint32()
	if r.err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrTruncatedMDLData)
	}
	if version != MDLVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedMDLVersion, version)
	}
	if normals > 1 || texCoords > 1 {
		return nil, fmt.Errorf("%w: normals=%d texcoords=%d", ErrInvalidMDLFlag, normals, texCoords)
	}

	mdl := &MDL{
		Version: version,
		Layout:  MDLLayout{Normals: normals == 1, TexCoords: texCoords == 1},
	}

	if uint64(vertexCount)*uint64(mdl.Layout.VertexSize()) > uint64(r.remaining()) {
		return nil, fmt.Errorf("%w: %d vertices declared", ErrTruncatedMDLData, vertexCount)
	}
	mdl.Vertices = make([]mesh.Vertex, vertexCount)
	for i := range mdl.Vertices {
		v := &mdl.Vertices[i]
		v.Position = mgl32.Vec3{r.float32(), r.float32(), r.float32()}
		if mdl.Layout.Normals {
			v.Normal = mgl32.Vec3{r.float32(), r.float32(), r.float32()}
		}
		if mdl.Layout.TexCoords {
			v.TexCoord = mgl32.Vec2{r.float32(), r.float32()}
		}
	}

	triCount := r.uint32()
	if r.err != nil {
		return nil, fmt.Errorf("%w: reading index count", ErrTruncatedMDLData)
	}
	if uint64(triCount)*6 > uint64(r.remaining()) {
		return nil, fmt.Errorf("%w: %d triangles declared", ErrTruncatedMDLData, triCount)
	}
	mdl.Triangles = make([]mesh.Triangle, triCount)
	for i := range mdl.Triangles {
		tri := mesh.Triangle{r.uint16(), r.uint16(), r.uint16()}
		for _, idx := range tri {
			if uint32(idx) >= vertexCount {
				return nil, fmt.Errorf("%w: triangle %d references vertex %d of %d", ErrInvalidMDLIndex, i, idx, vertexCount)
			}
		}
		mdl.Triangles[i] = tri
	}

	if r.remaining() > 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTrailingMDLData, r.remaining())
	}
	return mdl, nil
}

// ParseMDLFile parses an MDL file from disk.
func ParseMDLFile(path string) (*MDL, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading MDL file: %w", err)
	}
	return ParseMDL(data)
}

// mdlReader reads little-endian values and remembers the first short read.
type mdlReader struct {
	data []byte
	off  int
	err  error
}

func (r *mdlReader) remaining() int {
	return len(r.data) - r.off
}

func (r *mdlReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.remaining() < n {
		r.err = ErrTruncatedMDLData
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *mdlReader) uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *mdlReader) uint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *mdlReader) float32() float32 {
	return math.Float32frombits(r.uint32())
}
