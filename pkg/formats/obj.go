// OBJ (Wavefront object) reader for the o/v/vt/vn/f subset.

package formats

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/grimace87/WavefrontConverter/pkg/mesh"
)

// OBJ format errors.
var (
	ErrMalformedOBJ     = errors.New("malformed OBJ data")
	ErrInvalidModelName = errors.New("invalid object name")
)

// maxOBJLine bounds a single input line.
const maxOBJLine = 1 << 20

// OBJ record keywords.
const (
	objKeyObject   = "o"
	objKeyPosition = "v"
	objKeyTexCoord = "vt"
	objKeyNormal   = "vn"
	objKeyFace     = "f"
)

// OBJError reports a parse failure at a specific input line.
type OBJError struct {
	Line int
	Err  error
}

func (e *OBJError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *OBJError) Unwrap() error {
	return e.Err
}

// OBJOptions controls OBJ parsing.
type OBJOptions struct {
	// SkipMalformedFaces drops faces that fail to parse or reference
	// missing attributes instead of failing the whole parse.
	SkipMalformedFaces bool

	// DecodeName converts raw object names to UTF-8. Nil keeps names as-is.
	DecodeName func(string) (string, error)

	// OnSkip is called for every skipped face.
	OnSkip func(err *OBJError)
}

// OBJ is the result of parsing one OBJ input.
type OBJ struct {
	Pools        *mesh.Pools
	Models       []*mesh.Model
	SkippedFaces int
}

// ParseOBJFile parses an OBJ file from disk.
func ParseOBJFile(path string, opts OBJOptions) (*OBJ, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening OBJ file: %w", err)
	}
	defer f.Close()
	return ParseOBJ(f, opts)
}

// ParseOBJ reads every object block from r. Attribute records populate
// pools shared by all blocks; faces seen before the first object marker
// are ignored.
func ParseOBJ(r io.Reader, opts OBJOptions) (*OBJ, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxOBJLine)

	p := &objParser{
		scanner: scanner,
		opts:    opts,
		result:  &OBJ{Pools: &mesh.Pools{}},
		names:   make(map[string]int),
	}

	found, err := p.seekFirstObject()
	if err != nil {
		return nil, err
	}
	for more := found; more; {
		var model *mesh.Model
		model, more, err = p.readModel()
		if err != nil {
			return nil, err
		}
		p.result.Models = append(p.result.Models, model)
	}
	return p.result, nil
}

type objParser struct {
	scanner *bufio.Scanner
	opts    OBJOptions
	result  *OBJ

	line    int
	keyword string
	rest    string

	pending string
	names   map[string]int
}

// next advances to the next non-blank line.
func (p *objParser) next() (bool, error) {
	for p.scanner.Scan() {
		p.line++
		text := strings.TrimSpace(p.scanner.Text())
		if text == "" {
			continue
		}
		p.keyword, p.rest = text, ""
		if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
			p.keyword, p.rest = text[:i], strings.TrimSpace(text[i+1:])
		}
		return true, nil
	}
	if err := p.scanner.Err(); err != nil {
		return false, fmt.Errorf("reading OBJ data: %w", err)
	}
	return false, nil
}

func (p *objParser) fail(err error) *OBJError {
	return &OBJError{Line: p.line, Err: err}
}

// seekFirstObject consumes input up to the first object marker.
func (p *objParser) seekFirstObject() (bool, error) {
	for {
		ok, err := p.next()
		if err != nil || !ok {
			return false, err
		}
		switch p.keyword {
		case objKeyObject:
			return true, p.takeName()
		case objKeyFace:
			// no model to attach to yet
		default:
			if err := p.readAttribute(); err != nil {
				return false, err
			}
		}
	}
}

// readModel builds the model named by the pending marker. more reports
// whether another object marker follows.
func (p *objParser) readModel() (model *mesh.Model, more bool, err error) {
	model = mesh.NewModel(p.pending)
	for {
		ok, err := p.next()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return model, false, nil
		}
		switch p.keyword {
		case objKeyObject:
			if err := p.takeName(); err != nil {
				return nil, false, err
			}
			return model, true, nil
		case objKeyFace:
			if err := p.readFace(model); err != nil {
				return nil, false, err
			}
		default:
			if err := p.readAttribute(); err != nil {
				return nil, false, err
			}
		}
	}
}

// takeName validates the current marker's name and stores it as pending.
func (p *objParser) takeName() error {
	name := p.rest
	if p.opts.DecodeName != nil {
		decoded, err := p.opts.DecodeName(name)
		if err != nil {
			return p.fail(fmt.Errorf("%w: decoding %q: %v", ErrInvalidModelName, name, err))
		}
		name = decoded
	}
	switch {
	case name == "", name == ".", name == "..":
		return p.fail(fmt.Errorf("%w: %q", ErrInvalidModelName, name))
	case strings.ContainsAny(name, `/\`):
		return p.fail(fmt.Errorf("%w: %q contains a path separator", ErrInvalidModelName, name))
	}
	if prev, ok := p.names[name]; ok {
		return p.fail(fmt.Errorf("%w: %q already defined on line %d", ErrInvalidModelName, name, prev))
	}
	p.names[name] = p.line
	p.pending = name
	return nil
}

// readAttribute handles v/vt/vn records and ignores everything else.
func (p *objParser) readAttribute() error {
	pools := p.result.Pools
	switch p.keyword {
	case objKeyPosition:
		f, err := p.floats(3)
		if err != nil {
			return err
		}
		pools.AddPosition(mgl32.Vec3{f[0], f[1], f[2]})
	case objKeyTexCoord:
		f, err := p.floats(2)
		if err != nil {
			return err
		}
		pools.AddTexCoord(mgl32.Vec2{f[0], f[1]})
	case objKeyNormal:
		f, err := p.floats(3)
		if err != nil {
			return err
		}
		pools.AddNormal(mgl32.Vec3{f[0], f[1], f[2]})
	}
	return nil
}

// floats parses the first n fields of the current record.
func (p *objParser) floats(n int) ([]float32, error) {
	fields := strings.Fields(p.rest)
	if len(fields) < n {
		return nil, p.fail(fmt.Errorf("%w: %q record needs %d values, got %d", ErrMalformedOBJ, p.keyword, n, len(fields)))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, p.fail(fmt.Errorf("%w: %q record value %q is not a number", ErrMalformedOBJ, p.keyword, fields[i]))
		}
		out[i] = float32(v)
	}
	return out, nil
}

// readFace parses a face record into model, or skips it in lenient mode.
func (p *objParser) readFace(model *mesh.Model) error {
	refs, err := p.faceRefs()
	if err == nil {
		err = model.AddFace(p.result.Pools, refs)
		if err != nil && !errors.Is(err, mesh.ErrVertexLimit) {
			err = fmt.Errorf("%w: %w", ErrMalformedOBJ, err)
		}
	}
	if err == nil {
		return nil
	}

	objErr := p.fail(err)
	if p.opts.SkipMalformedFaces && errors.Is(err, ErrMalformedOBJ) {
		p.result.SkippedFaces++
		if p.opts.OnSkip != nil {
			p.opts.OnSkip(objErr)
		}
		return nil
	}
	return objErr
}

// faceRefs parses the p/t/n groups of the current face record.
func (p *objParser) faceRefs() ([]mesh.VertexRef, error) {
	groups := strings.Fields(p.rest)
	pools := p.result.Pools
	refs := make([]mesh.VertexRef, 0, len(groups))
	for _, g := range groups {
		parts := strings.Split(g, "/")
		if len(parts) != 3 {
			return nil, fmt.Errorf("%w: face group %q needs position/texcoord/normal", ErrMalformedOBJ, g)
		}
		pos, err := objIndex(parts[0], len(pools.Positions))
		if err != nil {
			return nil, fmt.Errorf("%w: face group %q position: %v", ErrMalformedOBJ, g, err)
		}
		tex, err := objIndex(parts[1], len(pools.TexCoords))
		if err != nil {
			return nil, fmt.Errorf("%w: face group %q texcoord: %v", ErrMalformedOBJ, g, err)
		}
		norm, err := objIndex(parts[2], len(pools.Normals))
		if err != nil {
			return nil, fmt.Errorf("%w: face group %q normal: %v", ErrMalformedOBJ, g, err)
		}
		refs = append(refs, mesh.VertexRef{Position: pos, TexCoord: tex, Normal: norm})
	}
	return refs, nil
}

// objIndex converts a 1-based (or negative, end-relative) OBJ index to a
// 0-based pool index. Range checks happen on lookup.
func objIndex(field string, poolLen int) (int, error) {
	if field == "" {
		return 0, errors.New("missing index")
	}
	n, err := strconv.Atoi(field)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", field)
	}
	switch {
	case n > 0:
		return n - 1, nil
	case n < 0:
		return poolLen + n, nil
	default:
		return 0, errors.New("index 0 is not valid")
	}
}
