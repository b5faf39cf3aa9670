package formats

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/grimace87/WavefrontConverter/pkg/mesh"
)

const triangleOBJ = `o Triangle
v 0 0 0
v 1 0 0
v 0 1 0
vt 0 0
vt 1 0
vt 0 1
vn 0 0 1
f 1/1/1 2/2/1 3/3/1
`

func parseString(t *testing.T, src string, opts OBJOptions) *OBJ {
	t.Helper()
	obj, err := ParseOBJ(strings.NewReader(src), opts)
	if err != nil {
		t.Fatalf("ParseOBJ failed: %v", err)
	}
	return obj
}

func TestParseOBJ_Triangle(t *testing.T) {
	obj := parseString(t, triangleOBJ, OBJOptions{})

	if len(obj.Models) != 1 {
		t.Fatalf("expected 1 model, got %d", len(obj.Models))
	}
	m := obj.Models[0]
	if m.Name != "Triangle" {
		t.Errorf("expected name 'Triangle', got %q", m.Name)
	}
	if len(m.Vertices) != 3 {
		t.Fatalf("expected 3 vertices, got %d", len(m.Vertices))
	}
	if len(m.Triangles) != 1 || m.Triangles[0] != (mesh.Triangle{0, 1, 2}) {
		t.Errorf("expected single triangle (0,1,2), got %v", m.Triangles)
	}

	want := []mesh.Vertex{
		{Position: mgl32.Vec3{0, 0, 0}, Normal: mgl32.Vec3{0, 0, 1}, TexCoord: mgl32.Vec2{0, 0}},
		{Position: mgl32.Vec3{1, 0, 0}, Normal: mgl32.Vec3{0, 0, 1}, TexCoord: mgl32.Vec2{1, 0}},
		{Position: mgl32.Vec3{0, 1, 0}, Normal: mgl32.Vec3{0, 0, 1}, TexCoord: mgl32.Vec2{0, 1}},
	}
	for i, v := range want {
		if m.Vertices[i] != v {
			t.Errorf("vertex %d: expected %v, got %v", i, v, m.Vertices[i])
		}
	}

	if len(obj.Pools.Positions) != 3 || len(obj.Pools.TexCoords) != 3 || len(obj.Pools.Normals) != 1 {
		t.Errorf("unexpected pool sizes: %d/%d/%d",
			len(obj.Pools.Positions), len(obj.Pools.TexCoords), len(obj.Pools.Normals))
	}
}

func TestParseOBJ_RepeatedGroupDeduplicates(t *testing.T) {
	src := `o Dup
v 0 0 0
v 1 0 0
v 0 1 0
v 1 1 0
vt 0 0
vn 0 0 1
f 1/1/1 2/1/1 3/1/1
f 2/1/1 4/1/1 3/1/1
`
	m := parseString(t, src, OBJOptions{}).Models[0]

	if len(m.Vertices) != 4 {
		t.Errorf("expected 4 vertices, got %d", len(m.Vertices))
	}
	if m.Triangles[1] != (mesh.Triangle{1, 3, 2}) {
		t.Errorf("expected second triangle (1,3,2), got %v", m.Triangles[1])
	}
}

func TestParseOBJ_FanTriangulation(t *testing.T) {
	tests := []struct {
		name string
		face string
		want []mesh.Triangle
	}{
		{"quad", "f 1/1/1 2/1/1 3/1/1 4/1/1", []mesh.Triangle{{0, 1, 2}, {0, 2, 3}}},
		{"pentagon", "f 1/1/1 2/1/1 3/1/1 4/1/1 5/1/1", []mesh.Triangle{{0, 1, 2}, {0, 2, 3}, {0, 3, 4}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "o Poly\nv 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nv 0 2 0\nvt 0 0\nvn 0 0 1\n" + tt.face + "\n"
			m := parseString(t, src, OBJOptions{}).Models[0]

			if len(m.Triangles) != len(tt.want) {
				t.Fatalf("expected %d triangles, got %d", len(tt.want), len(m.Triangles))
			}
			for i, tri := range tt.want {
				if m.Triangles[i] != tri {
					t.Errorf("triangle %d: expected %v, got %v", i, tri, m.Triangles[i])
				}
			}
		})
	}
}

func TestParseOBJ_SharedPoolsAcrossObjects(t *testing.T) {
	src := `v 5 5 5
vt 0.5 0.5
vn 1 0 0
o First
v 0 0 0
v 1 0 0
v 0 1 0
vt 0 0
vn 0 0 1
f 2/2/2 3/2/2 4/2/2
o Second
f 1/1/1 2/2/2 3/2/2
`
	obj := parseString(t, src, OBJOptions{})

	if len(obj.Models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(obj.Models))
	}
	first, second := obj.Models[0], obj.Models[1]
	if first.Name != "First" || second.Name != "Second" {
		t.Errorf("unexpected names %q, %q", first.Name, second.Name)
	}

	// Second has its own dense index space.
	if len(second.Vertices) != 3 {
		t.Fatalf("expected 3 vertices in second model, got %d", len(second.Vertices))
	}
	if second.Triangles[0] != (mesh.Triangle{0, 1, 2}) {
		t.Errorf("expected (0,1,2), got %v", second.Triangles[0])
	}
	if second.Vertices[0].Position != (mgl32.Vec3{5, 5, 5}) {
		t.Errorf("expected pre-marker position (5,5,5), got %v", second.Vertices[0].Position)
	}
	if second.Vertices[0].TexCoord != (mgl32.Vec2{0.5, 0.5}) {
		t.Errorf("expected pre-marker texcoord (0.5,0.5), got %v", second.Vertices[0].TexCoord)
	}
	if second.Vertices[1].Position != (mgl32.Vec3{0, 0, 0}) {
		t.Errorf("expected first-block position (0,0,0), got %v", second.Vertices[1].Position)
	}
}

func TestParseOBJ_IgnoresContentBeforeFirstObject(t *testing.T) {
	src := `# exported by hand
mtllib scene.mtl
v 0 0 0
v 1 0 0
v 0 1 0
vt 0 0
vn 0 0 1
f 1/1/1 2/1/1 3/1/1
o Only
s off
usemtl none
f 3/1/1 2/1/1 1/1/1
`
	obj := parseString(t, src, OBJOptions{})

	if len(obj.Models) != 1 {
		t.Fatalf("expected 1 model, got %d", len(obj.Models))
	}
	if len(obj.Models[0].Triangles) != 1 {
		t.Errorf("expected 1 triangle, got %d", len(obj.Models[0].Triangles))
	}
	if obj.Models[0].Vertices[0].Position != (mgl32.Vec3{0, 1, 0}) {
		t.Errorf("expected first vertex (0,1,0), got %v", obj.Models[0].Vertices[0].Position)
	}
}

func TestParseOBJ_NoObjects(t *testing.T) {
	obj := parseString(t, "v 0 0 0\nv 1 0 0\n", OBJOptions{})

	if len(obj.Models) != 0 {
		t.Errorf("expected no models, got %d", len(obj.Models))
	}
	if len(obj.Pools.Positions) != 2 {
		t.Errorf("expected 2 positions, got %d", len(obj.Pools.Positions))
	}
}

func TestParseOBJ_EmptyObject(t *testing.T) {
	obj := parseString(t, "o A\no B\nv 0 0 0\n", OBJOptions{})

	if len(obj.Models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(obj.Models))
	}
	if len(obj.Models[0].Vertices) != 0 || len(obj.Models[0].Triangles) != 0 {
		t.Error("expected empty first model")
	}
}

func TestParseOBJ_NegativeIndices(t *testing.T) {
	src := "o Rel\nv 0 0 0\nv 1 0 0\nv 0 1 0\nvt 0 0\nvn 0 0 1\nf -3/-1/-1 -2/-1/-1 -1/-1/-1\n"
	m := parseString(t, src, OBJOptions{}).Models[0]

	if len(m.Vertices) != 3 {
		t.Fatalf("expected 3 vertices, got %d", len(m.Vertices))
	}
	if m.Vertices[2].Position != (mgl32.Vec3{0, 1, 0}) {
		t.Errorf("expected (0,1,0), got %v", m.Vertices[2].Position)
	}
}

func TestParseOBJ_TabsAndExtraSpaces(t *testing.T) {
	src := "o\tTabbed\nv\t0 0 0\nv  1   0 0\nv 0 1 0 1.0\nvt 0 0 0\nvn 0 0 1\nf\t1/1/1  2/1/1\t3/1/1  \n"
	m := parseString(t, src, OBJOptions{}).Models[0]

	if m.Name != "Tabbed" {
		t.Errorf("expected name 'Tabbed', got %q", m.Name)
	}
	if len(m.Triangles) != 1 {
		t.Errorf("expected 1 triangle, got %d", len(m.Triangles))
	}
}

func TestParseOBJ_MalformedInput(t *testing.T) {
	header := "o Bad\nv 0 0 0\nv 1 0 0\nv 0 1 0\nvt 0 0\nvn 0 0 1\n"

	tests := []struct {
		name string
		src  string
		line int
		want error
	}{
		{"position out of range", header + "f 1/1/1 2/1/1 9/1/1\n", 7, mesh.ErrIndexOutOfRange},
		{"texcoord out of range", header + "f 1/1/1 2/2/1 3/1/1\n", 7, mesh.ErrIndexOutOfRange},
		{"normal out of range", header + "f 1/1/1 2/1/1 3/1/4\n", 7, mesh.ErrIndexOutOfRange},
		{"two groups", header + "f 1/1/1 2/1/1\n", 7, mesh.ErrDegenerateFace},
		{"zero index", header + "f 0/1/1 2/1/1 3/1/1\n", 7, ErrMalformedOBJ},
		{"non-numeric index", header + "f a/1/1 2/1/1 3/1/1\n", 7, ErrMalformedOBJ},
		{"missing texcoord", header + "f 1//1 2//1 3//1\n", 7, ErrMalformedOBJ},
		{"position only", header + "f 1 2 3\n", 7, ErrMalformedOBJ},
		{"short position", "o Bad\nv 0 0\n", 2, ErrMalformedOBJ},
		{"non-numeric normal", "o Bad\nvn 0 x 1\n", 2, ErrMalformedOBJ},
		{"bad attribute before object", "vt 1\no Bad\n", 1, ErrMalformedOBJ},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOBJ(strings.NewReader(tt.src), OBJOptions{})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !errors.Is(err, ErrMalformedOBJ) {
				t.Errorf("expected error to match ErrMalformedOBJ, got %v", err)
			}
			var objErr *OBJError
			if !errors.As(err, &objErr) {
				t.Fatalf("expected *OBJError, got %T", err)
			}
			if objErr.Line != tt.line {
				t.Errorf("expected line %d, got %d", tt.line, objErr.Line)
			}
		})
	}
}

func TestParseOBJ_InvalidNames(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", "o\n"},
		{"dot dot", "o ..\n"},
		{"slash", "o a/b\n"},
		{"backslash", `o a\b` + "\n"},
		{"duplicate", "o Same\no Other\no Same\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOBJ(strings.NewReader(tt.src), OBJOptions{})
			if !errors.Is(err, ErrInvalidModelName) {
				t.Errorf("expected ErrInvalidModelName, got %v", err)
			}
		})
	}
}

func TestParseOBJ_NameWithSpaces(t *testing.T) {
	obj := parseString(t, "o  Big Box \n", OBJOptions{})
	if obj.Models[0].Name != "Big Box" {
		t.Errorf("expected 'Big Box', got %q", obj.Models[0].Name)
	}
}

func TestParseOBJ_DecodeName(t *testing.T) {
	opts := OBJOptions{
		DecodeName: func(s string) (string, error) {
			return strings.ToUpper(s), nil
		},
	}
	obj := parseString(t, "o crate\n", opts)
	if obj.Models[0].Name != "CRATE" {
		t.Errorf("expected decoded name 'CRATE', got %q", obj.Models[0].Name)
	}

	opts.DecodeName = func(string) (string, error) {
		return "", errors.New("bad bytes")
	}
	if _, err := ParseOBJ(strings.NewReader("o crate\n"), opts); !errors.Is(err, ErrInvalidModelName) {
		t.Errorf("expected ErrInvalidModelName, got %v", err)
	}
}

func TestParseOBJ_SkipMalformedFaces(t *testing.T) {
	src := `o Lenient
v 0 0 0
v 1 0 0
v 0 1 0
vt 0 0
vn 0 0 1
f 1/1/1 2/1/1 7/1/1
f 1/1/1 2/1/1
f x/1/1 2/1/1 3/1/1
f 1/1/1 2/1/1 3/1/1
`
	var lines []int
	opts := OBJOptions{
		SkipMalformedFaces: true,
		OnSkip: func(err *OBJError) {
			lines = append(lines, err.Line)
		},
	}
	obj := parseString(t, src, opts)

	if obj.SkippedFaces != 3 {
		t.Errorf("expected 3 skipped faces, got %d", obj.SkippedFaces)
	}
	if len(lines) != 3 || lines[0] != 7 || lines[1] != 8 || lines[2] != 9 {
		t.Errorf("unexpected skipped lines %v", lines)
	}

	m := obj.Models[0]
	if len(m.Vertices) != 3 || len(m.Triangles) != 1 {
		t.Errorf("expected 3 vertices and 1 triangle, got %d and %d", len(m.Vertices), len(m.Triangles))
	}
	if m.Triangles[0] != (mesh.Triangle{0, 1, 2}) {
		t.Errorf("expected (0,1,2), got %v", m.Triangles[0])
	}
}

func TestParseOBJ_SkipDoesNotHideAttributeErrors(t *testing.T) {
	_, err := ParseOBJ(strings.NewReader("o A\nv 1 2 nope\n"), OBJOptions{SkipMalformedFaces: true})
	if !errors.Is(err, ErrMalformedOBJ) {
		t.Errorf("expected ErrMalformedOBJ, got %v", err)
	}
}

func TestParseOBJ_VertexLimit(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("o Huge\nvt 0 0\nvn 0 0 1\n")
	count := mesh.MaxVertices + 2
	for i := 0; i < count; i++ {
		sb.WriteString("v 0 0 0\n")
	}
	for i := 1; i+2 <= count; i += 3 {
		sb.WriteString("f ")
		for j := 0; j < 3; j++ {
			sb.WriteString(strconv.Itoa(i+j) + "/1/1 ")
		}
		sb.WriteString("\n")
	}

	for _, lenient := range []bool{false, true} {
		_, err := ParseOBJ(strings.NewReader(sb.String()), OBJOptions{SkipMalformedFaces: lenient})
		if !errors.Is(err, mesh.ErrVertexLimit) {
			t.Errorf("lenient=%v: expected ErrVertexLimit, got %v", lenient, err)
		}
	}
}

func TestParseOBJFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tri.obj")
	if err := os.WriteFile(path, []byte(triangleOBJ), 0644); err != nil {
		t.Fatalf("failed to write test OBJ: %v", err)
	}

	obj, err := ParseOBJFile(path, OBJOptions{})
	if err != nil {
		t.Fatalf("ParseOBJFile failed: %v", err)
	}
	if len(obj.Models) != 1 {
		t.Errorf("expected 1 model, got %d", len(obj.Models))
	}

	if _, err := ParseOBJFile(filepath.Join(t.TempDir(), "missing.obj"), OBJOptions{}); err == nil {
		t.Error("expected error for missing file")
	}
}
