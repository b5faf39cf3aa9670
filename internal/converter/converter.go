// Package converter runs the OBJ to MDL conversion: it extracts every
// object block from one input file and writes one MDL file per block.
package converter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/grimace87/WavefrontConverter/pkg/encoding"
	"github.com/grimace87/WavefrontConverter/pkg/formats"
	"github.com/grimace87/WavefrontConverter/pkg/mesh"
)

// Converter errors.
var (
	ErrNoInput        = errors.New("no input file")
	ErrInvalidWorkers = errors.New("workers must be at least 1")
	ErrNotExtracted   = errors.New("export called before extract")
)

// Options is the normalized configuration consumed by the converter.
type Options struct {
	InputPath          string
	OutputDir          string
	IncludeNormals     bool
	IncludeTexCoords   bool
	SkipMalformedFaces bool
	Workers            int
	NameCharset        string
}

// Layout returns the MDL vertex layout selected by the options.
func (o Options) Layout() formats.MDLLayout {
	return formats.MDLLayout{Normals: o.IncludeNormals, TexCoords: o.IncludeTexCoords}
}

// Result summarizes a finished conversion.
type Result struct {
	Files        []string
	Models       int
	SkippedFaces int
}

// Summary returns the list of files written in one line.
func (r *Result) Summary() string {
	if len(r.Files) == 0 {
		return "Files written: (none)"
	}
	return "Files written: " + strings.Join(r.Files, " ")
}

// Converter owns the completed models of one input file.
type Converter struct {
	opts       Options
	log        *zap.Logger
	decodeName func(string) (string, error)

	obj     *formats.OBJ
	written []string
}

// New validates opts and creates a Converter. No input is read yet.
func New(opts Options, log *zap.Logger) (*Converter, error) {
	if opts.InputPath == "" {
		return nil, ErrNoInput
	}
	if opts.Workers == 0 {
		opts.Workers = 1
	}
	if opts.Workers < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkers, opts.Workers)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	decodeName, err := encoding.NameDecoder(opts.NameCharset)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Converter{
		opts:       opts,
		log:        log.With(zap.String("input", opts.InputPath)),
		decodeName: decodeName,
	}, nil
}

// Status describes which vertex attributes will be written.
func (c *Converter) Status() string {
	switch {
	case c.opts.IncludeNormals && c.opts.IncludeTexCoords:
		return "Including normals and texture coordinates"
	case c.opts.IncludeNormals:
		return "Including normals"
	case c.opts.IncludeTexCoords:
		return "Including texture coordinates"
	default:
		return "Including position data only (no flags were supplied)"
	}
}

// Models returns the completed models in input order.
func (c *Converter) Models() []*mesh.Model {
	if c.obj == nil {
		return nil
	}
	return c.obj.Models
}

// Extract parses the whole input file into completed models.
func (c *Converter) Extract() error {
	start := time.Now()

	obj, err := formats.ParseOBJFile(c.opts.InputPath, formats.OBJOptions{
		SkipMalformedFaces: c.opts.SkipMalformedFaces,
		DecodeName:         c.decodeName,
		OnSkip: func(err *formats.OBJError) {
			c.log.Warn("skipping malformed face", zap.Int("line", err.Line), zap.Error(err.Err))
		},
	})
	if err != nil {
		return fmt.Errorf("extracting models from %s: %w", c.opts.InputPath, err)
	}
	c.obj = obj

	c.log.Debug("parsed input",
		zap.Int("positions", len(obj.Pools.Positions)),
		zap.Int("texcoords", len(obj.Pools.TexCoords)),
		zap.Int("normals", len(obj.Pools.Normals)),
		zap.Int("models", len(obj.Models)),
		zap.Duration("elapsed", time.Since(start)),
	)
	if len(obj.Models) == 0 {
		c.log.Warn("no object blocks found")
	}
	if obj.SkippedFaces > 0 {
		c.log.Warn("malformed faces skipped", zap.Int("count", obj.SkippedFaces))
	}
	return nil
}

// Export writes every extracted model. It stops at the first failure;
// files already written stay on disk.
func (c *Converter) Export() error {
	if c.obj == nil {
		return ErrNotExtracted
	}

	models := c.obj.Models
	layout := c.opts.Layout()
	paths := make([]string, len(models))

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(c.opts.Workers)

	for i, m := range models {
		if ctx.Err() != nil {
			break
		}
		i, m := i, m
		g.Go(func() error {
			// With one worker Go blocks until the previous write returns,
			// so an earlier failure is already visible here.
			if ctx.Err() != nil {
				return nil
			}
			path, err := formats.WriteMDLFile(c.opts.OutputDir, m, layout)
			if err != nil {
				return fmt.Errorf("exporting model %q: %w", m.Name, err)
			}
			verts, tris := m.Stats()
			c.log.Info("wrote model",
				zap.String("model", m.Name),
				zap.String("file", path),
				zap.Int("vertices", verts),
				zap.Int("triangles", tris),
			)
			paths[i] = path
			return nil
		})
	}

	err := g.Wait()

	c.written = c.written[:0]
	for _, p := range paths {
		if p != "" {
			c.written = append(c.written, p)
		}
	}
	return err
}

// Written returns the files written by the last Export in model order.
func (c *Converter) Written() []string {
	return c.written
}

// Run extracts and exports, returning the files written.
func (c *Converter) Run() (*Result, error) {
	c.log.Info("converting", zap.String("layout", c.opts.Layout().String()))

	if err := c.Extract(); err != nil {
		return nil, err
	}
	err := c.Export()

	res := &Result{
		Files:        append([]string(nil), c.written...),
		Models:       len(c.obj.Models),
		SkippedFaces: c.obj.SkippedFaces,
	}
	return res, err
}
