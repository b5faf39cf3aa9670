// Package config handles converter configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/grimace87/WavefrontConverter/internal/logger"
	"github.com/grimace87/WavefrontConverter/pkg/encoding"
)

// Configuration errors.
var (
	ErrNoInput            = errors.New("no file supplied")
	ErrUnexpectedArgument = errors.New("unknown argument")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// Config holds all converter settings.
type Config struct {
	Convert ConvertConfig `yaml:"convert"`
	Logging LoggingConfig `yaml:"logging"`
}

// ConvertConfig holds conversion settings.
type ConvertConfig struct {
	InputPath          string `yaml:"-"`                    // Set from the command line only
	IncludeNormals     bool   `yaml:"include_normals"`      // Write normals into vertex records
	IncludeTexCoords   bool   `yaml:"include_texcoords"`    // Write texture coordinates into vertex records
	OutputDir          string `yaml:"output_dir"`           // Directory receiving .mdl files
	SkipMalformedFaces bool   `yaml:"skip_malformed_faces"` // Drop bad faces instead of aborting
	Workers            int    `yaml:"workers"`              // Parallel model writers
	NameCharset        string `yaml:"name_charset"`         // Charset of object names in the input
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Convert: ConvertConfig{
			OutputDir: ".",
			Workers:   1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks settings that cannot be fixed up silently.
func (c *Config) Validate() error {
	if c.Convert.InputPath == "" {
		return ErrNoInput
	}
	if c.Convert.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidConfig, c.Convert.Workers)
	}
	if c.Convert.OutputDir == "" {
		return fmt.Errorf("%w: output directory is empty", ErrInvalidConfig)
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := encoding.NameDecoder(c.Convert.NameCharset); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
