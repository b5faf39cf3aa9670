package config

import (
	"flag"
	"fmt"
	"os"
)

var (
	flagConfig         = flag.String("config", "", "Path to config file")
	flagDebug          = flag.Bool("debug", false, "Enable debug logging")
	flagLogFile        = flag.String("log-file", "", "Also write logs to this file")
	flagNormals        = flag.Bool("normals", false, "Include normals in the exported files")
	flagNormalsShort   = flag.Bool("n", false, "Shorthand for --normals")
	flagTexCoords      = flag.Bool("texcoords", false, "Include texture coordinates in the exported files")
	flagTexCoordsShort = flag.Bool("t", false, "Shorthand for --texcoords")
	flagOutput         = flag.String("out", "", "Output directory (default: current directory)")
	flagLenient        = flag.Bool("lenient", false, "Skip malformed faces instead of aborting")
	flagWorkers        = flag.Int("workers", 0, "Number of models written in parallel")
	flagCharset        = flag.String("charset", "", "Charset of object names, e.g. euc-kr")
	flagSaveConfig     = flag.String("save-config", "", "Write the effective settings to this file and exit")
)

// positionalArgs holds non-flag arguments collected by ParseFlags.
var positionalArgs []string

// ParseFlags parses command-line flags. Call this early in main().
// Flags may appear before or after the input file name.
func ParseFlags() error {
	args, err := parseInterspersed(flag.CommandLine, os.Args[1:])
	if err != nil {
		return err
	}
	positionalArgs = args
	return nil
}

// parseInterspersed parses fs repeatedly so that flags following a
// positional argument are still recognized. It returns the positionals.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// SaveConfigPath returns the target of --save-config, if any.
func SaveConfigPath() string {
	return *flagSaveConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) error {
	switch len(positionalArgs) {
	case 0:
	case 1:
		cfg.Convert.InputPath = positionalArgs[0]
	default:
		return fmt.Errorf("%w: %s", ErrUnexpectedArgument, positionalArgs[1])
	}

	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagNormals || *flagNormalsShort {
		cfg.Convert.IncludeNormals = true
	}
	if *flagTexCoords || *flagTexCoordsShort {
		cfg.Convert.IncludeTexCoords = true
	}
	if *flagOutput != "" {
		cfg.Convert.OutputDir = *flagOutput
	}
	if *flagLenient {
		cfg.Convert.SkipMalformedFaces = true
	}
	if *flagWorkers != 0 {
		cfg.Convert.Workers = *flagWorkers
	}
	if *flagCharset != "" {
		cfg.Convert.NameCharset = *flagCharset
	}
	return nil
}
