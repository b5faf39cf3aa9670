// objconv converts Wavefront OBJ files into indexed binary MDL meshes,
// one output file per object block.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/grimace87/WavefrontConverter/internal/config"
	"github.com/grimace87/WavefrontConverter/internal/converter"
	"github.com/grimace87/WavefrontConverter/internal/logger"
)

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Usage = printUsage
	if err := config.ParseFlags(); err != nil {
		return exitUsage
	}

	if path := config.SaveConfigPath(); path != "" {
		return saveConfig(path)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		printUsage()
		return exitUsage
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}
	defer logger.Sync()

	conv, err := converter.New(converter.Options{
		InputPath:          cfg.Convert.InputPath,
		OutputDir:          cfg.Convert.OutputDir,
		IncludeNormals:     cfg.Convert.IncludeNormals,
		IncludeTexCoords:   cfg.Convert.IncludeTexCoords,
		SkipMalformedFaces: cfg.Convert.SkipMalformedFaces,
		Workers:            cfg.Convert.Workers,
		NameCharset:        cfg.Convert.NameCharset,
	}, logger.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}

	fmt.Println(conv.Status())

	res, err := conv.Run()
	if res != nil {
		fmt.Println(res.Summary())
	}
	if err != nil {
		logger.Error("conversion failed", zap.Error(err))
		return exitFailed
	}
	return exitOK
}

func saveConfig(path string) int {
	cfg, err := config.Merge()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}
	if err := cfg.SaveTo(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
		return exitFailed
	}
	fmt.Printf("Config written: %s\n", path)
	return exitOK
}

func printUsage() {
	name := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, `Usage: %s OBJ_FILE_NAME [FLAGS]

Writes <object name>.mdl for every "o" block in the input.

Flags:
  --help               Print this usage information
  --normals, -n        Include normals in the exported file
  --texcoords, -t      Include texture coordinates in the exported file
  --out DIR            Directory for output files (default: .)
  --lenient            Skip malformed faces instead of aborting
  --workers N          Write up to N models in parallel (default: 1)
  --charset NAME       Charset of object names, e.g. euc-kr, gbk
  --config FILE        Read settings from a YAML file
  --save-config FILE   Write the effective settings to FILE and exit
  --debug              Enable debug logging
  --log-file FILE      Also write logs to FILE
`, name)
}
