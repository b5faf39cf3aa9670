// mdlinfo prints the header and counts of MDL mesh files.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/grimace87/WavefrontConverter/pkg/formats"
)

func main() {
	verbose := flag.Bool("v", false, "Also list vertices and triangles")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: mdlinfo [-v] <file.mdl>...")
		os.Exit(2)
	}

	failed := false
	for _, path := range flag.Args() {
		if err := printInfo(path, *verbose); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func printInfo(path string, verbose bool) error {
	mdl, err := formats.ParseMDLFile(path)
	if err != nil {
		return err
	}

	fmt.Printf("File:      %s\n", path)
	fmt.Printf("Version:   %d\n", mdl.Version)
	fmt.Printf("Layout:    %s (%d bytes/vertex)\n", mdl.Layout, mdl.Layout.VertexSize())
	fmt.Printf("Vertices:  %d\n", len(mdl.Vertices))
	fmt.Printf("Triangles: %d\n", len(mdl.Triangles))

	if !verbose {
		return nil
	}
	for i, v := range mdl.Vertices {
		fmt.Printf("  v%-5d pos=%v", i, v.Position)
		if mdl.Layout.Normals {
			fmt.Printf(" normal=%v", v.Normal)
		}
		if mdl.Layout.TexCoords {
			fmt.Printf(" uv=%v", v.TexCoord)
		}
		fmt.Println()
	}
	for i, tri := range mdl.Triangles {
		fmt.Printf("  t%-5d %d %d %d\n", i, tri[0], tri[1], tri[2])
	}
	return nil
}
