// Package formats provides parsers and writers for the mesh file formats
// handled by the converter.
package formats

// Note: OBJ text input is implemented in obj.go
// Note: MDL binary output (and its reader) is implemented in mdl.go
