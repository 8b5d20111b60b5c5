// Package descriptor reads and writes the per-stage descriptor files.
//
// A descriptor file is a UTF-8, newline-delimited text record:
//
//	Unique Images:
//	<name>
//
//	Similar Groups:
//	Group:removed
//	<name>
//	<name>
//
//	Group:
//	<name>
//	<name>
//
//	New unique Images by next detector:
//	<name>
//
// Image entries are thumbnail file names. Unique and new-unique sections are
// sorted by name so that re-running the pipeline on unchanged input produces
// identical files.
package descriptor
