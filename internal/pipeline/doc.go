// Package pipeline runs a chain of detectors over a directory of thumbnails.
//
// The first stage receives a single group holding every thumbnail. Each
// stage feeds the groups it still considers similar to the next detector,
// so cheap detectors narrow the candidates before expensive ones run.
// Images a stage proves unique stay unique for the rest of the run.
//
// Every completed stage is written to the working directory as a descriptor
// file. A stage's file is written once the following stage has finished,
// because it records which of its groups the following stage dissolved and
// which images that stage proved unique. The last stage is written as
// descriptor_final.txt.
//
// Within a stage, groups are detected concurrently with a bounded errgroup
// and merged in submission order, so identical input always yields
// identical descriptor files.
package pipeline
