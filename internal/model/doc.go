// Package model defines the core data structures shared by the detectors,
// the pipeline and the descriptor codec.
//
// This package contains the following main types:
//   - Image: a handle to one thumbnail, identified by its canonical path
//   - Group: an ordered list of mutually similar images
//   - Partition: the output of a single detector run
//   - Descriptor: the immutable record of one pipeline stage
//
// Models live in their own package so that detector, pipeline, descriptor
// and report can all use them without import cycles.
package model
