// Package detector provides the similarity detectors that make up a
// pipeline stage.
//
// A Detector receives one group of candidate duplicates and splits it into
// images that are unique within that group and sub-groups of images it
// still considers similar. Two detectors are provided: HashDetector buckets
// images by perceptual hash, ORBDetector matches oriented keypoint
// descriptors between every pair of images and merges similar pairs
// transitively.
//
// Detectors hold no mutable state after construction and may be used from
// several goroutines at once.
package detector
