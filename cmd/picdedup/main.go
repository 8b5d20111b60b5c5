// Package main provides the entry point for the picdedup CLI.
//
// picdedup finds groups of similar images by running a chain of detectors
// over a directory of thumbnails. Each detector only looks inside the groups
// left by the previous one, so cheap detectors can narrow the search for
// expensive ones.
//
// Usage:
//
//	picdedup thumbnail <photo-dir>
//	picdedup dedup <photo-dir>
//	picdedup show <photo-dir>/descriptor_final.txt
//
// See --help for all available options.
package main

// main is the entry point for picdedup.
func main() {
	Execute()
}
