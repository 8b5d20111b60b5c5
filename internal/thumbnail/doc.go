// Package thumbnail prepares a directory of photos for deduplication.
//
// Generate walks a directory tree, renders every photo as a square JPEG
// thumbnail (upright according to its EXIF orientation, optionally
// grayscale, fitted onto a white canvas) and writes them to the
// "thumbnail" subdirectory under short generated names. The mapping from
// thumbnail name back to source path is written to mapping.txt, one
// "source*name" line per image.
package thumbnail
