package database

import "errors"

var (
	// ErrDatabaseNotFound is returned by Open when the database file is
	// missing and Options.CreateIfNotExists is false.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrRunNotFound is returned when no run matches the requested id.
	ErrRunNotFound = errors.New("run not found")

	// ErrAmbiguousRunID is returned when an id prefix matches several runs.
	ErrAmbiguousRunID = errors.New("run id prefix matches more than one run")

	// ErrMappingNotFound is returned when a thumbnail has no recorded source.
	ErrMappingNotFound = errors.New("thumbnail mapping not found")
)
