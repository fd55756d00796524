package database

import "errors"

var (
	// ErrShortPathExists is returned when an attempt is made to insert
	// a URL record under a short path that is already occupied.
	ErrShortPathExists = errors.New("short path exists")
	// ErrURLNotFound is returned when an attempt is made to retrieve
	// a URL using a short path that doesn't exist.
	ErrURLNotFound = errors.New("url not found")
)
