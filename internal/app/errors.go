package app

import "errors"

// ErrNotFound is returned by repositories and lookups for unknown task ids.
var ErrNotFound = errors.New("not found")

// ErrDuplicateID is returned when an imported task id is already taken.
var ErrDuplicateID = errors.New("duplicate task id")
