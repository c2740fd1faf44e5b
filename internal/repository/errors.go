package repository

import "errors"

// ErrNotFound is returned by repositories when no row matches.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a write violates a unique constraint.
var ErrConflict = errors.New("record already exists")
