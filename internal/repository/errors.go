package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when an entity with the same ID already exists.
	ErrConflict = errors.New("entity already exists")
)
