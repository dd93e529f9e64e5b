package domain

import "errors"

var (
	// ErrNotFound is returned by repositories when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyAssigned is returned when a conditional assignment loses.
	ErrAlreadyAssigned = errors.New("ticket already assigned")
)
