// Package repository declares the persistence contracts of the feed
// service. Implementations live in subpackages.
package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
