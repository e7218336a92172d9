// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not
// authorized to perform an operation on a resource they have no grant
// for, while ErrConflict signals that an operation cannot proceed due
// to existing dependent records (e.g. deleting a concept that still
// has active stores).
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they are not granted. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as deactivating an
// organization that still has active concepts. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
