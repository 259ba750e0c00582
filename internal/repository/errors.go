// Package repository defines error types that are reused across the
// reservation store and its callers.  These sentinel values allow higher
// layers such as the reservation service and the HTTP handlers to
// distinguish between different failure scenarios.  For example,
// ErrReservationNotFound maps to a 404 response while ErrPersist signals a
// durable-write failure that must surface as a 500 rather than a
// validation error.
package repository

import "errors"

// ErrReservationNotFound is returned when no reservation has the given ID.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrDuplicateID is returned by Append when the ID is already stored.
var ErrDuplicateID = errors.New("duplicate reservation id")

// ErrPersist wraps every failure of the durable write sequence (temp file,
// flush, fsync, rename).  When it is returned the in-memory mutation has
// been rolled back and the previous durable file is untouched.
var ErrPersist = errors.New("persist reservations")

// ErrCorrupt is returned by Load when the durable file exists but cannot be
// decoded.  The store is left empty and usable.
var ErrCorrupt = errors.New("reservations file corrupt")
