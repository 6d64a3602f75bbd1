// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// parking service and the user handler to distinguish between different
// failure scenarios without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a lookup or guarded update matches no
// rows.  It wraps sql.ErrNoRows semantics without leaking the driver.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a guarded state transition affected no
// rows because the row is no longer in the expected state, e.g. a slot
// that stopped being FREE between lock and update.
var ErrConflict = errors.New("conflict")

// ErrDuplicate is returned when an insert or update violates a unique key
// other than the user email.
var ErrDuplicate = errors.New("duplicate key")

// ErrEmailExists is returned when a user email is already registered.
var ErrEmailExists = errors.New("email already exists")
