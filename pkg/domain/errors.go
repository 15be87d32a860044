package domain

import "errors"

// ErrLayoutNotFound is returned when a gateway has no persisted layout yet.
var ErrLayoutNotFound = errors.New("layout not found")

// ErrUnknownItem is returned when a placement references an item ID that does
// not exist in the store.
var ErrUnknownItem = errors.New("unknown item")

// ErrUnknownSection is returned when a placement references a section ID that
// does not exist in the store.
var ErrUnknownSection = errors.New("unknown section")

// ErrDuplicatePosition signals two items claiming the same position within one
// container. This is a bug signal, recovered by a canonical resync.
var ErrDuplicatePosition = errors.New("duplicate position in container")

// ErrFlushInFlight is returned when a new edit session is requested while a
// previous flush has not yet resolved.
var ErrFlushInFlight = errors.New("flush in flight")

// ErrEditActive is returned when entering edit mode while already editing.
var ErrEditActive = errors.New("edit session already active")

// ErrNotEditing is returned when recording a move outside an edit session.
var ErrNotEditing = errors.New("no active edit session")
