package object

import "errors"

// ErrNotFound is returned when a requested object does not exist in the
// store. Callers match it with errors.Is.
var ErrNotFound = errors.New("object not found")

// ErrCorrupt is returned when a stored object exists but cannot be decoded:
// bad envelope, truncated content, or a structurally invalid payload.
var ErrCorrupt = errors.New("corrupt object")
