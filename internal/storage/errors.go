package storage

import "errors"

// ErrNotExist is wrapped by backend-specific not-found errors so callers
// can use errors.Is regardless of which backend is in use.
var ErrNotExist = errors.New("storage: path does not exist")

// ErrNotSupported is returned by operations a backend's Features() bitset
// says it cannot perform.
var ErrNotSupported = errors.New("storage: operation not supported by backend")
