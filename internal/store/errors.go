package store

import "errors"

var (
	// ErrClosed is returned by operations on a closed Store.
	ErrClosed = errors.New("store: closed")

	// ErrNoBackend is returned by Open when backend is nil.
	ErrNoBackend = errors.New("store: backend is required")
)
