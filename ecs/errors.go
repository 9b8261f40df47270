package ecs

import "errors"

var (
	// ErrStaleEntity reports an operation on an entity that was despawned
	// or never existed.
	ErrStaleEntity = errors.New("stale entity")

	// ErrMissingResource reports access to a resource type that was never
	// inserted or initialized.
	ErrMissingResource = errors.New("resource not present")

	// ErrConflict reports two systems in the same stage declaring
	// exclusive access to the same resource type. It is returned from
	// schedule validation, before any system runs.
	ErrConflict = errors.New("conflicting system access")
)
