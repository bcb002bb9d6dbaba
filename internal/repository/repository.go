package repository

import "errors"

var (
	// ErrNotFound is returned when a row the caller named does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoRule means no active automation rule exists for an event type.
	// Callers treat this as a normal outcome, not a failure.
	ErrNoRule = errors.New("no active automation rule for event")

	// ErrTemplateMissing means a matched rule points at a template that no
	// longer exists. Distinguished from ErrNoRule for observability.
	ErrTemplateMissing = errors.New("automation rule template missing")
)
