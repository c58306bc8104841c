package graph

import (
	"errors"
	"fmt"
)

// Error sentinels for internal graph failures: programmer errors or
// internal faults, not data issues. Data issues (missing files, ambiguous
// parents, cycles) are reported as diagnostics by the resolver, not as
// errors here.
var (
	// ErrInternal is the base error for internal graph failures.
	ErrInternal = errors.New("internal graph failure")

	// ErrNilGraph indicates a method was called on a nil *Graph receiver.
	ErrNilGraph = fmt.Errorf("%w: nil *Graph receiver", ErrInternal)

	// ErrEmptyURI indicates an empty URI was passed where a file identity
	// is required.
	ErrEmptyURI = fmt.Errorf("%w: empty URI", ErrInternal)
)
