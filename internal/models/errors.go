package models

import "github.com/mkarsten/kaltvik/internal/errors"

// Error taxonomy shared by the engine packages.
//
// ErrConfig and ErrConsistency are fatal: the first at content-load time, the
// second at runtime where it always indicates an engine bug. ErrNotFound and
// ErrInput are recoverable and get converted to narrative text at the scene
// engine boundary.
var (
	// ErrConfig marks a malformed check, scene, theory or evidence definition.
	ErrConfig = errors.NewSentinel("invalid content definition")
	// ErrNotFound marks a reference to an unknown scene, theory or evidence id.
	ErrNotFound = errors.NewSentinel("unknown id")
	// ErrInput marks out-of-range player or debug-command input.
	ErrInput = errors.NewSentinel("invalid input")
	// ErrConsistency marks a broken internal invariant. Never swallow it.
	ErrConsistency = errors.NewSentinel("consistency violation")
)
