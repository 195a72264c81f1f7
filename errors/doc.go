// Package errors provides the structured error types used throughout the
// simulation runtime.
//
// Every fallible operation returns an *Error carrying a Kind from a closed
// taxonomy, optional instance and variable context, and a wrapped cause.
// Errors compare by Kind through errors.Is:
//
//	if errors.Is(err, &simerrors.Error{Kind: simerrors.KindTypeMismatch}) {
//	    // handle the mismatch
//	}
//
// None of these errors are process-fatal. Failures inside a loaded module
// (traps, solver non-convergence, divergence) are translated into this type
// at the native boundary and never propagate as panics.
package errors
