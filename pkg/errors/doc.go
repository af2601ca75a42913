// Package errors provides structured error types for the addon container.
//
// Every failure the container reports is classified with an ErrorCode so
// callers and logs can tell a missing dependency (retried every tick) from a
// load failure (parked until the repository re-reports the addon):
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeLoadFailure,
//	    "failed to load addon",
//	    cause,
//	    map[string]any{"addon": id.Coordinates()},
//	)
//
//	if errors.HasCode(err, errors.ErrCodeLoadFailure) { ... }
package errors
