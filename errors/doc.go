// Package errors provides standardized error handling patterns for synapse
// components.
//
// # Overview
//
// The package implements a three-class error classification system: Transient
// (temporary, retryable), Invalid (bad input, non-retryable), and Fatal
// (unrecoverable, stop processing). Classification enables callers to make
// informed decisions about retries and degradation without error string
// matching, and integrates with errors.Is(), errors.As(), and wrapping chains.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Store", "Dispatch", "flush wait")
//	errors.WrapInvalid(err, "Registry", "Resolve", "config comparison")
//	errors.WrapFatal(err, "Store", "Dispatch", "store destroyed")
//
// The generic Wrap() adds context without forcing a class.
//
// # Standard Error Variables
//
// Pre-defined variables cover the engine's common conditions, organized by
// category: store lifecycle (ErrStoreDestroyed, ErrAlreadyInitialized),
// dispatch and data (ErrInvalidAction, ErrKeyNotFound, ErrValidationFailed),
// configuration (ErrInvalidConfig, ErrConfigConflict), and batching
// (ErrBatchMerge, ErrBatchClosed). Use these instead of ad hoc messages so
// callers can branch with errors.Is.
package errors
