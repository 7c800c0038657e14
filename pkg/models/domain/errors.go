package domain

import "fmt"

// AuthError means credentials are missing, insufficient, or expired.
// Fatal to the offending adapter's remaining checks.
type AuthError struct {
	Provider string
	Err      error
}

func (e AuthError) Error() string {
	return fmt.Sprintf("authentication failed for provider %s: %v", e.Provider, e.Err)
}

func (e AuthError) Unwrap() error { return e.Err }

// ConfigMissing means a required configuration row is absent. The
// engine advises the configuration wizard and exits non-zero.
type ConfigMissing struct {
	What string
}

func (e ConfigMissing) Error() string {
	return fmt.Sprintf("missing configuration: %s (run the configuration wizard with -g)", e.What)
}

// CheckNotFound means a requested check identifier is not registered.
type CheckNotFound struct {
	Identifier string
}

func (e CheckNotFound) Error() string {
	return fmt.Sprintf("check not found: %s", e.Identifier)
}

// RegistryUnavailable means the check catalog could not be loaded at all.
type RegistryUnavailable struct {
	Err error
}

func (e RegistryUnavailable) Error() string {
	return fmt.Sprintf("check registry unavailable: %v", e.Err)
}

func (e RegistryUnavailable) Unwrap() error { return e.Err }

// CheckDispatchError is an upstream rejection of a single query.
// Non-fatal: the owning CheckRun is marked FAILED.
type CheckDispatchError struct {
	Identifier string
	Err        error
}

func (e CheckDispatchError) Error() string {
	return fmt.Sprintf("dispatch failed for %s: %v", e.Identifier, e.Err)
}

func (e CheckDispatchError) Unwrap() error { return e.Err }

// CheckDataError means the upstream returned but the shape was unusable.
type CheckDataError struct {
	Identifier string
	Reason     string
}

func (e CheckDataError) Error() string {
	return fmt.Sprintf("unusable data for %s: %s", e.Identifier, e.Reason)
}

// CacheError is a cache read or write failure. Degrades to a miss,
// never fatal.
type CacheError struct {
	Path string
	Err  error
}

func (e CacheError) Error() string {
	return fmt.Sprintf("cache error at %s: %v", e.Path, e.Err)
}

func (e CacheError) Unwrap() error { return e.Err }

// OutputError means the workbook could not be written. Fatal.
type OutputError struct {
	Path string
	Err  error
}

func (e OutputError) Error() string {
	return fmt.Sprintf("cannot write output %s: %v", e.Path, e.Err)
}

func (e OutputError) Unwrap() error { return e.Err }

// DeliveryError is an e-mail or upload failure. Logged, non-fatal.
type DeliveryError struct {
	Via string
	Err error
}

func (e DeliveryError) Error() string {
	return fmt.Sprintf("delivery via %s failed: %v", e.Via, e.Err)
}

func (e DeliveryError) Unwrap() error { return e.Err }
