// Package errors provides custom error types for the aigo aggregation engine.
// These errors let callers distinguish item-level, tier-level and pass-level
// failures with errors.Is / errors.As instead of string matching.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is, As and Join are re-exported so callers only need this package.
var (
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)

// Common sentinel errors for the aigo system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformedRecord indicates a single source item could not be normalized
	ErrMalformedRecord = errors.New("malformed record")

	// ErrAdapter indicates a source adapter failed for the whole fetch
	ErrAdapter = errors.New("adapter failed")

	// ErrAllSourcesFailed indicates every fallback tier failed
	ErrAllSourcesFailed = errors.New("all sources failed")

	// ErrCacheBuild indicates a cache rebuild failed
	ErrCacheBuild = errors.New("cache build failed")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// MalformedRecordError describes a source item that was skipped.
type MalformedRecordError struct {
	Source  string
	RawName string
	Reason  string
}

// Error implements the error interface
func (e *MalformedRecordError) Error() string {
	if e.RawName != "" {
		return fmt.Sprintf("malformed %s record %q: %s", e.Source, e.RawName, e.Reason)
	}
	return fmt.Sprintf("malformed %s record: %s", e.Source, e.Reason)
}

// Is implements errors.Is support
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

// NewMalformedRecordError creates a new MalformedRecordError
func NewMalformedRecordError(source, rawName, reason string) *MalformedRecordError {
	return &MalformedRecordError{Source: source, RawName: rawName, Reason: reason}
}

// AdapterErrorKind classifies adapter failures so the fallback chain can
// decide whether a retry is worthwhile.
type AdapterErrorKind string

const (
	// KindNetwork is a transport failure (connection refused, 5xx, ...).
	KindNetwork AdapterErrorKind = "network"
	// KindTimeout is an exceeded adapter deadline.
	KindTimeout AdapterErrorKind = "timeout"
	// KindParse is an unreadable payload.
	KindParse AdapterErrorKind = "parse"
	// KindEmpty is a successful fetch with zero usable records.
	KindEmpty AdapterErrorKind = "empty"
)

// Retryable reports whether a failure of this kind may succeed on retry.
func (k AdapterErrorKind) Retryable() bool {
	return k == KindNetwork || k == KindTimeout
}

// AdapterError is a tier-level failure of one source adapter.
type AdapterError struct {
	Adapter string
	Kind    AdapterErrorKind
	Message string
	Err     error
}

// Error implements the error interface
func (e *AdapterError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("adapter %s failed (%s): %s", e.Adapter, e.Kind, msg)
}

// Unwrap implements errors.Unwrap
func (e *AdapterError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *AdapterError) Is(target error) bool {
	if target == ErrAdapter {
		return true
	}
	return e.Kind == KindTimeout && target == ErrTimeout
}

// NewAdapterError creates a new AdapterError
func NewAdapterError(adapter string, kind AdapterErrorKind, message string, err error) *AdapterError {
	return &AdapterError{
		Adapter: adapter,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// AdapterKind extracts the adapter error kind from err, if any.
func AdapterKind(err error) (AdapterErrorKind, bool) {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return "", false
}

// TierFailure records why a single fallback tier did not produce a catalog.
type TierFailure struct {
	Tier string
	Err  error
}

// String returns "tier: cause".
func (f TierFailure) String() string {
	return fmt.Sprintf("%s: %v", f.Tier, f.Err)
}

// AllSourcesFailedError is the terminal outcome of the fallback chain.
type AllSourcesFailedError struct {
	Failures []TierFailure
}

// Error implements the error interface
func (e *AllSourcesFailedError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.String())
	}
	return fmt.Sprintf("all sources failed: %s", strings.Join(parts, "; "))
}

// Is implements errors.Is support
func (e *AllSourcesFailedError) Is(target error) bool {
	return target == ErrAllSourcesFailed
}

// Unwrap returns every tier error so errors.Is can see through them.
func (e *AllSourcesFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// NewAllSourcesFailedError creates a new AllSourcesFailedError
func NewAllSourcesFailedError(failures []TierFailure) *AllSourcesFailedError {
	return &AllSourcesFailedError{Failures: failures}
}

// CacheBuildError wraps a builder failure for a cache key.
type CacheBuildError struct {
	Key string
	Err error
}

// Error implements the error interface
func (e *CacheBuildError) Error() string {
	return fmt.Sprintf("cache build for %q failed: %v", e.Key, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *CacheBuildError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *CacheBuildError) Is(target error) bool {
	return target == ErrCacheBuild
}

// NewCacheBuildError creates a new CacheBuildError
func NewCacheBuildError(key string, err error) *CacheBuildError {
	return &CacheBuildError{Key: key, Err: err}
}

// APIError represents an error from the remote AA API
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Service, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Service, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "open", ...
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsAllSourcesFailed checks if an error is the terminal fallback failure
func IsAllSourcesFailed(err error) bool {
	return errors.Is(err, ErrAllSourcesFailed)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Message: err.Error(), Err: err}
}

// WrapAdapter wraps an error as an AdapterError of the given kind
func WrapAdapter(adapter string, kind AdapterErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return NewAdapterError(adapter, kind, err.Error(), err)
}
