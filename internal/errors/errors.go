// Package errors provides explicit, human-readable error types for the
// gateway. Every error carries a Reason and a Suggestion so that failures
// surfaced to operators and to HTTP clients are actionable, not opaque.
package errors

import (
	"fmt"
)

// GatewayError is the base error type for all gateway errors.
type GatewayError struct {
	Code       ErrorCode
	Message    string
	Reason     string
	Suggestion string
	Cause      error
}

// ErrorCode categorizes an error for HTTP status mapping and exit codes.
type ErrorCode int

const (
	CodeConfig ErrorCode = iota + 1
	CodeNoBackend
	CodeUnknownQuery
	CodeBackend
	CodeRuleEvaluation
	CodeExtraction
	CodeInternal
	CodeAuth
)

func (e *GatewayError) Error() string {
	msg := e.Message
	if e.Reason != "" {
		msg = fmt.Sprintf("%s\nReason: %s", msg, e.Reason)
	}
	if e.Suggestion != "" {
		msg = fmt.Sprintf("%s\nSuggestion: %s", msg, e.Suggestion)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s\nCaused by: %v", msg, e.Cause)
	}
	return msg
}

func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// ErrConfigError is returned for fatal startup configuration failures:
// malformed rules files, unresolvable paths, unparseable backend URLs.
type ErrConfigError struct {
	GatewayError
	Path string
}

// NewConfigError creates a new ErrConfigError.
func NewConfigError(path, reason string, cause error) *ErrConfigError {
	return &ErrConfigError{
		GatewayError: GatewayError{
			Code:       CodeConfig,
			Message:    "configuration error",
			Reason:     reason,
			Suggestion: fmt.Sprintf("check configuration at %s", path),
			Cause:      cause,
		},
		Path: path,
	}
}

// ErrNoBackendAvailable is returned when no routable backend exists in the
// target group and the default group is also empty.
type ErrNoBackendAvailable struct {
	GatewayError
	Group string
}

// NewNoBackendAvailable creates a new ErrNoBackendAvailable.
func NewNoBackendAvailable(group string) *ErrNoBackendAvailable {
	return &ErrNoBackendAvailable{
		GatewayError: GatewayError{
			Code:       CodeNoBackend,
			Message:    "no backend available",
			Reason:     fmt.Sprintf("routing group %q has no routable backend and the default group is also empty", group),
			Suggestion: "check backend health and routing group membership",
		},
		Group: group,
	}
}

// ErrUnknownQuery is returned when a follow-up request references a
// query-id with no recorded binding.
type ErrUnknownQuery struct {
	GatewayError
	QueryID string
}

// NewUnknownQuery creates a new ErrUnknownQuery.
func NewUnknownQuery(queryID string) *ErrUnknownQuery {
	return &ErrUnknownQuery{
		GatewayError: GatewayError{
			Code:       CodeUnknownQuery,
			Message:    "query not found",
			Reason:     fmt.Sprintf("no binding recorded for query-id %q", queryID),
			Suggestion: "the query may have expired or never existed; resubmit the statement",
		},
		QueryID: queryID,
	}
}

// ErrBackendError is returned when an outbound call to a backend fails.
type ErrBackendError struct {
	GatewayError
	Backend string
	Timeout bool
}

// NewBackendError creates a new ErrBackendError.
func NewBackendError(backend string, timeout bool, cause error) *ErrBackendError {
	reason := "connection failure"
	if timeout {
		reason = "request timed out"
	}
	return &ErrBackendError{
		GatewayError: GatewayError{
			Code:       CodeBackend,
			Message:    "backend unavailable",
			Reason:     reason,
			Suggestion: fmt.Sprintf("check that backend %q is reachable", backend),
			Cause:      cause,
		},
		Backend: backend,
		Timeout: timeout,
	}
}

// ErrRuleEvaluationError is non-fatal: a predicate error. The rule is
// treated as false and evaluation of subsequent rules continues.
type ErrRuleEvaluationError struct {
	GatewayError
	Rule string
}

// NewRuleEvaluationError creates a new ErrRuleEvaluationError.
func NewRuleEvaluationError(rule string, cause error) *ErrRuleEvaluationError {
	return &ErrRuleEvaluationError{
		GatewayError: GatewayError{
			Code:       CodeRuleEvaluation,
			Message:    fmt.Sprintf("rule %q failed to evaluate", rule),
			Reason:     cause.Error(),
			Suggestion: "treated as false; review the rule's condition expression",
			Cause:      cause,
		},
		Rule: rule,
	}
}

// ErrExtractionError is non-fatal: attribute extraction failed and the
// Attribute View degrades to minimal form.
type ErrExtractionError struct {
	GatewayError
}

// NewExtractionError creates a new ErrExtractionError.
func NewExtractionError(cause error) *ErrExtractionError {
	return &ErrExtractionError{
		GatewayError: GatewayError{
			Code:       CodeExtraction,
			Message:    "attribute extraction failed",
			Reason:     cause.Error(),
			Suggestion: "query type and identifier sets degrade to unknown/empty; routing continues",
			Cause:      cause,
		},
	}
}

// ErrBootstrapError is returned when bootstrap/startup operations fail.
type ErrBootstrapError struct {
	GatewayError
}

// NewBootstrapError creates an error for bootstrap operation failures.
func NewBootstrapError(message, reason, suggestion string) *ErrBootstrapError {
	return &ErrBootstrapError{
		GatewayError: GatewayError{
			Code:       CodeInternal,
			Message:    message,
			Reason:     reason,
			Suggestion: suggestion,
		},
	}
}

// ErrMigrationFailed is returned when a database migration fails.
type ErrMigrationFailed struct {
	GatewayError
	Migration string
}

// NewMigrationFailed creates an error for migration failures.
func NewMigrationFailed(migration string, cause error) *ErrMigrationFailed {
	return &ErrMigrationFailed{
		GatewayError: GatewayError{
			Code:       CodeInternal,
			Message:    fmt.Sprintf("migration failed: %s", migration),
			Reason:     cause.Error(),
			Suggestion: "check database connection and migration file syntax",
			Cause:      cause,
		},
		Migration: migration,
	}
}

// ErrAuthFailed is returned when the admin API rejects a missing or
// unrecognized bearer token.
type ErrAuthFailed struct {
	GatewayError
}

// NewAuthFailed creates an error for a rejected admin-API token.
func NewAuthFailed(reason string) *ErrAuthFailed {
	return &ErrAuthFailed{
		GatewayError: GatewayError{
			Code:       CodeAuth,
			Message:    "authentication failed",
			Reason:     reason,
			Suggestion: "supply a valid Authorization: Bearer <token> header",
		},
	}
}

// ErrAuthExpired is returned when the admin API rejects an expired token.
type ErrAuthExpired struct {
	GatewayError
}

// NewAuthExpired creates an error for an expired admin-API token.
func NewAuthExpired() *ErrAuthExpired {
	return &ErrAuthExpired{
		GatewayError: GatewayError{
			Code:       CodeAuth,
			Message:    "authentication expired",
			Reason:     "the bearer token's expiry has passed",
			Suggestion: "obtain a new admin token",
		},
	}
}

// ErrGatewayUnavailable is returned when an admin CLI cannot reach the
// gateway's admin API.
type ErrGatewayUnavailable struct {
	GatewayError
	Endpoint string
}

// NewGatewayUnavailable creates an error for admin-API connectivity failure.
func NewGatewayUnavailable(endpoint, reason string) *ErrGatewayUnavailable {
	return &ErrGatewayUnavailable{
		GatewayError: GatewayError{
			Code:       CodeInternal,
			Message:    "gateway admin API unavailable",
			Reason:     reason,
			Suggestion: fmt.Sprintf("check the gateway admin listener at %s", endpoint),
		},
		Endpoint: endpoint,
	}
}
