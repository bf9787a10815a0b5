// Package apperrors defines the orchestration core's error taxonomy: a
// single typed error carrying a semantic Kind, plus the classification
// helpers (IsTransient, IsSetupFatal) callers use to decide whether to
// retry, degrade, or surface a failure.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind is a semantic error category from spec §7. Names are not Go types —
// one *Error type carries a Kind field so callers can switch on it without
// type assertions.
type Kind string

const (
	// Setup
	KindConfigInvalid        Kind = "config_invalid"
	KindCredentialsMissing   Kind = "credentials_missing"
	KindDependencyUnavailable Kind = "dependency_unavailable"

	// Provider
	KindProviderAuth        Kind = "provider_auth"
	KindProviderRateLimited Kind = "provider_rate_limited"
	KindProviderTimeout     Kind = "provider_timeout"
	KindProviderBadResponse Kind = "provider_bad_response"
	KindProviderUnavailable Kind = "provider_unavailable"

	// Tool
	KindToolNotFound         Kind = "tool_not_found"
	KindToolAlreadyRegistered Kind = "tool_already_registered"
	KindToolInvalidArguments Kind = "tool_invalid_arguments"
	KindToolExecutionFailed  Kind = "tool_execution_failed"
	KindToolTimeout          Kind = "tool_timeout"

	// Agent
	KindAgentNotFound        Kind = "agent_not_found"
	KindAgentProcessingFailed Kind = "agent_processing_failed"

	// Conversation / Prompt
	KindTemplateNotFound   Kind = "template_not_found"
	KindMissingVariable    Kind = "missing_variable"
	KindResponseParseFailed Kind = "response_parse_failed"

	// Orchestration
	KindNoSuitableModel  Kind = "no_suitable_model"
	KindAggregationFailed Kind = "aggregation_failed"

	// Config Store specific (spec §4.1)
	KindConfigNotFound Kind = "config_not_found"

	// Tool Finder specific (spec §4.5)
	KindToolFinderFailed Kind = "tool_finder_failed"

	// Metrics Service specific (spec §4.13)
	KindRequestNotFound Kind = "request_not_found"
)

// Error is the single error type the orchestration core raises. Component
// and Op describe where the error originated (e.g. "ToolExecutor",
// "Execute"), matching the teacher's Component/Action error struct style.
type Error struct {
	Kind      Kind
	Component string
	Op        string
	Message   string
	RetryAfterSeconds int // only meaningful for KindProviderRateLimited
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Component, e.Op, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error.
func New(kind Kind, component, op, message string) *Error {
	return &Error{Kind: kind, Component: component, Op: op, Message: message}
}

// Wrap builds an *Error around an existing cause.
func Wrap(kind Kind, component, op, message string, cause error) *Error {
	return &Error{Kind: kind, Component: component, Op: op, Message: message, Err: cause}
}

// RateLimited builds a KindProviderRateLimited error carrying retry_after.
func RateLimited(component, op string, retryAfterSeconds int, cause error) *Error {
	return &Error{
		Kind:              KindProviderRateLimited,
		Component:         component,
		Op:                op,
		Message:           "provider rate limited",
		RetryAfterSeconds: retryAfterSeconds,
		Err:               cause,
	}
}

// KindOf extracts the Kind from err, walking the Unwrap chain. Returns ""
// if err is nil or carries no *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsTransient reports whether err is a kind the caller may retry: rate
// limits and timeouts, per spec §4.2/§4.4/§7.
func IsTransient(err error) bool {
	switch KindOf(err) {
	case KindProviderRateLimited, KindProviderTimeout, KindToolTimeout:
		return true
	}
	return false
}

// IsSetupFatal reports whether err belongs to the Setup category, which
// spec §7 says is fatal to the current operation and must be reported to
// the caller rather than degraded.
func IsSetupFatal(err error) bool {
	switch KindOf(err) {
	case KindConfigInvalid, KindCredentialsMissing, KindDependencyUnavailable:
		return true
	}
	return false
}
