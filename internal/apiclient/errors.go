package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// FailureKind classifies a failed backend call. The client never acts on the
// classification itself; redirect-vs-message decisions belong to the calling
// page so that concurrent 401s cannot trigger cascading navigation.
type FailureKind string

const (
	// FailureAuth covers 401/403: the credential is missing, invalid,
	// expired, or revoked.
	FailureAuth FailureKind = "auth"

	// FailureTransient covers network errors and 5xx responses. Safe to
	// retry with backoff; never clears credentials.
	FailureTransient FailureKind = "transient"

	// FailureValidation covers the remaining 4xx range: the request itself
	// was rejected. Not retried, surfaced to the user.
	FailureValidation FailureKind = "validation"
)

// Error is the classified failure returned for every unsuccessful call.
type Error struct {
	Kind    FailureKind
	Status  int // zero for network-level failures
	Message string
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("api request failed (%s): %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("api request failed (%s, status %d): %s", e.Kind, e.Status, e.Message)
}

// classifyStatus maps an HTTP status to its failure kind.
func classifyStatus(status int) FailureKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return FailureAuth
	case status >= 500:
		return FailureTransient
	default:
		return FailureValidation
	}
}

// IsAuthFailure reports whether err is a 401/403-class failure.
func IsAuthFailure(err error) bool {
	return isKind(err, FailureAuth)
}

// IsTransientFailure reports whether err is a retryable network/5xx failure.
func IsTransientFailure(err error) bool {
	return isKind(err, FailureTransient)
}

// IsValidationFailure reports whether err is a non-auth 4xx failure.
func IsValidationFailure(err error) bool {
	return isKind(err, FailureValidation)
}

func isKind(err error, kind FailureKind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}
