package types

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound                 = errors.New("requested item not found")
	ErrUnauthorized             = errors.New("authentication required or invalid credentials")
	ErrForbidden                = errors.New("action forbidden")
	ErrPremiumRequired          = errors.New("premium subscription required")
	ErrTargetNotFound           = errors.New("target place not found")
	ErrDuplicatePlace           = errors.New("place already imported")
	ErrInvalidRequest           = errors.New("invalid request")
	ErrMissingServiceCredential = errors.New("service credential is not configured")
	ErrEnrichmentNotConfigured  = errors.New("AI or places credential is not configured")
)

// DuplicatePlaceError carries the record that already references the external place.
type DuplicatePlaceError struct {
	ExistingID    uuid.UUID
	ExistingTitle string
}

func (e *DuplicatePlaceError) Error() string {
	return fmt.Sprintf("place already imported as %s (%q)", e.ExistingID, e.ExistingTitle)
}

func (e *DuplicatePlaceError) Is(target error) bool {
	return target == ErrDuplicatePlace
}

// InvalidRequestError describes which part of the request was rejected.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return "invalid request: " + e.Reason
}

func (e *InvalidRequestError) Is(target error) bool {
	return target == ErrInvalidRequest
}

func NewInvalidRequest(format string, args ...any) error {
	return &InvalidRequestError{Reason: fmt.Sprintf(format, args...)}
}

// EnrichmentErrorKind classifies generation and context-lookup failures.
type EnrichmentErrorKind string

const (
	EnrichmentQuotaExceeded     EnrichmentErrorKind = "quota_exceeded"
	EnrichmentRateLimited       EnrichmentErrorKind = "rate_limited"
	EnrichmentInvalidCredential EnrichmentErrorKind = "invalid_credential"
	EnrichmentUpstreamError     EnrichmentErrorKind = "upstream_error"
	EnrichmentTimeout           EnrichmentErrorKind = "timeout"
	EnrichmentEmptyResponse     EnrichmentErrorKind = "empty_response"
	EnrichmentMalformedResponse EnrichmentErrorKind = "malformed_response"
)

// EnrichmentError is produced by the upstream clients and passed through unchanged.
type EnrichmentError struct {
	Kind       EnrichmentErrorKind `json:"kind"`
	HTTPStatus int                 `json:"httpStatus"`
	Message    string              `json:"message"`
	VendorCode string              `json:"vendorErrorCode,omitempty"`
	// Raw holds at most 2000 characters of the upstream body.
	Raw string `json:"-"`
}

func (e *EnrichmentError) Error() string {
	if e.VendorCode != "" {
		return fmt.Sprintf("%s (status %d, %s): %s", e.Kind, e.HTTPStatus, e.VendorCode, e.Message)
	}
	return fmt.Sprintf("%s (status %d): %s", e.Kind, e.HTTPStatus, e.Message)
}

// AsEnrichmentError unwraps err into an *EnrichmentError if it holds one.
func AsEnrichmentError(err error) (*EnrichmentError, bool) {
	var ee *EnrichmentError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}
