package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"github.com/FACorreiaa/go-place-enrichment/internal/types"
)

// Stable machine-readable error codes returned in every failure envelope.
const (
	CodeInvalidRequest           = "invalid_request"
	CodeUnauthorized             = "unauthorized"
	CodeForbidden                = "forbidden"
	CodePremiumRequired          = "premium_required"
	CodeTargetNotFound           = "target_not_found"
	CodeDuplicatePlace           = "duplicate_place"
	CodeMissingServiceCredential = "missing_service_credential"
	CodeEnrichmentNotConfigured  = "enrichment_not_configured"
	CodeInternal                 = "internal_error"
)

const quotaHint = "The AI provider quota is exhausted. Check the billing settings of the configured API key and retry later."

// ErrorEnvelope is the JSON body of every failed request.
type ErrorEnvelope struct {
	Error           string `json:"error"`
	Code            string `json:"code"`
	Status          int    `json:"status"`
	Hint            string `json:"hint,omitempty"`
	ExistingPlaceID string `json:"existingPlaceId,omitempty"`
	ExistingTitle   string `json:"existingTitle,omitempty"`
	RequestID       string `json:"request_id,omitempty"`
}

// WriteErrorEnvelope stamps the request ID on env and writes it.
func WriteErrorEnvelope(w http.ResponseWriter, r *http.Request, env ErrorEnvelope) {
	env.RequestID = middleware.GetReqID(r.Context())
	WriteJSONResponse(w, r, env.Status, env)
}

// WriteError maps a domain error onto the HTTP status table and writes the envelope.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	WriteErrorEnvelope(w, r, EnvelopeForError(err))
}

// EnvelopeForError classifies err. Unknown errors become a 500 without leaking details.
func EnvelopeForError(err error) ErrorEnvelope {
	var dup *types.DuplicatePlaceError
	var invalid *types.InvalidRequestError

	if ee, ok := types.AsEnrichmentError(err); ok {
		return enrichmentEnvelope(ee)
	}

	switch {
	case errors.As(err, &dup):
		return ErrorEnvelope{
			Error:           fmt.Sprintf("This place was already imported as %q.", dup.ExistingTitle),
			Code:            CodeDuplicatePlace,
			Status:          http.StatusConflict,
			ExistingPlaceID: dup.ExistingID.String(),
			ExistingTitle:   dup.ExistingTitle,
		}
	case errors.Is(err, types.ErrDuplicatePlace):
		return ErrorEnvelope{Error: "This place was already imported.", Code: CodeDuplicatePlace, Status: http.StatusConflict}
	case errors.As(err, &invalid):
		return ErrorEnvelope{Error: invalid.Error(), Code: CodeInvalidRequest, Status: http.StatusBadRequest}
	case errors.Is(err, types.ErrInvalidRequest):
		return ErrorEnvelope{Error: "Invalid request", Code: CodeInvalidRequest, Status: http.StatusBadRequest}
	case errors.Is(err, types.ErrUnauthorized):
		return ErrorEnvelope{Error: "Authentication required", Code: CodeUnauthorized, Status: http.StatusUnauthorized}
	case errors.Is(err, types.ErrPremiumRequired):
		return ErrorEnvelope{Error: "A premium subscription is required for this action", Code: CodePremiumRequired, Status: http.StatusForbidden}
	case errors.Is(err, types.ErrForbidden):
		return ErrorEnvelope{Error: "You are not allowed to modify this place", Code: CodeForbidden, Status: http.StatusForbidden}
	case errors.Is(err, types.ErrTargetNotFound):
		return ErrorEnvelope{Error: "Target place not found", Code: CodeTargetNotFound, Status: http.StatusNotFound}
	case errors.Is(err, types.ErrMissingServiceCredential):
		return ErrorEnvelope{Error: "Server is missing a service credential", Code: CodeMissingServiceCredential, Status: http.StatusInternalServerError}
	case errors.Is(err, types.ErrEnrichmentNotConfigured):
		return ErrorEnvelope{Error: "Description generation is not configured on this server", Code: CodeEnrichmentNotConfigured, Status: http.StatusInternalServerError}
	default:
		return ErrorEnvelope{Error: "Internal Server Error", Code: CodeInternal, Status: http.StatusInternalServerError}
	}
}

func enrichmentEnvelope(ee *types.EnrichmentError) ErrorEnvelope {
	env := ErrorEnvelope{Error: ee.Message, Code: string(ee.Kind)}
	switch ee.Kind {
	case types.EnrichmentQuotaExceeded:
		env.Status = http.StatusPaymentRequired
		env.Hint = quotaHint
	case types.EnrichmentRateLimited:
		env.Status = http.StatusTooManyRequests
	case types.EnrichmentInvalidCredential:
		env.Status = http.StatusUnauthorized
	default:
		env.Status = http.StatusBadGateway
	}
	if env.Error == "" {
		env.Error = "AI provider request failed"
	}
	return env
}

// WriteJSONResponse encodes the data to JSON and writes the response header and body.
func WriteJSONResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	js, err := json.Marshal(data)
	if err != nil {
		reqID := middleware.GetReqID(r.Context())
		slog.ErrorContext(r.Context(), "Failed to marshal JSON response",
			slog.Any("error", err),
			slog.String("request_id", reqID),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	if err != nil {
		reqID := middleware.GetReqID(r.Context())
		slog.ErrorContext(r.Context(), "Failed to write response body",
			slog.Any("error", err),
			slog.String("request_id", reqID),
		)
	}
}

// DecodeJSONBody reads and decodes a JSON request body safely.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)

		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")

		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q (wanted %s)", unmarshalTypeError.Field, unmarshalTypeError.Type)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)

		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")

		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			fieldName = strings.Trim(fieldName, `"`)
			return fmt.Errorf("body contains unknown key %q", fieldName)

		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesError.Limit)

		case errors.As(err, &invalidUnmarshalError):
			panic(fmt.Errorf("developer error: invalid argument passed to json.Unmarshal: %w", err))

		default:
			return fmt.Errorf("error decoding JSON body: %w", err)
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	headerParts := strings.Fields(authHeader)
	if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "bearer") {
		return "", false
	}
	return headerParts[1], true
}

func VerifyAudience(claimsAudience jwt.ClaimStrings, expectedAudience string) bool {
	if expectedAudience == "" {
		return true
	}
	for _, aud := range claimsAudience {
		if aud == expectedAudience {
			return true
		}
	}
	return false
}
