package generativeAI

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-place-enrichment/internal/types"
)

func quotaFailure(quotaID string) []map[string]any {
	return []map[string]any{
		{"@type": "type.googleapis.com/google.rpc.Help"},
		{
			"@type": "type.googleapis.com/google.rpc.QuotaFailure",
			"violations": []any{
				map[string]any{
					"quotaMetric": "generativelanguage.googleapis.com/generate_content_free_tier_requests",
					"quotaId":     quotaID,
				},
			},
		},
	}
}

func TestClassifyGeminiError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want types.EnrichmentErrorKind
	}{
		{
			name: "daily quota exhausted",
			err: genai.APIError{
				Code:    http.StatusTooManyRequests,
				Status:  "RESOURCE_EXHAUSTED",
				Message: "You exceeded your current quota, please check your plan and billing details.",
				Details: quotaFailure("GenerateRequestsPerDayPerProjectPerModel-FreeTier"),
			},
			want: types.EnrichmentQuotaExceeded,
		},
		{
			name: "per-minute quota is a rate limit",
			err: genai.APIError{
				Code:    http.StatusTooManyRequests,
				Status:  "RESOURCE_EXHAUSTED",
				Message: "You exceeded your current quota, please check your plan and billing details.",
				Details: quotaFailure("GenerateRequestsPerMinutePerProjectPerModel-FreeTier"),
			},
			want: types.EnrichmentRateLimited,
		},
		{
			name: "quota message without details is a rate limit",
			err:  genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED", Message: "You exceeded your current quota"},
			want: types.EnrichmentRateLimited,
		},
		{
			name: "rate limited",
			err:  genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED", Message: "Too many requests"},
			want: types.EnrichmentRateLimited,
		},
		{
			name: "bad key",
			err:  genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT", Message: "API key not valid. Please pass a valid API key."},
			want: types.EnrichmentInvalidCredential,
		},
		{
			name: "forbidden key",
			err:  fmt.Errorf("wrapped: %w", genai.APIError{Code: http.StatusForbidden, Status: "PERMISSION_DENIED", Message: "denied"}),
			want: types.EnrichmentInvalidCredential,
		},
		{
			name: "server error",
			err:  genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL", Message: "internal"},
			want: types.EnrichmentUpstreamError,
		},
		{
			name: "transport error",
			err:  errors.New("connection reset by peer"),
			want: types.EnrichmentUpstreamError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ee := classifyGeminiError(tt.err)
			assert.Equal(t, tt.want, ee.Kind)
		})
	}
}

func TestResponseText(t *testing.T) {
	assert.Equal(t, "", responseText(nil))
	assert.Equal(t, "", responseText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: " A calm deck. "}}},
		}},
	}
	assert.Equal(t, "A calm deck.", responseText(resp))
}
