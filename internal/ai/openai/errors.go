package openai

import (
	"errors"
	"strings"

	api "github.com/sashabaranov/go-openai"

	"github.com/fitscreen/fitscreen/internal/ai"
)

// classify maps a go-openai client error onto the operator-facing taxonomy.
// The service reports failures as an {error: {message, type}} body, which the
// client surfaces as an APIError.
func classify(err error) *ai.Error {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		classified := &ai.Error{
			Kind:       ai.KindService,
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Err:        err,
		}

		code, _ := apiErr.Code.(string)
		switch {
		case strings.Contains(apiErr.Message, "insufficient_quota") || apiErr.Type == "insufficient_quota" || code == "insufficient_quota":
			classified.Kind = ai.KindQuota
		case strings.Contains(apiErr.Message, "rate_limit") || strings.Contains(apiErr.Type, "rate_limit"):
			classified.Kind = ai.KindRateLimit
		case strings.Contains(apiErr.Message, "invalid_api_key") || code == "invalid_api_key":
			classified.Kind = ai.KindInvalidKey
		}

		return classified
	}

	var reqErr *api.RequestError
	if errors.As(err, &reqErr) {
		return &ai.Error{Kind: ai.KindService, StatusCode: reqErr.HTTPStatusCode, Err: err}
	}

	return &ai.Error{Kind: ai.KindTransport, Err: err}
}
