package openai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	api "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/fitscreen/fitscreen/internal/ai"
)

type stubClient struct {
	response    string
	err         error
	lastRequest api.ChatCompletionRequest
}

func (s *stubClient) CreateChatCompletion(_ context.Context, request api.ChatCompletionRequest) (api.ChatCompletionResponse, error) {
	s.lastRequest = request
	if s.err != nil {
		return api.ChatCompletionResponse{}, s.err
	}
	return api.ChatCompletionResponse{
		Choices: []api.ChatCompletionChoice{
			{Message: api.ChatCompletionMessage{Content: s.response}},
		},
	}, nil
}

func newStubEvaluator(stub *stubClient) *Evaluator {
	return &Evaluator{
		client:    stub,
		model:     "test-model",
		logger:    zap.NewNop(),
		maxLogLen: defaultMaxLogLength,
	}
}

func TestEvaluateBuildsRequest(t *testing.T) {
	stub := &stubClient{response: `{"strengths":["a"],"weaknesses":["b"],"score":80,"rationale":"ok"}`}
	ev := newStubEvaluator(stub)

	assessment, err := ev.Evaluate(context.Background(), "job text", "resume text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if assessment.Score != 80 {
		t.Fatalf("expected score 80, got %v", assessment.Score)
	}

	if assessment.Raw != stub.response {
		t.Fatalf("expected raw response to be preserved")
	}

	req := stub.lastRequest
	if req.Model != "test-model" {
		t.Fatalf("unexpected model: %q", req.Model)
	}

	if req.Temperature != 0.2 {
		t.Fatalf("expected temperature 0.2, got %v", req.Temperature)
	}

	if req.ResponseFormat == nil || req.ResponseFormat.Type != api.ChatCompletionResponseFormatTypeJSONObject {
		t.Fatalf("expected json_object response format, got %+v", req.ResponseFormat)
	}

	if len(req.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(req.Messages))
	}

	if req.Messages[0].Role != api.ChatMessageRoleSystem {
		t.Fatalf("expected leading system message, got %q", req.Messages[0].Role)
	}

	user := req.Messages[1]
	if user.Role != api.ChatMessageRoleUser {
		t.Fatalf("expected user message, got %q", user.Role)
	}

	if !strings.HasPrefix(user.Content, "JOB DESCRIPTION:\njob text") {
		t.Fatalf("unexpected user prompt prefix: %q", user.Content)
	}

	if !strings.Contains(user.Content, "\n\nRESUME:\nresume text") {
		t.Fatalf("resume section missing from prompt: %q", user.Content)
	}
}

func TestEvaluateInvalidResponse(t *testing.T) {
	stub := &stubClient{response: "not json at all"}
	ev := newStubEvaluator(stub)

	_, err := ev.Evaluate(context.Background(), "job", "resume")

	var evalErr *ai.Error
	if !errors.As(err, &evalErr) || evalErr.Kind != ai.KindInvalidFormat {
		t.Fatalf("expected invalid-format error, got %v", err)
	}

	if evalErr.Raw != "not json at all" {
		t.Fatalf("expected raw text carried for diagnostics, got %q", evalErr.Raw)
	}
}

func TestEvaluateClassifiesServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   ai.ErrorKind
	}{
		{
			name:   "quota exhaustion",
			status: http.StatusTooManyRequests,
			body:   `{"error":{"message":"You exceeded your current quota: insufficient_quota","type":"insufficient_quota"}}`,
			kind:   ai.KindQuota,
		},
		{
			name:   "rate limiting",
			status: http.StatusTooManyRequests,
			body:   `{"error":{"message":"Requests too fast","type":"rate_limit_exceeded"}}`,
			kind:   ai.KindRateLimit,
		},
		{
			name:   "invalid credential",
			status: http.StatusUnauthorized,
			body:   `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`,
			kind:   ai.KindInvalidKey,
		},
		{
			name:   "generic service error",
			status: http.StatusInternalServerError,
			body:   `{"error":{"message":"The server had an error","type":"server_error"}}`,
			kind:   ai.KindService,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			ev, err := NewEvaluator("test-key", "test-model", server.URL+"/v1", zap.NewNop())
			if err != nil {
				t.Fatalf("building evaluator: %v", err)
			}

			_, err = ev.Evaluate(context.Background(), "job", "resume")

			var evalErr *ai.Error
			if !errors.As(err, &evalErr) {
				t.Fatalf("expected *Error, got %v", err)
			}

			if evalErr.Kind != tt.kind {
				t.Fatalf("expected kind %v, got %v (%v)", tt.kind, evalErr.Kind, evalErr)
			}

			if evalErr.StatusCode != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, evalErr.StatusCode)
			}
		})
	}
}

func TestNewEvaluatorRequiresKey(t *testing.T) {
	if _, err := NewEvaluator("  ", "", "", zap.NewNop()); err == nil {
		t.Fatalf("expected error for missing api key")
	}
}
