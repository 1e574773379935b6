package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	api "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/fitscreen/fitscreen/internal/ai"
	"github.com/fitscreen/fitscreen/internal/logger"
)

const (
	defaultModel = api.GPT4oMini

	// requestTimeout bounds the outbound call. Exceeding it is a transport
	// failure like any other.
	requestTimeout = 60 * time.Second

	defaultMaxLogLength = 200

	systemPrompt = "You are a recruiting assistant. Compare the Job Description and Candidate Resume. " +
		"Return concise strengths (3-6 bullets), weaknesses (3-6 bullets), and a numeric fit score 0-100. " +
		"Respond strictly as JSON with keys: strengths (array of strings), weaknesses (array of strings), " +
		"score (number 0-100), rationale (short string)."
)

type completionClient interface {
	CreateChatCompletion(ctx context.Context, request api.ChatCompletionRequest) (api.ChatCompletionResponse, error)
}

// Evaluator implements ai.Evaluator against an OpenAI-style chat-completion
// endpoint.
type Evaluator struct {
	client    completionClient
	model     string
	logger    *zap.Logger
	maxLogLen int
}

// NewEvaluator builds an evaluator for the given credential. An empty model
// falls back to the default; an empty baseURL targets the public API.
func NewEvaluator(apiKey, model, baseURL string, log *zap.Logger) (*Evaluator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	cfg := api.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{Timeout: requestTimeout}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		cfg.BaseURL = baseURL
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	return &Evaluator{
		client:    api.NewClientWithConfig(cfg),
		model:     model,
		logger:    logger.WithCommonFields(log, "openai", model),
		maxLogLen: defaultMaxLogLength,
	}, nil
}

// Evaluate sends the job description and resume to the completion service
// and parses the response into a FitAssessment. Failures come back as *Error
// with the classified kind. One attempt only, no retries.
func (e *Evaluator) Evaluate(ctx context.Context, jobText, resumeText string) (*ai.FitAssessment, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	userPrompt := "JOB DESCRIPTION:\n" + jobText + "\n\nRESUME:\n" + resumeText

	e.logger.Debug("chat completion request",
		zap.Int("prompt_length", utf8.RuneCountInString(userPrompt)),
		zap.String("prompt_preview", logger.TruncateForLog(userPrompt, e.maxLogLen)),
	)

	resp, err := e.client.CreateChatCompletion(ctx, api.ChatCompletionRequest{
		Model: e.model,
		Messages: []api.ChatCompletionMessage{
			{Role: api.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: api.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.2,
		ResponseFormat: &api.ChatCompletionResponseFormat{
			Type: api.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		classified := classify(err)
		e.logger.Debug("chat completion failed",
			zap.Int("status", classified.StatusCode),
			zap.Error(err),
		)
		return nil, classified
	}

	if len(resp.Choices) == 0 {
		return nil, &ai.Error{Kind: ai.KindInvalidFormat, Raw: ""}
	}

	content := resp.Choices[0].Message.Content

	e.logger.Debug("chat completion response",
		zap.Int("response_length", utf8.RuneCountInString(content)),
		zap.String("response_preview", logger.TruncateForLog(content, e.maxLogLen)),
	)

	assessment, err := parseAssessment(content)
	if err != nil {
		return nil, err
	}

	assessment.Raw = content
	return assessment, nil
}

// Model returns the configured model identifier.
func (e *Evaluator) Model() string {
	if e == nil {
		return ""
	}
	return e.model
}
