package verdict

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"degenjudge/internal/domain"
	"degenjudge/internal/logging"
)

// DefaultModel is used when no model is configured.
const DefaultModel = openai.GPT4o

// OpenAIGenerator renders verdicts with the OpenAI chat completions API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	log    *logrus.Entry
}

// OpenAIOption configures OpenAIGenerator.
type OpenAIOption func(*openaiSettings)

type openaiSettings struct {
	baseURL string
	model   string
	log     logrus.FieldLogger
}

// WithModel overrides DefaultModel.
func WithModel(model string) OpenAIOption {
	return func(s *openaiSettings) {
		s.model = model
	}
}

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(url string) OpenAIOption {
	return func(s *openaiSettings) {
		s.baseURL = url
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) OpenAIOption {
	return func(s *openaiSettings) {
		s.log = log
	}
}

// NewOpenAIGenerator creates a generator authenticated with apiKey.
func NewOpenAIGenerator(apiKey string, opts ...OpenAIOption) *OpenAIGenerator {
	s := openaiSettings{model: DefaultModel}
	for _, opt := range opts {
		opt(&s)
	}
	if s.model == "" {
		s.model = DefaultModel
	}

	cfg := openai.DefaultConfig(apiKey)
	if s.baseURL != "" {
		cfg.BaseURL = s.baseURL
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  s.model,
		log:    logging.Component(s.log, "verdict"),
	}
}

// Generate implements Generator.
func (g *OpenAIGenerator) Generate(ctx context.Context, trades []domain.TokenTrade) Verdict {
	text, err := g.complete(ctx, UserPrompt(Summarize(trades)))
	if err != nil {
		g.log.WithError(err).Warn("verdict generation failed")
		return Unavailable()
	}
	return Verdict{Success: true, Analysis: text}
}

func (g *OpenAIGenerator) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: g.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response from openai")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("empty response from openai")
	}
	return text, nil
}

var _ Generator = (*OpenAIGenerator)(nil)
