package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OpenAIConfig defines configuration options for the OpenAI invoker.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIInvoker implements Invoker against the OpenAI chat completion API,
// sending attachments as inline data-URL image parts. It is the alternate
// provider behind the AI_PROVIDER switch; it runs a single model rather than
// a candidate list.
type OpenAIInvoker struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIInvoker builds a new invoker using the provided configuration.
func NewOpenAIInvoker(cfg OpenAIConfig) (*OpenAIInvoker, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &OpenAIInvoker{
		client: openai.NewClientWithConfig(openai.DefaultConfig(cfg.APIKey)),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/papergrade/papergrade-api/pkg/ai/openai"),
		logger: logger.With().Str("component", "openai_invoker").Logger(),
	}, nil
}

// Invoke sends the prompt and attachments to OpenAI and returns the raw
// reply text.
func (o *OpenAIInvoker) Invoke(parent context.Context, prompt string, attachments []Attachment) (string, error) {
	ctx, span := o.tracer.Start(parent, "openai.invoke", trace.WithAttributes(
		attribute.String("ai.model", o.cfg.Model),
		attribute.Int("ai.attachments", len(attachments)),
	))
	defer span.End()

	parts := make([]openai.ChatMessagePart, 0, len(attachments)+1)
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: prompt,
	})
	for _, attachment := range attachments {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:%s;base64,%s", attachment.MIMEType, base64.StdEncoding.EncodeToString(attachment.Data)),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}

	request := openai.ChatCompletionRequest{
		Model:       o.cfg.Model,
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			},
		},
	}

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, request)
	invokeDuration.WithLabelValues(o.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		invokeFailures.WithLabelValues(o.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("openai invoke: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		invokeFailures.WithLabelValues(o.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return resp.Choices[0].Message.Content, nil
}
