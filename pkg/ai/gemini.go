package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/option"
)

// DefaultGeminiCandidates is the ordered fallback list tried when no
// explicit candidate list is configured. Earlier entries are preferred.
var DefaultGeminiCandidates = []string{
	"gemini-2.0-flash",
	"gemini-1.5-flash",
	"gemini-1.5-flash-8b",
}

// GeminiConfig defines configuration options for the Gemini invoker.
type GeminiConfig struct {
	APIKey     string
	Candidates []string
	Logger     zerolog.Logger
}

// GeminiInvoker implements Invoker against the Generative Language API,
// walking an ordered candidate list until one model produces a usable reply.
type GeminiInvoker struct {
	cfg    GeminiConfig
	tracer trace.Tracer
	logger zerolog.Logger

	// generate is swapped out in tests to exercise the candidate loop
	// without network access.
	generate func(ctx context.Context, model, prompt string, attachments []Attachment) (string, error)
}

// NewGeminiInvoker builds a new invoker using the provided configuration.
func NewGeminiInvoker(cfg GeminiConfig) (*GeminiInvoker, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	if len(cfg.Candidates) == 0 {
		cfg.Candidates = DefaultGeminiCandidates
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	invoker := &GeminiInvoker{
		cfg:    cfg,
		tracer: otel.Tracer("github.com/papergrade/papergrade-api/pkg/ai/gemini"),
		logger: logger.With().Str("component", "gemini_invoker").Logger(),
	}
	invoker.generate = invoker.generateContent

	return invoker, nil
}

// Invoke tries each candidate model in priority order. Retryable failures
// and empty replies advance to the next candidate; any other failure aborts
// immediately. The first candidate returning non-empty text wins and its raw
// reply is returned unparsed.
func (g *GeminiInvoker) Invoke(parent context.Context, prompt string, attachments []Attachment) (string, error) {
	ctx, span := g.tracer.Start(parent, "gemini.invoke", trace.WithAttributes(
		attribute.Int("ai.candidates", len(g.cfg.Candidates)),
		attribute.Int("ai.attachments", len(attachments)),
	))
	defer span.End()

	var lastErr error
	for _, model := range g.cfg.Candidates {
		start := time.Now()
		text, err := g.generate(ctx, model, prompt, attachments)
		invokeDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())

		if err != nil {
			invokeFailures.WithLabelValues(model).Inc()
			if !IsRetryable(err) {
				span.RecordError(err)
				span.SetStatus(codes.Error, "fatal_inference_error")
				return "", fmt.Errorf("model %s: %w", model, err)
			}
			g.logger.Warn().Err(err).Str("model", model).Msg("candidate failed, trying next")
			lastErr = err
			continue
		}

		if strings.TrimSpace(text) == "" {
			invokeFailures.WithLabelValues(model).Inc()
			g.logger.Warn().Str("model", model).Msg("candidate returned empty reply, trying next")
			lastErr = fmt.Errorf("model %s returned an empty reply", model)
			continue
		}

		span.SetAttributes(attribute.String("ai.model", model))
		return text, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no model candidates configured")
	}
	err := fmt.Errorf("%w: %v", ErrAllCandidatesExhausted, lastErr)
	span.RecordError(err)
	span.SetStatus(codes.Error, "candidates_exhausted")
	return "", err
}

func (g *GeminiInvoker) generateContent(ctx context.Context, model, prompt string, attachments []Attachment) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.cfg.APIKey))
	if err != nil {
		return "", fmt.Errorf("create gemini client: %w", err)
	}
	defer client.Close()

	m := client.GenerativeModel(model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: ptrFloat32(0),
	}

	parts := make([]genai.Part, 0, len(attachments)+1)
	parts = append(parts, genai.Text(prompt))
	for _, attachment := range attachments {
		parts = append(parts, &genai.Blob{MIMEType: attachment.MIMEType, Data: attachment.Data})
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", err
	}

	return firstText(resp), nil
}

// firstText concatenates the text parts of the first candidate reply.
func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}

func ptrFloat32(v float32) *float32 {
	return &v
}
