package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Attachment is one binary document inlined into an inference request,
// typically a scanned answer sheet or question paper page.
type Attachment struct {
	MIMEType string
	Data     []byte
}

// Invoker describes a vision-capable model backend that turns a prompt plus
// attached documents into a raw text reply. Implementations return the reply
// unparsed; recovering structure from it is the caller's concern.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, attachments []Attachment) (string, error)
}

// ErrAllCandidatesExhausted is returned when every model in the fallback
// list failed or produced an empty reply.
var ErrAllCandidatesExhausted = errors.New("all model candidates exhausted")

// retryableMarkers are substrings of upstream error messages that indicate a
// transient condition worth trying the next candidate for. Anything else is
// fatal and surfaces immediately so genuinely bad requests are not masked.
var retryableMarkers = []string{
	"overloaded",
	"quota",
	"rate limit",
	"resource exhausted",
	"resource_exhausted",
	"too many requests",
	"429",
	"503",
	"unavailable",
}

// IsRetryable classifies an inference error by inspecting its message for
// transient-failure markers.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	message := strings.ToLower(err.Error())
	for _, marker := range retryableMarkers {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}

var (
	invokeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "papergrade",
		Subsystem: "ai",
		Name:      "invocation_duration_seconds",
		Help:      "Duration of model inference calls",
	}, []string{"model"})

	invokeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "papergrade",
		Subsystem: "ai",
		Name:      "invocation_failures_total",
		Help:      "Number of failed model inference calls",
	}, []string{"model"})
)
