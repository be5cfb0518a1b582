// Package docfetch downloads stored answer-sheet and question-paper
// documents and resolves the MIME type declared to the inference backend.
package docfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

// fallbackMIME is declared when neither the URL extension nor content
// sniffing identifies the document.
const fallbackMIME = "image/jpeg"

// maxDocumentBytes caps how much of a remote document is read. Scanned
// sheets beyond this size will not fit an inference request anyway.
const maxDocumentBytes = 20 << 20

var extensionMIME = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

// Fetcher retrieves a document by URL together with its MIME type.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, string, error)
}

// Client implements Fetcher over plain HTTP.
type Client struct {
	http   *http.Client
	logger zerolog.Logger
}

// New constructs a document fetch client with the given request timeout.
func New(timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		http:   &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "docfetch").Logger(),
	}
}

// Fetch downloads the document and returns its bytes along with the MIME
// type to declare upstream. The type comes from the URL extension when
// recognised, then from content sniffing, then from the jpeg fallback.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build document request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch document: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read document body: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("fetch document: empty body")
	}

	mime := ResolveMIMEType(rawURL, data)
	c.logger.Debug().Str("url", rawURL).Str("mime", mime).Int("bytes", len(data)).Msg("document fetched")

	return data, mime, nil
}

// ResolveMIMEType maps a document URL and its content to a declared MIME
// type using the fixed extension table first.
func ResolveMIMEType(rawURL string, data []byte) string {
	if mime, ok := mimeFromExtension(rawURL); ok {
		return mime
	}

	if len(data) > 0 {
		detected := mimetype.Detect(data)
		for ext, mime := range extensionMIME {
			if detected.Is(mime) || strings.EqualFold(detected.Extension(), ext) {
				return mime
			}
		}
	}

	return fallbackMIME
}

func mimeFromExtension(rawURL string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	ext := strings.ToLower(path.Ext(parsed.Path))
	mime, ok := extensionMIME[ext]
	return mime, ok
}
