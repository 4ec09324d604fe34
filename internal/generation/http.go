package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"genstudio/internal/logging"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// ErrGeneratorDisabled is returned by a generator with no endpoint.
var ErrGeneratorDisabled = errors.New("generation endpoint not configured")

// HTTPGenerator calls a JSON generation endpoint.
type HTTPGenerator struct {
	endpoint string
	client   *http.Client
}

// NewHTTPGenerator creates a generator posting to endpoint. timeout is the
// transport-level limit for one call; zero disables it.
func NewHTTPGenerator(endpoint string, timeout time.Duration) *HTTPGenerator {
	return &HTTPGenerator{
		endpoint: strings.TrimSpace(endpoint),
		client:   &http.Client{Timeout: timeout},
	}
}

// Generate posts req and decodes the settled response.
func (g *HTTPGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	if g.endpoint == "" {
		return nil, &NetworkError{Op: "generate", Err: ErrGeneratorDisabled}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode generation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &NetworkError{Op: "generate", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{Op: "generate", Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn("failed to close generate response body: %v", err)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &NetworkError{Op: "generate", Err: fmt.Errorf("read response: %w", err)}
	}
	logging.Debug("generate %s (%s) returned %d in %v", req.ID, req.Model, resp.StatusCode, time.Since(start))

	var out Response
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Error bodies that still carry a status are application failures.
		if decodeErr == nil && (out.Status != "" || out.Error != "") {
			if out.Status == "" || out.Status == StatusSucceeded {
				out.Status = StatusFailed
			}
			return &out, nil
		}
		return nil, &NetworkError{
			Op:  "generate",
			Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(truncate(string(raw), 200))),
		}
	}

	if decodeErr != nil {
		return nil, &NetworkError{Op: "generate", Err: fmt.Errorf("decode response: %w", decodeErr)}
	}
	return &out, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
