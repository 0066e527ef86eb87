// Package gateway calls a Vertex generative model with structured inputs,
// iterating a prioritized candidate list when a model is not available, and
// parses the returned JSON defensively.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

	defaultCallTimeout = 4 * time.Minute
)

var log = logrus.WithField("component", "gateway")

// NoModelAvailableError is returned only after every candidate model came
// back with a "not found" class error.
type NoModelAvailableError struct {
	Purpose   string
	LastError error
}

func (e *NoModelAvailableError) Error() string {
	return fmt.Sprintf("no generative model available for %s (last error: %v); set VERTEX_MODEL or VERTEX_VISION_MODEL to a model enabled for this project",
		e.Purpose, e.LastError)
}

func (e *NoModelAvailableError) Unwrap() error { return e.LastError }

// GenerateInput is one gateway call: a purpose tag for diagnostics, the
// candidate model list in priority order, and the request body. The gateway
// is shape-agnostic; callers assemble the contents parts.
type GenerateInput struct {
	Purpose    string
	Candidates []string
	Request    map[string]any
	ProjectID  string
	Location   string
}

// GenerateOutput carries the first candidate part's text and which model
// produced it.
type GenerateOutput struct {
	Text      string
	ModelUsed string
}

// Gateway posts generateContent requests. Safe for concurrent use; the
// access-token source is a lazily initialized singleton.
type Gateway struct {
	httpClient *http.Client

	tokenOnce sync.Once
	tokenSrc  oauth2.TokenSource
	tokenErr  error

	// baseURL overrides endpoint construction in tests. The model name is
	// appended as a query parameter so test servers can observe it.
	baseURL string
}

// NewGateway creates a gateway with the given per-call timeout.
func NewGateway(timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Gateway{
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (g *Gateway) token(ctx context.Context) (string, error) {
	g.tokenOnce.Do(func() {
		g.tokenSrc, g.tokenErr = google.DefaultTokenSource(context.Background(), cloudPlatformScope)
	})
	if g.tokenErr != nil {
		return "", fmt.Errorf("failed to acquire default credentials: %w", g.tokenErr)
	}
	tok, err := g.tokenSrc.Token()
	if err != nil {
		return "", fmt.Errorf("failed to mint access token: %w", err)
	}
	return tok.AccessToken, nil
}

func (g *Gateway) endpoint(in GenerateInput, model string) string {
	if g.baseURL != "" {
		return g.baseURL + "?model=" + model
	}
	return fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
		in.Location, in.ProjectID, in.Location, model)
}

// Generate tries each candidate model in order. A "model not found" class
// error moves on to the next candidate; any other error fails immediately.
// There is no retry within one candidate.
func (g *Gateway) Generate(ctx context.Context, in GenerateInput) (*GenerateOutput, error) {
	candidates := dedupeCandidates(in.Candidates)
	if len(candidates) == 0 {
		return nil, &NoModelAvailableError{Purpose: in.Purpose}
	}

	var lastErr error
	for _, model := range candidates {
		text, err := g.callModel(ctx, in, model)
		if err == nil {
			log.WithFields(logrus.Fields{
				"purpose": in.Purpose,
				"model":   model,
			}).Info("model call succeeded")
			return &GenerateOutput{Text: text, ModelUsed: model}, nil
		}
		if !isModelNotFound(err) {
			return nil, err
		}
		log.WithFields(logrus.Fields{
			"purpose": in.Purpose,
			"model":   model,
		}).WithError(err).Warn("model not found, trying next candidate")
		lastErr = err
	}

	return nil, &NoModelAvailableError{Purpose: in.Purpose, LastError: lastErr}
}

func (g *Gateway) callModel(ctx context.Context, in GenerateInput, model string) (string, error) {
	token, err := g.token(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(in.Request)
	if err != nil {
		return "", fmt.Errorf("failed to encode model request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(in, model), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build model request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read model response: %w", err)
	}

	log.WithFields(logrus.Fields{
		"model":    model,
		"status":   resp.StatusCode,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Debug("model call completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("model %s returned status %d: %s", model, resp.StatusCode, truncate(string(respBody), 500))
	}

	return firstCandidateText(respBody)
}

// firstCandidateText pulls candidates[0].content.parts[0].text from a
// generateContent response.
func firstCandidateText(body []byte) (string, error) {
	var decoded struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("failed to decode model response: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("model response contained no candidates")
	}
	return decoded.Candidates[0].Content.Parts[0].Text, nil
}

// isModelNotFound matches the error classes Vertex uses when a model name
// does not resolve for the project.
func isModelNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{"404", "NOT_FOUND", "was not found", "Publisher Model"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func dedupeCandidates(candidates []string) []string {
	seen := make(map[string]bool, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
