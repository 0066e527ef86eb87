// Package docai calls Google Document AI processors and normalizes their
// per-page results into a single merged document.
package docai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

	// How much upstream body is kept on failures, for diagnosis.
	bodyPrefixLimit = 500

	defaultCallTimeout = 2 * time.Minute
)

var log = logrus.WithField("component", "docai")

// Result is an opaque processor document: full text plus per-page elements
// addressed by text anchors.
type Result map[string]any

// Error is a non-2xx or malformed response from a processor endpoint.
type Error struct {
	Status     int
	BodyPrefix string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("document processor returned status %d: %s", e.Status, e.BodyPrefix)
	}
	return fmt.Sprintf("document processor returned a malformed body: %s", e.BodyPrefix)
}

// ProcessRequest identifies the processor and carries the raw document.
type ProcessRequest struct {
	Content     []byte
	MIMEType    string // "application/pdf", "image/jpeg" or "image/png"
	ProjectID   string
	Location    string
	ProcessorID string
}

// Client posts raw documents to Document AI processors. Safe for concurrent
// use; the access-token source is a lazily initialized singleton.
type Client struct {
	httpClient *http.Client

	tokenOnce sync.Once
	tokenSrc  oauth2.TokenSource
	tokenErr  error

	// baseURL overrides endpoint construction in tests.
	baseURL string
}

// NewClient creates a processor client with the given per-call timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// token returns a short-lived access token from the platform's default
// credential chain.
func (c *Client) token(ctx context.Context) (string, error) {
	c.tokenOnce.Do(func() {
		// The token source outlives individual calls; it refreshes with its
		// own background context.
		c.tokenSrc, c.tokenErr = google.DefaultTokenSource(context.Background(), cloudPlatformScope)
	})
	if c.tokenErr != nil {
		return "", fmt.Errorf("failed to acquire default credentials: %w", c.tokenErr)
	}
	tok, err := c.tokenSrc.Token()
	if err != nil {
		return "", fmt.Errorf("failed to mint access token: %w", err)
	}
	return tok.AccessToken, nil
}

func (c *Client) endpoint(req ProcessRequest) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return fmt.Sprintf("https://%s-documentai.googleapis.com/v1/projects/%s/locations/%s/processors/%s:process",
		req.Location, req.ProjectID, req.Location, req.ProcessorID)
}

// Process submits one raw document to a processor and returns its document
// result.
func (c *Client) Process(ctx context.Context, req ProcessRequest) (Result, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"rawDocument": map[string]any{
			"content":  base64.StdEncoding.EncodeToString(req.Content),
			"mimeType": req.MIMEType,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode processor request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(req), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build processor request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("processor call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read processor response: %w", err)
	}

	log.WithFields(logrus.Fields{
		"processor": req.ProcessorID,
		"mime":      req.MIMEType,
		"status":    resp.StatusCode,
		"bytes_in":  len(req.Content),
		"duration":  time.Since(start).Round(time.Millisecond),
	}).Debug("processor call completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Status: resp.StatusCode, BodyPrefix: prefix(respBody)}
	}

	var decoded map[string]any
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, &Error{BodyPrefix: prefix(respBody)}
	}

	// The :process response wraps the document.
	if doc, ok := decoded["document"].(map[string]any); ok {
		return Result(doc), nil
	}
	return Result(decoded), nil
}

func prefix(body []byte) string {
	if len(body) > bodyPrefixLimit {
		body = body[:bodyPrefixLimit]
	}
	return string(body)
}
