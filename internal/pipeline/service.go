// Package pipeline orchestrates the three PDF-to-form conversion strategies:
// model-only, Document AI and vision. Each strategy produces the same
// Artifact shape so callers can switch strategies without changing how they
// consume the result.
package pipeline

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/anchorforms/formpipe/internal/config"
	"github.com/anchorforms/formpipe/internal/docai"
	"github.com/anchorforms/formpipe/internal/gateway"
	"github.com/anchorforms/formpipe/internal/raster"
	"github.com/anchorforms/formpipe/internal/schema"
)

// vertexLocation is the region the generative endpoints are served from. The
// Document AI location is configured separately because its processors live
// in multi-regions.
const vertexLocation = "us-central1"

var log = logrus.WithField("component", "pipeline")

// Fallback model candidates, tried in order after the configured model.
var (
	textModelFallbacks = []string{
		"gemini-3-flash",
		"gemini-2.5-flash",
		"gemini-2.0-flash",
		"gemini-1.5-flash",
		"gemini-1.5-flash-002",
		"gemini-1.5-flash-001",
	}
	visionModelFallbacks = []string{
		"gemini-3-pro",
		"gemini-3-flash",
		"gemini-2.5-pro",
		"gemini-2.5-flash",
		"gemini-1.5-pro",
		"gemini-1.5-pro-002",
	}
)

// Request is one conversion job. Uploads are optional page screenshots that
// take precedence over local rasterization in the vision strategy.
type Request struct {
	PDF          []byte
	FileName     string
	TemplateID   string
	Instructions string
	Uploads      []raster.PageImage
}

// Artifact is the result of any conversion strategy.
type Artifact struct {
	ReactCode   string         `json:"react_code"`
	CSSCode     string         `json:"css_code"`
	Schema      *schema.Schema `json:"schema"`
	Explanation string         `json:"explanation,omitempty"`
}

type modelGateway interface {
	Generate(ctx context.Context, in gateway.GenerateInput) (*gateway.GenerateOutput, error)
}

type docClient interface {
	Process(ctx context.Context, req docai.ProcessRequest) (docai.Result, error)
}

type pageRasterizer interface {
	Rasterize(ctx context.Context, pdfBytes []byte) ([]raster.PageImage, error)
}

// Service runs conversions against the configured hosted services.
type Service struct {
	cfg *config.Config

	gw  modelGateway
	doc docClient
	ras pageRasterizer
}

// NewService wires a Service to the real gateway, Document AI client and
// rasterizer.
func NewService(cfg *config.Config) *Service {
	return &Service{
		cfg: cfg,
		gw:  gateway.NewGateway(0),
		doc: docai.NewClient(0),
		ras: raster.NewRasterizer(cfg.VisionDPI),
	}
}

// Convert dispatches to the strategy named in the request or configuration.
func (s *Service) Convert(ctx context.Context, strategy string, req Request) (*Artifact, error) {
	switch strategy {
	case config.StrategyAI:
		return s.ConvertPDFToForm(ctx, req)
	case config.StrategyDocAI:
		return s.ConvertPDFWithDocAI(ctx, req)
	default:
		return s.ConvertPDFWithVision(ctx, req)
	}
}

func (s *Service) textCandidates() []string {
	return append([]string{s.cfg.Model}, textModelFallbacks...)
}

func (s *Service) visionCandidates() []string {
	return append([]string{s.cfg.VisionModel}, visionModelFallbacks...)
}

// titleFor derives a human form title from the request.
func titleFor(req Request) string {
	name := strings.TrimSuffix(filepath.Base(req.FileName), filepath.Ext(req.FileName))
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." {
		return "Form"
	}
	return name
}

// inlinePart builds a generateContent inline data part.
func inlinePart(mimeType string, data []byte) map[string]any {
	return map[string]any{
		"inlineData": map[string]any{
			"mimeType": mimeType,
			"data":     base64.StdEncoding.EncodeToString(data),
		},
	}
}

func textPart(text string) map[string]any {
	return map[string]any{"text": text}
}

// generateRequest wraps parts into the generateContent body. JSON output is
// requested via the response MIME type; parsing still tolerates prose.
func generateRequest(parts []map[string]any) map[string]any {
	ps := make([]any, len(parts))
	for i, p := range parts {
		ps[i] = p
	}
	return map[string]any{
		"contents": []any{
			map[string]any{
				"role":  "user",
				"parts": ps,
			},
		},
		"generationConfig": map[string]any{
			"responseMimeType": "application/json",
			"temperature":      0.1,
		},
	}
}
