package pipeline

import (
	"context"
	"fmt"

	"github.com/anchorforms/formpipe/internal/gateway"
	"github.com/anchorforms/formpipe/internal/pdfinfo"
	"github.com/anchorforms/formpipe/internal/schema"
)

const fallbackHTML = `<div class="ac-form-container" data-anchor-form="true"><form></form></div>`

// ConvertPDFToForm is the model-only strategy: the PDF goes to the generative
// model as an inline part and the model emits the form code directly. No
// rasterization and no Document AI.
func (s *Service) ConvertPDFToForm(ctx context.Context, req Request) (*Artifact, error) {
	if err := pdfinfo.QuickValidate(req.PDF); err != nil {
		return nil, err
	}
	if err := pdfinfo.GuardPageCount(req.PDF, s.cfg.MaxPages); err != nil {
		return nil, err
	}

	parts := []map[string]any{
		textPart(aiPrompt(req.Instructions)),
		inlinePart("application/pdf", req.PDF),
	}

	out, err := s.gw.Generate(ctx, gateway.GenerateInput{
		Purpose:    "pdf-to-form",
		Candidates: s.textCandidates(),
		Request:    generateRequest(parts),
		ProjectID:  s.cfg.ProjectID,
		Location:   vertexLocation,
	})
	if err != nil {
		return nil, mapTimeout("model generation", err)
	}
	log.WithField("model", out.ModelUsed).Debug("model-only conversion response received")

	obj, err := gateway.ParseModelJSON(out.Text)
	if err != nil {
		return nil, fmt.Errorf("decoding model response: %w", err)
	}

	htmlCode := gateway.DecodeEncoded(obj, "html_b64", "html")
	cssCode := gateway.DecodeEncoded(obj, "css_b64", "css")
	jsCode := gateway.DecodeEncoded(obj, "js_b64", "js")
	if htmlCode == "" {
		htmlCode = fallbackHTML
	}

	sc := &schema.Schema{
		TemplateID:   req.TemplateID,
		RuntimeMode:  schema.RuntimeModeHTML,
		Instructions: req.Instructions,
		JSCode:       jsCode,
		PageCount:    pdfinfo.EstimatePageCount(req.PDF),
	}

	return &Artifact{
		ReactCode:   htmlCode,
		CSSCode:     cssCode,
		Schema:      sc,
		Explanation: stringField(obj, "explanation"),
	}, nil
}

func stringField(obj map[string]any, key string) string {
	if s, ok := obj[key].(string); ok {
		return s
	}
	return ""
}
