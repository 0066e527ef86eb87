package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/anchorforms/formpipe/internal/gateway"
	"github.com/anchorforms/formpipe/internal/pdfinfo"
	"github.com/anchorforms/formpipe/internal/pdftext"
	"github.com/anchorforms/formpipe/internal/raster"
	"github.com/anchorforms/formpipe/internal/render"
	"github.com/anchorforms/formpipe/internal/schema"
	"github.com/anchorforms/formpipe/internal/validate"
)

// ConvertPDFWithVision is the vision strategy: the model sees the PDF plus
// rendered page images and emits both the interactive form and a printable
// template. Uploaded screenshots take precedence over local rasterization;
// pages that render blank are dropped from the request.
func (s *Service) ConvertPDFWithVision(ctx context.Context, req Request) (*Artifact, error) {
	if err := pdfinfo.QuickValidate(req.PDF); err != nil {
		return nil, err
	}
	if err := pdfinfo.GuardPageCount(req.PDF, s.cfg.VisionMaxPages); err != nil {
		return nil, err
	}

	images, err := s.pageImages(ctx, req)
	if err != nil {
		return nil, err
	}
	usable, omitted := splitBlank(images)
	if len(usable) == 0 {
		return nil, &NoUsableImagesError{Reason: "every page rendered blank"}
	}
	if s.cfg.DebugDump {
		raster.DebugDump(s.cfg.UploadDir, usable, s.cfg.DebugDumpMax)
	}

	parts := []map[string]any{
		textPart(visionPrompt(req.Instructions, omitted)),
		inlinePart("application/pdf", req.PDF),
	}
	for _, img := range usable {
		parts = append(parts, inlinePart(img.MIMEType, img.Data))
	}

	out, err := s.gw.Generate(ctx, gateway.GenerateInput{
		Purpose:    "vision-to-form",
		Candidates: s.visionCandidates(),
		Request:    generateRequest(parts),
		ProjectID:  s.cfg.ProjectID,
		Location:   vertexLocation,
	})
	if err != nil {
		return nil, mapTimeout("model generation", err)
	}
	log.WithFields(map[string]any{
		"model":  out.ModelUsed,
		"images": len(usable),
	}).Debug("vision conversion response received")

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
	if jsCode == "" {
		jsCode = render.FloatingLabelJS
	}
	cssCode = render.PresetCSS + "\n" + cssCode

	sc := &schema.Schema{
		TemplateID:   req.TemplateID,
		RuntimeMode:  schema.RuntimeModeHTML,
		Instructions: req.Instructions,
		JSCode:       jsCode,
		PageCount:    pdfinfo.EstimatePageCount(req.PDF),
		Printable: &schema.Printable{
			HTML: gateway.DecodeEncoded(obj, "print_html_b64", "print_html"),
			CSS:  gateway.DecodeEncoded(obj, "print_css_b64", "print_css"),
			JS:   gateway.DecodeEncoded(obj, "print_js_b64", "print_js"),
		},
	}
	sc.AIValidation = s.validateAgainstPDF(htmlCode, req.PDF)

	return &Artifact{
		ReactCode:   htmlCode,
		CSSCode:     cssCode,
		Schema:      sc,
		Explanation: stringField(obj, "explanation"),
	}, nil
}

// pageImages returns the images to send: uploads when present, otherwise a
// local rasterization. A missing raster tool is only fatal when there are no
// uploads to fall back on.
func (s *Service) pageImages(ctx context.Context, req Request) ([]raster.PageImage, error) {
	if len(req.Uploads) > 0 {
		return req.Uploads, nil
	}
	images, err := s.ras.Rasterize(ctx, req.PDF)
	if err != nil {
		var unavailable *raster.UnavailableError
		if errors.As(err, &unavailable) {
			return nil, &NoUsableImagesError{Reason: unavailable.Reason}
		}
		return nil, mapTimeout("rasterization", err)
	}
	return images, nil
}

// splitBlank separates usable images from blank ones, returning the page
// numbers that were dropped.
func splitBlank(images []raster.PageImage) ([]raster.PageImage, []int) {
	var usable []raster.PageImage
	var omitted []int
	for _, img := range images {
		if raster.LooksBlank(img.Data) {
			omitted = append(omitted, img.PageNumber)
			continue
		}
		usable = append(usable, img)
	}
	if len(omitted) > 0 {
		log.WithField("pages", omitted).Info("dropping blank page renders")
	}
	return usable, omitted
}

// validateAgainstPDF compares generated labels with extracted PDF text. The
// comparison is advisory; extraction failures only log.
func (s *Service) validateAgainstPDF(htmlCode string, pdfBytes []byte) *schema.ValidationReport {
	lines, err := pdftext.ExtractLines(pdfBytes, s.cfg.ValidatePages)
	if err != nil {
		log.WithError(err).Warn("validation text extraction failed")
		return nil
	}
	return validate.Report(htmlCode, lines)
}
