package pipeline

import (
	"context"
	"fmt"

	"github.com/anchorforms/formpipe/internal/docai"
	"github.com/anchorforms/formpipe/internal/pdfinfo"
	"github.com/anchorforms/formpipe/internal/render"
	"github.com/anchorforms/formpipe/internal/schema"
)

// ConvertPDFWithDocAI is the Document AI strategy: a layout pass over the
// whole PDF for reading order and sections, then a form-parser pass per
// rendered page, merged into one document and normalized into the canonical
// schema. The form HTML is rendered locally from the schema.
func (s *Service) ConvertPDFWithDocAI(ctx context.Context, req Request) (*Artifact, error) {
	if err := pdfinfo.QuickValidate(req.PDF); err != nil {
		return nil, err
	}
	if err := pdfinfo.GuardPageCount(req.PDF, s.cfg.MaxPages); err != nil {
		return nil, err
	}

	layout, err := s.doc.Process(ctx, docai.ProcessRequest{
		Content:     req.PDF,
		MIMEType:    "application/pdf",
		ProjectID:   s.cfg.ProjectID,
		Location:    s.cfg.Location,
		ProcessorID: s.cfg.LayoutProcessorID,
	})
	if err != nil {
		return nil, mapTimeout("layout processing", err)
	}

	images, err := s.ras.Rasterize(ctx, req.PDF)
	if err != nil {
		return nil, mapTimeout("rasterization", err)
	}

	results := make([]docai.Result, 0, len(images))
	for _, img := range images {
		r, perr := s.doc.Process(ctx, docai.ProcessRequest{
			Content:     img.Data,
			MIMEType:    img.MIMEType,
			ProjectID:   s.cfg.ProjectID,
			Location:    s.cfg.Location,
			ProcessorID: s.cfg.FormProcessorID,
		})
		if perr != nil {
			return nil, mapTimeout(fmt.Sprintf("form processing page %d", img.PageNumber), perr)
		}
		results = append(results, r)
	}
	form := docai.MergeResults(results)

	sc := schema.Normalize(schema.NormalizeInput{
		Layout:       layout,
		Form:         form,
		TemplateID:   req.TemplateID,
		Instructions: req.Instructions,
		Source: &schema.SourceInfo{
			LayoutProcessorID: s.cfg.LayoutProcessorID,
			FormProcessorID:   s.cfg.FormProcessorID,
			Location:          s.cfg.Location,
		},
		Pages: pageInfos(req.PDF),
	})

	title := titleFor(req)
	htmlCode, cssCode, jsCode := render.Render(sc, title)
	sc.JSCode = jsCode
	sc.Printable = render.Printable(sc, title)

	return &Artifact{
		ReactCode: htmlCode,
		CSSCode:   cssCode,
		Schema:    sc,
		Explanation: fmt.Sprintf("Built from document processor output: %d fields across %d pages.",
			len(sc.Fields), sc.PageCount),
	}, nil
}

// pageInfos reads page dimensions straight from the PDF. When the bytes do
// not parse, normalization falls back to dimensions from the layout pass.
func pageInfos(pdfBytes []byte) []schema.PageInfo {
	dims, _, err := pdfinfo.PageDims(pdfBytes)
	if err != nil {
		log.WithError(err).Debug("page dimensions unavailable")
		return nil
	}
	out := make([]schema.PageInfo, len(dims))
	for i, d := range dims {
		out[i] = schema.PageInfo{PageNumber: i + 1, Width: d.Width, Height: d.Height}
	}
	return out
}
