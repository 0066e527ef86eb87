// Package pdfinfo implements cheap pre-flight heuristics on raw PDF bytes.
//
// The page-count estimate is a token count over the raw bytes. It may under-
// or over-count and must never be used as ground truth; it exists solely to
// reject pathologically large uploads before spending money on remote
// services. Exact page geometry, when the bytes parse, comes from pdfcpu.
package pdfinfo

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const (
	pageToken     = "/Type /Page"
	pageTreeToken = "/Type /Pages"

	minPDFSize = 8 // "%PDF-1.x" at minimum
)

// PageDim is a page's media box size in PDF points.
type PageDim struct {
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// PageCountExceededError is returned when the estimated page count exceeds
// the configured cap. It is a user error: the caller should ask for the PDF
// to be split.
type PageCountExceededError struct {
	Estimated int
	Max       int
}

func (e *PageCountExceededError) Error() string {
	return fmt.Sprintf("PDF appears to have %d pages which exceeds the limit of %d; please split the PDF and upload the parts separately",
		e.Estimated, e.Max)
}

// EstimatePageCount counts page object tokens in the raw bytes. Returns 0
// when no estimate could be made.
func EstimatePageCount(data []byte) int {
	// The bytes are treated as Latin-1: the tokens are plain ASCII, so a
	// direct substring count over the raw bytes is equivalent.
	s := string(data)
	n := strings.Count(s, pageToken) - strings.Count(s, pageTreeToken)
	if n < 0 {
		return 0
	}
	return n
}

// GuardPageCount rejects PDFs whose estimated page count exceeds max.
// An inestimable count (0) passes the guard; the estimate is a pre-flight
// filter, not ground truth.
func GuardPageCount(data []byte, max int) error {
	if max <= 0 {
		return nil
	}
	estimated := EstimatePageCount(data)
	if estimated > max {
		return &PageCountExceededError{Estimated: estimated, Max: max}
	}
	return nil
}

// QuickValidate performs basic structural validation on the bytes before any
// remote call: minimum size and the PDF header magic.
func QuickValidate(data []byte) error {
	if len(data) < minPDFSize {
		return errors.New("file too small to be a valid PDF")
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return errors.New("missing PDF header: file does not appear to be a PDF")
	}
	return nil
}

// PageDims parses the PDF with pdfcpu and returns per-page media box
// dimensions together with the exact page count. Parsing is relaxed; an
// error here means the document geometry stays unknown, not that the
// pipeline must stop.
func PageDims(data []byte) ([]PageDim, int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, 0, fmt.Errorf("failed to ensure page count: %w", err)
	}

	dims, err := ctx.PageDims()
	if err != nil {
		return nil, ctx.PageCount, fmt.Errorf("failed to read page dimensions: %w", err)
	}

	out := make([]PageDim, len(dims))
	for i, d := range dims {
		out[i] = PageDim{Width: d.Width, Height: d.Height}
	}
	return out, ctx.PageCount, nil
}
