// Package pdftext extracts per-line text from PDF bytes without
// rasterization. It exists to provide ground truth for validating generated
// HTML against the source document.
package pdftext

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	// DefaultMaxPages bounds how many pages are read for validation.
	DefaultMaxPages = 3

	// Horizontal gap, in text-space units, above which two runs on the same
	// row are treated as separate words.
	wordGap = 1.0
)

// ExtractLines returns one string per visible text line of the first
// maxPages pages, in reading order.
func ExtractLines(pdfBytes []byte, maxPages int) (lines []string, err error) {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	// The underlying parser panics on some malformed PDFs; validation input
	// is advisory, so recover into an error instead of taking the pipeline
	// down.
	defer func() {
		if r := recover(); r != nil {
			lines = nil
			err = fmt.Errorf("PDF text extraction panicked: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	numPages := reader.NumPage()
	if numPages > maxPages {
		numPages = maxPages
	}

	for pageNum := 1; pageNum <= numPages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		rows, rowErr := page.GetTextByRow()
		if rowErr != nil {
			// Continue with other pages even if one fails.
			continue
		}

		// Rows top-of-page first.
		sort.Slice(rows, func(i, j int) bool { return rows[i].Position > rows[j].Position })

		for _, row := range rows {
			line := joinRow(row)
			if line != "" {
				lines = append(lines, line)
			}
		}
	}

	return lines, nil
}

// joinRow concatenates a row's text runs left to right, inserting spaces at
// word gaps and collapsing whitespace.
func joinRow(row *pdf.Row) string {
	runs := make([]pdf.Text, len(row.Content))
	copy(runs, row.Content)
	sort.Slice(runs, func(i, j int) bool { return runs[i].X < runs[j].X })

	var b strings.Builder
	prevEnd := 0.0
	for i, run := range runs {
		if i > 0 && run.X-prevEnd > wordGap && !strings.HasSuffix(b.String(), " ") {
			b.WriteByte(' ')
		}
		b.WriteString(run.S)
		prevEnd = run.X + run.W
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
