package pdftext

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF assembles a minimal single-page PDF with the given text lines,
// computing xref offsets at runtime so the file is structurally valid.
func buildPDF(t *testing.T, lines []string) []byte {
	t.Helper()

	var content strings.Builder
	content.WriteString("BT /F1 12 Tf 72 720 Td ")
	for i, line := range lines {
		if i > 0 {
			content.WriteString("0 -24 Td ")
		}
		fmt.Fprintf(&content, "(%s) Tj ", line)
	}
	content.WriteString("ET")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R " +
			"/Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf strings.Builder
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefPos := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xrefPos)

	return []byte(buf.String())
}

func TestExtractLines(t *testing.T) {
	data := buildPDF(t, []string{"Name:", "Email:"})

	lines, err := ExtractLines(data, 3)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "Name:", lines[0])
	assert.Equal(t, "Email:", lines[1])
}

func TestExtractLines_DefaultsMaxPages(t *testing.T) {
	data := buildPDF(t, []string{"Date of Birth:"})

	lines, err := ExtractLines(data, 0)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "Date of Birth:", lines[0])
}

func TestExtractLines_InvalidPDF(t *testing.T) {
	_, err := ExtractLines([]byte("not a pdf at all"), 3)
	assert.Error(t, err)
}
