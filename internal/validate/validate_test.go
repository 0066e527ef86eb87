package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiceSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{name: "identical", a: "first name", b: "first name", min: 1, max: 1},
		{name: "close typo", a: "first name", b: "frst name", min: 0.72, max: 0.99},
		{name: "unrelated", a: "first name", b: "zip code", min: 0, max: 0.2},
		{name: "empty left", a: "", b: "name", min: 0, max: 0},
		{name: "single rune", a: "a", b: "b", min: 0, max: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DiceSimilarity(tt.a, tt.b)
			assert.GreaterOrEqual(t, s, tt.min)
			assert.LessOrEqual(t, s, tt.max)
		})
	}
}

func TestHTMLLabels(t *testing.T) {
	html := `
<div class="ac-form-container">
  <h1 class="ac-form-title">Intake</h1>
  <h2 class="ac-section-title">PATIENT INFORMATION</h2>
  <div class="ac-form-group">
    <input type="text" id="f_first_name" name="first_name">
    <label for="f_first_name">First Name</label>
  </div>
  <label for="f_first_name">First   Name</label>
  <label for="f_x">Smith &amp; Jones</label>
  <label for="f_y"></label>
</div>`

	labels := HTMLLabels(html)

	assert.Contains(t, labels, "Intake")
	assert.Contains(t, labels, "PATIENT INFORMATION")
	assert.Contains(t, labels, "First Name")
	assert.Contains(t, labels, "Smith & Jones")
	// Whitespace-variant duplicate collapses to one entry.
	count := 0
	for _, l := range labels {
		if normalizeLabel(l) == "first name" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestPDFLabelCandidates(t *testing.T) {
	lines := []string{
		"First Name: ______",
		"Date of Birth",
		"Visit https://example.com for details",
		"Ref 1234567890",
		"ok",
		"PATIENT INFORMATION",
	}

	cands := PDFLabelCandidates(lines)

	assert.Contains(t, cands, "First Name")
	assert.Contains(t, cands, "Date of Birth")
	assert.Contains(t, cands, "PATIENT INFORMATION")
	assert.NotContains(t, cands, "ok")
	for _, c := range cands {
		assert.NotContains(t, c, "example.com")
		assert.NotContains(t, c, "1234567890")
	}
}

func TestReportMissingAndTypos(t *testing.T) {
	html := `
<form>
  <label for="a">First Name</label>
  <label for="b">Emergency Cntct</label>
</form>`
	lines := []string{
		"First Name: ____",
		"Emergency Contact: ____",
		"Insurance Provider: ____",
	}

	r := Report(html, lines)
	require.NotNil(t, r)

	assert.Equal(t, 3, r.PDFLabelCount)
	assert.Equal(t, 2, r.AILabelCount)

	require.Len(t, r.Missing, 1)
	assert.Equal(t, "Insurance Provider", r.Missing[0].Expected)
	assert.Less(t, r.Missing[0].Score, 0.72)

	require.Len(t, r.PossibleTypos, 1)
	assert.Equal(t, "Emergency Contact", r.PossibleTypos[0].Expected)
	assert.Equal(t, "Emergency Cntct", r.PossibleTypos[0].BestMatch)
}

func TestReportExactMatchesProduceNoFindings(t *testing.T) {
	html := `<label for="a">First Name</label><label for="b">Phone</label>`
	lines := []string{"First Name:", "Phone:"}

	r := Report(html, lines)

	assert.Empty(t, r.Missing)
	assert.Empty(t, r.PossibleTypos)
}
