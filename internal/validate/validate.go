// Package validate compares labels found in generated form HTML against text
// lines extracted from the source PDF. The report is advisory: it flags
// probable omissions and typos but never fails a conversion.
package validate

import (
	"regexp"
	"sort"
	"strings"

	"github.com/anchorforms/formpipe/internal/schema"
)

const (
	missingThreshold = 0.72
	typoThreshold    = 0.9

	minCandidateLen = 6
	maxCandidateLen = 80
)

var (
	labelTagRe   = regexp.MustCompile(`(?is)<(label|h1|h2|h3|legend)\b[^>]*>(.*?)</(?:label|h1|h2|h3|legend)>`)
	innerTagRe   = regexp.MustCompile(`(?s)<[^>]*>`)
	colonLineRe  = regexp.MustCompile(`^([^:]{2,80}):`)
	digitRunRe   = regexp.MustCompile(`\d{5,}`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Report matches PDF label candidates against labels scraped from the
// generated HTML. A PDF label with best similarity below 0.72 is reported as
// missing; one in [0.72, 0.9) as a possible typo.
func Report(html string, pdfLines []string) *schema.ValidationReport {
	aiLabels := HTMLLabels(html)
	pdfLabels := PDFLabelCandidates(pdfLines)

	report := &schema.ValidationReport{
		PDFLabelCount: len(pdfLabels),
		AILabelCount:  len(aiLabels),
	}

	normalized := make([]string, len(aiLabels))
	for i, l := range aiLabels {
		normalized[i] = normalizeLabel(l)
	}

	for _, expected := range pdfLabels {
		best, score := bestMatch(normalizeLabel(expected), aiLabels, normalized)
		switch {
		case score < missingThreshold:
			report.Missing = append(report.Missing, schema.LabelMatch{
				Expected: expected, BestMatch: best, Score: score,
			})
		case score < typoThreshold:
			report.PossibleTypos = append(report.PossibleTypos, schema.LabelMatch{
				Expected: expected, BestMatch: best, Score: score,
			})
		}
	}
	SortMatches(report.Missing)
	SortMatches(report.PossibleTypos)
	return report
}

// HTMLLabels extracts the visible text of label and heading elements,
// deduplicated in first-seen order.
func HTMLLabels(html string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range labelTagRe.FindAllStringSubmatch(html, -1) {
		text := strings.TrimSpace(innerTagRe.ReplaceAllString(m[2], " "))
		text = whitespaceRe.ReplaceAllString(text, " ")
		text = unescapeBasic(text)
		if text == "" {
			continue
		}
		key := normalizeLabel(text)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, text)
	}
	return out
}

// PDFLabelCandidates filters extracted text lines down to ones that plausibly
// name a form field: either a leading colon-terminated phrase, or a short line
// of mostly letters that is not a URL or an ID-like digit run.
func PDFLabelCandidates(lines []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		cand := ""
		if m := colonLineRe.FindStringSubmatch(line); m != nil {
			cand = strings.TrimSpace(m[1])
		} else if plausibleLabelLine(line) {
			cand = line
		}
		if cand == "" {
			continue
		}
		key := normalizeLabel(cand)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, cand)
	}
	return out
}

func plausibleLabelLine(line string) bool {
	n := len([]rune(line))
	if n < minCandidateLen || n > maxCandidateLen {
		return false
	}
	if strings.Contains(line, "http://") || strings.Contains(line, "https://") ||
		strings.Contains(line, "www.") {
		return false
	}
	if digitRunRe.MatchString(line) {
		return false
	}
	letters := 0
	for _, r := range line {
		if isLetter(r) || r == ' ' {
			letters++
		}
	}
	return float64(letters)/float64(n) >= 0.7
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func bestMatch(expected string, labels, normalized []string) (string, float64) {
	best, bestScore := "", 0.0
	for i, norm := range normalized {
		s := DiceSimilarity(expected, norm)
		if s > bestScore {
			best, bestScore = labels[i], s
		}
	}
	return best, bestScore
}

// DiceSimilarity is the Sorensen-Dice coefficient over character bigrams.
// Equal strings score 1; strings shorter than two runes only match exactly.
func DiceSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ba, bb := bigrams(a), bigrams(b)
	if len(ba) == 0 || len(bb) == 0 {
		return 0
	}
	shared := 0
	for g, n := range ba {
		if m, ok := bb[g]; ok {
			shared += min(n, m)
		}
	}
	total := 0
	for _, n := range ba {
		total += n
	}
	for _, n := range bb {
		total += n
	}
	return 2 * float64(shared) / float64(total)
}

func bigrams(s string) map[string]int {
	rs := []rune(s)
	out := make(map[string]int)
	for i := 0; i+1 < len(rs); i++ {
		out[string(rs[i:i+2])]++
	}
	return out
}

func normalizeLabel(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune(' ')
		}
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(b.String(), " "))
}

func unescapeBasic(s string) string {
	r := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&#34;", `"`,
	)
	return r.Replace(s)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// SortMatches orders match lists by descending score for stable report output.
func SortMatches(ms []schema.LabelMatch) {
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].Score > ms[j].Score })
}
