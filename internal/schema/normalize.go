package schema

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/anchorforms/formpipe/internal/docai"
)

const (
	minLabelLen = 2
	maxLabelLen = 64

	// Fewer primary fields than this triggers the entity fallback.
	entityFallbackThreshold = 5
	entityScanLimit         = 200
)

var (
	fillInBlankRe  = regexp.MustCompile(`:\s*_+\s*$`)
	underscoreRun  = regexp.MustCompile(`_{4,}`)
	textareaHintRe = regexp.MustCompile(`(?i)notes|description|explain|reason|comment`)
)

// NormalizeInput pairs the merged layout and form processor results with the
// caller's template context.
type NormalizeInput struct {
	Layout       docai.Result
	Form         docai.Result
	TemplateID   string
	Instructions string
	Source       *SourceInfo
	Pages        []PageInfo // from the PDF inspector, when the bytes parsed
}

// Normalize turns layout and form processor output into a canonical Schema.
// Given byte-identical inputs it produces byte-identical schemas: traversal
// order, the snake_case transformation, and collision suffixing are all
// deterministic.
func Normalize(in NormalizeInput) *Schema {
	s := &Schema{
		TemplateID:   in.TemplateID,
		RuntimeMode:  RuntimeModeDocAI,
		Source:       in.Source,
		Instructions: in.Instructions,
		Sections:     []SectionRecord{},
		Fields:       []FieldRecord{},
		Pages:        in.Pages,
	}

	usedNames := make(map[string]bool)

	s.Sections = extractSections(in.Layout)
	s.Fields = append(s.Fields, formProcessorFields(in.Form, usedNames)...)
	s.Fields = append(s.Fields, layoutLineFields(in.Layout, usedNames)...)

	if len(s.Fields) < entityFallbackThreshold {
		s.Fields = append(s.Fields, entityFields(in.Form, usedNames)...)
	}

	orderFields(s.Fields)
	assignSections(s.Fields, s.Sections)

	s.PageCount = pageCount(s, in)
	if len(s.Pages) == 0 {
		s.Pages = pagesFromLayout(in.Layout)
	}

	return s
}

// extractSections walks each layout page's paragraphs and blocks for text
// matching the section-header heuristic, de-duplicated by page and
// normalized title and sorted by (page, y).
func extractSections(layout docai.Result) []SectionRecord {
	text := docai.Text(layout)
	sections := []SectionRecord{}
	seen := make(map[string]bool)
	usedIDs := make(map[string]bool)

	for pageIdx, page := range docai.Pages(layout) {
		pageNum := pageNumberOf(page, pageIdx)
		for _, listKey := range [][]string{{"paragraphs"}, {"blocks"}} {
			for _, raw := range docai.GetSlice(page, listKey...) {
				el, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				title := collapseSpaces(docai.AnchorText(text, el))
				if !IsSectionHeader(title) {
					continue
				}

				key := strings.ToLower(title)
				dedupe := pageKey(pageNum, key)
				if seen[dedupe] {
					continue
				}
				seen[dedupe] = true

				sec := SectionRecord{
					ID:         uniqueName("s_"+SnakeCase(title), usedIDs),
					Title:      title,
					PageNumber: pageNum,
				}
				if minX, minY, maxX, maxY, okBox := docai.BoundingBox(el); okBox {
					sec.Y = minY
					sec.Box = &Box{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
				}
				sections = append(sections, sec)
			}
		}
	}

	sort.SliceStable(sections, func(i, j int) bool {
		if sections[i].PageNumber != sections[j].PageNumber {
			return sections[i].PageNumber < sections[j].PageNumber
		}
		return sections[i].Y < sections[j].Y
	})
	return sections
}

// formProcessorFields emits the primary fields from the form processor's
// formFields.
func formProcessorFields(form docai.Result, usedNames map[string]bool) []FieldRecord {
	text := docai.Text(form)
	var fields []FieldRecord

	for pageIdx, page := range docai.Pages(form) {
		pageNum := pageNumberOf(page, pageIdx)
		for _, raw := range docai.GetSlice(page, "formFields", "form_fields") {
			ff, ok := raw.(map[string]any)
			if !ok {
				continue
			}

			nameLayout := docai.GetMap(ff, "fieldName", "field_name")
			label := cleanLabel(docai.AnchorText(text, nameLayout))
			if label == "" || IsSectionHeader(label) {
				continue
			}

			field := FieldRecord{
				Label:      label,
				InputType:  inputTypeFor(docai.GetString(ff, "valueType", "value_type")),
				PageNumber: pageNum,
			}
			if nameLayout != nil {
				if conf, okConf := docai.GetFloat(nameLayout, "confidence"); okConf {
					field.Confidence = conf
				}
			}
			if minX, minY, maxX, maxY, okBox := docai.BoundingBox(nameLayout); okBox {
				field.X = minX
				field.Y = minY
				field.LabelBox = &Box{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
			}
			if valueLayout := docai.GetMap(ff, "fieldValue", "field_value"); valueLayout != nil {
				if minX, minY, maxX, maxY, okBox := docai.BoundingBox(valueLayout); okBox {
					field.FieldBox = &Box{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
				}
			}

			field.Name = uniqueName(SnakeCase(label), usedNames)
			field.ID = "f_" + field.Name
			fields = append(fields, field)
		}
	}

	return fields
}

// layoutLineFields emits heuristic text fields from layout lines that look
// like labels: a trailing colon, a colon followed by underscores, or a
// fill-in blank of four or more underscores.
func layoutLineFields(layout docai.Result, usedNames map[string]bool) []FieldRecord {
	text := docai.Text(layout)
	var fields []FieldRecord

	for pageIdx, page := range docai.Pages(layout) {
		pageNum := pageNumberOf(page, pageIdx)
		for _, raw := range docai.GetSlice(page, "lines") {
			el, ok := raw.(map[string]any)
			if !ok {
				continue
			}

			lineText := collapseSpaces(docai.AnchorText(text, el))
			if !looksLikeLabelLine(lineText) {
				continue
			}
			// Section-header classification wins over the field-label
			// heuristic; the header keeps owning any co-located fields.
			if IsSectionHeader(lineText) {
				continue
			}

			label := cleanLabel(lineText)
			if len(label) < minLabelLen || len(label) > maxLabelLen || IsSectionHeader(label) {
				continue
			}

			base := SnakeCase(label)
			if usedNames[base] {
				continue
			}

			inputType := InputTypeText
			if textareaHintRe.MatchString(label) {
				inputType = InputTypeTextarea
			}

			field := FieldRecord{
				Label:      label,
				InputType:  inputType,
				PageNumber: pageNum,
			}
			if minX, minY, maxX, maxY, okBox := docai.BoundingBox(el); okBox {
				field.X = minX
				field.Y = minY
				field.LabelBox = &Box{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
			}

			field.Name = uniqueName(base, usedNames)
			field.ID = "f_" + field.Name
			fields = append(fields, field)
		}
	}

	return fields
}

// entityFields is the last-resort source: form processor entities, scanned
// only when the primary passes produced too few fields.
func entityFields(form docai.Result, usedNames map[string]bool) []FieldRecord {
	var fields []FieldRecord

	for i, ent := range docai.Entities(form) {
		if i >= entityScanLimit {
			break
		}
		if docai.GetString(ent, "type") == "generic_entities" {
			continue
		}

		label := cleanLabel(docai.GetString(ent, "mentionText", "mention_text"))
		if label == "" {
			label = cleanLabel(docai.GetString(ent, "type"))
		}
		if label == "" || len(label) > maxLabelLen || IsSectionHeader(label) {
			continue
		}

		base := SnakeCase(label)
		if usedNames[base] {
			continue
		}

		field := FieldRecord{
			Label:      label,
			InputType:  InputTypeText,
			PageNumber: 1,
		}
		if conf, ok := docai.GetFloat(ent, "confidence"); ok {
			field.Confidence = conf
		}

		field.Name = uniqueName(base, usedNames)
		field.ID = "f_" + field.Name
		fields = append(fields, field)
	}

	return fields
}

// orderFields sorts by (page_number, y, x) with the row tolerance on y. The
// sort is stable so equal keys keep traversal order.
func orderFields(fields []FieldRecord) {
	sort.SliceStable(fields, func(i, j int) bool {
		a, b := fields[i], fields[j]
		if a.PageNumber != b.PageNumber {
			return a.PageNumber < b.PageNumber
		}
		dy := a.Y - b.Y
		if dy < -RowTolerance {
			return true
		}
		if dy > RowTolerance {
			return false
		}
		return a.X < b.X
	})
}

// assignSections gives each field the latest section at or above it in
// reading order.
func assignSections(fields []FieldRecord, sections []SectionRecord) {
	for i := range fields {
		f := &fields[i]
		for _, sec := range sections {
			if sec.PageNumber < f.PageNumber ||
				(sec.PageNumber == f.PageNumber && sec.Y <= f.Y) {
				f.SectionID = sec.ID
			}
		}
	}
}

// IsSectionHeader reports whether text matches the section-header heuristic:
// no trailing colon, and either a known section suffix or an all-caps run of
// at least ten letters.
func IsSectionHeader(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" || strings.HasSuffix(t, ":") || len(t) > 80 {
		return false
	}

	lower := strings.ToLower(t)
	for _, suffix := range []string{"information", "history", "questionnaire"} {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}

	letters := 0
	for _, r := range t {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 10
}

func looksLikeLabelLine(t string) bool {
	if t == "" {
		return false
	}
	return strings.HasSuffix(t, ":") ||
		fillInBlankRe.MatchString(t) ||
		underscoreRun.MatchString(t)
}

// cleanLabel trims, strips trailing fill-in decoration and colons, and
// collapses whitespace.
func cleanLabel(s string) string {
	t := collapseSpaces(s)
	t = strings.TrimRight(t, "_ ")
	t = strings.TrimRight(t, ": ")
	return strings.TrimSpace(t)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func inputTypeFor(valueType string) string {
	lower := strings.ToLower(valueType)
	if strings.Contains(lower, "checkbox") || strings.Contains(lower, "selection") {
		return InputTypeCheckbox
	}
	return InputTypeText
}

func pageNumberOf(page map[string]any, idx int) int {
	if n, ok := docai.GetFloat(page, "pageNumber", "page_number"); ok && n >= 1 {
		return int(n)
	}
	return idx + 1
}

func pageKey(pageNum int, title string) string {
	return strconv.Itoa(pageNum) + ":" + title
}

func pageCount(s *Schema, in NormalizeInput) int {
	max := len(docai.Pages(in.Layout))
	if n := len(docai.Pages(in.Form)); n > max {
		max = n
	}
	if n := len(in.Pages); n > max {
		max = n
	}
	for _, f := range s.Fields {
		if f.PageNumber > max {
			max = f.PageNumber
		}
	}
	for _, sec := range s.Sections {
		if sec.PageNumber > max {
			max = sec.PageNumber
		}
	}
	if max == 0 {
		max = 1
	}
	return max
}

// pagesFromLayout derives page sizes from the layout result's page
// dimensions when the inspector could not parse the PDF.
func pagesFromLayout(layout docai.Result) []PageInfo {
	pages := docai.Pages(layout)
	out := make([]PageInfo, 0, len(pages))
	for i, p := range pages {
		info := PageInfo{PageNumber: pageNumberOf(p, i)}
		if dim := docai.GetMap(p, "dimension"); dim != nil {
			if w, ok := docai.GetFloat(dim, "width"); ok {
				info.Width = w
			}
			if h, ok := docai.GetFloat(dim, "height"); ok {
				info.Height = h
			}
		}
		out = append(out, info)
	}
	return out
}
