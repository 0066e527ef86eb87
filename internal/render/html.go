// Package render turns a normalized schema into fillable HTML plus the preset
// stylesheet and floating-label script, and into a printable template for
// completed submissions.
package render

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/anchorforms/formpipe/internal/schema"
)

const (
	checkboxRowTolerance = 0.025
	textRowTolerance     = 0.02
	maxRowColumns        = 4
)

// Render produces the fillable form HTML together with PresetCSS and
// FloatingLabelJS. Fields are grouped by section; fields with no section are
// grouped by page. All label text is escaped.
func Render(s *schema.Schema, title string) (string, string, string) {
	var b strings.Builder
	b.WriteString(`<div class="ac-form-container" data-anchor-form="true">` + "\n")
	if title != "" {
		fmt.Fprintf(&b, `  <h1 class="ac-form-title">%s</h1>`+"\n", html.EscapeString(title))
	}
	b.WriteString(`  <form>` + "\n")

	for _, grp := range groupFields(s) {
		if grp.title != "" {
			b.WriteString(`    <div class="ac-section">` + "\n")
			fmt.Fprintf(&b, `      <h2 class="ac-section-title">%s</h2>`+"\n", html.EscapeString(grp.title))
			writeRows(&b, grp.fields, "      ")
			b.WriteString(`    </div>` + "\n")
		} else {
			writeRows(&b, grp.fields, "    ")
		}
	}

	b.WriteString(`  </form>` + "\n")
	b.WriteString(`</div>` + "\n")
	return b.String(), PresetCSS, FloatingLabelJS
}

type fieldGroup struct {
	key    string
	title  string
	fields []schema.FieldRecord
}

// groupFields splits the ordered field list into section groups, preserving
// field order. Sectionless fields form one group per page so rows never span
// pages.
func groupFields(s *schema.Schema) []fieldGroup {
	titles := make(map[string]string, len(s.Sections))
	for _, sec := range s.Sections {
		titles[sec.ID] = sec.Title
	}

	var groups []fieldGroup
	for _, f := range s.Fields {
		key := f.SectionID
		if key == "" {
			key = fmt.Sprintf("page:%d", f.PageNumber)
		}
		if len(groups) == 0 || groups[len(groups)-1].key != key {
			groups = append(groups, fieldGroup{key: key, title: titles[f.SectionID]})
		}
		groups[len(groups)-1].fields = append(groups[len(groups)-1].fields, f)
	}
	return groups
}

// writeRows emits the fields of one group, merging same-row neighbors into
// grid rows. Checkboxes use a looser tolerance than text fields since their
// labels sit beside the box rather than above it.
func writeRows(b *strings.Builder, fields []schema.FieldRecord, indent string) {
	i := 0
	for i < len(fields) {
		row := []schema.FieldRecord{fields[i]}
		tol := textRowTolerance
		if fields[i].InputType == schema.InputTypeCheckbox {
			tol = checkboxRowTolerance
		}
		j := i + 1
		for j < len(fields) && len(row) < maxRowColumns {
			next := fields[j]
			if next.PageNumber != fields[i].PageNumber {
				break
			}
			if sameKind(next.InputType, fields[i].InputType) &&
				abs(next.Y-fields[i].Y) <= tol {
				row = append(row, next)
				j++
				continue
			}
			break
		}

		switch {
		case len(row) == 1:
			writeField(b, row[0], indent)
		case row[0].InputType == schema.InputTypeCheckbox:
			fmt.Fprintf(b, "%s<div class=\"ac-checkbox-row ac-cols-%d\">\n", indent, len(row))
			for _, f := range row {
				writeField(b, f, indent+"  ")
			}
			fmt.Fprintf(b, "%s</div>\n", indent)
		default:
			fmt.Fprintf(b, "%s<div class=\"ac-field-row ac-cols-%d\">\n", indent, len(row))
			for _, f := range row {
				writeField(b, f, indent+"  ")
			}
			fmt.Fprintf(b, "%s</div>\n", indent)
		}
		i = j
	}
}

func sameKind(a, b string) bool {
	return (a == schema.InputTypeCheckbox) == (b == schema.InputTypeCheckbox)
}

func writeField(b *strings.Builder, f schema.FieldRecord, indent string) {
	id := html.EscapeString(f.ID)
	name := html.EscapeString(f.Name)
	label := html.EscapeString(f.Label)
	required := ""
	if f.Required {
		required = " required"
	}

	switch f.InputType {
	case schema.InputTypeCheckbox:
		fmt.Fprintf(b, "%s<label class=\"ac-check\" for=\"%s\">\n", indent, id)
		fmt.Fprintf(b, "%s  <input type=\"checkbox\" id=\"%s\" name=\"%s\"%s>\n", indent, id, name, required)
		fmt.Fprintf(b, "%s  <span>%s</span>\n", indent, label)
		fmt.Fprintf(b, "%s</label>\n", indent)
	case schema.InputTypeTextarea:
		fmt.Fprintf(b, "%s<div class=\"ac-form-group\">\n", indent)
		fmt.Fprintf(b, "%s  <textarea class=\"ac-textarea\" id=\"%s\" name=\"%s\"%s></textarea>\n", indent, id, name, required)
		fmt.Fprintf(b, "%s  <label for=\"%s\">%s</label>\n", indent, id, label)
		fmt.Fprintf(b, "%s</div>\n", indent)
	default:
		fmt.Fprintf(b, "%s<div class=\"ac-form-group\">\n", indent)
		fmt.Fprintf(b, "%s  <input type=\"text\" class=\"ac-input\" id=\"%s\" name=\"%s\"%s>\n", indent, id, name, required)
		fmt.Fprintf(b, "%s  <label for=\"%s\">%s</label>\n", indent, id, label)
		fmt.Fprintf(b, "%s</div>\n", indent)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// sortSections orders sections by (page, y) without mutating the input.
func sortSections(secs []schema.SectionRecord) []schema.SectionRecord {
	out := make([]schema.SectionRecord, len(secs))
	copy(out, secs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PageNumber != out[j].PageNumber {
			return out[i].PageNumber < out[j].PageNumber
		}
		return out[i].Y < out[j].Y
	})
	return out
}
