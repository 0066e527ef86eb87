package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/anchorforms/formpipe/internal/schema"
)

// Printable builds the read-only template that renders a completed submission
// for print. Field values are left as {{field_name}} placeholders to be
// substituted at print time; checkbox placeholders substitute a mark or blank.
func Printable(s *schema.Schema, title string) *schema.Printable {
	var b strings.Builder
	b.WriteString(`<div class="ac-print-container">` + "\n")
	if title != "" {
		fmt.Fprintf(&b, `  <h1 class="ac-print-title">%s</h1>`+"\n", html.EscapeString(title))
	}

	bySection := make(map[string][]schema.FieldRecord)
	for _, f := range s.Fields {
		bySection[f.SectionID] = append(bySection[f.SectionID], f)
	}

	writeGroup := func(fields []schema.FieldRecord, indent string) {
		for _, f := range fields {
			label := html.EscapeString(f.Label)
			if f.InputType == schema.InputTypeCheckbox {
				fmt.Fprintf(&b, "%s<div class=\"ac-print-field\">[{{%s}}] <span class=\"ac-print-label\">%s</span></div>\n",
					indent, f.Name, label)
				continue
			}
			fmt.Fprintf(&b, "%s<div class=\"ac-print-field\"><span class=\"ac-print-label\">%s:</span> <span class=\"ac-print-value\">{{%s}}</span></div>\n",
				indent, label, f.Name)
		}
	}

	if loose := bySection[""]; len(loose) > 0 {
		writeGroup(loose, "  ")
	}
	for _, sec := range sortSections(s.Sections) {
		fields := bySection[sec.ID]
		if len(fields) == 0 {
			continue
		}
		b.WriteString(`  <div class="ac-print-section">` + "\n")
		fmt.Fprintf(&b, `    <h2 class="ac-print-section-title">%s</h2>`+"\n", html.EscapeString(sec.Title))
		writeGroup(fields, "    ")
		b.WriteString(`  </div>` + "\n")
	}

	b.WriteString(`</div>` + "\n")
	return &schema.Printable{HTML: b.String(), CSS: PrintCSS, JS: ""}
}
