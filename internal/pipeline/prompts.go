package pipeline

import (
	"fmt"
	"strings"
)

const jsonOutputContract = `Respond with a single JSON object and nothing else: no prose, no markdown
fences. Base64-encode every code payload so that newlines and quotes inside
the code cannot break the JSON.`

const preserveEverything = `Reproduce the document faithfully. Keep every field, every checkbox option,
every section heading and every piece of instructional text. Do not invent
fields that are not in the document and do not drop fields that are.`

// aiPrompt is the instruction block for the PDF-only conversion. The model
// receives the PDF itself as an inline part.
func aiPrompt(instructions string) string {
	var b strings.Builder
	b.WriteString(`You convert a fillable or printed PDF form into a working HTML form.

`)
	b.WriteString(preserveEverything)
	b.WriteString(`

Return this JSON object:
{
  "html_b64": "<base64 of the complete form HTML>",
  "css_b64": "<base64 of the stylesheet>",
  "js_b64": "<base64 of any JavaScript the form needs, or empty>",
  "explanation": "<one short paragraph on notable decisions>"
}

`)
	b.WriteString(jsonOutputContract)
	appendInstructions(&b, instructions)
	return b.String()
}

// visionPrompt is the instruction block for the vision conversion. The model
// receives the PDF plus rendered page images and must emit both an
// interactive form and a printable template.
func visionPrompt(instructions string, omitted []int) string {
	var b strings.Builder
	b.WriteString(`You convert a scanned or rendered PDF form into a working HTML form. Page
images are attached in order; use them as the source of truth for layout and
use the PDF for text you cannot read from the images.

`)
	b.WriteString(preserveEverything)
	b.WriteString(`

Build the interactive form from this fixed class vocabulary only:
  ac-form-container  outer wrapper (add data-anchor-form="true")
  ac-form-title      form heading
  ac-section         section wrapper with ac-section-title heading
  ac-form-group      one text field: input/textarea followed by its label
  ac-input           text input
  ac-textarea        multi-line input
  ac-check           checkbox with its label
  ac-field-row       inputs that share a visual row, with ac-cols-2..4
  ac-checkbox-row    checkboxes that share a visual row, with ac-cols-2..4
A base stylesheet for these classes is prepended to your CSS; your CSS should
only add what the base sheet does not cover.

Also build a printable template that renders a completed submission: the same
content as static text with {{field_name}} placeholders where values go.

Return this JSON object:
{
  "html_b64": "<base64 of the interactive form HTML>",
  "css_b64": "<base64 of additional CSS>",
  "js_b64": "<base64 of form JavaScript, or empty>",
  "print_html_b64": "<base64 of the printable template HTML>",
  "print_css_b64": "<base64 of the printable stylesheet>",
  "print_js_b64": "<base64 of printable JavaScript, or empty>",
  "schema": {"fields": [{"name": "...", "label": "...", "inputType": "text|textarea|checkbox", "page_number": 1}]},
  "explanation": "<one short paragraph on notable decisions>"
}

`)
	b.WriteString(jsonOutputContract)
	if len(omitted) > 0 {
		nums := make([]string, len(omitted))
		for i, p := range omitted {
			nums[i] = fmt.Sprintf("%d", p)
		}
		fmt.Fprintf(&b, "\n\nPages %s rendered blank and their images were omitted; rely on the PDF for their content.",
			strings.Join(nums, ", "))
	}
	appendInstructions(&b, instructions)
	return b.String()
}

func appendInstructions(b *strings.Builder, instructions string) {
	if strings.TrimSpace(instructions) == "" {
		return
	}
	b.WriteString("\n\nAdditional instructions from the requester:\n")
	b.WriteString(strings.TrimSpace(instructions))
}
