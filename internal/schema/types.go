// Package schema defines the canonical field schema produced by the form
// pipeline and the normalizer that builds it from document processor output.
package schema

// Input types for FieldRecord.
const (
	InputTypeText     = "text"
	InputTypeTextarea = "textarea"
	InputTypeCheckbox = "checkbox"
)

// Runtime modes for Schema.
const (
	RuntimeModeHTML  = "html"
	RuntimeModeDocAI = "docai"
)

// RowTolerance is the normalized-y delta within which two fields count as
// being on the same visual row.
const RowTolerance = 0.02

// Box is a normalized rectangle with coordinates in [0,1].
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FieldRecord is one canonical form field. Name is derived from Label via a
// deterministic snake_case transformation and disambiguated with a numeric
// suffix on collision; downstream printable templates and submission payload
// keys depend on its stability.
type FieldRecord struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Label      string  `json:"label"`
	InputType  string  `json:"inputType"`
	Required   bool    `json:"required"`
	Confidence float64 `json:"confidence,omitempty"`
	PageNumber int     `json:"page_number"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	LabelBox   *Box    `json:"label_box,omitempty"`
	FieldBox   *Box    `json:"field_box,omitempty"`
	SectionID  string  `json:"section_id,omitempty"`
}

// SectionRecord is a detected section header. A section owns the contiguous
// block of fields on the same page at or below its y, up to the next section
// on that page.
type SectionRecord struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	PageNumber int     `json:"page_number"`
	Y          float64 `json:"y"`
	Box        *Box    `json:"box,omitempty"`
}

// PageInfo records a source page's size when known.
type PageInfo struct {
	PageNumber int     `json:"page_number"`
	Width      float64 `json:"width,omitempty"`
	Height     float64 `json:"height,omitempty"`
}

// SourceInfo records which processors produced the schema.
type SourceInfo struct {
	LayoutProcessorID string `json:"layout_processor_id,omitempty"`
	FormProcessorID   string `json:"form_processor_id,omitempty"`
	Location          string `json:"location,omitempty"`
}

// Printable is a second HTML/CSS/JS bundle that renders a completed
// submission for print, using {{field_name}} placeholders.
type Printable struct {
	HTML string `json:"html"`
	CSS  string `json:"css"`
	JS   string `json:"js"`
}

// LabelMatch pairs an expected PDF label with its best match among the
// generated labels.
type LabelMatch struct {
	Expected  string  `json:"expected"`
	BestMatch string  `json:"best_match"`
	Score     float64 `json:"score"`
}

// ValidationReport compares labels present in generated HTML against text
// extracted from the PDF. It is advisory and never fails the pipeline.
type ValidationReport struct {
	PDFLabelCount int          `json:"pdf_label_count"`
	AILabelCount  int          `json:"ai_label_count"`
	Missing       []LabelMatch `json:"missing"`
	PossibleTypos []LabelMatch `json:"possible_typos"`
}

// Schema is the top-level artifact.
type Schema struct {
	TemplateID   string            `json:"template_id,omitempty"`
	RuntimeMode  string            `json:"runtime_mode"`
	Source       *SourceInfo       `json:"source,omitempty"`
	Instructions string            `json:"instructions,omitempty"`
	Sections     []SectionRecord   `json:"sections"`
	Fields       []FieldRecord     `json:"fields"`
	PageCount    int               `json:"page_count"`
	Pages        []PageInfo        `json:"pages,omitempty"`
	Printable    *Printable        `json:"printable,omitempty"`
	AIValidation *ValidationReport `json:"ai_validation,omitempty"`
	JSCode       string            `json:"js_code,omitempty"`
}
