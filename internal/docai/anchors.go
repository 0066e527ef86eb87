package docai

import (
	"encoding/json"
	"strconv"
)

// The processor returns opaque JSON whose keys appear in either camelCase or
// snake_case depending on the transport that produced them. Every accessor
// in this package tolerates both.

// Key returns the first of the named keys present in m.
func Key(m map[string]any, names ...string) (any, bool) {
	for _, n := range names {
		if v, ok := m[n]; ok {
			return v, true
		}
	}
	return nil, false
}

// GetMap returns the first named key as a map, or nil.
func GetMap(m map[string]any, names ...string) map[string]any {
	v, ok := Key(m, names...)
	if !ok {
		return nil
	}
	mm, _ := v.(map[string]any)
	return mm
}

// GetSlice returns the first named key as a slice, or nil.
func GetSlice(m map[string]any, names ...string) []any {
	v, ok := Key(m, names...)
	if !ok {
		return nil
	}
	s, _ := v.([]any)
	return s
}

// GetString returns the first named key as a string, or "".
func GetString(m map[string]any, names ...string) string {
	v, ok := Key(m, names...)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// GetFloat returns the first named key as a float64. Numeric values arrive
// as float64, json.Number, or the upstream convention of numeric strings.
func GetFloat(m map[string]any, names ...string) (float64, bool) {
	v, ok := Key(m, names...)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Text returns the processor result's full document text.
func Text(r Result) string {
	return GetString(r, "text")
}

// Pages returns the processor result's page list.
func Pages(r Result) []map[string]any {
	raw := GetSlice(r, "pages")
	pages := make([]map[string]any, 0, len(raw))
	for _, p := range raw {
		if pm, ok := p.(map[string]any); ok {
			pages = append(pages, pm)
		}
	}
	return pages
}

// Entities returns the processor result's entity list, if any.
func Entities(r Result) []map[string]any {
	raw := GetSlice(r, "entities")
	entities := make([]map[string]any, 0, len(raw))
	for _, e := range raw {
		if em, ok := e.(map[string]any); ok {
			entities = append(entities, em)
		}
	}
	return entities
}

// anchorOf digs the text anchor out of an element. Elements carry either the
// anchor directly or nested under a layout.
func anchorOf(element map[string]any) map[string]any {
	if element == nil {
		return nil
	}
	if a := GetMap(element, "textAnchor", "text_anchor"); a != nil {
		return a
	}
	if layout := GetMap(element, "layout"); layout != nil {
		return GetMap(layout, "textAnchor", "text_anchor")
	}
	return nil
}

// AnchorText resolves an element's text anchor against the full document
// text. Segments with out-of-range indices contribute nothing.
func AnchorText(fullText string, element map[string]any) string {
	anchor := anchorOf(element)
	if anchor == nil {
		return ""
	}

	var out []byte
	for _, raw := range GetSlice(anchor, "textSegments", "text_segments") {
		seg, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		start, end := segmentIndices(seg)
		if start < 0 || end > len(fullText) || start > end {
			continue
		}
		out = append(out, fullText[start:end]...)
	}
	return string(out)
}

// segmentIndices reads a segment's [start, end) offsets. A missing start is
// zero; the upstream omits zero-valued fields.
func segmentIndices(seg map[string]any) (int, int) {
	start := 0
	if f, ok := GetFloat(seg, "startIndex", "start_index"); ok {
		start = int(f)
	}
	end := 0
	if f, ok := GetFloat(seg, "endIndex", "end_index"); ok {
		end = int(f)
	}
	return start, end
}

// BoundingBox returns an element's normalized bounding vertices as a flat
// {minX, minY, maxX, maxY} rectangle in [0,1] coordinates, or ok=false when
// the element carries no usable geometry.
func BoundingBox(element map[string]any) (minX, minY, maxX, maxY float64, ok bool) {
	poly := GetMap(element, "boundingPoly", "bounding_poly")
	if poly == nil {
		if layout := GetMap(element, "layout"); layout != nil {
			poly = GetMap(layout, "boundingPoly", "bounding_poly")
		}
	}
	if poly == nil {
		return 0, 0, 0, 0, false
	}

	vertices := GetSlice(poly, "normalizedVertices", "normalized_vertices")
	if len(vertices) == 0 {
		return 0, 0, 0, 0, false
	}

	first := true
	for _, raw := range vertices {
		vm, okV := raw.(map[string]any)
		if !okV {
			continue
		}
		x, _ := GetFloat(vm, "x")
		y, _ := GetFloat(vm, "y")
		if first {
			minX, maxX, minY, maxY = x, x, y, y
			first = false
			continue
		}
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}
	return minX, minY, maxX, maxY, !first
}
