package docai

import "strconv"

// MergeResults combines per-page processor results into a single document.
// The merged text is the concatenation of each input's text in order, and
// every text-anchor index inside the merged pages and entities is shifted by
// the cumulative offset at that input's insertion point. Inputs are not
// modified.
func MergeResults(results []Result) Result {
	var mergedText string
	var mergedPages []any
	var mergedEntities []any

	for _, r := range results {
		if r == nil {
			continue
		}
		offset := len(mergedText)
		mergedText += Text(r)

		for _, p := range GetSlice(r, "pages") {
			page := deepCopy(p)
			shiftAnchors(page, offset)
			if pm, ok := page.(map[string]any); ok {
				pm["pageNumber"] = len(mergedPages) + 1
			}
			mergedPages = append(mergedPages, page)
		}

		for _, e := range GetSlice(r, "entities") {
			entity := deepCopy(e)
			shiftAnchors(entity, offset)
			mergedEntities = append(mergedEntities, entity)
		}
	}

	merged := Result{
		"text":  mergedText,
		"pages": mergedPages,
	}
	if len(mergedEntities) > 0 {
		merged["entities"] = mergedEntities
	}
	return merged
}

// shiftAnchors walks a decoded JSON tree and adds offset to every text
// segment's start and end index, preserving the key style each segment
// arrived with. Indices are written back as numeric strings, the upstream
// convention.
func shiftAnchors(v any, offset int) {
	switch node := v.(type) {
	case map[string]any:
		for _, key := range []string{"textAnchor", "text_anchor"} {
			if anchor, ok := node[key].(map[string]any); ok {
				shiftSegments(anchor, offset)
			}
		}
		for _, child := range node {
			shiftAnchors(child, offset)
		}
	case []any:
		for _, child := range node {
			shiftAnchors(child, offset)
		}
	}
}

func shiftSegments(anchor map[string]any, offset int) {
	for _, key := range []string{"textSegments", "text_segments"} {
		segments, ok := anchor[key].([]any)
		if !ok {
			continue
		}
		for _, raw := range segments {
			seg, okSeg := raw.(map[string]any)
			if !okSeg {
				continue
			}
			start, end := segmentIndices(seg)
			writeIndex(seg, start+offset, "startIndex", "start_index")
			writeIndex(seg, end+offset, "endIndex", "end_index")
		}
	}
}

// writeIndex stores the shifted value under whichever of the keys the
// segment already uses, defaulting to the camelCase form.
func writeIndex(seg map[string]any, value int, camel, snake string) {
	key := camel
	if _, ok := seg[snake]; ok {
		key = snake
	}
	seg[key] = strconv.Itoa(value)
}

func deepCopy(v any) any {
	switch node := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, child := range node {
			out[k] = deepCopy(child)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, child := range node {
			out[i] = deepCopy(child)
		}
		return out
	default:
		return v
	}
}
