package docai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pageResult(text string, elements ...map[string]any) Result {
	page := map[string]any{}
	if len(elements) > 0 {
		lines := make([]any, 0, len(elements))
		for _, e := range elements {
			lines = append(lines, e)
		}
		page["lines"] = lines
	}
	return Result{
		"text":  text,
		"pages": []any{page},
	}
}

func lineWithAnchor(start, end any, camel bool) map[string]any {
	seg := map[string]any{}
	if camel {
		if start != nil {
			seg["startIndex"] = start
		}
		seg["endIndex"] = end
		return map[string]any{
			"layout": map[string]any{
				"textAnchor": map[string]any{"textSegments": []any{seg}},
			},
		}
	}
	if start != nil {
		seg["start_index"] = start
	}
	seg["end_index"] = end
	return map[string]any{
		"layout": map[string]any{
			"text_anchor": map[string]any{"text_segments": []any{seg}},
		},
	}
}

func TestMergeResults_ShiftsAnchors(t *testing.T) {
	// First page: "Name:\n" (6 chars). Second page anchors address its own
	// local text and must be shifted by 6.
	first := pageResult("Name:\n", lineWithAnchor(nil, "5", true))
	second := pageResult("Email:\n", lineWithAnchor(float64(0), float64(6), true))

	merged := MergeResults([]Result{first, second})

	assert.Equal(t, "Name:\nEmail:\n", Text(merged))

	pages := Pages(merged)
	require.Len(t, pages, 2)

	firstLine := GetSlice(pages[0], "lines")[0].(map[string]any)
	assert.Equal(t, "Name:", AnchorText(Text(merged), firstLine))

	secondLine := GetSlice(pages[1], "lines")[0].(map[string]any)
	assert.Equal(t, "Email:", AnchorText(Text(merged), secondLine))

	// Indices are written back as numeric strings.
	anchor := GetMap(GetMap(secondLine, "layout"), "textAnchor")
	seg := GetSlice(anchor, "textSegments")[0].(map[string]any)
	assert.Equal(t, "6", seg["startIndex"])
	assert.Equal(t, "12", seg["endIndex"])
}

func TestMergeResults_SnakeCaseAnchors(t *testing.T) {
	first := pageResult("First page text. ")
	second := pageResult("Phone:", lineWithAnchor("0", "6", false))

	merged := MergeResults([]Result{first, second})

	pages := Pages(merged)
	require.Len(t, pages, 2)

	line := GetSlice(pages[1], "lines")[0].(map[string]any)
	assert.Equal(t, "Phone:", AnchorText(Text(merged), line))

	// Snake-case segments keep their key style.
	anchor := GetMap(GetMap(line, "layout"), "text_anchor")
	seg := GetSlice(anchor, "text_segments")[0].(map[string]any)
	assert.Equal(t, "17", seg["start_index"])
	assert.Equal(t, "23", seg["end_index"])
}

func TestMergeResults_RenumbersPages(t *testing.T) {
	merged := MergeResults([]Result{
		pageResult("a"),
		pageResult("b"),
		pageResult("c"),
	})

	pages := Pages(merged)
	require.Len(t, pages, 3)
	for i, p := range pages {
		num, ok := GetFloat(p, "pageNumber", "page_number")
		require.True(t, ok)
		assert.Equal(t, float64(i+1), num)
	}
}

func TestMergeResults_DoesNotMutateInputs(t *testing.T) {
	second := pageResult("Phone:", lineWithAnchor(float64(0), float64(6), true))

	MergeResults([]Result{pageResult("0123456789"), second})

	line := GetSlice(Pages(second)[0], "lines")[0].(map[string]any)
	anchor := GetMap(GetMap(line, "layout"), "textAnchor")
	seg := GetSlice(anchor, "textSegments")[0].(map[string]any)
	assert.Equal(t, float64(6), seg["endIndex"])
}

func TestMergeResults_AnchorBoundsHold(t *testing.T) {
	results := []Result{
		pageResult("Name:", lineWithAnchor(nil, "5", true)),
		pageResult("DOB:", lineWithAnchor(float64(0), float64(4), false)),
		pageResult("Sig:", lineWithAnchor("0", "4", true)),
	}

	merged := MergeResults(results)
	text := Text(merged)

	want := []string{"Name:", "DOB:", "Sig:"}
	for i, p := range Pages(merged) {
		line := GetSlice(p, "lines")[0].(map[string]any)
		assert.Equal(t, want[i], AnchorText(text, line), "page %d", i+1)
	}
}

func TestAnchorText_OutOfRangeSegmentIgnored(t *testing.T) {
	element := lineWithAnchor(float64(2), float64(99), true)
	assert.Equal(t, "", AnchorText("short", element))
}

func TestBoundingBox(t *testing.T) {
	element := map[string]any{
		"layout": map[string]any{
			"boundingPoly": map[string]any{
				"normalizedVertices": []any{
					map[string]any{"x": 0.1, "y": 0.2},
					map[string]any{"x": 0.4, "y": 0.2},
					map[string]any{"x": 0.4, "y": 0.25},
					map[string]any{"x": 0.1, "y": 0.25},
				},
			},
		},
	}

	minX, minY, maxX, maxY, ok := BoundingBox(element)
	require.True(t, ok)
	assert.InDelta(t, 0.1, minX, 1e-9)
	assert.InDelta(t, 0.2, minY, 1e-9)
	assert.InDelta(t, 0.4, maxX, 1e-9)
	assert.InDelta(t, 0.25, maxY, 1e-9)
}

func TestBoundingBox_MissingGeometry(t *testing.T) {
	_, _, _, _, ok := BoundingBox(map[string]any{"layout": map[string]any{}})
	assert.False(t, ok)
}
