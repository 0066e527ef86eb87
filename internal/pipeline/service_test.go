package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorforms/formpipe/internal/config"
	"github.com/anchorforms/formpipe/internal/docai"
	"github.com/anchorforms/formpipe/internal/gateway"
	"github.com/anchorforms/formpipe/internal/pdfinfo"
	"github.com/anchorforms/formpipe/internal/raster"
	"github.com/anchorforms/formpipe/internal/render"
	"github.com/anchorforms/formpipe/internal/schema"
)

type fakeGateway struct {
	calls []gateway.GenerateInput
	text  string
	err   error
}

func (f *fakeGateway) Generate(_ context.Context, in gateway.GenerateInput) (*gateway.GenerateOutput, error) {
	f.calls = append(f.calls, in)
	if f.err != nil {
		return nil, f.err
	}
	return &gateway.GenerateOutput{Text: f.text, ModelUsed: "fake-model"}, nil
}

type fakeDoc struct {
	calls   []docai.ProcessRequest
	results []docai.Result
	err     error
}

func (f *fakeDoc) Process(_ context.Context, req docai.ProcessRequest) (docai.Result, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	r := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return r, nil
}

type fakeRaster struct {
	calls  int
	images []raster.PageImage
	err    error
}

func (f *fakeRaster) Rasterize(_ context.Context, _ []byte) ([]raster.PageImage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.images, nil
}

func testService(gw *fakeGateway, doc *fakeDoc, ras *fakeRaster) *Service {
	cfg := config.DefaultConfig()
	cfg.Model = "custom-text-model"
	cfg.VisionModel = "custom-vision-model"
	cfg.ProjectID = "proj"
	cfg.LayoutProcessorID = "layout-1"
	cfg.FormProcessorID = "form-1"
	return &Service{cfg: cfg, gw: gw, doc: doc, ras: ras}
}

func pdfWithPages(n int) []byte {
	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	b.WriteString("/Type /Pages\n")
	for i := 0; i < n; i++ {
		b.WriteString("/Type /Page\n")
	}
	return []byte(b.String())
}

// contentImage is large enough and noisy enough to pass the blank detector.
func contentImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 512, 512))
	seed := uint32(2463534242)
	for i := range img.Pix {
		seed ^= seed << 13
		seed ^= seed >> 17
		seed ^= seed << 5
		img.Pix[i] = uint8(seed)
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	data := buf.Bytes()
	require.False(t, raster.LooksBlank(data))
	return data
}

func modelJSON(t *testing.T, fields map[string]string) string {
	t.Helper()
	obj := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		obj[k] = base64.StdEncoding.EncodeToString([]byte(v))
	}
	obj["explanation"] = "done"
	raw, err := json.Marshal(obj)
	require.NoError(t, err)
	return string(raw)
}

func TestConvertPDFToForm(t *testing.T) {
	gw := &fakeGateway{text: modelJSON(t, map[string]string{
		"html_b64": `<form data-anchor-form="true"><input name="a"></form>`,
		"css_b64":  ".a{}",
		"js_b64":   "console.log(1)",
	})}
	svc := testService(gw, &fakeDoc{}, &fakeRaster{})

	art, err := svc.ConvertPDFToForm(context.Background(), Request{
		PDF:        pdfWithPages(2),
		FileName:   "intake.pdf",
		TemplateID: "tpl-1",
	})
	require.NoError(t, err)

	assert.Contains(t, art.ReactCode, "data-anchor-form")
	assert.Equal(t, ".a{}", art.CSSCode)
	assert.Equal(t, "done", art.Explanation)
	require.NotNil(t, art.Schema)
	assert.Equal(t, schema.RuntimeModeHTML, art.Schema.RuntimeMode)
	assert.Equal(t, "console.log(1)", art.Schema.JSCode)
	assert.Equal(t, "tpl-1", art.Schema.TemplateID)
	assert.Equal(t, 2, art.Schema.PageCount)

	require.Len(t, gw.calls, 1)
	assert.Equal(t, "custom-text-model", gw.calls[0].Candidates[0])
	assert.Contains(t, gw.calls[0].Candidates, "gemini-3-flash")
	assert.Contains(t, gw.calls[0].Candidates, "gemini-1.5-flash-001")
}

func TestConvertPDFToFormPageGuard(t *testing.T) {
	gw := &fakeGateway{}
	svc := testService(gw, &fakeDoc{}, &fakeRaster{})

	_, err := svc.ConvertPDFToForm(context.Background(), Request{PDF: pdfWithPages(30)})

	var exceeded *pdfinfo.PageCountExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, 30, exceeded.Estimated)
	assert.Empty(t, gw.calls, "no model call after the guard trips")
}

func TestConvertPDFToFormUnknownPageCountPasses(t *testing.T) {
	gw := &fakeGateway{text: modelJSON(t, map[string]string{"html_b64": "<form></form>"})}
	svc := testService(gw, &fakeDoc{}, &fakeRaster{})

	// No page objects at all: the estimate is unknown and the guard passes.
	_, err := svc.ConvertPDFToForm(context.Background(), Request{PDF: []byte("%PDF-1.4\n")})

	require.NoError(t, err)
	assert.Len(t, gw.calls, 1)
}

func TestConvertPDFToFormTimeout(t *testing.T) {
	gw := &fakeGateway{err: fmt.Errorf("calling model: %w", context.DeadlineExceeded)}
	svc := testService(gw, &fakeDoc{}, &fakeRaster{})

	_, err := svc.ConvertPDFToForm(context.Background(), Request{PDF: pdfWithPages(1)})

	var timeout *UpstreamTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Len(t, gw.calls, 1, "timeouts are not retried")
}

func TestConvertPDFWithDocAI(t *testing.T) {
	layout := docai.Result{
		"text": "PATIENT INFORMATION\nFirst Name:\n",
		"pages": []any{map[string]any{
			"pageNumber": float64(1),
			"paragraphs": []any{
				map[string]any{"layout": map[string]any{
					"textAnchor": map[string]any{"textSegments": []any{
						map[string]any{"startIndex": "0", "endIndex": "19"},
					}},
					"boundingPoly": map[string]any{"normalizedVertices": []any{
						map[string]any{"x": 0.1, "y": 0.05},
						map[string]any{"x": 0.9, "y": 0.07},
					}},
				}},
			},
			"lines": []any{
				map[string]any{"layout": map[string]any{
					"textAnchor": map[string]any{"textSegments": []any{
						map[string]any{"startIndex": "20", "endIndex": "31"},
					}},
					"boundingPoly": map[string]any{"normalizedVertices": []any{
						map[string]any{"x": 0.1, "y": 0.2},
						map[string]any{"x": 0.4, "y": 0.22},
					}},
				}},
			},
		}},
	}
	formPage := docai.Result{"text": "", "pages": []any{map[string]any{"pageNumber": float64(1)}}}

	doc := &fakeDoc{results: []docai.Result{layout, formPage, formPage}}
	ras := &fakeRaster{images: []raster.PageImage{
		{PageNumber: 1, Data: []byte("img1"), MIMEType: "image/jpeg", Source: raster.SourceRaster},
		{PageNumber: 2, Data: []byte("img2"), MIMEType: "image/jpeg", Source: raster.SourceRaster},
	}}
	svc := testService(&fakeGateway{}, doc, ras)

	art, err := svc.ConvertPDFWithDocAI(context.Background(), Request{
		PDF:      pdfWithPages(2),
		FileName: "patient_intake.pdf",
	})
	require.NoError(t, err)

	require.Len(t, doc.calls, 3, "one layout pass plus one form pass per page")
	assert.Equal(t, "layout-1", doc.calls[0].ProcessorID)
	assert.Equal(t, "application/pdf", doc.calls[0].MIMEType)
	assert.Equal(t, "form-1", doc.calls[1].ProcessorID)
	assert.Equal(t, "image/jpeg", doc.calls[1].MIMEType)

	require.NotNil(t, art.Schema)
	assert.Equal(t, schema.RuntimeModeDocAI, art.Schema.RuntimeMode)
	assert.Contains(t, art.ReactCode, `data-anchor-form="true"`)
	assert.Contains(t, art.ReactCode, "First Name")
	assert.Equal(t, render.PresetCSS, art.CSSCode)
	require.NotNil(t, art.Schema.Printable)
	assert.Contains(t, art.Schema.Printable.HTML, "{{first_name}}")
	assert.Contains(t, art.ReactCode, "patient intake")
}

func TestConvertPDFWithVisionUploadsPreferred(t *testing.T) {
	img := contentImage(t)
	gw := &fakeGateway{text: modelJSON(t, map[string]string{
		"html_b64":       `<form><label for="a">Name</label></form>`,
		"css_b64":        ".extra{}",
		"print_html_b64": "<div>{{name}}</div>",
	})}
	ras := &fakeRaster{err: errors.New("must not be called")}
	svc := testService(gw, &fakeDoc{}, ras)

	art, err := svc.ConvertPDFWithVision(context.Background(), Request{
		PDF: pdfWithPages(1),
		Uploads: []raster.PageImage{
			{PageNumber: 1, Data: img, MIMEType: "image/jpeg", Source: raster.SourceUpload},
		},
	})
	require.NoError(t, err)

	assert.Zero(t, ras.calls, "uploads bypass rasterization")
	require.Len(t, gw.calls, 1)
	assert.Equal(t, "custom-vision-model", gw.calls[0].Candidates[0])
	assert.Contains(t, gw.calls[0].Candidates, "gemini-3-pro")

	// Preset stylesheet is prepended to the model's CSS.
	assert.True(t, strings.HasPrefix(art.CSSCode, render.PresetCSS))
	assert.Contains(t, art.CSSCode, ".extra{}")
	require.NotNil(t, art.Schema.Printable)
	assert.Equal(t, "<div>{{name}}</div>", art.Schema.Printable.HTML)
	assert.Equal(t, render.FloatingLabelJS, art.Schema.JSCode)
}

func TestConvertPDFWithVisionBlankPagesDropped(t *testing.T) {
	img := contentImage(t)
	gw := &fakeGateway{text: modelJSON(t, map[string]string{"html_b64": "<form></form>"})}
	ras := &fakeRaster{images: []raster.PageImage{
		{PageNumber: 1, Data: []byte("tiny"), MIMEType: "image/jpeg", Source: raster.SourceRaster},
		{PageNumber: 2, Data: img, MIMEType: "image/jpeg", Source: raster.SourceRaster},
	}}
	svc := testService(gw, &fakeDoc{}, ras)

	_, err := svc.ConvertPDFWithVision(context.Background(), Request{PDF: pdfWithPages(2)})
	require.NoError(t, err)

	require.Len(t, gw.calls, 1)
	prompt := promptText(t, gw.calls[0].Request)
	assert.Contains(t, prompt, "Pages 1")
	assert.Equal(t, 2, countInlineParts(t, gw.calls[0].Request), "PDF plus one usable image")
}

func TestConvertPDFWithVisionAllBlank(t *testing.T) {
	gw := &fakeGateway{}
	ras := &fakeRaster{images: []raster.PageImage{
		{PageNumber: 1, Data: []byte("tiny"), MIMEType: "image/jpeg", Source: raster.SourceRaster},
	}}
	svc := testService(gw, &fakeDoc{}, ras)

	_, err := svc.ConvertPDFWithVision(context.Background(), Request{PDF: pdfWithPages(1)})

	var noImages *NoUsableImagesError
	require.ErrorAs(t, err, &noImages)
	assert.Empty(t, gw.calls)
}

func TestConvertPDFWithVisionRasterUnavailable(t *testing.T) {
	gw := &fakeGateway{}
	ras := &fakeRaster{err: &raster.UnavailableError{Reason: "pdftoppm not found"}}
	svc := testService(gw, &fakeDoc{}, ras)

	_, err := svc.ConvertPDFWithVision(context.Background(), Request{PDF: pdfWithPages(1)})

	var noImages *NoUsableImagesError
	require.ErrorAs(t, err, &noImages)
	assert.Contains(t, err.Error(), "upload page screenshots")
	assert.Empty(t, gw.calls)
}

func TestConvertPDFWithVisionPageGuard(t *testing.T) {
	gw := &fakeGateway{}
	ras := &fakeRaster{}
	svc := testService(gw, &fakeDoc{}, ras)

	_, err := svc.ConvertPDFWithVision(context.Background(), Request{PDF: pdfWithPages(12)})

	var exceeded *pdfinfo.PageCountExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Zero(t, ras.calls)
	assert.Empty(t, gw.calls)
}

func TestConvertDispatch(t *testing.T) {
	gw := &fakeGateway{text: modelJSON(t, map[string]string{"html_b64": "<form></form>"})}
	svc := testService(gw, &fakeDoc{}, &fakeRaster{})

	art, err := svc.Convert(context.Background(), config.StrategyAI, Request{PDF: pdfWithPages(1)})

	require.NoError(t, err)
	assert.Equal(t, schema.RuntimeModeHTML, art.Schema.RuntimeMode)
}

func TestTitleFor(t *testing.T) {
	tests := []struct {
		fileName string
		want     string
	}{
		{fileName: "patient_intake.pdf", want: "patient intake"},
		{fileName: "/tmp/up/new-client.pdf", want: "new client"},
		{fileName: "", want: "Form"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, titleFor(Request{FileName: tt.fileName}))
	}
}

func promptText(t *testing.T, req map[string]any) string {
	t.Helper()
	parts := requestParts(t, req)
	text, _ := parts[0].(map[string]any)["text"].(string)
	require.NotEmpty(t, text)
	return text
}

func countInlineParts(t *testing.T, req map[string]any) int {
	t.Helper()
	n := 0
	for _, p := range requestParts(t, req) {
		if _, ok := p.(map[string]any)["inlineData"]; ok {
			n++
		}
	}
	return n
}

func requestParts(t *testing.T, req map[string]any) []any {
	t.Helper()
	contents, ok := req["contents"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, contents)
	parts, ok := contents[0].(map[string]any)["parts"].([]any)
	require.True(t, ok)
	return parts
}
