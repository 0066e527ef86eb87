// Package raster renders PDF pages to image buffers and decides whether a
// rendered page is visually empty.
package raster

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultDPI is the rasterization resolution used when none is configured.
	DefaultDPI = 220

	rasterTimeout = 5 * time.Minute
)

// Source tags for PageImage.
const (
	SourceRaster = "raster"
	SourceUpload = "upload"
)

var log = logrus.WithField("component", "raster")

// PageImage is one rendered or uploaded page. Page numbers within one batch
// are dense from 1..N.
type PageImage struct {
	PageNumber int
	Data       []byte
	MIMEType   string // "image/jpeg" or "image/png"
	Source     string // "raster" or "upload"
}

// UnavailableError is returned when the environment lacks a PDF renderer.
// Callers that strictly require images must surface a remediation hint:
// install poppler-utils, or upload page screenshots instead.
type UnavailableError struct {
	Reason string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("PDF rasterization is unavailable: %s", e.Reason)
}

// Rasterizer renders PDF pages by shelling out to pdftoppm.
type Rasterizer struct {
	dpi int
}

// NewRasterizer creates a rasterizer for the given DPI. Non-positive DPI
// falls back to the default.
func NewRasterizer(dpi int) *Rasterizer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Rasterizer{dpi: dpi}
}

var pageSuffixRe = regexp.MustCompile(`-(\d+)\.jpg$`)

// Rasterize renders every page of the PDF to a JPEG buffer, in 1-based page
// order. It fails atomically: either every page is returned or none.
func (r *Rasterizer) Rasterize(ctx context.Context, pdfBytes []byte) ([]PageImage, error) {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return nil, &UnavailableError{Reason: "pdftoppm not found in PATH"}
	}

	tmpDir, err := os.MkdirTemp("", "formpipe_raster_*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(pdfPath, pdfBytes, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write temp PDF: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, rasterTimeout)
	defer cancel()

	start := time.Now()
	prefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, "pdftoppm", "-jpeg", "-r", strconv.Itoa(r.dpi), "-q", pdfPath, prefix)
	out, err := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("pdftoppm: %w", ctx.Err())
	}
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	matches, err := filepath.Glob(prefix + "-*.jpg")
	if err != nil || len(matches) == 0 {
		return nil, &UnavailableError{Reason: "pdftoppm produced no page images"}
	}

	// pdftoppm zero-pads the page suffix based on the total page count, so a
	// numeric sort on the extracted suffix keeps 1-based order regardless of
	// padding width.
	type pageFile struct {
		num  int
		path string
	}
	files := make([]pageFile, 0, len(matches))
	for _, m := range matches {
		sub := pageSuffixRe.FindStringSubmatch(m)
		if sub == nil {
			continue
		}
		n, convErr := strconv.Atoi(sub[1])
		if convErr != nil {
			continue
		}
		files = append(files, pageFile{num: n, path: m})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].num < files[j].num })

	images := make([]PageImage, 0, len(files))
	for i, f := range files {
		data, readErr := os.ReadFile(f.path)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read rendered page %d: %w", f.num, readErr)
		}
		images = append(images, PageImage{
			PageNumber: i + 1,
			Data:       data,
			MIMEType:   "image/jpeg",
			Source:     SourceRaster,
		})
	}
	if len(images) == 0 {
		return nil, &UnavailableError{Reason: "pdftoppm produced no readable page images"}
	}

	log.WithFields(logrus.Fields{
		"pages":    len(images),
		"dpi":      r.dpi,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Debug("rasterized PDF")

	return images, nil
}
