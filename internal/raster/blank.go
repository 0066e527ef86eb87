package raster

import (
	"bytes"
	"image"

	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
)

const (
	// Byte-size floors below which a rendered page cannot plausibly hold
	// content at our DPI.
	tinyImageBytes  = 2 * 1024
	smallImageBytes = 25 * 1024

	sampleCanvasMax = 200
	sampleGrid      = 20

	// 8-bit channel threshold above which a sample counts as near-white.
	whiteThreshold = 245

	// Fraction of near-white samples above which the page is blank.
	blankRatio = 0.985
)

// LooksBlank reports whether an image buffer is visually empty. Two stages:
// a byte-size floor, then decoding and sampling a coarse grid on a downscaled
// canvas. Decoding failures return false so a potentially useful image is
// never discarded on error.
func LooksBlank(imageBytes []byte) bool {
	if len(imageBytes) < tinyImageBytes {
		return true
	}
	if len(imageBytes) < smallImageBytes {
		return true
	}

	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return false
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return false
	}

	// Downscale into at most 200x200 so sampling cost is independent of the
	// render DPI.
	w, h := bounds.Dx(), bounds.Dy()
	if w > sampleCanvasMax {
		w = sampleCanvasMax
	}
	if h > sampleCanvasMax {
		h = sampleCanvasMax
	}
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(canvas, canvas.Bounds(), img, bounds, xdraw.Src, nil)

	total := 0
	nearWhite := 0
	for gy := 0; gy < sampleGrid; gy++ {
		for gx := 0; gx < sampleGrid; gx++ {
			x := gx * w / sampleGrid
			y := gy * h / sampleGrid
			r, g, b, _ := canvas.At(x, y).RGBA()
			total++
			if r>>8 > whiteThreshold && g>>8 > whiteThreshold && b>>8 > whiteThreshold {
				nearWhite++
			}
		}
	}
	if total == 0 {
		return false
	}

	return float64(nearWhite)/float64(total) > blankRatio
}
