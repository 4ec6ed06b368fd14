// Purpose: Owns screenshot.go, full-page screenshot capture (spec §4.2
// "Screenshots"). Viewport screenshots are a single host call; full-page
// screenshots walk the document in viewport-height steps and stitch.
package pagebridge

import (
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"

	"bytes"
)

// Screenshot captures tabID per params.
func Screenshot(ctx context.Context, host BrowserHost, tabID int, fullPage bool) (string, error) {
	if !fullPage {
		return host.CaptureViewport(ctx, tabID)
	}
	return fullPageScreenshot(ctx, host, tabID)
}

// fullPageScreenshot implements spec §4.2's five-step full-page capture:
// record scroll offset, walk in viewport-height steps capturing slices,
// stitch accounting for device pixel ratio, restore scroll, return one PNG.
func fullPageScreenshot(ctx context.Context, host BrowserHost, tabID int) (string, error) {
	_, originY, err := host.ScrollTo(ctx, tabID, 0, 0)
	if err != nil {
		return "", err
	}
	defer host.ScrollTo(ctx, tabID, 0, originY)

	docWidth, docHeight, dpr, err := host.DocumentSize(ctx, tabID)
	if err != nil {
		return "", err
	}
	if dpr <= 0 {
		dpr = 1
	}

	// BrowserHost exposes no viewport size, so the step is taken from the
	// first slice's pixel height divided by the device pixel ratio.
	var viewportHeight float64

	var slices [][]byte
	var sliceHeights []float64
	for y := 0.0; y < docHeight; y += viewportHeight {
		if _, _, err := host.ScrollTo(ctx, tabID, 0, y); err != nil {
			return "", err
		}
		b64, err := host.CaptureViewport(ctx, tabID)
		if err != nil {
			return "", err
		}
		raw, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return "", err
		}
		if viewportHeight == 0 {
			cfg, err := png.DecodeConfig(bytes.NewReader(raw))
			if err != nil {
				return "", err
			}
			viewportHeight = float64(cfg.Height) / dpr
			if viewportHeight <= 0 {
				viewportHeight = docHeight
			}
		}
		slices = append(slices, raw)
		h := viewportHeight
		if y+h > docHeight {
			h = docHeight - y
		}
		sliceHeights = append(sliceHeights, h)
	}

	return stitch(slices, sliceHeights, docWidth, docHeight, dpr)
}

// stitch decodes each viewport slice PNG and draws it into a single canvas
// sized to the full document, accounting for device pixel ratio, returning
// the result re-encoded as base64 PNG.
func stitch(slices [][]byte, sliceHeights []float64, docWidth, docHeight, dpr float64) (string, error) {
	canvasW := int(docWidth * dpr)
	canvasH := int(docHeight * dpr)
	if canvasW <= 0 || canvasH <= 0 {
		canvasW, canvasH = 1, 1
	}
	canvas := image.NewRGBA(image.Rect(0, 0, canvasW, canvasH))

	offsetY := 0
	for i, raw := range slices {
		img, err := png.Decode(bytes.NewReader(raw))
		if err != nil {
			return "", err
		}
		bounds := img.Bounds()
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			destY := offsetY + (y - bounds.Min.Y)
			if destY >= canvasH {
				break
			}
			for x := bounds.Min.X; x < bounds.Max.X && x < canvasW; x++ {
				canvas.Set(x, destY, img.At(x, y))
			}
		}
		offsetY += int(sliceHeights[i] * dpr)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// blankPNG is used by tests needing a minimal valid PNG slice.
func blankPNG(w, h int, c color.Color) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
