package pagebridge

import (
	"context"
	"encoding/base64"
	"image/color"
	"image/png"
	"testing"

	"bytes"
)

type fakeScreenshotHost struct {
	BrowserHost
	scrollY   float64
	width     float64
	height    float64
	dpr       float64
	viewportH float64
}

func (h *fakeScreenshotHost) ScrollTo(ctx context.Context, tabID int, x, y float64) (float64, float64, error) {
	prev := h.scrollY
	h.scrollY = y
	return x, prev, nil
}

func (h *fakeScreenshotHost) DocumentSize(ctx context.Context, tabID int) (float64, float64, float64, error) {
	return h.width, h.height, h.dpr, nil
}

func (h *fakeScreenshotHost) CaptureViewport(ctx context.Context, tabID int) (string, error) {
	remaining := h.height - h.scrollY
	sliceH := h.viewportH
	if remaining < sliceH {
		sliceH = remaining
	}
	raw := blankPNG(int(h.width), int(sliceH), color.White)
	return base64.StdEncoding.EncodeToString(raw), nil
}

func TestFullPageScreenshotStitchesToDocumentHeight(t *testing.T) {
	host := &fakeScreenshotHost{width: 100, height: 300, dpr: 1, viewportH: 100}
	b64, err := Screenshot(context.Background(), host, 1, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dy() != 300 {
		t.Fatalf("expected stitched height 300, got %d", bounds.Dy())
	}
}

func TestViewportOnlyScreenshotSkipsStitching(t *testing.T) {
	host := &fakeScreenshotHost{width: 100, height: 100, dpr: 1, viewportH: 100}
	b64, err := Screenshot(context.Background(), host, 1, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b64 == "" {
		t.Fatal("expected non-empty screenshot")
	}
}
