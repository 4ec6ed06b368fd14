package engine

import (
	"context"
	"testing"

	"github.com/hugopalma17/human-browser/internal/engine/enginetest"
)

func TestHumanScrollReturnsRequestedAmount(t *testing.T) {
	d := enginetest.New()
	e := newTestEngine(d)

	res, err := e.Scroll(context.Background(), ScrollParams{Amount: 500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Scrolled || res.Amount != 500 {
		t.Fatalf("expected scrolled=true amount=500, got %+v", res)
	}
}

func TestDOMScrollReportsBeforeAfter(t *testing.T) {
	d := enginetest.New()
	e := newTestEngine(d)

	res, err := e.DOMScroll(context.Background(), "", "", 0, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Scrolled {
		t.Fatalf("expected scrolled=true, got %+v", res)
	}
	if res.After.Y-res.Before.Y != 100 {
		t.Fatalf("expected after.Y - before.Y == 100, got before=%v after=%v", res.Before, res.After)
	}
}

func TestDOMScrollDetectsBottomOfContent(t *testing.T) {
	d := enginetest.New()
	e := newTestEngine(d)

	// Scroll to the simulated bottom first.
	if _, err := e.DOMScroll(context.Background(), "", "", 0, 1<<30); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := e.DOMScroll(context.Background(), "", "", 0, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Scrolled {
		t.Fatalf("expected before == after at content bottom, got %+v", res)
	}
}
