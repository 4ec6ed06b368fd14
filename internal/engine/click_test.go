package engine

import (
	"context"
	"testing"
	"time"

	"github.com/hugopalma17/human-browser/internal/engine/enginetest"
	"github.com/hugopalma17/human-browser/internal/protocol"
)

func newTestEngine(d *enginetest.FakeDriver) *Engine {
	e := New(d, protocol.DefaultTuning())
	e.rnd = newSeededRNG(1)
	return e
}

func TestHoneypotMatrix(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(el *enginetest.Elem)
		want   protocol.RefusalReason
	}{
		{"svg", func(el *enginetest.Elem) { el.SVG = true }, protocol.ReasonSVGElement},
		{"aria-hidden", func(el *enginetest.Elem) { el.Attrs["aria-hidden"] = "true" }, protocol.ReasonAriaHidden},
		{"no-offset-parent", func(el *enginetest.Elem) { el.OffsetPar = false }, protocol.ReasonNoOffsetParent},
		{"honeypot-class", func(el *enginetest.Elem) { el.Classes = []string{"honey"} }, protocol.ReasonHoneypotClass},
		{"opacity-zero", func(el *enginetest.Elem) { el.Style.Opacity = 0 }, protocol.ReasonOpacityZero},
		{"visibility-hidden", func(el *enginetest.Elem) { el.Style.Visibility = "hidden" }, protocol.ReasonVisibilityHidden},
		{"sub-pixel", func(el *enginetest.Elem) { el.Box.Width, el.Box.Height = 2, 2 }, protocol.ReasonSubPixel},
		{"no-bounding-box", func(el *enginetest.Elem) { el.HasBox = false }, protocol.ReasonNoBoundingBox},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := enginetest.New()
			el := enginetest.NewElem("button")
			el.ID = "target"
			tc.mutate(el)
			d.Add(el)

			e := newTestEngine(d)
			res, err := e.Click(context.Background(), protocol.AvoidRuleset{}, ClickParams{Selector: "#target"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Clicked {
				t.Fatalf("expected refusal %s, got clicked=true", tc.want)
			}
			if res.Reason != tc.want {
				t.Fatalf("expected reason %s, got %s", tc.want, res.Reason)
			}
			for _, m := range d.MouseEvents() {
				if m.Type == MouseClick && m.Target == el {
					t.Fatalf("click event dispatched to refused element %s", tc.name)
				}
			}
		})
	}
}

func TestAvoidRuleRefusesClick(t *testing.T) {
	d := enginetest.New()
	el := enginetest.NewElem("button")
	el.ID = "target"
	d.Add(el)

	e := newTestEngine(d)
	avoid := protocol.AvoidRuleset{IDs: []string{"target"}}
	res, err := e.Click(context.Background(), avoid, ClickParams{Selector: "#target"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Clicked || res.Reason != protocol.ReasonAvoided {
		t.Fatalf("expected avoided refusal, got %+v", res)
	}
}

func TestOverlayCoverageClicksOverlayNotHiddenButton(t *testing.T) {
	d := enginetest.New()
	hidden := enginetest.NewElem("button")
	hidden.ID = "hidden-button"
	hidden.Box = engine_rectAt(100, 100, 80, 30)
	hidden.Style.Visibility = "hidden"

	overlay := enginetest.NewElem("div")
	overlay.ID = "overlay"
	overlay.Box = engine_rectAt(100, 100, 80, 30)
	overlay.Style.Opacity = 0.5

	// overlay added after hidden button so it is the topmost element.
	d.Add(hidden, overlay)

	e := newTestEngine(d)
	// Dispatch directly at the shared coordinates to isolate the overlay
	// coverage invariant from the approach/scroll machinery.
	res, err := e.dispatchClick(context.Background(), Point{X: 140, Y: 115}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Clicked {
		t.Fatalf("expected click to land on overlay, got refusal %+v", res)
	}
	clicked := d.ClickedElements()
	if len(clicked) != 1 || clicked[0] != overlay {
		t.Fatalf("expected overlay to receive the click, got %+v", clicked)
	}
}

func TestElementShiftedRefusal(t *testing.T) {
	d := enginetest.New()
	el := enginetest.NewElem("button")
	el.ID = "target"
	// Start inside the comfortable band (15%-85% of the 720px viewport) so no
	// scroll-into-view wait runs before think-time.
	el.Box = engine_rectAt(100, 300, 80, 30)
	d.Add(el)

	e := newTestEngine(d)
	// Give think-time enough width that a background shift reliably lands
	// inside the sleep window.
	tuning := protocol.ClickTuning{ThinkDelayMinMs: 250, ThinkDelayMaxMs: 300, MaxShiftPx: 50}

	go func() {
		time.Sleep(60 * time.Millisecond)
		d.MoveBox(el, 1000, 0)
	}()

	res, err := e.Click(context.Background(), protocol.AvoidRuleset{}, ClickParams{Selector: "#target", Tuning: tuning})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Clicked || res.Reason != protocol.ReasonElementShifted {
		t.Fatalf("expected element-shifted refusal, got %+v", res)
	}
}

func engine_rectAt(x, y, w, h float64) Rect {
	return Rect{X: x, Y: y, Width: w, Height: h}
}
