// Purpose: Owns scroll.go, the human-scroll "flick" pipeline and the plain
// dom.scroll fallback (spec §4.3 "Human-scroll pipeline" and "Scroll
// fallback").
package engine

import (
	"context"
	"time"

	"github.com/hugopalma17/human-browser/internal/protocol"
)

// ScrollParams carries the per-request options for human.scroll. A zero
// value means "use tuning defaults, scroll the window".
type ScrollParams struct {
	HandleID string
	Selector string
	Amount   int
	Tuning   protocol.ScrollTuning
}

// ScrollResult is the structured outcome of human.scroll.
type ScrollResult struct {
	Scrolled bool `json:"scrolled"`
	Amount   int  `json:"amount"`
}

const (
	flickMinPx = 150
	flickMaxPx = 350
)

// Scroll runs the human-scroll pipeline: a sequence of flicks with
// inter-flick pauses and an occasional small back-scroll, settling at the
// end (spec §4.3 "Human-scroll pipeline").
func (e *Engine) Scroll(ctx context.Context, p ScrollParams) (ScrollResult, error) {
	tuning := p.Tuning
	if tuning.AmountMax == 0 {
		tuning = protocol.DefaultTuning().Scroll
	}

	amount := p.Amount
	if amount == 0 {
		amount = e.rnd.IntRange(tuning.AmountMin, tuning.AmountMax)
	}

	target, err := e.scrollTarget(ctx, p.HandleID, p.Selector)
	if err != nil {
		return ScrollResult{}, err
	}

	remaining := amount
	for remaining > 0 {
		flick := flickMinPx + e.rnd.IntRange(0, flickMaxPx-flickMinPx)
		if flick > remaining {
			flick = remaining
		}
		if _, _, err := e.driver.Scroll(ctx, target, 0, float64(flick)); err != nil {
			return ScrollResult{}, err
		}
		remaining -= flick

		sleep(ctx, time.Duration(e.rnd.IntRange(150, 400))*time.Millisecond)

		if e.rnd.Bool(backScrollChance(tuning)) {
			sleep(ctx, time.Duration(e.rnd.IntRange(200, 300))*time.Millisecond)
			back := e.rnd.IntRange(tuning.BackScrollMinPx, tuning.BackScrollMaxPx)
			if _, _, err := e.driver.Scroll(ctx, target, 0, -float64(back)); err != nil {
				return ScrollResult{}, err
			}
		}
	}
	sleep(ctx, 500*time.Millisecond)

	return ScrollResult{Scrolled: true, Amount: amount}, nil
}

func backScrollChance(t protocol.ScrollTuning) float64 {
	if t.BackScrollChance == 0 {
		return protocol.DefaultTuning().Scroll.BackScrollChance
	}
	return t.BackScrollChance
}

// scrollTarget resolves the scroll target per spec: "handle if scrollable,
// else matching selector, else window".
func (e *Engine) scrollTarget(ctx context.Context, handleID, selector string) (ElementHandle, error) {
	if handleID != "" {
		el, err := e.GetHandle(handleID)
		if err != nil {
			return nil, err
		}
		if scrollable, err := e.driver.IsScrollable(ctx, el); err != nil {
			return nil, err
		} else if scrollable {
			return el, nil
		}
	}
	if selector != "" {
		if el, ok, err := e.driver.QuerySelector(ctx, selector, nil); err != nil {
			return nil, err
		} else if ok {
			return el, nil
		}
	}
	return nil, nil
}

// DOMScrollResult is the structured outcome of the non-human dom.scroll.
type DOMScrollResult struct {
	Scrolled bool  `json:"scrolled"`
	Before   Point `json:"before"`
	After    Point `json:"after"`
	Target   string `json:"target,omitempty"`
}

// DOMScroll is the exact, non-human scroll fallback from spec §4.3: scrolls
// by an exact amount and reports before/after offsets so callers can detect
// bottom-of-content by before == after.
func (e *Engine) DOMScroll(ctx context.Context, handleID, selector string, dx, dy float64) (DOMScrollResult, error) {
	target, err := e.scrollTarget(ctx, handleID, selector)
	if err != nil {
		return DOMScrollResult{}, err
	}
	before, after, err := e.driver.Scroll(ctx, target, dx, dy)
	if err != nil {
		return DOMScrollResult{}, err
	}
	return DOMScrollResult{
		Scrolled: before != after,
		Before:   before,
		After:    after,
		Target:   handleID,
	}, nil
}
