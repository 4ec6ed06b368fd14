// Purpose: Owns click.go, the human-click pipeline: the ordered sequence of
// resolve, avoid-check, trap-detection, scroll, approach, think-time,
// re-validation, and dispatch steps from spec §4.3.
package engine

import (
	"context"
	"math"
	"time"

	"github.com/hugopalma17/human-browser/internal/protocol"
)

// ClickParams carries the per-request options for human.click.
type ClickParams struct {
	HandleID   string
	Selector   string
	ClickCount int
	Avoid      protocol.AvoidRuleset
	Tuning     protocol.ClickTuning
}

// refuse builds a non-error ClickResult, matching spec §7: human-click
// refusals ride inside a normal result, never as an {id, error} frame.
func refuse(reason protocol.RefusalReason) (protocol.ClickResult, error) {
	return protocol.ClickResult{Clicked: false, Reason: reason}, nil
}

// Click runs the full human-click pipeline against the resolved target.
func (e *Engine) Click(ctx context.Context, avoidGlobal protocol.AvoidRuleset, p ClickParams) (protocol.ClickResult, error) {
	// Step 1: resolve.
	el, err := e.resolveTarget(ctx, p.HandleID, p.Selector)
	if err != nil {
		return protocol.ClickResult{}, err
	}

	// Step 2: avoid check (global ∪ per-request, union already applied by
	// caller before reaching here — see broker tuning injection).
	merged := avoidGlobal.Union(p.Avoid)
	avoided, err := matchesAvoid(ctx, e.driver, el, merged)
	if err != nil {
		return protocol.ClickResult{}, err
	}
	if avoided {
		return refuse(protocol.ReasonAvoided)
	}

	// Step 3: trap detection, first match wins.
	if reason, err := trapCheck(ctx, e.driver, el); err != nil {
		return protocol.ClickResult{}, err
	} else if reason != "" {
		return refuse(reason)
	}

	// Step 4: scroll into comfortable view.
	if ok, err := e.scrollIntoComfortableView(ctx, el); err != nil {
		return protocol.ClickResult{}, err
	} else if !ok {
		return refuse(protocol.ReasonOffScreen)
	}

	box, ok, err := e.driver.BoundingBox(ctx, el)
	if err != nil {
		return protocol.ClickResult{}, err
	}
	if !ok {
		return refuse(protocol.ReasonNoBoundingBox)
	}

	// Step 5: approach.
	target := e.pickTargetPoint(box)
	if err := e.approach(ctx, target); err != nil {
		return protocol.ClickResult{}, err
	}

	// Step 6: think-time.
	think := p.Tuning
	if think.ThinkDelayMaxMs == 0 {
		think = protocol.DefaultTuning().Click
	}
	sleep(ctx, time.Duration(e.rnd.IntRange(think.ThinkDelayMinMs, think.ThinkDelayMaxMs))*time.Millisecond)

	// Step 7: post-wait re-validation.
	box2, ok, err := e.driver.BoundingBox(ctx, el)
	if err != nil {
		return protocol.ClickResult{}, err
	}
	if !ok {
		return refuse(protocol.ReasonElementDisappeared)
	}
	maxShift := float64(think.MaxShiftPx)
	if maxShift == 0 {
		maxShift = 50
	}
	if math.Abs(box2.X-box.X) > maxShift || math.Abs(box2.Y-box.Y) > maxShift {
		return refuse(protocol.ReasonElementShifted)
	}

	// Step 8: dispatch.
	return e.dispatchClick(ctx, target, p.ClickCount)
}

// pickTargetPoint returns a random point inside box's centre 60% region.
func (e *Engine) pickTargetPoint(box Rect) Point {
	fx := e.rnd.Float64()*2 - 1
	fy := e.rnd.Float64()*2 - 1
	x, y := box.CenterWithin(fx, fy)
	return Point{X: x, Y: y}
}

// scrollIntoComfortableView implements spec §4.3 step 4.
func (e *Engine) scrollIntoComfortableView(ctx context.Context, el ElementHandle) (bool, error) {
	if inBand, err := e.inComfortableBand(ctx, el); err != nil {
		return false, err
	} else if inBand {
		return true, nil
	}

	if err := e.driver.ScrollIntoView(ctx, el); err != nil {
		return false, err
	}
	sleep(ctx, time.Duration(e.rnd.IntRange(400, 700))*time.Millisecond)

	if inBand, err := e.inComfortableBand(ctx, el); err != nil {
		return false, err
	} else if inBand {
		return true, nil
	}

	for i := 0; i < 20; i++ {
		if _, err := e.Scroll(ctx, ScrollParams{}); err != nil {
			return false, err
		}
		if inBand, err := e.inComfortableBand(ctx, el); err != nil {
			return false, err
		} else if inBand {
			return true, nil
		}
	}
	return false, nil
}

// inComfortableBand reports whether el's top lies between 15% and 85% of
// the viewport, i.e. not fully off-screen and not in the extreme edges.
func (e *Engine) inComfortableBand(ctx context.Context, el ElementHandle) (bool, error) {
	box, ok, err := e.driver.BoundingBox(ctx, el)
	if err != nil || !ok {
		return false, err
	}
	_, vh, err := e.driver.ViewportSize(ctx)
	if err != nil {
		return false, err
	}
	if box.Y+box.Height < 0 || box.Y > vh {
		return false, nil
	}
	lower, upper := vh*0.15, vh*0.85
	return box.Y >= lower && box.Y <= upper, nil
}

// approach moves the cursor from its last-known position to target using
// the Bézier path, jitter, hesitation, and overshoot rules from spec §4.3
// step 5.
func (e *Engine) approach(ctx context.Context, target Point) error {
	origin := e.CursorPosition()
	dist := math.Hypot(target.X-origin.X, target.Y-origin.Y)

	if dist > 0 && dist < 80 {
		drift := driftTarget(origin, e.rnd)
		if err := e.moveAlongPath(ctx, origin, drift); err != nil {
			return err
		}
		origin = drift
		dist = math.Hypot(target.X-origin.X, target.Y-origin.Y)
	}

	finalTarget := target
	if dist > 200 {
		overshoot := overshootDistance(dist, e.rnd)
		angle := math.Atan2(target.Y-origin.Y, target.X-origin.X)
		overshot := Point{
			X: target.X + overshoot*math.Cos(angle),
			Y: target.Y + overshoot*math.Sin(angle),
		}
		if err := e.moveAlongPath(ctx, origin, overshot); err != nil {
			return err
		}
		origin = overshot
	}

	return e.moveAlongPath(ctx, origin, finalTarget)
}

// moveAlongPath steps a cursor move from->to along a jittered, occasionally
// hesitating Bézier curve, dispatching a mousemove at each step.
func (e *Engine) moveAlongPath(ctx context.Context, from, to Point) error {
	dist := math.Hypot(to.X-from.X, to.Y-from.Y)
	p0, p1, p2, p3 := bezierPath(from, to, e.rnd)
	steps := stepCount(dist)

	for i := 1; i <= steps; i++ {
		t := easeInOut(float64(i) / float64(steps))
		pt := cubicBezierAt(p0, p1, p2, p3, t)

		jitter := jitterAmplitude(dist, float64(i)/float64(steps))
		pt.X += (e.rnd.Float64()*2 - 1) * jitter
		pt.Y += (e.rnd.Float64()*2 - 1) * jitter

		if _, err := e.driver.DispatchMouseEvent(ctx, MouseMove, pt.X, pt.Y, ButtonLeft); err != nil {
			return err
		}
		e.SetCursorPosition(pt)
		e.renderDebugCursor(ctx, pt)

		// ~8% of steps double the frame, simulating hesitation.
		if e.rnd.Bool(0.08) {
			if _, err := e.driver.DispatchMouseEvent(ctx, MouseMove, pt.X, pt.Y, ButtonLeft); err != nil {
				return err
			}
		}
	}
	return nil
}

// dispatchClick implements spec §4.3 step 8.
func (e *Engine) dispatchClick(ctx context.Context, at Point, clickCount int) (protocol.ClickResult, error) {
	target, ok, err := e.driver.ElementFromPoint(ctx, at.X, at.Y)
	if err != nil {
		return protocol.ClickResult{}, err
	}
	if !ok {
		// Physically impossible: nothing under the cursor. Silent abort.
		return protocol.ClickResult{Clicked: false}, nil
	}

	if _, err := e.driver.DispatchMouseEvent(ctx, MouseDown, at.X, at.Y, ButtonLeft); err != nil {
		return protocol.ClickResult{}, err
	}
	if err := e.driver.Focus(ctx, target); err != nil {
		return protocol.ClickResult{}, err
	}
	if _, err := e.driver.DispatchMouseEvent(ctx, MouseUp, at.X, at.Y, ButtonLeft); err != nil {
		return protocol.ClickResult{}, err
	}
	if _, err := e.driver.DispatchMouseEvent(ctx, MouseClick, at.X, at.Y, ButtonLeft); err != nil {
		return protocol.ClickResult{}, err
	}

	if clickCount >= 2 {
		if _, err := e.driver.DispatchMouseEvent(ctx, MouseDblClick, at.X, at.Y, ButtonLeft); err != nil {
			return protocol.ClickResult{}, err
		}
	}
	if clickCount >= 3 {
		if val, err := e.driver.Value(ctx, target); err == nil {
			_ = e.driver.SetSelectionRange(ctx, target, 0, len(val))
		}
	}

	return protocol.ClickResult{Clicked: true}, nil
}

// renderDebugCursor pushes the current position to the overlay if enabled.
func (e *Engine) renderDebugCursor(ctx context.Context, at Point) {
	e.mu.Lock()
	on := e.debug
	e.mu.Unlock()
	if !on {
		return
	}
	_ = e.driver.RenderCursor(ctx, at, nil)
}

// sleep honours context cancellation while waiting out a pipeline delay.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
