// Purpose: Owns geometry.go, the Bézier approach path and jitter math behind
// the human-click pipeline's cursor movement (spec §4.3 step 5).
package engine

import "math"

// bezierPath builds the cubic Bézier control points for a cursor move from
// from to to, with asymmetric perpendicular offsets bounded by
// min(distance*0.35, 120px), matching spec §4.3 step 5.
func bezierPath(from, to Point, rnd *rng) (p0, p1, p2, p3 Point) {
	dx, dy := to.X-from.X, to.Y-from.Y
	dist := math.Hypot(dx, dy)
	maxOffset := math.Min(dist*0.35, 120)

	// Perpendicular unit vector to the from->to line.
	var perpX, perpY float64
	if dist > 0 {
		perpX, perpY = -dy/dist, dx/dist
	}

	off1 := (rnd.Float64()*2 - 1) * maxOffset
	off2 := (rnd.Float64()*2 - 1) * maxOffset

	t1, t2 := 0.33, 0.66
	c1 := Point{
		X: from.X + dx*t1 + perpX*off1,
		Y: from.Y + dy*t1 + perpY*off1,
	}
	c2 := Point{
		X: from.X + dx*t2 + perpX*off2,
		Y: from.Y + dy*t2 + perpY*off2,
	}
	return from, c1, c2, to
}

// cubicBezierAt evaluates the cubic Bézier defined by p0..p3 at parameter
// t in [0, 1].
func cubicBezierAt(p0, p1, p2, p3 Point, t float64) Point {
	u := 1 - t
	a := u * u * u
	b := 3 * u * u * t
	c := 3 * u * t * t
	e := t * t * t
	return Point{
		X: a*p0.X + b*p1.X + c*p2.X + e*p3.X,
		Y: a*p0.Y + b*p1.Y + c*p2.Y + e*p3.Y,
	}
}

// easeInOut applies a smoothstep-style ease to a linear step fraction.
func easeInOut(t float64) float64 {
	return t * t * (3 - 2*t)
}

// stepCount returns the number of movement steps for a given travel
// distance: max(15, min(distance/4, 100)) per spec §4.3 step 5.
func stepCount(distance float64) int {
	n := distance / 4
	if n > 100 {
		n = 100
	}
	if n < 15 {
		n = 15
	}
	return int(math.Round(n))
}

// jitterAmplitude returns the per-step jitter magnitude at progress t:
// sin(π·t) · min(distance·0.003, 1.5) pixels.
func jitterAmplitude(distance, t float64) float64 {
	return math.Sin(math.Pi*t) * math.Min(distance*0.003, 1.5)
}

// overshootDistance returns the overshoot length applied when the approach
// exceeds 200px: min(20, distance*0.06) * (0.4 + 0.6*rand).
func overshootDistance(distance float64, rnd *rng) float64 {
	base := math.Min(20, distance*0.06)
	return base * (0.4 + 0.6*rnd.Float64())
}

// driftTarget returns a random point 80-200px from origin when the straight
// line distance to the real target is under 80px, avoiding a teleport-click
// appearance (spec §4.3 step 5).
func driftTarget(origin Point, rnd *rng) Point {
	dist := 80 + rnd.Float64()*120
	angle := rnd.Float64() * 2 * math.Pi
	return Point{
		X: origin.X + dist*math.Cos(angle),
		Y: origin.Y + dist*math.Sin(angle),
	}
}
