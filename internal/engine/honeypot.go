// Purpose: Owns honeypot.go, the avoid-ruleset and trap-detection checks
// that gate the human-click pipeline (spec §4.3 steps 2-3).
package engine

import (
	"context"
	"regexp"
	"strings"

	"github.com/hugopalma17/human-browser/internal/protocol"
)

// honeypotClassPattern matches the documented class-name honeypot markers.
// Order of alternation doesn't matter; MatchString is a simple membership
// test against any class token.
var honeypotClassPattern = regexp.MustCompile(`(?i)\b(ghost|sr-only|visually-hidden|trap|honey|offscreen|off-screen)\b`)

// matchesAvoid reports whether el is named by any selector/class/id/attribute
// rule in the merged ruleset. Selector matching is delegated to the driver
// since only it can evaluate CSS selector membership; class/id/attribute
// checks are done locally against values already fetched.
func matchesAvoid(ctx context.Context, d Driver, el ElementHandle, rules protocol.AvoidRuleset) (bool, error) {
	for _, sel := range rules.Selectors {
		ok, err := d.Matches(ctx, el, sel)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	classes, err := d.ClassList(ctx, el)
	if err != nil {
		return false, err
	}
	if len(rules.Classes) > 0 {
		for _, want := range rules.Classes {
			for _, have := range classes {
				if have == want {
					return true, nil
				}
			}
		}
	}
	if len(rules.IDs) > 0 {
		idVal, _, err := d.Attribute(ctx, el, "id")
		if err != nil {
			return false, err
		}
		for _, want := range rules.IDs {
			if idVal == want {
				return true, nil
			}
		}
	}
	for _, attr := range rules.Attributes {
		has, err := d.HasAttribute(ctx, el, attr)
		if err != nil {
			return false, err
		}
		if has {
			return true, nil
		}
	}
	return false, nil
}

// trapCheck runs the ordered honeypot detection from spec §4.3 step 3.
// The first matching rule wins; an empty RefusalReason means no trap found.
func trapCheck(ctx context.Context, d Driver, el ElementHandle) (protocol.RefusalReason, error) {
	isSVG, err := d.IsSVG(ctx, el)
	if err != nil {
		return "", err
	}
	if isSVG {
		return protocol.ReasonSVGElement, nil
	}

	ariaHidden, _, err := d.Attribute(ctx, el, "aria-hidden")
	if err != nil {
		return "", err
	}
	if strings.EqualFold(ariaHidden, "true") {
		return protocol.ReasonAriaHidden, nil
	}

	style, err := d.ComputedStyle(ctx, el)
	if err != nil {
		return "", err
	}

	hasOffsetParent, err := d.HasOffsetParent(ctx, el)
	if err != nil {
		return "", err
	}
	if !hasOffsetParent && style.Display != "contents" {
		return protocol.ReasonNoOffsetParent, nil
	}

	classes, err := d.ClassList(ctx, el)
	if err != nil {
		return "", err
	}
	if honeypotClassPattern.MatchString(strings.Join(classes, " ")) {
		return protocol.ReasonHoneypotClass, nil
	}

	if style.Opacity == 0 {
		return protocol.ReasonOpacityZero, nil
	}
	if style.Visibility == "hidden" {
		return protocol.ReasonVisibilityHidden, nil
	}

	box, ok, err := d.BoundingBox(ctx, el)
	if err != nil {
		return "", err
	}
	if !ok {
		return protocol.ReasonNoBoundingBox, nil
	}
	if box.Width < 5 || box.Height < 5 {
		return protocol.ReasonSubPixel, nil
	}

	return "", nil
}
