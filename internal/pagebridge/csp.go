// Purpose: Owns csp.go, the code-injection ladder for page-world evaluation
// (spec §4.5). Three strategies are tried in order, falling through on
// failure; only a strict CSP without unsafe-inline or unsafe-eval is fatal
// for the first two.
package pagebridge

import (
	"context"
	"fmt"

	"github.com/hugopalma17/human-browser/internal/protocol"
)

// EvaluateFunc is an isolated-world fallback executor, satisfied by the
// interaction engine running in the content script's own world (spec §4.5
// strategy 3). It is exempt from page CSP but has no access to page
// globals.
type EvaluateFunc func(ctx context.Context, fn string, args []any) (any, error)

// Evaluate runs dom.evaluate's CSP fallback ladder: inline script
// injection, then the scripting API in the main world, then the isolated
// world as a last resort.
func Evaluate(ctx context.Context, host BrowserHost, tabID int, fn string, args []any, isolated EvaluateFunc) (any, error) {
	allowsInline, allowsEval, err := host.CSPPolicy(ctx, tabID)
	if err != nil {
		return nil, err
	}

	if allowsInline {
		if result, err := host.EvaluateInlineScript(ctx, tabID, fn, args); err == nil {
			return result, nil
		}
	}
	if allowsEval {
		if result, err := host.EvaluateScriptingAPI(ctx, tabID, fn, args); err == nil {
			return result, nil
		}
	}
	if !allowsInline && !allowsEval {
		// Strict CSP: strategies (1) and (2) are documented as fatal here,
		// but (3) may still succeed for DOM-only work.
	}

	result, err := isolated(ctx, fn, args)
	if err != nil {
		return nil, protocol.NewError(protocol.CodeEvaluateFailedAllWorlds, fmt.Sprintf("all evaluation strategies failed: %v", err))
	}
	return result, nil
}
