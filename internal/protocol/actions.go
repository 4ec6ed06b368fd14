// actions.go — the complete action namespace (spec §6).
package protocol

import "strings"

// Action namespaces. A command's namespace is the portion of its action name
// before the first dot; the broker uses it to decide whether tuning/avoid
// injection applies (spec §4.1 "Tuning injection").
const (
	NamespaceTabs      = "tabs"
	NamespaceCookies   = "cookies"
	NamespaceFrames    = "frames"
	NamespaceDOM       = "dom"
	NamespaceHuman     = "human"
	NamespaceFramework = "framework"
	NamespaceCursor    = "cursor"
)

// Complete action list, grouped as in spec §6.
const (
	ActionTabsList             = "tabs.list"
	ActionTabsNavigate         = "tabs.navigate"
	ActionTabsCreate           = "tabs.create"
	ActionTabsClose            = "tabs.close"
	ActionTabsActivate         = "tabs.activate"
	ActionTabsReload           = "tabs.reload"
	ActionTabsWaitForNav       = "tabs.waitForNavigation"
	ActionTabsSetViewport      = "tabs.setViewport"
	ActionTabsScreenshot       = "tabs.screenshot"

	ActionCookiesGetAll = "cookies.getAll"
	ActionCookiesSet    = "cookies.set"

	ActionFramesList = "frames.list"

	ActionDOMQuerySelector          = "dom.querySelector"
	ActionDOMQuerySelectorAll       = "dom.querySelectorAll"
	ActionDOMQuerySelectorWithin    = "dom.querySelectorWithin"
	ActionDOMQuerySelectorAllWithin = "dom.querySelectorAllWithin"
	ActionDOMWaitForSelector        = "dom.waitForSelector"
	ActionDOMBoundingBox            = "dom.boundingBox"
	ActionDOMGetAttribute           = "dom.getAttribute"
	ActionDOMGetProperty            = "dom.getProperty"
	ActionDOMGetHTML                = "dom.getHTML"
	ActionDOMElementHTML            = "dom.elementHTML"
	ActionDOMQueryAllInfo           = "dom.queryAllInfo"
	ActionDOMBatchQuery             = "dom.batchQuery"
	ActionDOMFindScrollable         = "dom.findScrollable"
	ActionDOMDiscoverElements       = "dom.discoverElements"

	ActionDOMClick        = "dom.click"
	ActionDOMMouseMoveTo  = "dom.mouseMoveTo"
	ActionDOMFocus        = "dom.focus"
	ActionDOMType         = "dom.type"
	ActionDOMKeyPress     = "dom.keyPress"
	ActionDOMKeyDown      = "dom.keyDown"
	ActionDOMKeyUp        = "dom.keyUp"
	ActionDOMScroll       = "dom.scroll"
	ActionDOMSetValue     = "dom.setValue"

	ActionDOMEvaluate        = "dom.evaluate"
	ActionDOMElementEvaluate = "dom.elementEvaluate"
	ActionDOMEvaluateHandle  = "dom.evaluateHandle"

	ActionDOMSetDebug = "dom.setDebug"

	ActionHumanClick      = "human.click"
	ActionHumanType       = "human.type"
	ActionHumanScroll     = "human.scroll"
	ActionHumanClearInput = "human.clearInput"

	ActionFrameworkSetConfig = "framework.setConfig"
	ActionFrameworkGetConfig = "framework.getConfig"
	ActionFrameworkReload    = "framework.reload"

	ActionCursorGetPosition    = "cursor.getPosition"
	ActionCursorReportPosition = "cursor.reportPosition"
)

// Namespace returns the portion of an action name before the first dot.
func Namespace(action string) string {
	if i := strings.IndexByte(action, '.'); i >= 0 {
		return action[:i]
	}
	return action
}

// NeedsTuning reports whether the broker must attach __frameworkConfig to
// this action's params before forwarding to the extension (spec §4.1: any
// dom.* or human.* action).
func NeedsTuning(action string) bool {
	ns := Namespace(action)
	return ns == NamespaceDOM || ns == NamespaceHuman
}

// NeedsAvoidMerge reports whether the broker must merge global and
// per-request avoid rules into params.config (spec §4.1: human.* only).
func NeedsAvoidMerge(action string) bool {
	return Namespace(action) == NamespaceHuman
}

// TabScoped reports whether an action is dispatched to the content script of
// a specific tab (spec §4.2, path 2) as opposed to a browser-native action
// (path 1) or a page-world evaluation (path 3).
func TabScoped(action string) bool {
	switch Namespace(action) {
	case NamespaceDOM:
		switch action {
		case ActionDOMEvaluate, ActionDOMElementEvaluate, ActionDOMEvaluateHandle:
			return false
		}
		return true
	case NamespaceHuman, NamespaceFramework:
		return true
	default:
		return false
	}
}

// PageWorldEvaluation reports whether an action executes in the page's main
// execution world via the CSP fallback ladder (spec §4.5).
func PageWorldEvaluation(action string) bool {
	switch action {
	case ActionDOMEvaluate, ActionDOMElementEvaluate, ActionDOMEvaluateHandle:
		return true
	default:
		return false
	}
}
