// tuning.go — runtime tuning record (spec §3 "Runtime tuning") and the avoid
// ruleset merge rules (spec §3 "Avoid ruleset", §4.1 "Tuning injection").
package protocol

// HandleTuning controls the handle registry's TTL/GC sweep (spec §4.3).
type HandleTuning struct {
	TTLMs             int64 `json:"ttlMs"`
	CleanupIntervalMs int64 `json:"cleanupIntervalMs"`
}

// DebugTuning controls the optional frame visibility overlay (spec §4.4).
type DebugTuning struct {
	Cursor    bool `json:"cursor"`
	DevTools  bool `json:"devtools,omitempty"`
	SessionLog bool `json:"sessionLog,omitempty"`
}

// ClickTuning parameterizes the human-click pipeline (spec §4.3 step 5-7).
type ClickTuning struct {
	ThinkDelayMinMs int `json:"thinkDelayMin"`
	ThinkDelayMaxMs int `json:"thinkDelayMax"`
	MaxShiftPx      int `json:"maxShiftPx"`
}

// TypeTuning parameterizes the human-type pipeline.
type TypeTuning struct {
	BaseDelayMinMs int     `json:"baseDelayMin"`
	BaseDelayMaxMs int     `json:"baseDelayMax"`
	VarianceMs     int     `json:"variance"`
	PauseChance    float64 `json:"pauseChance"`
	PauseMinMs     int     `json:"pauseMin"`
	PauseMaxMs     int     `json:"pauseMax"`
}

// ScrollTuning parameterizes the human-scroll pipeline.
type ScrollTuning struct {
	AmountMin       int     `json:"amountMin"`
	AmountMax       int     `json:"amountMax"`
	BackScrollChance float64 `json:"backScrollChance"`
	BackScrollMinPx int     `json:"backScrollMin"`
	BackScrollMaxPx int     `json:"backScrollMax"`
}

// AvoidRuleset is the four-list declarative filter from spec §3. Global
// rules merge with per-request rules by union, never replacement.
type AvoidRuleset struct {
	Selectors  []string `json:"selectors,omitempty"`
	Classes    []string `json:"classes,omitempty"`
	IDs        []string `json:"ids,omitempty"`
	Attributes []string `json:"attributes,omitempty"`
}

// Union returns a new ruleset containing every entry from r and other, with
// duplicates removed, preserving r's entries first.
func (r AvoidRuleset) Union(other AvoidRuleset) AvoidRuleset {
	return AvoidRuleset{
		Selectors:  unionStrings(r.Selectors, other.Selectors),
		Classes:    unionStrings(r.Classes, other.Classes),
		IDs:        unionStrings(r.IDs, other.IDs),
		Attributes: unionStrings(r.Attributes, other.Attributes),
	}
}

func unionStrings(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// RuntimeTuning is the full record from spec §3, owned by the broker and
// injected as a copy into every command that needs it (never shared by
// reference — see spec §9 "Global mutable state").
type RuntimeTuning struct {
	Handles HandleTuning `json:"handles"`
	Debug   DebugTuning  `json:"debug"`
	Click   ClickTuning  `json:"click"`
	Type    TypeTuning   `json:"type"`
	Scroll  ScrollTuning `json:"scroll"`
	Avoid   AvoidRuleset `json:"avoid"`
}

// DefaultTuning returns the documented defaults from spec §3-§4.3.
func DefaultTuning() RuntimeTuning {
	return RuntimeTuning{
		Handles: HandleTuning{
			TTLMs:             15 * 60 * 1000,
			CleanupIntervalMs: 60 * 1000,
		},
		Debug: DebugTuning{Cursor: true},
		Click: ClickTuning{
			ThinkDelayMinMs: 150,
			ThinkDelayMaxMs: 400,
			MaxShiftPx:      50,
		},
		Type: TypeTuning{
			BaseDelayMinMs: 50,
			BaseDelayMaxMs: 150,
			VarianceMs:     30,
			PauseChance:    0.12,
			PauseMinMs:     300,
			PauseMaxMs:     900,
		},
		Scroll: ScrollTuning{
			AmountMin:        200,
			AmountMax:        600,
			BackScrollChance: 0.25,
			BackScrollMinPx:  15,
			BackScrollMaxPx:  60,
		},
	}
}

// Merge applies a partial update (as decoded from framework.setConfig) onto
// the current tuning. Zero-value numeric fields in patch are treated as
// "not set" and keep their current value, so no numeric field can be set to
// zero this way. The debug group is the exception: its boolean fields have
// no "not set" state, so patch.Debug always replaces it (a patch without
// debug turns the cursor overlay off). Avoid lists are replaced wholesale by a
// setConfig call (the union-on-merge rule in spec §3 only applies to the
// broker merging *global* avoid with a *request's* avoid at injection time,
// not to framework.setConfig updating the global record itself).
func (t RuntimeTuning) Merge(patch RuntimeTuning) RuntimeTuning {
	out := t
	if patch.Handles.TTLMs != 0 {
		out.Handles.TTLMs = patch.Handles.TTLMs
	}
	if patch.Handles.CleanupIntervalMs != 0 {
		out.Handles.CleanupIntervalMs = patch.Handles.CleanupIntervalMs
	}
	out.Debug = patch.Debug
	if patch.Click.ThinkDelayMinMs != 0 {
		out.Click.ThinkDelayMinMs = patch.Click.ThinkDelayMinMs
	}
	if patch.Click.ThinkDelayMaxMs != 0 {
		out.Click.ThinkDelayMaxMs = patch.Click.ThinkDelayMaxMs
	}
	if patch.Click.MaxShiftPx != 0 {
		out.Click.MaxShiftPx = patch.Click.MaxShiftPx
	}
	if patch.Type.BaseDelayMinMs != 0 {
		out.Type.BaseDelayMinMs = patch.Type.BaseDelayMinMs
	}
	if patch.Type.BaseDelayMaxMs != 0 {
		out.Type.BaseDelayMaxMs = patch.Type.BaseDelayMaxMs
	}
	if patch.Type.VarianceMs != 0 {
		out.Type.VarianceMs = patch.Type.VarianceMs
	}
	if patch.Type.PauseChance != 0 {
		out.Type.PauseChance = patch.Type.PauseChance
	}
	if patch.Type.PauseMinMs != 0 {
		out.Type.PauseMinMs = patch.Type.PauseMinMs
	}
	if patch.Type.PauseMaxMs != 0 {
		out.Type.PauseMaxMs = patch.Type.PauseMaxMs
	}
	if patch.Scroll.AmountMin != 0 {
		out.Scroll.AmountMin = patch.Scroll.AmountMin
	}
	if patch.Scroll.AmountMax != 0 {
		out.Scroll.AmountMax = patch.Scroll.AmountMax
	}
	if patch.Scroll.BackScrollChance != 0 {
		out.Scroll.BackScrollChance = patch.Scroll.BackScrollChance
	}
	if patch.Scroll.BackScrollMinPx != 0 {
		out.Scroll.BackScrollMinPx = patch.Scroll.BackScrollMinPx
	}
	if patch.Scroll.BackScrollMaxPx != 0 {
		out.Scroll.BackScrollMaxPx = patch.Scroll.BackScrollMaxPx
	}
	if len(patch.Avoid.Selectors)+len(patch.Avoid.Classes)+len(patch.Avoid.IDs)+len(patch.Avoid.Attributes) > 0 {
		out.Avoid = patch.Avoid
	}
	return out
}
