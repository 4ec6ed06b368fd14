package engine

import (
	"context"
	"testing"

	"github.com/hugopalma17/human-browser/internal/engine/enginetest"
	"github.com/hugopalma17/human-browser/internal/protocol"
)

func TestTokenizeSplitsSpecialKeys(t *testing.T) {
	toks := tokenize("Hi{Enter}!")
	want := []token{
		{value: "H"}, {value: "i"}, {special: true, value: "Enter"}, {value: "!"},
	}
	if len(toks) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %+v", len(want), len(toks), toks)
	}
	for i, w := range want {
		if toks[i] != w {
			t.Fatalf("token %d: expected %+v, got %+v", i, w, toks[i])
		}
	}
}

func TestHumanTypeSetsExactValue(t *testing.T) {
	d := enginetest.New()
	input := enginetest.NewElem("input")
	input.ID = "text-input"
	d.Add(input)

	e := newTestEngine(d)
	res, err := e.Type(context.Background(), protocol.AvoidRuleset{}, TypeParams{
		Selector: "#text-input",
		Text:     "Hello world",
		Tuning:   protocol.TypeTuning{BaseDelayMinMs: 1, BaseDelayMaxMs: 2, VarianceMs: 0, PauseChance: 0},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Typed {
		t.Fatalf("expected typed=true, got %+v", res)
	}
	if input.Value != "Hello world" {
		t.Fatalf("expected value %q, got %q", "Hello world", input.Value)
	}
}

func TestHumanTypeRefusedWhenAvoided(t *testing.T) {
	d := enginetest.New()
	input := enginetest.NewElem("input")
	input.ID = "text-input"
	d.Add(input)

	e := newTestEngine(d)
	avoid := protocol.AvoidRuleset{IDs: []string{"text-input"}}
	res, err := e.Type(context.Background(), avoid, TypeParams{Selector: "#text-input", Text: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Typed || res.Reason != protocol.ReasonAvoided {
		t.Fatalf("expected avoided refusal, got %+v", res)
	}
}
