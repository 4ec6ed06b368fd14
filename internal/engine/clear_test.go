package engine

import (
	"context"
	"testing"

	"github.com/hugopalma17/human-browser/internal/engine/enginetest"
	"github.com/hugopalma17/human-browser/internal/protocol"
)

func TestClearInputEmptiesValue(t *testing.T) {
	d := enginetest.New()
	el := enginetest.NewElem("input")
	el.ID = "target"
	el.Value = "Hello"
	d.Add(el)

	e := newTestEngine(d)
	res, err := e.ClearInput(context.Background(), protocol.AvoidRuleset{}, ClearParams{Selector: "#target"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Cleared {
		t.Fatalf("expected Cleared=true, got reason %q", res.Reason)
	}
	if got, err := d.Value(context.Background(), el); err != nil || got != "" {
		t.Fatalf("expected empty value after clearInput, got %q (err=%v)", got, err)
	}
}

func TestClearInputRefusesHoneypot(t *testing.T) {
	d := enginetest.New()
	el := enginetest.NewElem("input")
	el.ID = "target"
	el.Value = "Hello"
	el.Classes = []string{"honey"}
	d.Add(el)

	e := newTestEngine(d)
	res, err := e.ClearInput(context.Background(), protocol.AvoidRuleset{}, ClearParams{Selector: "#target"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Cleared {
		t.Fatalf("expected refusal, got cleared=true")
	}
	if got, _ := d.Value(context.Background(), el); got != "Hello" {
		t.Fatalf("value should be untouched on refusal, got %q", got)
	}
}
