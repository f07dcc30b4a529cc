package quiz

import (
	"errors"
	"testing"
)

func TestRegistryCreateAndSnapshot(t *testing.T) {
	reg := NewRegistry()
	id, view, err := reg.Create("California", "1", "u-1", fiveQuestions())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == "" || view.ID != id {
		t.Fatalf("view id %q, want registry id %q", view.ID, id)
	}
	if view.Index != 0 || view.Total != 5 || view.Completed {
		t.Fatalf("unexpected initial view: %+v", view)
	}
	if view.Question != "Residential speed limit?" {
		t.Fatalf("question %q", view.Question)
	}
}

func TestRegistryUnknownSession(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Get("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("get: %v", err)
	}
	if _, err := reg.Select("nope", "x"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("select: %v", err)
	}
	if _, _, err := reg.Advance("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("advance: %v", err)
	}
}

func TestRegistryFlowToCompletion(t *testing.T) {
	reg := NewRegistry()
	id, _, err := reg.Create("Washington", "2", "u-7", fiveQuestions()[:2])
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := reg.Select(id, "25 mph"); err != nil {
		t.Fatalf("select: %v", err)
	}
	view, out, err := reg.Advance(id)
	if err != nil || out != nil {
		t.Fatalf("advance mid-quiz: view=%+v out=%v err=%v", view, out, err)
	}
	if view.Index != 1 || view.Question != "Headlights below visibility of?" {
		t.Fatalf("unexpected view after advance: %+v", view)
	}

	if _, err := reg.Select(id, "500 feet"); err != nil {
		t.Fatalf("select: %v", err)
	}
	_, out, err = reg.Advance(id)
	if err != nil {
		t.Fatalf("final advance: %v", err)
	}
	if out == nil {
		t.Fatalf("expected outcome on final advance")
	}
	want := Score{Correct: 1, Total: 2, Percentage: 50}
	if out.Score != want {
		t.Fatalf("score %+v, want %+v", out.Score, want)
	}

	state, testID, userID, err := reg.Identity(id)
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	if state != "Washington" || testID != "2" || userID != "u-7" {
		t.Fatalf("identity = (%q, %q, %q)", state, testID, userID)
	}

	reg.Drop(id)
	if _, err := reg.Get(id); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("session should be gone after drop, got %v", err)
	}
}

func TestRegistryRetreatKeepsSelection(t *testing.T) {
	reg := NewRegistry()
	id, _, _ := reg.Create("California", "1", "u-1", fiveQuestions())
	if _, err := reg.Select(id, "25 mph"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, _, err := reg.Advance(id); err != nil {
		t.Fatalf("advance: %v", err)
	}
	view, err := reg.Retreat(id)
	if err != nil {
		t.Fatalf("retreat: %v", err)
	}
	if view.Index != 0 || view.Selected != "25 mph" {
		t.Fatalf("retreat view: %+v", view)
	}
}
