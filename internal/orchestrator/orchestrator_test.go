package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"muse/internal/idea"
	"muse/internal/services"
	"muse/internal/stage"
)

type stubCompleter struct {
	content string
	err     error
	calls   int
}

func (s *stubCompleter) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.calls++
	return s.content, s.err
}

func newOrchestrator(completer stage.Completer) *Orchestrator {
	return New(stage.Deps{LLM: completer, Model: "test/model"})
}

func testIdea(status idea.Stage) *idea.Idea {
	return &idea.Idea{
		ID:        uuid.New(),
		Title:     "Solar kiosk",
		Status:    status,
		CreatorID: uuid.New(),
	}
}

func TestAvailableStagesExcludesDraft(t *testing.T) {
	o := newOrchestrator(&stubCompleter{content: "{}"})
	stages := o.AvailableStages()

	want := []idea.Stage{
		idea.StageSuggested,
		idea.StageDeepDive,
		idea.StageIterating,
		idea.StageConsidering,
		idea.StageBuilding,
		idea.StageClosed,
	}
	if len(stages) != len(want) {
		t.Fatalf("stages = %v", stages)
	}
	for i, s := range want {
		if stages[i] != s {
			t.Fatalf("stages[%d] = %q, want %q", i, stages[i], s)
		}
	}

	stages[0] = "mutated"
	if o.AvailableStages()[0] != idea.StageSuggested {
		t.Fatal("AvailableStages must return a defensive copy")
	}
}

func TestServiceIdentityIsStable(t *testing.T) {
	o := newOrchestrator(&stubCompleter{content: "{}"})

	first, err := o.Service(idea.StageDeepDive)
	if err != nil {
		t.Fatalf("Service: %v", err)
	}
	second, err := o.Service(idea.StageDeepDive)
	if err != nil {
		t.Fatalf("Service: %v", err)
	}
	if first != second {
		t.Fatal("repeated lookups must return the same service instance")
	}

	other, err := o.Service(idea.StageBuilding)
	if err != nil {
		t.Fatalf("Service: %v", err)
	}
	if other == first {
		t.Fatal("different stages must not share a service instance")
	}
}

func TestServiceUnknownStage(t *testing.T) {
	o := newOrchestrator(&stubCompleter{content: "{}"})

	for _, name := range []idea.Stage{"draft", "published", ""} {
		_, err := o.Service(name)
		if !errors.Is(err, ErrUnknownStage) {
			t.Fatalf("Service(%q) = %v, want ErrUnknownStage", name, err)
		}
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("unknown stage should classify as validation, got %v", err)
		}
	}

	_, err := o.Service("published")
	if !strings.Contains(err.Error(), "published") {
		t.Fatalf("error should name the offending stage: %v", err)
	}
}

func TestProcessIdeaStageSuccess(t *testing.T) {
	o := newOrchestrator(&stubCompleter{content: `{"summary":"promising"}`})
	item := testIdea(idea.StageSuggested)

	outcome, err := o.ProcessIdeaStage(context.Background(), item, idea.Actor{ID: uuid.New()}, idea.StageSuggested, stage.Parameters{})
	if err != nil {
		t.Fatalf("ProcessIdeaStage: %v", err)
	}
	if !outcome.Success || outcome.Stage != idea.StageSuggested {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.AIOutput["summary"] != "promising" {
		t.Fatalf("ai output = %+v", outcome.AIOutput)
	}
	if outcome.Error != "" {
		t.Fatalf("successful outcome must not carry an error: %q", outcome.Error)
	}
}

func TestProcessIdeaStageNormalizesFailure(t *testing.T) {
	o := newOrchestrator(&stubCompleter{err: errors.New("model unavailable")})
	item := testIdea(idea.StageSuggested)

	outcome, err := o.ProcessIdeaStage(context.Background(), item, idea.Actor{ID: uuid.New()}, idea.StageDeepDive, stage.Parameters{})
	if err != nil {
		t.Fatalf("processing failures must not surface as errors: %v", err)
	}
	if outcome.Success {
		t.Fatal("outcome should be unsuccessful")
	}
	if outcome.Stage != idea.StageDeepDive {
		t.Fatalf("stage = %q", outcome.Stage)
	}
	if !strings.Contains(outcome.Error, "model unavailable") {
		t.Fatalf("error message should preserve the cause: %q", outcome.Error)
	}
	if outcome.AIOutput != nil {
		t.Fatalf("failed outcome must not carry output: %+v", outcome.AIOutput)
	}
}

func TestProcessIdeaStageUnknownStageFailsFast(t *testing.T) {
	completer := &stubCompleter{content: "{}"}
	o := newOrchestrator(completer)

	_, err := o.ProcessIdeaStage(context.Background(), testIdea(idea.StageDraft), idea.Actor{}, "published", stage.Parameters{})
	if !errors.Is(err, ErrUnknownStage) {
		t.Fatalf("expected ErrUnknownStage, got %v", err)
	}
	if completer.calls != 0 {
		t.Fatal("unknown stage must not reach the model")
	}
}

func TestTriggerStageTransitionAttachesTransition(t *testing.T) {
	o := newOrchestrator(&stubCompleter{content: `{"summary":"ok"}`})
	item := testIdea(idea.StageSuggested)
	actor := idea.Actor{ID: uuid.New()}

	outcome, err := o.TriggerStageTransition(context.Background(), item, actor, idea.StageDeepDive, stage.Parameters{})
	if err != nil {
		t.Fatalf("TriggerStageTransition: %v", err)
	}
	if !outcome.Success {
		t.Fatalf("outcome = %+v", outcome)
	}
	tr := outcome.Transition
	if tr.FromStage != idea.StageSuggested || tr.ToStage != idea.StageDeepDive || tr.TriggeredBy != actor.ID {
		t.Fatalf("transition = %+v", tr)
	}
}

func TestTriggerStageTransitionAttachesTransitionOnFailure(t *testing.T) {
	o := newOrchestrator(&stubCompleter{err: errors.New("boom")})
	item := testIdea(idea.StageIterating)
	actor := idea.Actor{ID: uuid.New()}

	outcome, err := o.TriggerStageTransition(context.Background(), item, actor, idea.StageConsidering, stage.Parameters{})
	if err != nil {
		t.Fatalf("TriggerStageTransition: %v", err)
	}
	if outcome.Success {
		t.Fatal("outcome should be unsuccessful")
	}
	tr := outcome.Transition
	if tr.FromStage != idea.StageIterating || tr.ToStage != idea.StageConsidering || tr.TriggeredBy != actor.ID {
		t.Fatalf("transition must be present on failure too: %+v", tr)
	}
}

func TestTriggerStageTransitionUnknownStage(t *testing.T) {
	o := newOrchestrator(&stubCompleter{content: "{}"})

	_, err := o.TriggerStageTransition(context.Background(), testIdea(idea.StageDraft), idea.Actor{}, "archive", stage.Parameters{})
	if !errors.Is(err, ErrUnknownStage) {
		t.Fatalf("expected ErrUnknownStage, got %v", err)
	}
}
