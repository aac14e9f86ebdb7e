package stage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"muse/internal/idea"
	"muse/internal/services"
)

type stubCompleter struct {
	content    string
	err        error
	lastSystem string
	lastUser   string
	calls      int
}

func (s *stubCompleter) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.calls++
	s.lastSystem = systemPrompt
	s.lastUser = userPrompt
	return s.content, s.err
}

type stubRecorder struct {
	calls []*idea.AICall
	err   error
}

func (s *stubRecorder) RecordAICall(ctx context.Context, call *idea.AICall) error {
	s.calls = append(s.calls, call)
	return s.err
}

func testIdea() *idea.Idea {
	return &idea.Idea{
		ID:          uuid.New(),
		Title:       "Solar kiosk",
		Description: "Off-grid vending for rural markets",
		Status:      idea.StageSuggested,
		CreatorID:   uuid.New(),
	}
}

func TestEveryServiceReportsItsStage(t *testing.T) {
	deps := Deps{LLM: &stubCompleter{content: "{}"}}
	cases := []struct {
		service Service
		want    idea.Stage
	}{
		{NewSuggested(deps), idea.StageSuggested},
		{NewDeepDive(deps), idea.StageDeepDive},
		{NewIterating(deps), idea.StageIterating},
		{NewConsidering(deps), idea.StageConsidering},
		{NewBuilding(deps), idea.StageBuilding},
		{NewClosed(deps), idea.StageClosed},
	}
	for _, tc := range cases {
		if got := tc.service.StageName(); got != tc.want {
			t.Fatalf("StageName() = %q, want %q", got, tc.want)
		}
	}
}

func TestProcessReturnsDecodedOutput(t *testing.T) {
	completer := &stubCompleter{content: `{"summary":"promising","strengths":["novel"]}`}
	recorder := &stubRecorder{}
	service := NewSuggested(Deps{LLM: completer, Store: recorder, Model: "test/model"})
	item := testIdea()
	actor := idea.Actor{ID: uuid.New()}

	output, err := service.Process(context.Background(), item, actor, Parameters{Background: "pilot ran in Q2"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if output["summary"] != "promising" {
		t.Fatalf("output = %+v", output)
	}

	if !strings.Contains(completer.lastUser, "Solar kiosk") {
		t.Fatal("user prompt should include the idea title")
	}
	if !strings.Contains(completer.lastUser, "pilot ran in Q2") {
		t.Fatal("user prompt should include the background parameter")
	}

	if len(recorder.calls) != 1 {
		t.Fatalf("expected 1 recorded call, got %d", len(recorder.calls))
	}
	call := recorder.calls[0]
	if call.IdeaID != item.ID || call.ActorID != actor.ID || call.Stage != idea.StageSuggested || call.Model != "test/model" {
		t.Fatalf("unexpected audit record: %+v", call)
	}
}

func TestProcessParametersReachPrompts(t *testing.T) {
	params := Parameters{
		Background:          "bg",
		ProsCons:            "pc",
		Goals:               "goals",
		FeasibilityData:     "feas",
		CurrentIteration:    "iter-3",
		Feedback:            "fb",
		StakeholderFeedback: "sfb",
		BusinessCase:        "bc",
		Resources:           "res",
		ImplementationPlan:  "plan",
		Timeline:            "q4",
		Metrics:             "dau",
		Outcome:             "shipped",
		LessonsLearned:      "ship earlier",
	}
	cases := []struct {
		build func(Deps) Service
		wants []string
	}{
		{NewSuggested, []string{"bg", "pc"}},
		{NewDeepDive, []string{"bg", "goals", "feas"}},
		{NewIterating, []string{"iter-3", "fb", "sfb"}},
		{NewConsidering, []string{"bc", "feas", "res"}},
		{NewBuilding, []string{"plan", "q4", "res", "dau"}},
		{NewClosed, []string{"shipped", "ship earlier", "dau"}},
	}
	for _, tc := range cases {
		completer := &stubCompleter{content: "{}"}
		service := tc.build(Deps{LLM: completer})
		if _, err := service.Process(context.Background(), testIdea(), idea.Actor{ID: uuid.New()}, params); err != nil {
			t.Fatalf("%s Process: %v", service.StageName(), err)
		}
		for _, want := range tc.wants {
			if !strings.Contains(completer.lastUser, want) {
				t.Fatalf("%s prompt missing %q:\n%s", service.StageName(), want, completer.lastUser)
			}
		}
	}
}

func TestProcessNilIdeaIsValidationError(t *testing.T) {
	service := NewDeepDive(Deps{LLM: &stubCompleter{content: "{}"}})
	_, err := service.Process(context.Background(), nil, idea.Actor{}, Parameters{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestProcessCompletionFailureIsProcessingError(t *testing.T) {
	completer := &stubCompleter{err: errors.New("upstream down")}
	service := NewIterating(Deps{LLM: completer})
	_, err := service.Process(context.Background(), testIdea(), idea.Actor{}, Parameters{})
	if !errors.Is(err, services.ErrProcessing) {
		t.Fatalf("expected processing error, got %v", err)
	}
}

func TestProcessMalformedPayloadIsProcessingError(t *testing.T) {
	completer := &stubCompleter{content: "not json at all"}
	service := NewClosed(Deps{LLM: completer})
	_, err := service.Process(context.Background(), testIdea(), idea.Actor{}, Parameters{})
	if !errors.Is(err, services.ErrProcessing) {
		t.Fatalf("expected processing error, got %v", err)
	}
}

func TestProcessMissingClientIsConfigurationError(t *testing.T) {
	service := NewBuilding(Deps{})
	_, err := service.Process(context.Background(), testIdea(), idea.Actor{}, Parameters{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRecorderFailureDoesNotFailProcess(t *testing.T) {
	completer := &stubCompleter{content: `{"summary":"ok"}`}
	recorder := &stubRecorder{err: errors.New("disk full")}
	service := NewSuggested(Deps{LLM: completer, Store: recorder})
	output, err := service.Process(context.Background(), testIdea(), idea.Actor{ID: uuid.New()}, Parameters{})
	if err != nil {
		t.Fatalf("Process should tolerate audit failures: %v", err)
	}
	if output["summary"] != "ok" {
		t.Fatalf("output = %+v", output)
	}
}
