package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"muse/internal/idea"
	"muse/internal/orchestrator"
	"muse/internal/services"
)

type memStore struct {
	items map[uuid.UUID]*idea.Idea
	calls []*idea.AICall

	setStatusCalls  []idea.Stage
	failSetStatusAt int // 1-based call number to fail, 0 = never
}

func newMemStore() *memStore {
	return &memStore{items: make(map[uuid.UUID]*idea.Idea)}
}

func (m *memStore) Create(ctx context.Context, item *idea.Idea) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.Status == "" {
		item.Status = idea.StageDraft
	}
	now := time.Now().UTC()
	item.CreatedAt, item.UpdatedAt = now, now
	copied := *item
	m.items[item.ID] = &copied
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id uuid.UUID) (*idea.Idea, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (m *memStore) List(ctx context.Context, filter idea.ListFilter) ([]*idea.Idea, error) {
	var out []*idea.Idea
	for _, item := range m.items {
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		if !filter.Viewer.CanView(item) {
			continue
		}
		copied := *item
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memStore) Update(ctx context.Context, item *idea.Idea) error {
	if _, ok := m.items[item.ID]; !ok {
		return errors.New("idea not found")
	}
	copied := *item
	m.items[item.ID] = &copied
	return nil
}

func (m *memStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, ok := m.items[id]; !ok {
		return false, nil
	}
	delete(m.items, id)
	return true, nil
}

func (m *memStore) SetStatus(ctx context.Context, id uuid.UUID, status idea.Stage) error {
	m.setStatusCalls = append(m.setStatusCalls, status)
	if m.failSetStatusAt > 0 && len(m.setStatusCalls) == m.failSetStatusAt {
		return errors.New("database is locked")
	}
	item, ok := m.items[id]
	if !ok {
		return errors.New("idea not found")
	}
	item.Status = status
	return nil
}

func (m *memStore) Stats(ctx context.Context) (map[idea.Stage]int, error) {
	stats := make(map[idea.Stage]int)
	for _, item := range m.items {
		stats[item.Status]++
	}
	return stats, nil
}

func (m *memStore) RecordAICall(ctx context.Context, call *idea.AICall) error {
	call.ID = int64(len(m.calls) + 1)
	m.calls = append(m.calls, call)
	return nil
}

func (m *memStore) AICallsForIdea(ctx context.Context, ideaID uuid.UUID) ([]*idea.AICall, error) {
	var out []*idea.AICall
	for _, call := range m.calls {
		if call.IdeaID == ideaID {
			out = append(out, call)
		}
	}
	return out, nil
}

type stubCompleter struct {
	content string
	err     error
}

func (s *stubCompleter) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return s.content, s.err
}

type captureNotifier struct {
	transitionsCompleted int
	transitionsFailed    int
	compensationFailures int
	errorsSent           int
}

func (c *captureNotifier) NotifyTransitionCompleted(context.Context, string, idea.Stage, idea.Stage) error {
	c.transitionsCompleted++
	return nil
}

func (c *captureNotifier) NotifyTransitionFailed(context.Context, string, idea.Stage, idea.Stage, string) error {
	c.transitionsFailed++
	return nil
}

func (c *captureNotifier) NotifyCompensationFailure(context.Context, string, idea.Stage) error {
	c.compensationFailures++
	return nil
}

func (c *captureNotifier) NotifyError(context.Context, error, string) error {
	c.errorsSent++
	return nil
}

func (c *captureNotifier) TestNotification(context.Context) error { return nil }

type fixture struct {
	store    *memStore
	notifier *captureNotifier
	service  *IdeaService
}

func newFixture(completer *stubCompleter) *fixture {
	store := newMemStore()
	notifier := &captureNotifier{}
	return &fixture{
		store:    store,
		notifier: notifier,
		service:  NewIdeaService(store, completer, notifier, nil, "test/model"),
	}
}

func (f *fixture) seed(t *testing.T, creator uuid.UUID, status idea.Stage) *idea.Idea {
	t.Helper()
	item := &idea.Idea{Title: "Solar kiosk", Status: status, CreatorID: creator}
	if err := f.store.Create(context.Background(), item); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return item
}

func TestCreateIdea(t *testing.T) {
	f := newFixture(&stubCompleter{content: "{}"})
	actor := idea.Actor{ID: uuid.New()}

	item, err := f.service.Create(context.Background(), actor, CreateIdeaRequest{Title: "  Solar kiosk  ", Tags: "energy"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if item.Title != "Solar kiosk" || item.Status != idea.StageDraft || item.CreatorID != actor.ID {
		t.Fatalf("item = %+v", item)
	}

	if _, err := f.service.Create(context.Background(), actor, CreateIdeaRequest{Title: "  "}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("blank title should fail validation, got %v", err)
	}
	if _, err := f.service.Create(context.Background(), actor, CreateIdeaRequest{Title: "x", Status: "published"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("bad status should fail validation, got %v", err)
	}
}

func TestGetPermissions(t *testing.T) {
	f := newFixture(&stubCompleter{content: "{}"})
	creator := uuid.New()
	item := f.seed(t, creator, idea.StageDraft)

	if _, err := f.service.Get(context.Background(), idea.Actor{ID: creator}, item.ID); err != nil {
		t.Fatalf("creator Get: %v", err)
	}
	if _, err := f.service.Get(context.Background(), idea.Actor{ID: uuid.New()}, item.ID); !errors.Is(err, services.ErrPermission) {
		t.Fatalf("stranger Get should be denied, got %v", err)
	}
	if _, err := f.service.Get(context.Background(), idea.Actor{ID: uuid.New(), Admin: true}, item.ID); err != nil {
		t.Fatalf("admin Get: %v", err)
	}
	if _, err := f.service.Get(context.Background(), idea.Actor{ID: creator}, uuid.New()); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("missing idea should be not found, got %v", err)
	}
}

func TestListRejectsInvalidStatus(t *testing.T) {
	f := newFixture(&stubCompleter{content: "{}"})
	_, err := f.service.List(context.Background(), idea.Actor{ID: uuid.New()}, ListRequest{Status: "published"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdatePartial(t *testing.T) {
	f := newFixture(&stubCompleter{content: "{}"})
	creator := uuid.New()
	item := f.seed(t, creator, idea.StageDraft)

	title := "Solar kiosk v2"
	public := true
	updated, err := f.service.Update(context.Background(), idea.Actor{ID: creator}, item.ID, UpdateIdeaRequest{Title: &title, IsPublic: &public})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != title || !updated.IsPublic || updated.Status != idea.StageDraft {
		t.Fatalf("updated = %+v", updated)
	}

	_, err = f.service.Update(context.Background(), idea.Actor{ID: uuid.New()}, item.ID, UpdateIdeaRequest{Title: &title})
	if !errors.Is(err, services.ErrPermission) {
		t.Fatalf("stranger Update should be denied, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(&stubCompleter{content: "{}"})
	creator := uuid.New()
	item := f.seed(t, creator, idea.StageDraft)

	if err := f.service.Delete(context.Background(), idea.Actor{ID: uuid.New()}, item.ID); !errors.Is(err, services.ErrPermission) {
		t.Fatalf("stranger Delete should be denied, got %v", err)
	}
	if err := f.service.Delete(context.Background(), idea.Actor{ID: creator}, item.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := f.service.Delete(context.Background(), idea.Actor{ID: creator}, item.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("second Delete should be not found, got %v", err)
	}
}

func TestProcessOutcomes(t *testing.T) {
	f := newFixture(&stubCompleter{content: `{"summary":"ok"}`})
	creator := uuid.New()
	item := f.seed(t, creator, idea.StageSuggested)
	actor := idea.Actor{ID: creator}

	outcome, err := f.service.Process(context.Background(), actor, item.ID, ProcessRequest{Stage: "Suggested"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !outcome.Success || outcome.Stage != idea.StageSuggested || outcome.AIOutput["summary"] != "ok" {
		t.Fatalf("outcome = %+v", outcome)
	}
	if len(f.store.calls) != 1 {
		t.Fatalf("expected a recorded model call, got %d", len(f.store.calls))
	}

	_, err = f.service.Process(context.Background(), actor, item.ID, ProcessRequest{Stage: "published"})
	if !errors.Is(err, orchestrator.ErrUnknownStage) {
		t.Fatalf("expected ErrUnknownStage, got %v", err)
	}

	got, _ := f.store.GetByID(context.Background(), item.ID)
	if got.Status != idea.StageSuggested {
		t.Fatal("Process must not change the idea status")
	}
}

func TestProcessFailureIsOutcome(t *testing.T) {
	f := newFixture(&stubCompleter{err: errors.New("model unavailable")})
	creator := uuid.New()
	item := f.seed(t, creator, idea.StageSuggested)

	outcome, err := f.service.Process(context.Background(), idea.Actor{ID: creator}, item.ID, ProcessRequest{Stage: "deep_dive"})
	if err != nil {
		t.Fatalf("processing failures must not surface as errors: %v", err)
	}
	if outcome.Success || outcome.Error == "" {
		t.Fatalf("outcome = %+v", outcome)
	}
}

func TestTransitionSuccessCommitsStatus(t *testing.T) {
	f := newFixture(&stubCompleter{content: `{"summary":"ok"}`})
	creator := uuid.New()
	item := f.seed(t, creator, idea.StageSuggested)
	actor := idea.Actor{ID: creator}

	outcome, err := f.service.Transition(context.Background(), actor, item.ID, TransitionRequest{NewStage: "deep_dive"})
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if !outcome.Success {
		t.Fatalf("outcome = %+v", outcome)
	}
	tr := outcome.Transition
	if tr.FromStage != idea.StageSuggested || tr.ToStage != idea.StageDeepDive || tr.TriggeredBy != actor.ID {
		t.Fatalf("transition = %+v", tr)
	}

	got, _ := f.store.GetByID(context.Background(), item.ID)
	if got.Status != idea.StageDeepDive {
		t.Fatalf("status = %q, want deep_dive", got.Status)
	}
	if f.notifier.transitionsCompleted != 1 {
		t.Fatalf("expected 1 completion notification, got %d", f.notifier.transitionsCompleted)
	}
}

func TestTransitionFailureRollsBackStatus(t *testing.T) {
	f := newFixture(&stubCompleter{err: errors.New("model unavailable")})
	creator := uuid.New()
	item := f.seed(t, creator, idea.StageSuggested)
	actor := idea.Actor{ID: creator}

	outcome, err := f.service.Transition(context.Background(), actor, item.ID, TransitionRequest{NewStage: "deep_dive"})
	if err != nil {
		t.Fatalf("failed transitions must return an outcome: %v", err)
	}
	if outcome.Success {
		t.Fatal("outcome should be unsuccessful")
	}
	if outcome.Transition.FromStage != idea.StageSuggested || outcome.Transition.ToStage != idea.StageDeepDive {
		t.Fatalf("transition = %+v", outcome.Transition)
	}

	got, _ := f.store.GetByID(context.Background(), item.ID)
	if got.Status != idea.StageSuggested {
		t.Fatalf("status = %q, want rollback to suggested", got.Status)
	}
	if len(f.store.setStatusCalls) != 2 {
		t.Fatalf("expected commit then revert, got %v", f.store.setStatusCalls)
	}
	if f.notifier.transitionsFailed != 1 {
		t.Fatalf("expected 1 failure notification, got %d", f.notifier.transitionsFailed)
	}
}

func TestTransitionUnknownStageLeavesStatusUntouched(t *testing.T) {
	f := newFixture(&stubCompleter{content: "{}"})
	creator := uuid.New()
	item := f.seed(t, creator, idea.StageSuggested)

	_, err := f.service.Transition(context.Background(), idea.Actor{ID: creator}, item.ID, TransitionRequest{NewStage: "published"})
	if !errors.Is(err, orchestrator.ErrUnknownStage) {
		t.Fatalf("expected ErrUnknownStage, got %v", err)
	}
	if len(f.store.setStatusCalls) != 0 {
		t.Fatalf("unknown stage must not touch the store, got %v", f.store.setStatusCalls)
	}
}

func TestTransitionCompensationFailure(t *testing.T) {
	f := newFixture(&stubCompleter{err: errors.New("model unavailable")})
	creator := uuid.New()
	item := f.seed(t, creator, idea.StageSuggested)
	f.store.failSetStatusAt = 2 // commit succeeds, revert fails

	_, err := f.service.Transition(context.Background(), idea.Actor{ID: creator}, item.ID, TransitionRequest{NewStage: "deep_dive"})
	if !errors.Is(err, services.ErrCompensation) {
		t.Fatalf("expected compensation error, got %v", err)
	}

	got, _ := f.store.GetByID(context.Background(), item.ID)
	if got.Status != idea.StageDeepDive {
		t.Fatalf("idea should be stuck in the committed stage, got %q", got.Status)
	}
	if f.notifier.compensationFailures != 1 {
		t.Fatalf("expected 1 compensation alert, got %d", f.notifier.compensationFailures)
	}
}
