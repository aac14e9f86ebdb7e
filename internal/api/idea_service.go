package api

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"muse/internal/idea"
	"muse/internal/logging"
	"muse/internal/notifications"
	"muse/internal/orchestrator"
	"muse/internal/services"
	"muse/internal/stage"
)

const defaultListLimit = 50

// IdeaStore is the persistence surface the service needs. *idea.Store
// satisfies it; tests substitute stubs to exercise failure paths.
type IdeaStore interface {
	Create(ctx context.Context, item *idea.Idea) error
	GetByID(ctx context.Context, id uuid.UUID) (*idea.Idea, error)
	List(ctx context.Context, filter idea.ListFilter) ([]*idea.Idea, error)
	Update(ctx context.Context, item *idea.Idea) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	SetStatus(ctx context.Context, id uuid.UUID, status idea.Stage) error
	Stats(ctx context.Context) (map[idea.Stage]int, error)
	RecordAICall(ctx context.Context, call *idea.AICall) error
	AICallsForIdea(ctx context.Context, ideaID uuid.UUID) ([]*idea.AICall, error)
}

// IdeaService implements the idea operations behind the HTTP handlers.
type IdeaService struct {
	store    IdeaStore
	llm      stage.Completer
	notifier notifications.Service
	logger   *slog.Logger
	model    string
}

// NewIdeaService wires the service with its collaborators.
func NewIdeaService(store IdeaStore, completer stage.Completer, notifier notifications.Service, logger *slog.Logger, model string) *IdeaService {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewNoop()
	}
	return &IdeaService{
		store:    store,
		llm:      completer,
		notifier: notifier,
		logger:   logger,
		model:    model,
	}
}

// orchestrate builds a fresh orchestrator per request. Service construction
// is cheap; sharing across requests would only widen the blast radius of a
// misbehaving instance.
func (s *IdeaService) orchestrate() *orchestrator.Orchestrator {
	return orchestrator.New(stage.Deps{
		LLM:    s.llm,
		Store:  s.store,
		Logger: s.logger,
		Model:  s.model,
	})
}

// Stages lists the stages that have a registered analysis service.
func (s *IdeaService) Stages() []idea.Stage {
	return s.orchestrate().AvailableStages()
}

// List returns the ideas visible to the actor, most recent first.
func (s *IdeaService) List(ctx context.Context, actor idea.Actor, req ListRequest) ([]*idea.Idea, error) {
	filter := idea.ListFilter{
		Viewer: actor,
		Offset: req.Offset,
		Limit:  req.Limit,
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if status := strings.TrimSpace(req.Status); status != "" {
		parsed, ok := idea.ParseStage(status)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "api", "list ideas", "invalid status filter: "+status, nil)
		}
		filter.Status = parsed
	}

	items, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "api", "list ideas", "query store", err)
	}
	return items, nil
}

// Get returns one idea if the actor may view it.
func (s *IdeaService) Get(ctx context.Context, actor idea.Actor, id uuid.UUID) (*idea.Idea, error) {
	item, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Create stores a new idea owned by the actor.
func (s *IdeaService) Create(ctx context.Context, actor idea.Actor, req CreateIdeaRequest) (*idea.Idea, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, services.Wrap(services.ErrValidation, "api", "create idea", "title required", nil)
	}

	status := idea.StageDraft
	if raw := strings.TrimSpace(req.Status); raw != "" {
		parsed, ok := idea.ParseStage(raw)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "api", "create idea", "invalid status: "+raw, nil)
		}
		status = parsed
	}

	item := &idea.Idea{
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Status:      status,
		IsPublic:    req.IsPublic,
		Tags:        strings.TrimSpace(req.Tags),
		CreatorID:   actor.ID,
	}
	if err := s.store.Create(ctx, item); err != nil {
		return nil, services.Wrap(services.ErrTransient, "api", "create idea", "persist idea", err)
	}

	s.logger.InfoContext(ctx, "idea created",
		logging.String(logging.FieldComponent, "api"),
		logging.String(logging.FieldIdeaID, item.ID.String()))
	return item, nil
}

// Update applies a partial update if the actor may edit the idea.
func (s *IdeaService) Update(ctx context.Context, actor idea.Actor, id uuid.UUID, req UpdateIdeaRequest) (*idea.Idea, error) {
	item, err := s.loadEditable(ctx, actor, id, "update idea")
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, services.Wrap(services.ErrValidation, "api", "update idea", "title required", nil)
		}
		item.Title = title
	}
	if req.Description != nil {
		item.Description = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		parsed, ok := idea.ParseStage(*req.Status)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "api", "update idea", "invalid status: "+*req.Status, nil)
		}
		item.Status = parsed
	}
	if req.IsPublic != nil {
		item.IsPublic = *req.IsPublic
	}
	if req.Tags != nil {
		item.Tags = strings.TrimSpace(*req.Tags)
	}

	if err := s.store.Update(ctx, item); err != nil {
		return nil, services.Wrap(services.ErrTransient, "api", "update idea", "persist idea", err)
	}
	return item, nil
}

// Delete removes an idea if the actor may edit it.
func (s *IdeaService) Delete(ctx context.Context, actor idea.Actor, id uuid.UUID) error {
	if _, err := s.loadEditable(ctx, actor, id, "delete idea"); err != nil {
		return err
	}
	removed, err := s.store.Delete(ctx, id)
	if err != nil {
		return services.Wrap(services.ErrTransient, "api", "delete idea", "remove idea", err)
	}
	if !removed {
		return services.Wrap(services.ErrNotFound, "api", "delete idea", "idea not found", nil)
	}
	return nil
}

// AICalls lists the recorded model calls for an idea the actor may view.
func (s *IdeaService) AICalls(ctx context.Context, actor idea.Actor, id uuid.UUID) ([]*idea.AICall, error) {
	if _, err := s.loadVisible(ctx, actor, id); err != nil {
		return nil, err
	}
	calls, err := s.store.AICallsForIdea(ctx, id)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "api", "list model calls", "query store", err)
	}
	return calls, nil
}

// Stats reports the number of ideas per stage.
func (s *IdeaService) Stats(ctx context.Context) (map[idea.Stage]int, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "api", "stats", "query store", err)
	}
	return stats, nil
}

// Process runs a stage analysis against an idea without changing its
// status. Unknown stages fail fast; a failed run is reported as an
// unsuccessful outcome.
func (s *IdeaService) Process(ctx context.Context, actor idea.Actor, id uuid.UUID, req ProcessRequest) (orchestrator.ProcessingOutcome, error) {
	item, err := s.loadEditable(ctx, actor, id, "process stage")
	if err != nil {
		return orchestrator.ProcessingOutcome{}, err
	}

	target := normalizeStage(req.Stage)
	return s.orchestrate().ProcessIdeaStage(ctx, item, actor, target, req.Parameters)
}

// Transition moves an idea to a new stage. The status change is committed
// before the stage analysis runs; if the analysis fails the status is
// rolled back, and a rollback failure is surfaced as a compensation error
// that requires manual intervention.
func (s *IdeaService) Transition(ctx context.Context, actor idea.Actor, id uuid.UUID, req TransitionRequest) (orchestrator.TransitionOutcome, error) {
	item, err := s.loadEditable(ctx, actor, id, "transition")
	if err != nil {
		return orchestrator.TransitionOutcome{}, err
	}

	orc := s.orchestrate()
	target := normalizeStage(req.NewStage)
	// Validate the target before touching the store so unknown stages never
	// leave a committed status behind.
	if _, err := orc.Service(target); err != nil {
		return orchestrator.TransitionOutcome{}, err
	}

	fromStage := item.Status
	if err := s.store.SetStatus(ctx, id, target); err != nil {
		return orchestrator.TransitionOutcome{}, services.Wrap(services.ErrTransient, "api", "transition", "commit status", err)
	}

	outcome, err := orc.TriggerStageTransition(ctx, item, actor, target, req.Parameters)
	if err != nil {
		// Unreachable in practice: the target was validated above. Roll the
		// status back all the same.
		if revertErr := s.store.SetStatus(ctx, id, fromStage); revertErr != nil {
			return orchestrator.TransitionOutcome{}, s.compensationFailure(ctx, item, target, revertErr)
		}
		return orchestrator.TransitionOutcome{}, err
	}

	if outcome.Success {
		s.notify(ctx, "transition completed", s.notifier.NotifyTransitionCompleted(ctx, item.Title, fromStage, target))
		s.logger.InfoContext(ctx, "idea transitioned",
			logging.String(logging.FieldComponent, "api"),
			logging.String(logging.FieldIdeaID, item.ID.String()),
			logging.String(logging.FieldStage, string(target)))
		return outcome, nil
	}

	if revertErr := s.store.SetStatus(ctx, id, fromStage); revertErr != nil {
		return orchestrator.TransitionOutcome{}, s.compensationFailure(ctx, item, target, revertErr)
	}

	s.notify(ctx, "transition failed", s.notifier.NotifyTransitionFailed(ctx, item.Title, fromStage, target, outcome.Error))
	s.logger.WarnContext(ctx, "transition rolled back",
		logging.String(logging.FieldComponent, "api"),
		logging.String(logging.FieldIdeaID, item.ID.String()),
		logging.String(logging.FieldStage, string(target)))
	return outcome, nil
}

func (s *IdeaService) compensationFailure(ctx context.Context, item *idea.Idea, stuck idea.Stage, revertErr error) error {
	err := services.Wrap(services.ErrCompensation, "api", "transition", "rollback status", revertErr)
	s.logger.ErrorContext(ctx, "status rollback failed, manual intervention required",
		logging.String(logging.FieldComponent, "api"),
		logging.String(logging.FieldIdeaID, item.ID.String()),
		logging.String(logging.FieldStage, string(stuck)),
		logging.Alert("compensation_failure"),
		logging.Error(revertErr))
	s.notify(ctx, "compensation failure", s.notifier.NotifyCompensationFailure(ctx, item.Title, stuck))
	return err
}

func (s *IdeaService) loadVisible(ctx context.Context, actor idea.Actor, id uuid.UUID) (*idea.Idea, error) {
	item, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "api", "load idea", "query store", err)
	}
	if item == nil {
		return nil, services.Wrap(services.ErrNotFound, "api", "load idea", "idea not found", nil)
	}
	if !actor.CanView(item) {
		return nil, services.Wrap(services.ErrPermission, "api", "load idea", "not allowed", nil)
	}
	return item, nil
}

func (s *IdeaService) loadEditable(ctx context.Context, actor idea.Actor, id uuid.UUID, operation string) (*idea.Idea, error) {
	item, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanEdit(item) {
		return nil, services.Wrap(services.ErrPermission, "api", operation, "not allowed", nil)
	}
	return item, nil
}

func (s *IdeaService) notify(ctx context.Context, label string, err error) {
	if err == nil {
		return
	}
	s.logger.WarnContext(ctx, "notification delivery failed",
		logging.String(logging.FieldComponent, "api"),
		logging.String(logging.FieldEventType, label),
		logging.Error(err))
}

func normalizeStage(raw string) idea.Stage {
	return idea.Stage(strings.ToLower(strings.TrimSpace(raw)))
}
