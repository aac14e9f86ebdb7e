package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"muse/internal/idea"
	"muse/internal/logging"
	"muse/internal/services"
	"muse/internal/stage"
)

// ErrUnknownStage reports a stage name with no registered service. The draft
// stage is deliberately unregistered: drafts are edited, not analyzed.
var ErrUnknownStage = fmt.Errorf("%w: unknown stage", services.ErrValidation)

// stageOrder fixes the presentation order of the serviceable stages.
var stageOrder = []idea.Stage{
	idea.StageSuggested,
	idea.StageDeepDive,
	idea.StageIterating,
	idea.StageConsidering,
	idea.StageBuilding,
	idea.StageClosed,
}

var registry = map[idea.Stage]func(stage.Deps) stage.Service{
	idea.StageSuggested:   stage.NewSuggested,
	idea.StageDeepDive:    stage.NewDeepDive,
	idea.StageIterating:   stage.NewIterating,
	idea.StageConsidering: stage.NewConsidering,
	idea.StageBuilding:    stage.NewBuilding,
	idea.StageClosed:      stage.NewClosed,
}

// Orchestrator dispatches stage processing requests to the registered
// services, constructing each service on first use and reusing it after.
type Orchestrator struct {
	deps stage.Deps

	mu    sync.Mutex
	cache map[idea.Stage]stage.Service
}

// New builds an orchestrator around the shared stage dependencies.
func New(deps stage.Deps) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	return &Orchestrator{
		deps:  deps,
		cache: make(map[idea.Stage]stage.Service, len(registry)),
	}
}

// AvailableStages lists the stages that have a registered service, in
// lifecycle order. Draft is excluded.
func (o *Orchestrator) AvailableStages() []idea.Stage {
	stages := make([]idea.Stage, len(stageOrder))
	copy(stages, stageOrder)
	return stages
}

// Service returns the service for the named stage, constructing it on first
// use. Repeated calls return the same instance. Unknown stages, including
// draft, fail with ErrUnknownStage.
func (o *Orchestrator) Service(name idea.Stage) (stage.Service, error) {
	builder, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStage, name)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if service, ok := o.cache[name]; ok {
		return service, nil
	}
	service := builder(o.deps)
	o.cache[name] = service
	return service, nil
}

// ProcessingOutcome reports the result of one stage run. Exactly one of
// AIOutput and Error is populated, matching Success.
type ProcessingOutcome struct {
	Success  bool         `json:"success"`
	Stage    idea.Stage   `json:"stage"`
	AIOutput stage.Output `json:"ai_output,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// Transition records a stage change request alongside who asked for it.
type Transition struct {
	FromStage   idea.Stage `json:"from_stage"`
	ToStage     idea.Stage `json:"to_stage"`
	TriggeredBy uuid.UUID  `json:"triggered_by"`
}

// TransitionOutcome pairs a stage run with the transition that triggered it.
// The transition is present whether or not the run succeeded.
type TransitionOutcome struct {
	ProcessingOutcome
	Transition Transition `json:"transition"`
}

// ProcessIdeaStage runs the named stage service against the idea. An unknown
// stage fails fast with an error; a service failure is normalized into an
// unsuccessful outcome with the error message preserved.
func (o *Orchestrator) ProcessIdeaStage(ctx context.Context, item *idea.Idea, actor idea.Actor, name idea.Stage, params stage.Parameters) (ProcessingOutcome, error) {
	service, err := o.Service(name)
	if err != nil {
		return ProcessingOutcome{}, err
	}

	ctx = services.WithStage(ctx, string(name))
	if item != nil {
		ctx = services.WithIdeaID(ctx, item.ID.String())
	}

	output, err := service.Process(ctx, item, actor, params)
	if err != nil {
		o.deps.Logger.ErrorContext(ctx, "stage processing failed",
			logging.String(logging.FieldComponent, "orchestrator"),
			logging.String(logging.FieldStage, string(name)),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.Error(err))
		return ProcessingOutcome{Success: false, Stage: name, Error: err.Error()}, nil
	}
	return ProcessingOutcome{Success: true, Stage: name, AIOutput: output}, nil
}

// TriggerStageTransition runs the target stage's service and attaches the
// transition record to the outcome regardless of how the run went. Unknown
// target stages fail fast with an error and no outcome.
func (o *Orchestrator) TriggerStageTransition(ctx context.Context, item *idea.Idea, actor idea.Actor, newStage idea.Stage, params stage.Parameters) (TransitionOutcome, error) {
	var fromStage idea.Stage
	if item != nil {
		fromStage = item.Status
	}

	processing, err := o.ProcessIdeaStage(ctx, item, actor, newStage, params)
	if err != nil {
		return TransitionOutcome{}, err
	}

	return TransitionOutcome{
		ProcessingOutcome: processing,
		Transition: Transition{
			FromStage:   fromStage,
			ToStage:     newStage,
			TriggeredBy: actor.ID,
		},
	}, nil
}
