package idea

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Stage represents a phase in an idea's lifecycle.
type Stage string

const (
	StageDraft       Stage = "draft"
	StageSuggested   Stage = "suggested"
	StageDeepDive    Stage = "deep_dive"
	StageIterating   Stage = "iterating"
	StageConsidering Stage = "considering"
	StageBuilding    Stage = "building"
	StageClosed      Stage = "closed"
)

var allStages = []Stage{
	StageDraft,
	StageSuggested,
	StageDeepDive,
	StageIterating,
	StageConsidering,
	StageBuilding,
	StageClosed,
}

var stageSet = func() map[Stage]struct{} {
	set := make(map[Stage]struct{}, len(allStages))
	for _, stage := range allStages {
		set[stage] = struct{}{}
	}
	return set
}()

// AllStages returns the ordered list of known lifecycle stages.
func AllStages() []Stage {
	cp := make([]Stage, len(allStages))
	copy(cp, allStages)
	return cp
}

// ParseStage converts a string into a known Stage.
func ParseStage(value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stageSet[normalized]
	return normalized, ok
}

// IsValid reports whether the stage belongs to the fixed lifecycle set.
func (s Stage) IsValid() bool {
	_, ok := stageSet[s]
	return ok
}

// Idea represents an idea persisted in SQLite.
type Idea struct {
	ID          uuid.UUID
	Title       string
	Description string
	Status      Stage
	IsPublic    bool
	Tags        string
	CreatorID   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Actor identifies the subject performing an operation.
type Actor struct {
	ID    uuid.UUID
	Admin bool
}

// CanEdit reports whether the actor may mutate the idea.
func (a Actor) CanEdit(item *Idea) bool {
	if item == nil {
		return false
	}
	return a.Admin || a.ID == item.CreatorID
}

// CanView reports whether the actor may read the idea.
func (a Actor) CanView(item *Idea) bool {
	if item == nil {
		return false
	}
	return item.IsPublic || a.CanEdit(item)
}

// AICall records a single stage service invocation against the LLM backend.
type AICall struct {
	ID        int64
	IdeaID    uuid.UUID
	ActorID   uuid.UUID
	Stage     Stage
	Model     string
	Excerpt   string
	CreatedAt time.Time
}
