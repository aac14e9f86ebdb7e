package stage

import (
	"context"
	"strings"

	"muse/internal/idea"
)

const closedSystemPrompt = `You are writing the retrospective for an idea that has been closed.
Summarize what happened and what future work should learn from it. Respond with JSON only, using this shape:
{"summary": string, "outcome_assessment": string, "lessons_learned": [string], "follow_up_ideas": [string]}`

type closedService struct {
	deps Deps
}

// NewClosed builds the service for the closed stage.
func NewClosed(deps Deps) Service {
	return &closedService{deps: deps}
}

func (s *closedService) StageName() idea.Stage {
	return idea.StageClosed
}

func (s *closedService) Process(ctx context.Context, item *idea.Idea, actor idea.Actor, params Parameters) (Output, error) {
	if err := validateItem(idea.StageClosed, item); err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(promptContext(item))
	writeSection(&b, "Outcome", params.Outcome)
	writeSection(&b, "Lessons learned", params.LessonsLearned)
	writeSection(&b, "Final metrics", params.Metrics)
	b.WriteString("Write the retrospective for this idea.")

	return s.deps.complete(ctx, item, actor, idea.StageClosed, closedSystemPrompt, b.String())
}
