package stage

import (
	"context"
	"strings"

	"muse/internal/idea"
)

const iteratingSystemPrompt = `You are a product coach guiding an idea through iteration.
Weigh the feedback received so far and propose the next revision. Respond with JSON only, using this shape:
{"summary": string, "feedback_themes": [string], "proposed_changes": [string], "experiments": [string]}`

type iteratingService struct {
	deps Deps
}

// NewIterating builds the service for the iterating stage.
func NewIterating(deps Deps) Service {
	return &iteratingService{deps: deps}
}

func (s *iteratingService) StageName() idea.Stage {
	return idea.StageIterating
}

func (s *iteratingService) Process(ctx context.Context, item *idea.Idea, actor idea.Actor, params Parameters) (Output, error) {
	if err := validateItem(idea.StageIterating, item); err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(promptContext(item))
	writeSection(&b, "Current iteration", params.CurrentIteration)
	writeSection(&b, "Feedback", params.Feedback)
	writeSection(&b, "Stakeholder feedback", params.StakeholderFeedback)
	b.WriteString("Recommend how to iterate on this idea.")

	return s.deps.complete(ctx, item, actor, idea.StageIterating, iteratingSystemPrompt, b.String())
}
