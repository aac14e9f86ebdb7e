package stage

import (
	"context"
	"strings"

	"muse/internal/idea"
)

const suggestedSystemPrompt = `You are an innovation analyst reviewing a newly suggested idea.
Assess its originality, audience, and potential. Respond with JSON only, using this shape:
{"summary": string, "strengths": [string], "weaknesses": [string], "similar_ideas": [string], "recommended_next_steps": [string]}`

type suggestedService struct {
	deps Deps
}

// NewSuggested builds the service for the suggested stage.
func NewSuggested(deps Deps) Service {
	return &suggestedService{deps: deps}
}

func (s *suggestedService) StageName() idea.Stage {
	return idea.StageSuggested
}

func (s *suggestedService) Process(ctx context.Context, item *idea.Idea, actor idea.Actor, params Parameters) (Output, error) {
	if err := validateItem(idea.StageSuggested, item); err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(promptContext(item))
	writeSection(&b, "Background", params.Background)
	writeSection(&b, "Known pros and cons", params.ProsCons)
	b.WriteString("Evaluate this idea for the suggested stage.")

	return s.deps.complete(ctx, item, actor, idea.StageSuggested, suggestedSystemPrompt, b.String())
}
