package stage

import (
	"context"
	"strings"

	"muse/internal/idea"
)

const deepDiveSystemPrompt = `You are a research analyst producing a deep dive on an idea.
Investigate the market, technical feasibility, and risks. Respond with JSON only, using this shape:
{"summary": string, "market_analysis": string, "technical_feasibility": string, "risks": [string], "open_questions": [string]}`

type deepDiveService struct {
	deps Deps
}

// NewDeepDive builds the service for the deep_dive stage.
func NewDeepDive(deps Deps) Service {
	return &deepDiveService{deps: deps}
}

func (s *deepDiveService) StageName() idea.Stage {
	return idea.StageDeepDive
}

func (s *deepDiveService) Process(ctx context.Context, item *idea.Idea, actor idea.Actor, params Parameters) (Output, error) {
	if err := validateItem(idea.StageDeepDive, item); err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(promptContext(item))
	writeSection(&b, "Background", params.Background)
	writeSection(&b, "Goals", params.Goals)
	writeSection(&b, "Feasibility data", params.FeasibilityData)
	b.WriteString("Produce a deep dive analysis of this idea.")

	return s.deps.complete(ctx, item, actor, idea.StageDeepDive, deepDiveSystemPrompt, b.String())
}
