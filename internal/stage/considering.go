package stage

import (
	"context"
	"strings"

	"muse/internal/idea"
)

const consideringSystemPrompt = `You are an investment committee advisor weighing whether an idea should proceed.
Balance the business case against the required resources. Respond with JSON only, using this shape:
{"summary": string, "business_case_assessment": string, "resource_requirements": [string], "recommendation": string, "conditions": [string]}`

type consideringService struct {
	deps Deps
}

// NewConsidering builds the service for the considering stage.
func NewConsidering(deps Deps) Service {
	return &consideringService{deps: deps}
}

func (s *consideringService) StageName() idea.Stage {
	return idea.StageConsidering
}

func (s *consideringService) Process(ctx context.Context, item *idea.Idea, actor idea.Actor, params Parameters) (Output, error) {
	if err := validateItem(idea.StageConsidering, item); err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(promptContext(item))
	writeSection(&b, "Business case", params.BusinessCase)
	writeSection(&b, "Feasibility data", params.FeasibilityData)
	writeSection(&b, "Available resources", params.Resources)
	b.WriteString("Advise whether this idea should proceed to building.")

	return s.deps.complete(ctx, item, actor, idea.StageConsidering, consideringSystemPrompt, b.String())
}
