package stage

import (
	"context"
	"strings"

	"muse/internal/idea"
)

const buildingSystemPrompt = `You are a delivery lead reviewing an idea that is being built.
Check the plan, timeline, and metrics for gaps. Respond with JSON only, using this shape:
{"summary": string, "plan_assessment": string, "milestones": [string], "blockers": [string], "suggested_metrics": [string]}`

type buildingService struct {
	deps Deps
}

// NewBuilding builds the service for the building stage.
func NewBuilding(deps Deps) Service {
	return &buildingService{deps: deps}
}

func (s *buildingService) StageName() idea.Stage {
	return idea.StageBuilding
}

func (s *buildingService) Process(ctx context.Context, item *idea.Idea, actor idea.Actor, params Parameters) (Output, error) {
	if err := validateItem(idea.StageBuilding, item); err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(promptContext(item))
	writeSection(&b, "Implementation plan", params.ImplementationPlan)
	writeSection(&b, "Timeline", params.Timeline)
	writeSection(&b, "Available resources", params.Resources)
	writeSection(&b, "Tracked metrics", params.Metrics)
	b.WriteString("Review the build progress of this idea.")

	return s.deps.complete(ctx, item, actor, idea.StageBuilding, buildingSystemPrompt, b.String())
}
