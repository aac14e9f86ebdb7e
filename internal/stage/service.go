package stage

import (
	"context"
	"log/slog"
	"strings"

	"muse/internal/idea"
	"muse/internal/logging"
	"muse/internal/services"
	"muse/internal/services/llm"
)

// Output is the structured analysis a stage service produces for an idea.
type Output map[string]any

// Completer issues JSON-only chat completions.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Recorder persists an audit record for each completed model call.
type Recorder interface {
	RecordAICall(ctx context.Context, call *idea.AICall) error
}

// Deps carries the collaborators shared by every stage service.
type Deps struct {
	LLM    Completer
	Store  Recorder
	Logger *slog.Logger
	Model  string
}

// Service analyzes an idea for one lifecycle stage.
type Service interface {
	// StageName reports the stage this service handles.
	StageName() idea.Stage
	// Process runs the stage analysis and returns its structured output.
	Process(ctx context.Context, item *idea.Idea, actor idea.Actor, params Parameters) (Output, error)
}

const excerptLimit = 512

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return logging.NewNop()
}

// complete runs the shared stage pipeline: call the model, decode the JSON
// payload, and record the audit entry.
func (d Deps) complete(ctx context.Context, item *idea.Idea, actor idea.Actor, stage idea.Stage, systemPrompt, userPrompt string) (Output, error) {
	if d.LLM == nil {
		return nil, services.Wrap(services.ErrConfiguration, "stage", string(stage), "llm client not configured", nil)
	}

	content, err := d.LLM.CompleteJSON(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, services.Wrap(services.ErrProcessing, "stage", string(stage), "complete stage analysis", err)
	}

	var output Output
	if err := llm.DecodeJSON(content, &output); err != nil {
		return nil, services.Wrap(services.ErrProcessing, "stage", string(stage), "decode stage analysis", err)
	}

	if d.Store != nil {
		call := &idea.AICall{
			IdeaID:  item.ID,
			ActorID: actor.ID,
			Stage:   stage,
			Model:   d.Model,
			Excerpt: excerpt(content),
		}
		if err := d.Store.RecordAICall(ctx, call); err != nil {
			d.logger().WarnContext(ctx, "failed to record model call",
				logging.String(logging.FieldComponent, "stage"),
				logging.String(logging.FieldStage, string(stage)),
				logging.String(logging.FieldIdeaID, item.ID.String()),
				logging.Error(err))
		}
	}

	d.logger().InfoContext(ctx, "stage analysis completed",
		logging.String(logging.FieldComponent, "stage"),
		logging.String(logging.FieldStage, string(stage)),
		logging.String(logging.FieldIdeaID, item.ID.String()))
	return output, nil
}

func validateItem(stage idea.Stage, item *idea.Idea) error {
	if item == nil {
		return services.Wrap(services.ErrValidation, "stage", string(stage), "idea required", nil)
	}
	return nil
}

func excerpt(content string) string {
	if len(content) <= excerptLimit {
		return content
	}
	return content[:excerptLimit]
}

// promptContext renders the idea fields shared by every stage prompt.
func promptContext(item *idea.Idea) string {
	var b strings.Builder
	writeSection(&b, "Title", item.Title)
	writeSection(&b, "Description", item.Description)
	writeSection(&b, "Current stage", string(item.Status))
	writeSection(&b, "Tags", item.Tags)
	return b.String()
}

func writeSection(b *strings.Builder, label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	b.WriteString(label)
	b.WriteString(":\n")
	b.WriteString(value)
	b.WriteString("\n\n")
}
