package api

import "muse/internal/idea"

// ToIdeaDTO maps a domain idea to its wire form.
func ToIdeaDTO(item *idea.Idea) IdeaDTO {
	return IdeaDTO{
		ID:          item.ID.String(),
		Title:       item.Title,
		Description: item.Description,
		Status:      string(item.Status),
		IsPublic:    item.IsPublic,
		Tags:        item.Tags,
		CreatorID:   item.CreatorID.String(),
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}

// ToIdeaDTOs maps a slice of domain ideas to wire form.
func ToIdeaDTOs(items []*idea.Idea) []IdeaDTO {
	out := make([]IdeaDTO, 0, len(items))
	for _, item := range items {
		out = append(out, ToIdeaDTO(item))
	}
	return out
}

// ToAICallDTO maps a recorded model call to wire form.
func ToAICallDTO(call *idea.AICall) AICallDTO {
	return AICallDTO{
		ID:        call.ID,
		IdeaID:    call.IdeaID.String(),
		ActorID:   call.ActorID.String(),
		Stage:     string(call.Stage),
		Model:     call.Model,
		Excerpt:   call.Excerpt,
		CreatedAt: call.CreatedAt,
	}
}

// ToAICallDTOs maps a slice of recorded model calls to wire form.
func ToAICallDTOs(calls []*idea.AICall) []AICallDTO {
	out := make([]AICallDTO, 0, len(calls))
	for _, call := range calls {
		out = append(out, ToAICallDTO(call))
	}
	return out
}
