package api

import (
	"time"

	"muse/internal/stage"
)

// IdeaDTO is the wire representation of an idea.
type IdeaDTO struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	IsPublic    bool      `json:"is_public"`
	Tags        string    `json:"tags,omitempty"`
	CreatorID   string    `json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateIdeaRequest is the payload for creating an idea.
type CreateIdeaRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	IsPublic    bool   `json:"is_public"`
	Tags        string `json:"tags"`
}

// UpdateIdeaRequest is the payload for a partial idea update. Nil fields
// are left unchanged.
type UpdateIdeaRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	IsPublic    *bool   `json:"is_public"`
	Tags        *string `json:"tags"`
}

// ListRequest filters an idea listing.
type ListRequest struct {
	Status string
	Limit  int
	Offset int
}

// ProcessRequest asks for a stage analysis without changing the idea's
// status.
type ProcessRequest struct {
	Stage string `json:"stage"`
	stage.Parameters
}

// TransitionRequest asks to move an idea to a new stage and run that
// stage's analysis.
type TransitionRequest struct {
	NewStage string `json:"new_stage"`
	stage.Parameters
}

// AICallDTO is the wire representation of a recorded model call.
type AICallDTO struct {
	ID        int64     `json:"id"`
	IdeaID    string    `json:"idea_id"`
	ActorID   string    `json:"actor_id"`
	Stage     string    `json:"stage"`
	Model     string    `json:"model,omitempty"`
	Excerpt   string    `json:"excerpt,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DaemonStatus reports daemon runtime information.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	DatabasePath string         `json:"database_path"`
	LockFilePath string         `json:"lock_file_path"`
	IdeaCounts   map[string]int `json:"idea_counts,omitempty"`
}

// StagesResponse lists the stages that can be processed.
type StagesResponse struct {
	Stages []string `json:"stages"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
