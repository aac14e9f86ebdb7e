package stage

// Parameters carries the optional caller-supplied context for a stage run.
// Each stage reads only the fields relevant to it and ignores the rest.
type Parameters struct {
	Background          string `json:"background,omitempty"`
	ProsCons            string `json:"pros_cons,omitempty"`
	Goals               string `json:"goals,omitempty"`
	FeasibilityData     string `json:"feasibility_data,omitempty"`
	CurrentIteration    string `json:"current_iteration,omitempty"`
	Feedback            string `json:"feedback,omitempty"`
	StakeholderFeedback string `json:"stakeholder_feedback,omitempty"`
	BusinessCase        string `json:"business_case,omitempty"`
	Resources           string `json:"resources,omitempty"`
	ImplementationPlan  string `json:"implementation_plan,omitempty"`
	Timeline            string `json:"timeline,omitempty"`
	Metrics             string `json:"metrics,omitempty"`
	Outcome             string `json:"outcome,omitempty"`
	LessonsLearned      string `json:"lessons_learned,omitempty"`
}
