package conversation

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a conversation. Completed and abandoned
// conversations are immutable.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// ErrNotFound is returned when a conversation does not exist or is not
// owned by the caller.
var ErrNotFound = errors.New("conversation not found")

// ErrNotActive is returned when an operation requires an active conversation.
var ErrNotActive = errors.New("conversation is not active")

// Context holds the business identifiers accumulated across workflow steps.
// It is the only state rendered into the model's prompt as structured
// "current business state". The key set is closed: unknown keys in stored
// JSON are ignored on load.
type Context struct {
	CustomerID         string   `json:"customer_id,omitempty"`
	CustomerName       string   `json:"customer_name,omitempty"`
	DesignPlanID       string   `json:"design_plan_id,omitempty"`
	DesignImageURL     string   `json:"design_image_url,omitempty"`
	ServiceRecordID    string   `json:"service_record_id,omitempty"`
	ComparisonResultID string   `json:"comparison_result_id,omitempty"`
	ActualImagePath    string   `json:"actual_image_path,omitempty"`
	InspirationPaths   []string `json:"inspiration_paths,omitempty"`
}

// StepSummary is a short recap of a workflow step, substituting for its
// verbatim history in later prompts.
type StepSummary struct {
	Step    string `json:"step"`
	Summary string `json:"summary"`
}

// Conversation is one end-to-end guided workflow instance between an artist
// and the assistant.
type Conversation struct {
	ID            string        `json:"id"`
	OwnerID       string        `json:"owner_id"`
	Status        Status        `json:"status"`
	CurrentStep   string        `json:"current_step"`
	Context       Context       `json:"context"`
	StepSummaries []StepSummary `json:"step_summaries"`
	FilePath      string        `json:"file_path,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
}

// UpsertSummary replaces the summary entry for the given step, or appends a
// new one if the step has no entry yet. Empty summaries are ignored.
func (c *Conversation) UpsertSummary(step, summary string) {
	if summary == "" {
		return
	}
	for i := range c.StepSummaries {
		if c.StepSummaries[i].Step == step {
			c.StepSummaries[i].Summary = summary
			return
		}
	}
	c.StepSummaries = append(c.StepSummaries, StepSummary{Step: step, Summary: summary})
}
