// Package agent is the conversation orchestrator: it drives the
// multi-round tool-calling loop against the LLM, persists every turn to
// the message log, and advances the service workflow step machine.
package agent

import (
	"github.com/salonkit/salonkit/internal/conversation"
)

// UI hints the assistant can attach to a turn. The frontend maps them
// to dedicated components.
const (
	UIHintNone           = "none"
	UIHintCustomerCard   = "show_customer_card"
	UIHintDesignPreview  = "show_design_preview"
	UIHintUploadButton   = "show_upload_button"
	UIHintAnalysisResult = "show_analysis_result"
	UIHintFinalSummary   = "show_final_summary"
)

// Upload purposes accepted by HandleUpload.
const (
	UploadInspiration = "inspiration"
	UploadActual      = "actual"
)

// AssistantTurn is the wire shape of one assistant response.
type AssistantTurn struct {
	MessageText      string               `json:"message_text"`
	QuickReplies     []string             `json:"quick_replies"`
	UIHint           string               `json:"ui_hint"`
	UIData           map[string]any       `json:"ui_data,omitempty"`
	NeedsImageUpload bool                 `json:"needs_image_upload"`
	StepComplete     bool                 `json:"step_complete"`
	CurrentStep      string               `json:"current_step"`
	Context          conversation.Context `json:"context"`
}

// answer is the JSON object the model is instructed to emit as its
// final reply each turn.
type answer struct {
	MessageText      string         `json:"message_text"`
	StepSummary      string         `json:"step_summary"`
	StepComplete     bool           `json:"step_complete"`
	QuickReplies     []string       `json:"quick_replies"`
	UIHint           string         `json:"ui_hint"`
	UIData           map[string]any `json:"ui_data"`
	NeedsImageUpload bool           `json:"needs_image_upload"`
}

// uiMetadata is the presentation block stored alongside final assistant
// messages in the log.
type uiMetadata struct {
	QuickReplies     []string       `json:"quick_replies"`
	UIHint           string         `json:"ui_hint"`
	UIData           map[string]any `json:"ui_data,omitempty"`
	NeedsImageUpload bool           `json:"needs_image_upload"`
}
