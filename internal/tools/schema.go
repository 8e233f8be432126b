package tools

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Argument structs for each tool. The jsonschema tags drive the wire
// definitions sent to the model.

type searchCustomerArgs struct {
	Query string `json:"query" jsonschema:"required,description=Name or phone number keyword"`
}

type createCustomerArgs struct {
	Name  string `json:"name" jsonschema:"required,description=Customer name"`
	Phone string `json:"phone" jsonschema:"required,description=Phone number"`
	Email string `json:"email,omitempty" jsonschema:"description=Email address (optional)"`
	Notes string `json:"notes,omitempty" jsonschema:"description=Free-form notes (optional)"`
}

type customerDetailArgs struct {
	CustomerID string `json:"customer_id" jsonschema:"required,description=Customer id"`
}

type generateDesignArgs struct {
	Prompt          string   `json:"prompt" jsonschema:"required,description=Design description: style colors and patterns"`
	CustomerID      string   `json:"customer_id,omitempty" jsonschema:"description=Customer id for preference lookup (optional)"`
	ReferenceImages []string `json:"reference_images,omitempty" jsonschema:"description=Reference image paths (optional)"`
	StyleKeywords   []string `json:"style_keywords,omitempty" jsonschema:"description=Style keywords (optional)"`
	DesignTarget    string   `json:"design_target,omitempty" jsonschema:"enum=single,enum=5nails,enum=10nails,description=Design scope (default 10nails)"`
}

type refineDesignArgs struct {
	DesignID    string `json:"design_id" jsonschema:"required,description=Design plan id to refine"`
	Instruction string `json:"instruction" jsonschema:"required,description=Refinement instruction such as 'deeper pink' or 'remove the rhinestones'"`
}

type createServiceRecordArgs struct {
	CustomerID   string `json:"customer_id" jsonschema:"required,description=Customer id"`
	DesignPlanID string `json:"design_plan_id,omitempty" jsonschema:"description=Design plan id (optional)"`
	ServiceDate  string `json:"service_date,omitempty" jsonschema:"description=Service date YYYY-MM-DD (defaults to today)"`
}

type completeServiceArgs struct {
	ServiceID            string `json:"service_id" jsonschema:"required,description=Service record id"`
	ActualImagePath      string `json:"actual_image_path,omitempty" jsonschema:"description=Uploaded result photo path (optional if already uploaded)"`
	ServiceDuration      int    `json:"service_duration,omitempty" jsonschema:"description=Duration in minutes (optional)"`
	MaterialsUsed        string `json:"materials_used,omitempty" jsonschema:"description=Materials used (optional)"`
	ArtistReview         string `json:"artist_review,omitempty" jsonschema:"description=Artist's own review (optional)"`
	CustomerFeedback     string `json:"customer_feedback,omitempty" jsonschema:"description=Customer feedback (optional)"`
	CustomerSatisfaction int    `json:"customer_satisfaction,omitempty" jsonschema:"description=Customer satisfaction 1-5 (optional)"`
}

type runAnalysisArgs struct {
	ServiceID string `json:"service_id" jsonschema:"required,description=Service record id"`
}

type abilitySummaryArgs struct{}

type listInspirationsArgs struct {
	Search   string `json:"search,omitempty" jsonschema:"description=Title or tag keyword (optional)"`
	Category string `json:"category,omitempty" jsonschema:"description=Category filter (optional)"`
}

// schemaByName maps tool names to their reflected parameter schemas.
var schemaByName = map[string]json.RawMessage{
	"search_customer":       schemaFor[searchCustomerArgs](),
	"create_customer":       schemaFor[createCustomerArgs](),
	"get_customer_detail":   schemaFor[customerDetailArgs](),
	"generate_design":       schemaFor[generateDesignArgs](),
	"refine_design":         schemaFor[refineDesignArgs](),
	"create_service_record": schemaFor[createServiceRecordArgs](),
	"complete_service":      schemaFor[completeServiceArgs](),
	"run_analysis":          schemaFor[runAnalysisArgs](),
	"get_ability_summary":   schemaFor[abilitySummaryArgs](),
	"list_inspirations":     schemaFor[listInspirationsArgs](),
}

// schemaFor reflects an argument struct into a JSON schema object.
func schemaFor[T any]() json.RawMessage {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)

	raw, err := schema.MarshalJSON()
	if err != nil {
		panic(err)
	}

	// Strip the reflector's envelope fields; the model only needs the
	// object schema itself.
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		panic(err)
	}
	delete(m, "$schema")
	delete(m, "$id")
	if m["properties"] == nil {
		m["properties"] = map[string]any{}
	}

	out, err := json.Marshal(m)
	if err != nil {
		panic(err)
	}
	return out
}
