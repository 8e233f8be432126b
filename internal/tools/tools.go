// Package tools exposes the salon's business operations to the LLM as
// function-calling tools. Tool failures never surface as Go errors; the
// executor reports them back to the model as JSON so the conversation
// can recover.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/salonkit/salonkit/internal/abilities"
	"github.com/salonkit/salonkit/internal/analysis"
	"github.com/salonkit/salonkit/internal/conversation"
	"github.com/salonkit/salonkit/internal/customers"
	"github.com/salonkit/salonkit/internal/designs"
	"github.com/salonkit/salonkit/internal/inspirations"
	"github.com/salonkit/salonkit/internal/llm"
	"github.com/salonkit/salonkit/internal/records"
)

// Deps are the domain stores the tools operate on.
type Deps struct {
	Customers    *customers.Store
	Designs      *designs.Store
	Records      *records.Store
	Abilities    *abilities.Store
	Analyzer     *analysis.Analyzer
	Inspirations *inspirations.Store
}

// Call carries the per-invocation state a handler may read and mutate.
// Handlers that create business objects record their ids in the
// conversation context so later steps can pick them up.
type Call struct {
	OwnerID      string
	Conversation *conversation.Conversation
}

// Handler executes one tool invocation.
type Handler func(ctx context.Context, call *Call, args json.RawMessage) (any, error)

// Tool is a registered tool with its wire definition.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
	handler     Handler
}

// Registry holds the tool set exposed to the model.
type Registry struct {
	tools  []Tool
	byName map[string]*Tool
}

// NewRegistry builds the full salon tool set.
func NewRegistry(deps Deps) *Registry {
	r := &Registry{byName: make(map[string]*Tool)}

	register(r, "search_customer",
		"Search existing customers by name or phone number, returns matches.",
		deps.searchCustomer)
	register(r, "create_customer",
		"Create a new customer record. Requires name and phone.",
		deps.createCustomer)
	register(r, "get_customer_detail",
		"Fetch one customer's details including their preference profile.",
		deps.getCustomerDetail)
	register(r, "generate_design",
		"Generate a nail design image with AI. Takes 30-60 seconds; tell the user it is in progress before calling.",
		deps.generateDesign)
	register(r, "refine_design",
		"Refine an existing design plan with AI, producing a new version.",
		deps.refineDesign)
	register(r, "create_service_record",
		"Open today's service record linking a customer and optionally a design plan.",
		deps.createServiceRecord)
	register(r, "complete_service",
		"Complete a service record with the actual result photo, duration and review.",
		deps.completeService)
	register(r, "run_analysis",
		"Run AI comparison of the design plan against the actual result, producing dimension scores. Takes 20-40 seconds.",
		deps.runAnalysis)
	register(r, "get_ability_summary",
		"Get the artist's skill summary: strongest and weakest dimensions.",
		deps.abilitySummary)
	register(r, "list_inspirations",
		"Search the inspiration image library for reference images.",
		deps.listInspirations)

	return r
}

// Definitions returns the tool set in the LLM wire format.
func (r *Registry) Definitions() []llm.Tool {
	defs := make([]llm.Tool, len(r.tools))
	for i, tool := range r.tools {
		defs[i] = llm.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.Parameters,
		}
	}
	return defs
}

// Execute runs one tool call and returns its JSON result. All failure
// modes, including unknown tools and malformed arguments, come back as
// a {"error": ...} payload rather than an error.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage, call *Call) string {
	tool, ok := r.byName[name]
	if !ok {
		return errorJSON(fmt.Sprintf("unknown tool: %s", name))
	}
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	result, err := tool.handler(ctx, call, args)
	if err != nil {
		log.Printf("tools: %s failed: %v", name, err)
		return errorJSON(fmt.Sprintf("tool execution failed: %v", err))
	}

	payload, err := json.Marshal(result)
	if err != nil {
		log.Printf("tools: %s produced unmarshallable result: %v", name, err)
		return errorJSON("tool produced an invalid result")
	}
	return string(payload)
}

func register(r *Registry, name, description string, handler Handler) {
	r.tools = append(r.tools, Tool{
		Name:        name,
		Description: description,
		Parameters:  schemaByName[name],
		handler:     handler,
	})
	r.byName[name] = &r.tools[len(r.tools)-1]
}

func errorJSON(message string) string {
	payload, _ := json.Marshal(map[string]string{"error": message})
	return string(payload)
}
