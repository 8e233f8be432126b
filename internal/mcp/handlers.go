package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/salonkit/salonkit/internal/customers"
	"github.com/salonkit/salonkit/internal/inspirations"
)

// handleSearchCustomer searches the artist's customer base.
func (s *Server) handleSearchCustomer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", 5)
	if limit <= 0 {
		limit = 5
	}

	matches, total, err := s.customers.Search(ctx, s.ownerID, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if total == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No customers match %q.", query)), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d customer(s):\n", total))
	for _, c := range matches {
		sb.WriteString(fmt.Sprintf("\n- %s (id %s, phone %s)", c.Name, c.ID, c.Phone))
		if c.Notes != "" {
			sb.WriteString("\n  notes: " + c.Notes)
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleGetCustomerDetail returns a customer together with their nail profile.
func (s *Server) handleGetCustomerDetail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	customerID, err := request.RequireString("customer_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: customer_id"), nil
	}

	detail, err := s.customers.Get(ctx, customerID, s.ownerID)
	if err != nil {
		if errors.Is(err, customers.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("no customer with id %q", customerID)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("lookup failed: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s\nphone: %s\n", detail.Name, detail.Phone))
	if detail.Email != "" {
		sb.WriteString("email: " + detail.Email + "\n")
	}
	if detail.Notes != "" {
		sb.WriteString("notes: " + detail.Notes + "\n")
	}
	if p := detail.Profile; p != nil {
		sb.WriteString("profile:\n")
		for _, line := range []struct{ label, value string }{
			{"nail shape", p.NailShape},
			{"nail length", p.NailLength},
			{"color preferences", p.ColorPreferences},
			{"style preferences", p.StylePreferences},
			{"allergies", p.Allergies},
			{"prohibitions", p.Prohibitions},
		} {
			if line.value != "" {
				sb.WriteString(fmt.Sprintf("  %s: %s\n", line.label, line.value))
			}
		}
	} else {
		sb.WriteString("profile: none recorded\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleGetAbilitySummary returns the artist's skill summary.
func (s *Server) handleGetAbilitySummary(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := s.abilities.Summary(ctx, s.ownerID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("summary failed: %v", err)), nil
	}
	if summary.TotalServices == 0 {
		return mcp.NewToolResultText("No analyzed services yet. Skill scores appear after completed services are analyzed."), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Based on %d analyzed service(s):\n", summary.TotalServices))
	if len(summary.Strengths) > 0 {
		sb.WriteString("\nStrengths:\n")
		for _, ds := range summary.Strengths {
			sb.WriteString(fmt.Sprintf("  %s: %.1f\n", ds.Dimension, ds.Score))
		}
	}
	if len(summary.Improvements) > 0 {
		sb.WriteString("\nNeeds improvement:\n")
		for _, ds := range summary.Improvements {
			sb.WriteString(fmt.Sprintf("  %s: %.1f\n", ds.Dimension, ds.Score))
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleListInspirations lists saved inspiration images.
func (s *Server) handleListInspirations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 10)
	if limit <= 0 {
		limit = 10
	}

	images, total, err := s.inspirations.List(ctx, s.ownerID, inspirations.ListParams{
		Search:   request.GetString("search", ""),
		Category: request.GetString("category", ""),
		Limit:    limit,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	if total == 0 {
		return mcp.NewToolResultText("No inspiration images saved yet."), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d image(s):\n", total))
	for _, img := range images {
		sb.WriteString(fmt.Sprintf("\n- %s (id %s)", orUntitled(img.Title), img.ID))
		if img.Category != "" {
			sb.WriteString("\n  category: " + img.Category)
		}
		if len(img.Tags) > 0 {
			sb.WriteString("\n  tags: " + strings.Join(img.Tags, ", "))
		}
		sb.WriteString("\n  path: " + img.ImagePath)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func orUntitled(title string) string {
	if title == "" {
		return "(untitled)"
	}
	return title
}
