package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/salonkit/salonkit/internal/customers"
	"github.com/salonkit/salonkit/internal/designs"
	"github.com/salonkit/salonkit/internal/inspirations"
	"github.com/salonkit/salonkit/internal/records"
)

func (d Deps) searchCustomer(ctx context.Context, call *Call, raw json.RawMessage) (any, error) {
	var args searchCustomerArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	matches, total, err := d.Customers.Search(ctx, call.OwnerID, args.Query, 5)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return map[string]any{
			"result":    "no matching customers",
			"total":     0,
			"customers": []any{},
		}, nil
	}

	list := make([]map[string]string, len(matches))
	for i, c := range matches {
		list[i] = map[string]string{
			"id":    c.ID,
			"name":  c.Name,
			"phone": c.Phone,
			"notes": c.Notes,
		}
	}
	return map[string]any{
		"result":    "found matching customers",
		"total":     total,
		"customers": list,
	}, nil
}

func (d Deps) createCustomer(ctx context.Context, call *Call, raw json.RawMessage) (any, error) {
	var args createCustomerArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	customer, err := d.Customers.Create(ctx, call.OwnerID, customers.CreateParams{
		Name:  args.Name,
		Phone: args.Phone,
		Email: args.Email,
		Notes: args.Notes,
	})
	if err != nil {
		return nil, err
	}

	call.Conversation.Context.CustomerID = customer.ID
	call.Conversation.Context.CustomerName = customer.Name

	return map[string]any{
		"result":      "customer created",
		"customer_id": customer.ID,
		"name":        customer.Name,
		"phone":       customer.Phone,
	}, nil
}

func (d Deps) getCustomerDetail(ctx context.Context, call *Call, raw json.RawMessage) (any, error) {
	var args customerDetailArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	detail, err := d.Customers.Get(ctx, args.CustomerID, call.OwnerID)
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func (d Deps) generateDesign(ctx context.Context, call *Call, raw json.RawMessage) (any, error) {
	var args generateDesignArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	convCtx := &call.Conversation.Context
	customerID := args.CustomerID
	if customerID == "" {
		customerID = convCtx.CustomerID
	}
	refs := args.ReferenceImages
	if len(refs) == 0 {
		refs = convCtx.InspirationPaths
	}

	plan, err := d.Designs.Generate(ctx, call.OwnerID, designs.GenerateParams{
		Prompt:          args.Prompt,
		CustomerID:      customerID,
		ReferenceImages: refs,
		StyleKeywords:   args.StyleKeywords,
		DesignTarget:    args.DesignTarget,
	})
	if err != nil {
		return nil, err
	}

	convCtx.DesignPlanID = plan.ID
	convCtx.DesignImageURL = plan.GeneratedImagePath

	return map[string]any{
		"result":              "design generated",
		"design_id":           plan.ID,
		"image_url":           plan.GeneratedImagePath,
		"estimated_duration":  plan.EstimatedDuration,
		"difficulty_level":    plan.DifficultyLevel,
		"estimated_materials": plan.EstimatedMaterials,
	}, nil
}

func (d Deps) refineDesign(ctx context.Context, call *Call, raw json.RawMessage) (any, error) {
	var args refineDesignArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	plan, err := d.Designs.Refine(ctx, call.OwnerID, args.DesignID, args.Instruction)
	if err != nil {
		return nil, err
	}

	call.Conversation.Context.DesignPlanID = plan.ID
	call.Conversation.Context.DesignImageURL = plan.GeneratedImagePath

	return map[string]any{
		"result":             "design refined",
		"design_id":          plan.ID,
		"version":            plan.Version,
		"image_url":          plan.GeneratedImagePath,
		"estimated_duration": plan.EstimatedDuration,
		"difficulty_level":   plan.DifficultyLevel,
	}, nil
}

func (d Deps) createServiceRecord(ctx context.Context, call *Call, raw json.RawMessage) (any, error) {
	var args createServiceRecordArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	convCtx := &call.Conversation.Context
	customerID := args.CustomerID
	if customerID == "" {
		customerID = convCtx.CustomerID
	}
	designPlanID := args.DesignPlanID
	if designPlanID == "" {
		designPlanID = convCtx.DesignPlanID
	}

	record, err := d.Records.Create(ctx, call.OwnerID, records.CreateParams{
		CustomerID:   customerID,
		DesignPlanID: designPlanID,
		ServiceDate:  args.ServiceDate,
	})
	if err != nil {
		return nil, err
	}

	convCtx.ServiceRecordID = record.ID

	return map[string]any{
		"result":         "service record created",
		"service_id":     record.ID,
		"customer_id":    record.CustomerID,
		"design_plan_id": record.DesignPlanID,
		"service_date":   record.ServiceDate,
		"status":         record.Status,
	}, nil
}

func (d Deps) completeService(ctx context.Context, call *Call, raw json.RawMessage) (any, error) {
	var args completeServiceArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	convCtx := &call.Conversation.Context
	serviceID := args.ServiceID
	if serviceID == "" {
		serviceID = convCtx.ServiceRecordID
	}
	imagePath := args.ActualImagePath
	if imagePath == "" {
		imagePath = convCtx.ActualImagePath
	}
	if imagePath == "" {
		return nil, errors.New("no result photo uploaded yet; ask the user to upload one first")
	}

	record, err := d.Records.Complete(ctx, serviceID, call.OwnerID, records.CompletionParams{
		ActualImagePath:      imagePath,
		ServiceDuration:      args.ServiceDuration,
		MaterialsUsed:        args.MaterialsUsed,
		ArtistReview:         args.ArtistReview,
		CustomerFeedback:     args.CustomerFeedback,
		CustomerSatisfaction: args.CustomerSatisfaction,
	})
	if err != nil {
		return nil, err
	}

	convCtx.ActualImagePath = imagePath

	result := map[string]any{
		"result":           "service completed",
		"service_id":       record.ID,
		"status":           record.Status,
		"service_duration": record.ServiceDuration,
	}
	if record.CompletedAt != nil {
		result["completed_at"] = record.CompletedAt.Format("2006-01-02T15:04:05Z")
	}
	return result, nil
}

func (d Deps) runAnalysis(ctx context.Context, call *Call, raw json.RawMessage) (any, error) {
	var args runAnalysisArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	convCtx := &call.Conversation.Context
	serviceID := args.ServiceID
	if serviceID == "" {
		serviceID = convCtx.ServiceRecordID
	}

	result, err := d.Analyzer.Analyze(ctx, serviceID, call.OwnerID)
	if err != nil {
		return nil, err
	}

	convCtx.ComparisonResultID = result.ID

	return map[string]any{
		"result":           "analysis complete",
		"comparison_id":    result.ID,
		"similarity_score": result.SimilarityScore,
		"scores":           result.Scores,
		"differences":      result.Differences,
		"suggestions":      result.Suggestions,
	}, nil
}

func (d Deps) abilitySummary(ctx context.Context, call *Call, _ json.RawMessage) (any, error) {
	summary, err := d.Abilities.Summary(ctx, call.OwnerID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"result":  "ability summary",
		"summary": summary,
	}, nil
}

func (d Deps) listInspirations(ctx context.Context, call *Call, raw json.RawMessage) (any, error) {
	var args listInspirationsArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	images, _, err := d.Inspirations.List(ctx, call.OwnerID, inspirations.ListParams{
		Search:   args.Search,
		Category: args.Category,
		Limit:    10,
	})
	if err != nil {
		return nil, err
	}

	list := make([]map[string]string, len(images))
	for i, image := range images {
		list[i] = map[string]string{
			"id":         image.ID,
			"title":      image.Title,
			"image_path": image.ImagePath,
		}
	}
	return map[string]any{
		"result":       "inspiration library",
		"total":        len(list),
		"inspirations": list,
	}, nil
}
