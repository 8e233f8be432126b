// Package designs manages AI-generated nail design plans and their
// refinement lineage. Image generation itself is delegated to a Renderer
// so the store stays testable without a live image model.
package designs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/salonkit/salonkit/internal/db"
)

var ErrNotFound = errors.New("design plan not found")

// Valid design targets.
const (
	TargetSingle  = "single"
	TargetFive    = "5nails"
	TargetTen     = "10nails"
	DefaultTarget = TargetTen
)

// Plan is one version of a nail design. Refinements create new plans
// linked to their parent, so a design's history forms a version chain.
type Plan struct {
	ID                 string    `json:"id"`
	OwnerID            string    `json:"-"`
	CustomerID         string    `json:"customer_id,omitempty"`
	ParentID           string    `json:"parent_id,omitempty"`
	Version            int       `json:"version"`
	Prompt             string    `json:"prompt"`
	DesignTarget       string    `json:"design_target"`
	StyleKeywords      []string  `json:"style_keywords,omitempty"`
	ReferenceImages    []string  `json:"reference_images,omitempty"`
	GeneratedImagePath string    `json:"generated_image_path"`
	EstimatedDuration  int       `json:"estimated_duration,omitempty"`
	DifficultyLevel    string    `json:"difficulty_level,omitempty"`
	EstimatedMaterials string    `json:"estimated_materials,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// RenderRequest describes one image generation call.
type RenderRequest struct {
	Prompt          string
	ReferenceImages []string
	DesignTarget    string
	// BaseImagePath is set for refinements: the previous version's image.
	BaseImagePath string
	Instruction   string
}

// Estimate is the renderer's assessment of executing a design by hand.
type Estimate struct {
	Duration   int
	Difficulty string
	Materials  string
}

// Renderer produces design images and execution estimates.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) (imagePath string, err error)
	Estimate(ctx context.Context, imagePath string) (Estimate, error)
}

// GenerateParams are the inputs for a fresh design.
type GenerateParams struct {
	Prompt          string
	CustomerID      string
	ReferenceImages []string
	StyleKeywords   []string
	DesignTarget    string
}

// Store persists design plans and drives the renderer.
type Store struct {
	db       *db.DB
	renderer Renderer
}

// NewStore creates a Store backed by the given database and renderer.
func NewStore(database *db.DB, renderer Renderer) *Store {
	return &Store{db: database, renderer: renderer}
}

// Generate renders a new design image and records it as version 1.
func (s *Store) Generate(ctx context.Context, ownerID string, params GenerateParams) (*Plan, error) {
	target := params.DesignTarget
	if target == "" {
		target = DefaultTarget
	}

	imagePath, err := s.renderer.Render(ctx, RenderRequest{
		Prompt:          params.Prompt,
		ReferenceImages: params.ReferenceImages,
		DesignTarget:    target,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering design: %w", err)
	}

	estimate, err := s.renderer.Estimate(ctx, imagePath)
	if err != nil {
		return nil, fmt.Errorf("estimating design: %w", err)
	}

	plan := &Plan{
		ID:                 uuid.New().String(),
		OwnerID:            ownerID,
		CustomerID:         params.CustomerID,
		Version:            1,
		Prompt:             params.Prompt,
		DesignTarget:       target,
		StyleKeywords:      params.StyleKeywords,
		ReferenceImages:    params.ReferenceImages,
		GeneratedImagePath: imagePath,
		EstimatedDuration:  estimate.Duration,
		DifficultyLevel:    estimate.Difficulty,
		EstimatedMaterials: estimate.Materials,
		CreatedAt:          time.Now().UTC(),
	}

	if err := s.insert(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// Refine renders an improved image for an existing plan and records it
// as a new version linked to its parent.
func (s *Store) Refine(ctx context.Context, ownerID, designID, instruction string) (*Plan, error) {
	original, err := s.Get(ctx, designID, ownerID)
	if err != nil {
		return nil, err
	}

	imagePath, err := s.renderer.Render(ctx, RenderRequest{
		Prompt:        original.Prompt,
		DesignTarget:  original.DesignTarget,
		BaseImagePath: original.GeneratedImagePath,
		Instruction:   instruction,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering refinement: %w", err)
	}

	estimate, err := s.renderer.Estimate(ctx, imagePath)
	if err != nil {
		return nil, fmt.Errorf("estimating refinement: %w", err)
	}

	plan := &Plan{
		ID:                 uuid.New().String(),
		OwnerID:            ownerID,
		CustomerID:         original.CustomerID,
		ParentID:           original.ID,
		Version:            original.Version + 1,
		Prompt:             original.Prompt,
		DesignTarget:       original.DesignTarget,
		StyleKeywords:      original.StyleKeywords,
		ReferenceImages:    original.ReferenceImages,
		GeneratedImagePath: imagePath,
		EstimatedDuration:  estimate.Duration,
		DifficultyLevel:    estimate.Difficulty,
		EstimatedMaterials: estimate.Materials,
		CreatedAt:          time.Now().UTC(),
	}

	if err := s.insert(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// Get retrieves a plan by id, scoped to the owner.
func (s *Store) Get(ctx context.Context, id, ownerID string) (*Plan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, customer_id, parent_id, version, prompt,
			   design_target, style_keywords, reference_images,
			   generated_image_path, estimated_duration, difficulty_level,
			   estimated_materials, created_at
		FROM design_plans WHERE id = ? AND owner_id = ?`, id, ownerID)

	plan, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return plan, err
}

// Versions returns a plan's full lineage oldest first by walking
// parent links back to the root and then collecting descendants.
func (s *Store) Versions(ctx context.Context, id, ownerID string) ([]Plan, error) {
	plan, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	for plan.ParentID != "" {
		parent, err := s.Get(ctx, plan.ParentID, ownerID)
		if err != nil {
			return nil, err
		}
		plan = parent
	}

	versions := []Plan{*plan}
	current := plan.ID
	for {
		row := s.db.QueryRowContext(ctx, `
			SELECT id, owner_id, customer_id, parent_id, version, prompt,
				   design_target, style_keywords, reference_images,
				   generated_image_path, estimated_duration, difficulty_level,
				   estimated_materials, created_at
			FROM design_plans WHERE parent_id = ? AND owner_id = ?`, current, ownerID)
		child, err := scanPlan(row)
		if errors.Is(err, sql.ErrNoRows) {
			return versions, nil
		}
		if err != nil {
			return nil, err
		}
		versions = append(versions, *child)
		current = child.ID
	}
}

func (s *Store) insert(ctx context.Context, plan *Plan) error {
	keywords, err := json.Marshal(orEmpty(plan.StyleKeywords))
	if err != nil {
		return fmt.Errorf("marshalling style keywords: %w", err)
	}
	refs, err := json.Marshal(orEmpty(plan.ReferenceImages))
	if err != nil {
		return fmt.Errorf("marshalling reference images: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO design_plans (
			id, owner_id, customer_id, parent_id, version, prompt,
			design_target, style_keywords, reference_images,
			generated_image_path, estimated_duration, difficulty_level,
			estimated_materials, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID, plan.OwnerID, plan.CustomerID, plan.ParentID, plan.Version,
		plan.Prompt, plan.DesignTarget, string(keywords), string(refs),
		plan.GeneratedImagePath, plan.EstimatedDuration, plan.DifficultyLevel,
		plan.EstimatedMaterials, plan.CreatedAt.Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("inserting design plan: %w", err)
	}
	return nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(sc scanner) (*Plan, error) {
	var (
		plan                   Plan
		customerID, parentID   sql.NullString
		keywordsJSON, refsJSON string
		createdAt              string
	)
	err := sc.Scan(
		&plan.ID, &plan.OwnerID, &customerID, &parentID, &plan.Version,
		&plan.Prompt, &plan.DesignTarget, &keywordsJSON, &refsJSON,
		&plan.GeneratedImagePath, &plan.EstimatedDuration,
		&plan.DifficultyLevel, &plan.EstimatedMaterials, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	plan.CustomerID = customerID.String
	plan.ParentID = parentID.String

	if err := json.Unmarshal([]byte(keywordsJSON), &plan.StyleKeywords); err != nil {
		plan.StyleKeywords = nil
	}
	if err := json.Unmarshal([]byte(refsJSON), &plan.ReferenceImages); err != nil {
		plan.ReferenceImages = nil
	}

	if t, err := time.Parse(time.DateTime, createdAt); err == nil {
		plan.CreatedAt = t
	}
	return &plan, nil
}
