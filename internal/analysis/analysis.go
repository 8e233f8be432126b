// Package analysis compares a completed service's actual result against
// its design plan with an LLM and derives dimension scores from the
// comparison.
package analysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/salonkit/salonkit/internal/abilities"
	"github.com/salonkit/salonkit/internal/db"
	"github.com/salonkit/salonkit/internal/designs"
	"github.com/salonkit/salonkit/internal/llm"
	"github.com/salonkit/salonkit/internal/records"
)

var (
	ErrNotCompleted = errors.New("service record is not completed")
	ErrNoDesign     = errors.New("service record has no design plan")
	ErrNotFound     = errors.New("comparison result not found")
)

// Result is the stored outcome of one design-vs-actual comparison.
type Result struct {
	ID                 string             `json:"id"`
	ServiceRecordID    string             `json:"service_record_id"`
	SimilarityScore    float64            `json:"similarity_score"`
	Differences        map[string]string  `json:"differences,omitempty"`
	Suggestions        []string           `json:"suggestions,omitempty"`
	ContextualInsights map[string]string  `json:"contextual_insights,omitempty"`
	Scores             map[string]float64 `json:"scores,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

// Analyzer runs comparisons and persists their results.
type Analyzer struct {
	db        *db.DB
	provider  llm.Provider
	model     string
	records   *records.Store
	designs   *designs.Store
	abilities *abilities.Store
}

// New creates an Analyzer.
func New(database *db.DB, provider llm.Provider, model string,
	recordStore *records.Store, designStore *designs.Store, abilityStore *abilities.Store) *Analyzer {
	return &Analyzer{
		db:        database,
		provider:  provider,
		model:     model,
		records:   recordStore,
		designs:   designStore,
		abilities: abilityStore,
	}
}

// modelVerdict is the JSON shape the comparison prompt asks for.
type modelVerdict struct {
	SimilarityScore    float64           `json:"similarity_score"`
	Differences        map[string]string `json:"differences"`
	Suggestions        []string          `json:"suggestions"`
	ContextualInsights map[string]string `json:"contextual_insights"`
	AbilityScores      map[string]struct {
		Score    float64 `json:"score"`
		Evidence string  `json:"evidence"`
	} `json:"ability_scores"`
}

// Analyze compares a completed service against its design plan, stores
// the comparison, and replaces the service's ability scores. Re-running
// updates the existing comparison in place.
func (a *Analyzer) Analyze(ctx context.Context, serviceRecordID, ownerID string) (*Result, error) {
	record, err := a.records.Get(ctx, serviceRecordID, ownerID)
	if err != nil {
		return nil, err
	}
	if record.ActualImagePath == "" {
		return nil, records.ErrMissingImage
	}
	if record.Status != records.StatusCompleted {
		return nil, ErrNotCompleted
	}
	if record.DesignPlanID == "" {
		return nil, ErrNoDesign
	}

	plan, err := a.designs.Get(ctx, record.DesignPlanID, ownerID)
	if err != nil {
		return nil, err
	}

	verdict, err := a.compare(ctx, plan, record)
	if err != nil {
		return nil, err
	}

	result, err := a.upsertResult(ctx, serviceRecordID, verdict)
	if err != nil {
		return nil, err
	}

	if len(verdict.AbilityScores) > 0 {
		scores := make([]abilities.Score, 0, len(verdict.AbilityScores))
		result.Scores = make(map[string]float64, len(verdict.AbilityScores))
		for dim, s := range verdict.AbilityScores {
			scores = append(scores, abilities.Score{Dimension: dim, Value: s.Score, Evidence: s.Evidence})
			result.Scores[dim] = s.Score
		}
		if err := a.abilities.ReplaceForService(ctx, ownerID, serviceRecordID, scores); err != nil {
			return nil, fmt.Errorf("storing ability scores: %w", err)
		}
	}

	log.Printf("analysis: service %s scored %.1f similarity across %d dimensions",
		serviceRecordID, result.SimilarityScore, len(result.Scores))
	return result, nil
}

// Get returns the stored comparison for a service record.
func (a *Analyzer) Get(ctx context.Context, serviceRecordID, ownerID string) (*Result, error) {
	if _, err := a.records.Get(ctx, serviceRecordID, ownerID); err != nil {
		return nil, err
	}

	row := a.db.QueryRowContext(ctx, `
		SELECT id, service_record_id, similarity_score, differences,
			   suggestions, contextual_insights, created_at
		FROM comparison_results WHERE service_record_id = ?`, serviceRecordID)

	result, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := a.db.QueryContext(ctx,
		"SELECT dimension, score FROM ability_records WHERE service_record_id = ?",
		serviceRecordID)
	if err != nil {
		return nil, fmt.Errorf("loading ability scores: %w", err)
	}
	defer rows.Close()

	result.Scores = make(map[string]float64)
	for rows.Next() {
		var dim string
		var score float64
		if err := rows.Scan(&dim, &score); err != nil {
			return nil, err
		}
		result.Scores[dim] = score
	}
	return result, rows.Err()
}

func (a *Analyzer) compare(ctx context.Context, plan *designs.Plan, record *records.Record) (*modelVerdict, error) {
	dims, err := a.abilities.Dimensions(ctx)
	if err != nil {
		return nil, err
	}

	var user strings.Builder
	fmt.Fprintf(&user, "Design image: %s\nActual result image: %s\nDesign prompt: %s\n",
		plan.GeneratedImagePath, record.ActualImagePath, plan.Prompt)
	if record.ArtistReview != "" {
		fmt.Fprintf(&user, "Artist's own review: %s\n", record.ArtistReview)
	}
	if record.CustomerFeedback != "" {
		fmt.Fprintf(&user, "Customer feedback: %s\n", record.CustomerFeedback)
	}
	if record.CustomerSatisfaction > 0 {
		fmt.Fprintf(&user, "Customer satisfaction: %d/5\n", record.CustomerSatisfaction)
	}

	system := "You are a nail art quality assessor. Compare the executed work against the design plan. " +
		"Respond with JSON: {\"similarity_score\": 0-100, " +
		"\"ability_scores\": {\"<dimension>\": {\"score\": 0-100, \"evidence\": \"...\"}}, " +
		"\"differences\": {\"<aspect>\": \"...\"}, \"suggestions\": [\"...\"], " +
		"\"contextual_insights\": {\"<topic>\": \"...\"}}. " +
		"Score these dimensions: " + strings.Join(dims, ", ") + "."

	resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
		Model: a.model,
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user.String()},
		},
		JSONMode: true,
	})
	if err != nil {
		return nil, fmt.Errorf("comparison completion: %w", err)
	}

	var verdict modelVerdict
	if err := json.Unmarshal([]byte(resp.Content), &verdict); err != nil {
		return nil, fmt.Errorf("parsing comparison verdict: %w", err)
	}
	return &verdict, nil
}

func (a *Analyzer) upsertResult(ctx context.Context, serviceRecordID string, verdict *modelVerdict) (*Result, error) {
	differences, err := json.Marshal(orMap(verdict.Differences))
	if err != nil {
		return nil, fmt.Errorf("marshalling differences: %w", err)
	}
	suggestions, err := json.Marshal(orSlice(verdict.Suggestions))
	if err != nil {
		return nil, fmt.Errorf("marshalling suggestions: %w", err)
	}
	insights, err := json.Marshal(orMap(verdict.ContextualInsights))
	if err != nil {
		return nil, fmt.Errorf("marshalling insights: %w", err)
	}

	result := &Result{
		ID:                 uuid.New().String(),
		ServiceRecordID:    serviceRecordID,
		SimilarityScore:    verdict.SimilarityScore,
		Differences:        verdict.Differences,
		Suggestions:        verdict.Suggestions,
		ContextualInsights: verdict.ContextualInsights,
		CreatedAt:          time.Now().UTC(),
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO comparison_results (
			id, service_record_id, similarity_score, differences,
			suggestions, contextual_insights, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(service_record_id) DO UPDATE SET
			similarity_score = excluded.similarity_score,
			differences = excluded.differences,
			suggestions = excluded.suggestions,
			contextual_insights = excluded.contextual_insights`,
		result.ID, serviceRecordID, result.SimilarityScore,
		string(differences), string(suggestions), string(insights),
		result.CreatedAt.Format(time.DateTime),
	)
	if err != nil {
		return nil, fmt.Errorf("upserting comparison result: %w", err)
	}
	return result, nil
}

func orMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func orSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResult(sc scanner) (*Result, error) {
	var (
		result                  Result
		differences, insights   string
		suggestions             string
		createdAt               string
	)
	err := sc.Scan(
		&result.ID, &result.ServiceRecordID, &result.SimilarityScore,
		&differences, &suggestions, &insights, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(differences), &result.Differences); err != nil {
		result.Differences = nil
	}
	if err := json.Unmarshal([]byte(suggestions), &result.Suggestions); err != nil {
		result.Suggestions = nil
	}
	if err := json.Unmarshal([]byte(insights), &result.ContextualInsights); err != nil {
		result.ContextualInsights = nil
	}
	if t, err := time.Parse(time.DateTime, createdAt); err == nil {
		result.CreatedAt = t
	}
	return &result, nil
}
