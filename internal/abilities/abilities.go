// Package abilities aggregates per-service scoring into an artist skill
// profile across the fixed scoring dimensions.
package abilities

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/salonkit/salonkit/internal/db"
)

// Score is one dimension's rating for one completed service.
type Score struct {
	Dimension string  `json:"dimension"`
	Value     float64 `json:"score"`
	Evidence  string  `json:"evidence,omitempty"`
}

// Stats is the radar-chart view: average score per dimension.
type Stats struct {
	Dimensions   []string  `json:"dimensions"`
	Scores       []float64 `json:"scores"`
	AvgScore     float64   `json:"avg_score"`
	TotalRecords int       `json:"total_records"`
}

// DimensionScore pairs a dimension with its average score.
type DimensionScore struct {
	Dimension string  `json:"dimension"`
	Score     float64 `json:"score"`
}

// Summary names the artist's strongest and weakest dimensions.
type Summary struct {
	Strengths     []DimensionScore `json:"strengths"`
	Improvements  []DimensionScore `json:"improvements"`
	TotalServices int              `json:"total_services"`
}

// TrendPoint is one historical score for a dimension.
type TrendPoint struct {
	Date            time.Time `json:"date"`
	Score           float64   `json:"score"`
	ServiceRecordID string    `json:"service_record_id"`
}

// Store aggregates ability records scoped to the owning artist.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Dimensions returns the configured scoring dimensions in name order.
func (s *Store) Dimensions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM ability_dimensions ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying dimensions: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ReplaceForService replaces a service's scores. Re-running an analysis
// must not double count, so existing rows for the service are dropped
// first. Unknown dimensions are registered on the fly.
func (s *Store) ReplaceForService(ctx context.Context, ownerID, serviceRecordID string, scores []Score) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM ability_records WHERE service_record_id = ?", serviceRecordID,
	); err != nil {
		return fmt.Errorf("clearing ability records: %w", err)
	}

	now := time.Now().UTC().Format(time.DateTime)
	for _, score := range scores {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO ability_dimensions (name, description) VALUES (?, '')",
			score.Dimension,
		); err != nil {
			return fmt.Errorf("registering dimension %s: %w", score.Dimension, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ability_records (id, owner_id, service_record_id, dimension, score, evidence, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), ownerID, serviceRecordID,
			score.Dimension, score.Value, score.Evidence, now,
		); err != nil {
			return fmt.Errorf("inserting ability record: %w", err)
		}
	}

	return tx.Commit()
}

// Stats computes the per-dimension averages for the radar chart.
func (s *Store) Stats(ctx context.Context, ownerID string) (*Stats, error) {
	dimensions, err := s.Dimensions(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Dimensions: []string{}, Scores: []float64{}}
	var scoredSum float64
	var scoredCount int

	for _, dim := range dimensions {
		var avg *float64
		err := s.db.QueryRowContext(ctx, `
			SELECT AVG(score) FROM ability_records
			WHERE owner_id = ? AND dimension = ?`, ownerID, dim,
		).Scan(&avg)
		if err != nil {
			return nil, fmt.Errorf("averaging dimension %s: %w", dim, err)
		}

		var score float64
		if avg != nil {
			score = round1(*avg)
			scoredSum += score
			scoredCount++
		}
		stats.Dimensions = append(stats.Dimensions, dim)
		stats.Scores = append(stats.Scores, score)
	}

	if scoredCount > 0 {
		stats.AvgScore = round1(scoredSum / float64(scoredCount))
	}

	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ability_records WHERE owner_id = ?", ownerID,
	).Scan(&stats.TotalRecords); err != nil {
		return nil, fmt.Errorf("counting ability records: %w", err)
	}

	return stats, nil
}

// Summary reports the top three and bottom three dimensions by average.
func (s *Store) Summary(ctx context.Context, ownerID string) (*Summary, error) {
	stats, err := s.Stats(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Strengths: []DimensionScore{}, Improvements: []DimensionScore{}}

	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM service_records WHERE owner_id = ?", ownerID,
	).Scan(&summary.TotalServices); err != nil {
		return nil, fmt.Errorf("counting services: %w", err)
	}

	if len(stats.Dimensions) == 0 {
		return summary, nil
	}

	scored := make([]DimensionScore, len(stats.Dimensions))
	for i, dim := range stats.Dimensions {
		scored[i] = DimensionScore{Dimension: dim, Score: stats.Scores[i]}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	top := 3
	if top > len(scored) {
		top = len(scored)
	}
	summary.Strengths = append(summary.Strengths, scored[:top]...)

	// Weakest first.
	bottom := scored[len(scored)-top:]
	for i := len(bottom) - 1; i >= 0; i-- {
		summary.Improvements = append(summary.Improvements, bottom[i])
	}

	return summary, nil
}

// Trend returns a dimension's history oldest first, capped at limit.
func (s *Store) Trend(ctx context.Context, ownerID, dimension string, limit int) ([]TrendPoint, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT service_record_id, score, created_at FROM ability_records
		WHERE owner_id = ? AND dimension = ?
		ORDER BY created_at DESC LIMIT ?`,
		ownerID, dimension, limit)
	if err != nil {
		return nil, fmt.Errorf("querying trend: %w", err)
	}
	defer rows.Close()

	var points []TrendPoint
	for rows.Next() {
		var point TrendPoint
		var createdAt string
		if err := rows.Scan(&point.ServiceRecordID, &point.Score, &createdAt); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.DateTime, createdAt); err == nil {
			point.Date = t
		}
		points = append(points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into chronological order for charting.
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
