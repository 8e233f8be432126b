// Package records tracks salon service records from booking through
// completion. A record starts pending and is completed once the actual
// result photo and review details are in.
package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/salonkit/salonkit/internal/db"
)

var (
	ErrNotFound        = errors.New("service record not found")
	ErrUnknownCustomer = errors.New("customer not found")
	ErrUnknownDesign   = errors.New("design plan not found")
	ErrMissingImage    = errors.New("service has no actual result image")
)

// Record statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Record is one salon appointment for a customer.
type Record struct {
	ID                   string     `json:"id"`
	OwnerID              string     `json:"-"`
	CustomerID           string     `json:"customer_id"`
	DesignPlanID         string     `json:"design_plan_id,omitempty"`
	ServiceDate          string     `json:"service_date"`
	Status               string     `json:"status"`
	ActualImagePath      string     `json:"actual_image_path,omitempty"`
	ServiceDuration      int        `json:"service_duration,omitempty"`
	MaterialsUsed        string     `json:"materials_used,omitempty"`
	ArtistReview         string     `json:"artist_review,omitempty"`
	CustomerFeedback     string     `json:"customer_feedback,omitempty"`
	CustomerSatisfaction int        `json:"customer_satisfaction,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
}

// CreateParams are the fields accepted when opening a record.
type CreateParams struct {
	CustomerID   string
	DesignPlanID string
	// ServiceDate in YYYY-MM-DD form; defaults to today.
	ServiceDate string
}

// CompletionParams close out a record. ActualImagePath is mandatory.
type CompletionParams struct {
	ActualImagePath      string
	ServiceDuration      int
	MaterialsUsed        string
	ArtistReview         string
	CustomerFeedback     string
	CustomerSatisfaction int
}

// Store persists service records scoped to the owning artist.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create opens a pending record. The customer, and the design plan if
// given, must exist and belong to the owner.
func (s *Store) Create(ctx context.Context, ownerID string, params CreateParams) (*Record, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM customers WHERE id = ? AND owner_id = ?",
		params.CustomerID, ownerID,
	).Scan(&n)
	if err != nil {
		return nil, fmt.Errorf("checking customer: %w", err)
	}
	if n == 0 {
		return nil, ErrUnknownCustomer
	}

	if params.DesignPlanID != "" {
		err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM design_plans WHERE id = ? AND owner_id = ?",
			params.DesignPlanID, ownerID,
		).Scan(&n)
		if err != nil {
			return nil, fmt.Errorf("checking design plan: %w", err)
		}
		if n == 0 {
			return nil, ErrUnknownDesign
		}
	}

	serviceDate := params.ServiceDate
	if serviceDate == "" {
		serviceDate = time.Now().UTC().Format(time.DateOnly)
	} else if _, err := time.Parse(time.DateOnly, serviceDate); err != nil {
		return nil, fmt.Errorf("invalid service date %q: %w", serviceDate, err)
	}

	record := &Record{
		ID:           uuid.New().String(),
		OwnerID:      ownerID,
		CustomerID:   params.CustomerID,
		DesignPlanID: params.DesignPlanID,
		ServiceDate:  serviceDate,
		Status:       StatusPending,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO service_records (
			id, owner_id, customer_id, design_plan_id, service_date, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.OwnerID, record.CustomerID, record.DesignPlanID,
		record.ServiceDate, record.Status, record.CreatedAt.Format(time.DateTime),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting service record: %w", err)
	}
	return record, nil
}

// Complete closes a record with the actual result photo and review
// fields, stamping completed_at.
func (s *Store) Complete(ctx context.Context, id, ownerID string, params CompletionParams) (*Record, error) {
	record, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if params.ActualImagePath == "" {
		params.ActualImagePath = record.ActualImagePath
	}
	if params.ActualImagePath == "" {
		return nil, ErrMissingImage
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		UPDATE service_records
		SET status = ?, actual_image_path = ?, service_duration = ?,
			materials_used = ?, artist_review = ?, customer_feedback = ?,
			customer_satisfaction = ?, completed_at = ?
		WHERE id = ? AND owner_id = ?`,
		StatusCompleted, params.ActualImagePath, params.ServiceDuration,
		params.MaterialsUsed, params.ArtistReview, params.CustomerFeedback,
		params.CustomerSatisfaction, now.Format(time.DateTime),
		id, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("completing service record: %w", err)
	}

	return s.Get(ctx, id, ownerID)
}

// SetActualImage records an uploaded result photo on a pending record
// without completing it.
func (s *Store) SetActualImage(ctx context.Context, id, ownerID, imagePath string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE service_records SET actual_image_path = ?
		WHERE id = ? AND owner_id = ?`,
		imagePath, id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("setting actual image: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get retrieves a record by id, scoped to the owner.
func (s *Store) Get(ctx context.Context, id, ownerID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, customer_id, design_plan_id, service_date, status,
			   actual_image_path, service_duration, materials_used,
			   artist_review, customer_feedback, customer_satisfaction,
			   created_at, completed_at
		FROM service_records WHERE id = ? AND owner_id = ?`, id, ownerID)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return record, err
}

// ListByCustomer returns a customer's records newest first.
func (s *Store) ListByCustomer(ctx context.Context, customerID, ownerID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, customer_id, design_plan_id, service_date, status,
			   actual_image_path, service_duration, materials_used,
			   artist_review, customer_feedback, customer_satisfaction,
			   created_at, completed_at
		FROM service_records WHERE customer_id = ? AND owner_id = ?
		ORDER BY service_date DESC, created_at DESC LIMIT ?`,
		customerID, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying service records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {
	var (
		record                 Record
		designPlanID           sql.NullString
		createdAt              string
		completedAt            sql.NullString
	)
	err := sc.Scan(
		&record.ID, &record.OwnerID, &record.CustomerID, &designPlanID,
		&record.ServiceDate, &record.Status, &record.ActualImagePath,
		&record.ServiceDuration, &record.MaterialsUsed, &record.ArtistReview,
		&record.CustomerFeedback, &record.CustomerSatisfaction,
		&createdAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	record.DesignPlanID = designPlanID.String

	if t, err := time.Parse(time.DateTime, createdAt); err == nil {
		record.CreatedAt = t
	}
	if completedAt.Valid {
		if t, err := time.Parse(time.DateTime, completedAt.String); err == nil {
			record.CompletedAt = &t
		}
	}
	return &record, nil
}
