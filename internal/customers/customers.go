// Package customers manages the artist's customer roster and the
// per-customer preference profiles consulted during design work.
package customers

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
	ErrNotFound   = errors.New("customer not found")
	ErrPhoneInUse = errors.New("phone number already in use")
)

// Customer is a salon customer owned by one artist.
type Customer struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"-"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile holds a customer's nail preferences and constraints.
type Profile struct {
	NailShape        string `json:"nail_shape,omitempty"`
	NailLength       string `json:"nail_length,omitempty"`
	ColorPreferences string `json:"color_preferences,omitempty"`
	StylePreferences string `json:"style_preferences,omitempty"`
	Allergies        string `json:"allergies,omitempty"`
	Prohibitions     string `json:"prohibitions,omitempty"`
}

// Detail is a customer together with their profile, if one exists.
type Detail struct {
	Customer
	Profile *Profile `json:"profile,omitempty"`
}

// CreateParams are the fields accepted when creating a customer.
type CreateParams struct {
	Name  string
	Phone string
	Email string
	Notes string
}

// Store provides customer persistence scoped to the owning artist.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create inserts a new customer. Phone numbers are unique across the
// whole salon; a duplicate returns ErrPhoneInUse.
func (s *Store) Create(ctx context.Context, ownerID string, params CreateParams) (*Customer, error) {
	if params.Phone != "" {
		var existing int
		err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM customers WHERE phone = ?", params.Phone,
		).Scan(&existing)
		if err != nil {
			return nil, fmt.Errorf("checking phone uniqueness: %w", err)
		}
		if existing > 0 {
			return nil, ErrPhoneInUse
		}
	}

	now := time.Now().UTC()
	customer := &Customer{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Name:      params.Name,
		Phone:     params.Phone,
		Email:     params.Email,
		Notes:     params.Notes,
		CreatedAt: now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, owner_id, name, phone, email, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		customer.ID, customer.OwnerID, customer.Name, customer.Phone,
		customer.Email, customer.Notes,
		now.Format(time.DateTime), now.Format(time.DateTime),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting customer: %w", err)
	}
	return customer, nil
}

// Get retrieves a customer with their profile, scoped to the owner.
func (s *Store) Get(ctx context.Context, id, ownerID string) (*Detail, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, phone, email, notes, created_at
		FROM customers WHERE id = ? AND owner_id = ?`, id, ownerID)

	customer, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	detail := &Detail{Customer: *customer}

	var profile Profile
	err = s.db.QueryRowContext(ctx, `
		SELECT nail_shape, nail_length, color_preferences, style_preferences,
			   allergies, prohibitions
		FROM customer_profiles WHERE customer_id = ?`, id,
	).Scan(
		&profile.NailShape, &profile.NailLength, &profile.ColorPreferences,
		&profile.StylePreferences, &profile.Allergies, &profile.Prohibitions,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// No profile yet.
	case err != nil:
		return nil, fmt.Errorf("loading customer profile: %w", err)
	default:
		detail.Profile = &profile
	}

	return detail, nil
}

// Search matches customers by name or phone substring, newest first.
func (s *Store) Search(ctx context.Context, ownerID, query string, limit int) ([]Customer, int, error) {
	if limit <= 0 {
		limit = 5
	}
	pattern := "%" + query + "%"

	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM customers
		WHERE owner_id = ? AND (name LIKE ? OR phone LIKE ?)`,
		ownerID, pattern, pattern,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting customers: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, phone, email, notes, created_at
		FROM customers
		WHERE owner_id = ? AND (name LIKE ? OR phone LIKE ?)
		ORDER BY created_at DESC LIMIT ?`,
		ownerID, pattern, pattern, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("querying customers: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		customers = append(customers, *customer)
	}
	return customers, total, rows.Err()
}

// List returns the owner's customers newest first with the total count.
func (s *Store) List(ctx context.Context, ownerID string, limit, offset int) ([]Customer, int, error) {
	if limit <= 0 {
		limit = 20
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM customers WHERE owner_id = ?", ownerID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting customers: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, phone, email, notes, created_at
		FROM customers WHERE owner_id = ?
		ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		ownerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("querying customers: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		customers = append(customers, *customer)
	}
	return customers, total, rows.Err()
}

// UpsertProfile creates or replaces the customer's preference profile.
func (s *Store) UpsertProfile(ctx context.Context, customerID, ownerID string, profile Profile) error {
	if _, err := s.Get(ctx, customerID, ownerID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customer_profiles (
			customer_id, nail_shape, nail_length, color_preferences,
			style_preferences, allergies, prohibitions
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(customer_id) DO UPDATE SET
			nail_shape = excluded.nail_shape,
			nail_length = excluded.nail_length,
			color_preferences = excluded.color_preferences,
			style_preferences = excluded.style_preferences,
			allergies = excluded.allergies,
			prohibitions = excluded.prohibitions`,
		customerID, profile.NailShape, profile.NailLength,
		profile.ColorPreferences, profile.StylePreferences,
		profile.Allergies, profile.Prohibitions,
	)
	if err != nil {
		return fmt.Errorf("upserting customer profile: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCustomer(sc scanner) (*Customer, error) {
	var (
		customer  Customer
		createdAt string
	)
	err := sc.Scan(
		&customer.ID, &customer.OwnerID, &customer.Name, &customer.Phone,
		&customer.Email, &customer.Notes, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	customer.CreatedAt = parseTimestamp(createdAt)
	return &customer, nil
}

func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(time.DateTime, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
