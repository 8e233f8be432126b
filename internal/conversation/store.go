package conversation

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

// Store provides persistence for conversation state. Every read and
// mutation is scoped to the owning artist.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create inserts a new active conversation at the greeting step.
func (s *Store) Create(ctx context.Context, ownerID string) (*Conversation, error) {
	now := time.Now().UTC()
	conv := &Conversation{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Status:      StatusActive,
		CurrentStep: "greeting",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	contextJSON, summariesJSON, err := marshalState(conv)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (
			id, owner_id, status, current_step, context, step_summaries,
			file_path, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		conv.ID, conv.OwnerID, string(conv.Status), conv.CurrentStep,
		contextJSON, summariesJSON, conv.FilePath,
		now.Format(time.DateTime), now.Format(time.DateTime),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting conversation: %w", err)
	}
	return conv, nil
}

// Get retrieves a conversation by id, scoped to the owner.
// Returns ErrNotFound for missing or foreign conversations.
func (s *Store) Get(ctx context.Context, id, ownerID string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, status, current_step, context, step_summaries,
			   file_path, created_at, updated_at, completed_at
		FROM conversations WHERE id = ? AND owner_id = ?`, id, ownerID)

	conv, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return conv, err
}

// List returns the owner's conversations newest first, with the total count.
func (s *Store) List(ctx context.Context, ownerID string, limit, offset int) ([]Conversation, int, error) {
	if limit <= 0 {
		limit = 20
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM conversations WHERE owner_id = ?", ownerID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting conversations: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, status, current_step, context, step_summaries,
			   file_path, created_at, updated_at, completed_at
		FROM conversations WHERE owner_id = ?
		ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		ownerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var conversations []Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, 0, err
		}
		conversations = append(conversations, *conv)
	}
	return conversations, total, rows.Err()
}

// Update persists the conversation's mutable fields (status, step, context,
// summaries, completion time) and stamps updated_at.
func (s *Store) Update(ctx context.Context, conv *Conversation) error {
	contextJSON, summariesJSON, err := marshalState(conv)
	if err != nil {
		return err
	}

	conv.UpdatedAt = time.Now().UTC()

	var completedAt sql.NullString
	if conv.CompletedAt != nil {
		completedAt = sql.NullString{String: conv.CompletedAt.UTC().Format(time.DateTime), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations
		SET status = ?, current_step = ?, context = ?, step_summaries = ?,
			file_path = ?, updated_at = ?, completed_at = ?
		WHERE id = ? AND owner_id = ?`,
		string(conv.Status), conv.CurrentStep, contextJSON, summariesJSON,
		conv.FilePath, conv.UpdatedAt.Format(time.DateTime), completedAt,
		conv.ID, conv.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("updating conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Abandon marks an active conversation as abandoned.
func (s *Store) Abandon(ctx context.Context, id, ownerID string) error {
	conv, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if conv.Status != StatusActive {
		return ErrNotActive
	}
	conv.Status = StatusAbandoned
	return s.Update(ctx, conv)
}

func marshalState(conv *Conversation) (contextJSON, summariesJSON string, err error) {
	ctxBytes, err := json.Marshal(conv.Context)
	if err != nil {
		return "", "", fmt.Errorf("marshalling context: %w", err)
	}
	summaries := conv.StepSummaries
	if summaries == nil {
		summaries = []StepSummary{}
	}
	sumBytes, err := json.Marshal(summaries)
	if err != nil {
		return "", "", fmt.Errorf("marshalling step summaries: %w", err)
	}
	return string(ctxBytes), string(sumBytes), nil
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(sc scanner) (*Conversation, error) {
	var (
		conv                            Conversation
		status                          string
		contextJSON, summariesJSON      string
		createdAt, updatedAt            string
		completedAt                     sql.NullString
	)

	err := sc.Scan(
		&conv.ID, &conv.OwnerID, &status, &conv.CurrentStep,
		&contextJSON, &summariesJSON, &conv.FilePath,
		&createdAt, &updatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	conv.Status = Status(status)

	if err := json.Unmarshal([]byte(contextJSON), &conv.Context); err != nil {
		conv.Context = Context{}
	}
	if err := json.Unmarshal([]byte(summariesJSON), &conv.StepSummaries); err != nil {
		conv.StepSummaries = nil
	}

	conv.CreatedAt = parseTimestamp(createdAt)
	conv.UpdatedAt = parseTimestamp(updatedAt)
	if completedAt.Valid {
		t := parseTimestamp(completedAt.String)
		conv.CompletedAt = &t
	}

	return &conv, nil
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
