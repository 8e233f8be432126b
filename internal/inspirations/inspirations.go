// Package inspirations manages the reference image library. Listing is
// plain SQL; when an embedder is configured an in-memory chromem index
// additionally supports semantic search over titles and tags.
package inspirations

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
	chromem "github.com/philippgille/chromem-go"

	"github.com/salonkit/salonkit/internal/db"
	"github.com/salonkit/salonkit/internal/embeddings"
)

var ErrNotFound = errors.New("inspiration not found")

// Image is one reference image in the library.
type Image struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"-"`
	Title     string    `json:"title,omitempty"`
	Category  string    `json:"category,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	ImagePath string    `json:"image_path"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateParams are the fields accepted when adding an image.
type CreateParams struct {
	Title     string
	Category  string
	Tags      []string
	ImagePath string
}

// ListParams filter and page the library.
type ListParams struct {
	Search   string
	Category string
	Limit    int
	Offset   int
}

// Store persists inspiration images and maintains the semantic index.
type Store struct {
	db         *db.DB
	collection *chromem.Collection
}

// NewStore creates a Store. The embedder may be nil, in which case
// semantic search degrades to substring matching.
func NewStore(database *db.DB, embedder embeddings.Embedder) (*Store, error) {
	store := &Store{db: database}

	if embedder != nil {
		col, err := chromem.NewDB().GetOrCreateCollection(
			"inspirations", nil, embeddings.ToChromemFunc(embedder))
		if err != nil {
			return nil, fmt.Errorf("creating inspiration index: %w", err)
		}
		store.collection = col
	}
	return store, nil
}

// Create inserts an image and indexes it for semantic search.
func (s *Store) Create(ctx context.Context, ownerID string, params CreateParams) (*Image, error) {
	image := &Image{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Title:     params.Title,
		Category:  params.Category,
		Tags:      params.Tags,
		ImagePath: params.ImagePath,
		CreatedAt: time.Now().UTC(),
	}

	tags, err := json.Marshal(orEmpty(image.Tags))
	if err != nil {
		return nil, fmt.Errorf("marshalling tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO inspiration_images (id, owner_id, title, category, tags, image_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		image.ID, image.OwnerID, image.Title, image.Category,
		string(tags), image.ImagePath, image.CreatedAt.Format(time.DateTime),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting inspiration: %w", err)
	}

	s.index(ctx, image)
	return image, nil
}

// Get retrieves an image by id, scoped to the owner.
func (s *Store) Get(ctx context.Context, id, ownerID string) (*Image, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, category, tags, image_path, created_at
		FROM inspiration_images WHERE id = ? AND owner_id = ?`, id, ownerID)

	image, err := scanImage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return image, err
}

// List filters the owner's images by title substring and category,
// newest first, with the total count.
func (s *Store) List(ctx context.Context, ownerID string, params ListParams) ([]Image, int, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 10
	}

	where := "owner_id = ?"
	args := []any{ownerID}
	if params.Search != "" {
		where += " AND (title LIKE ? OR tags LIKE ?)"
		pattern := "%" + params.Search + "%"
		args = append(args, pattern, pattern)
	}
	if params.Category != "" {
		where += " AND category = ?"
		args = append(args, params.Category)
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM inspiration_images WHERE "+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting inspirations: %w", err)
	}

	query := `
		SELECT id, owner_id, title, category, tags, image_path, created_at
		FROM inspiration_images WHERE ` + where + `
		ORDER BY created_at DESC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, params.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying inspirations: %w", err)
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		image, err := scanImage(rows)
		if err != nil {
			return nil, 0, err
		}
		images = append(images, *image)
	}
	return images, total, rows.Err()
}

// SemanticSearch finds images whose title and tags are semantically
// close to the query. Without an index it falls back to List matching.
func (s *Store) SemanticSearch(ctx context.Context, ownerID, query string, limit int) ([]Image, error) {
	if limit <= 0 {
		limit = 10
	}

	if s.collection == nil {
		images, _, err := s.List(ctx, ownerID, ListParams{Search: query, Limit: limit})
		return images, err
	}

	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := s.collection.Query(ctx, query, limit,
		map[string]string{"owner_id": ownerID}, nil)
	if err != nil {
		return nil, fmt.Errorf("semantic query: %w", err)
	}

	var images []Image
	for _, r := range results {
		image, err := s.Get(ctx, r.ID, ownerID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		images = append(images, *image)
	}
	return images, nil
}

// Reindex rebuilds the semantic index from the database, returning the
// number of images indexed.
func (s *Store) Reindex(ctx context.Context, ownerID string) (int, error) {
	if s.collection == nil {
		return 0, nil
	}

	images, _, err := s.List(ctx, ownerID, ListParams{Limit: 10000})
	if err != nil {
		return 0, err
	}
	for i := range images {
		s.index(ctx, &images[i])
	}
	return len(images), nil
}

// index adds an image to the semantic index. Index failures are logged
// and swallowed; SQL remains the source of truth.
func (s *Store) index(ctx context.Context, image *Image) {
	if s.collection == nil {
		return
	}

	content := image.Title
	if len(image.Tags) > 0 {
		content += " " + strings.Join(image.Tags, " ")
	}
	if image.Category != "" {
		content += " " + image.Category
	}
	if strings.TrimSpace(content) == "" {
		return
	}

	err := s.collection.AddDocuments(ctx, []chromem.Document{{
		ID:       image.ID,
		Content:  content,
		Metadata: map[string]string{"owner_id": image.OwnerID},
	}}, 1)
	if err != nil {
		log.Printf("inspirations: indexing %s: %v", image.ID, err)
	}
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

func scanImage(sc scanner) (*Image, error) {
	var (
		image     Image
		tagsJSON  string
		createdAt string
	)
	err := sc.Scan(
		&image.ID, &image.OwnerID, &image.Title, &image.Category,
		&tagsJSON, &image.ImagePath, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &image.Tags); err != nil {
		image.Tags = nil
	}
	if t, err := time.Parse(time.DateTime, createdAt); err == nil {
		image.CreatedAt = t
	}
	return &image, nil
}
