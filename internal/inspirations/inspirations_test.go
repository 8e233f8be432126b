package inspirations

import (
	"context"
	"errors"
	"testing"

	"github.com/salonkit/salonkit/internal/db"
)

// hashEmbedder produces deterministic unit vectors so semantic search is
// testable offline. Identical texts share a vector.
type hashEmbedder struct{}

func (hashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, 8)
		for j, r := range text {
			vec[j%8] += float32(r%31) / 31
		}
		out[i] = vec
	}
	return out, nil
}

func (hashEmbedder) Dimensions() int { return 8 }
func (hashEmbedder) Name() string    { return "hash" }

func newTestStore(t *testing.T, semantic bool) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	var store *Store
	if semantic {
		store, err = NewStore(database, hashEmbedder{})
	} else {
		store, err = NewStore(database, nil)
	}
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	return store
}

func TestCreateAndGet(t *testing.T) {
	store := newTestStore(t, false)
	ctx := context.Background()

	image, err := store.Create(ctx, "artist-1", CreateParams{
		Title:     "cherry blossom gradient",
		Category:  "floral",
		Tags:      []string{"pink", "spring"},
		ImagePath: "uploads/inspirations/sakura.png",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.Get(ctx, image.ID, "artist-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "cherry blossom gradient" || len(got.Tags) != 2 {
		t.Errorf("image did not round trip: %+v", got)
	}

	if _, err := store.Get(ctx, image.ID, "artist-2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign owner, got %v", err)
	}
}

func TestListFilters(t *testing.T) {
	store := newTestStore(t, false)
	ctx := context.Background()

	seed := []CreateParams{
		{Title: "cherry blossom", Category: "floral", ImagePath: "a.png", Tags: []string{"pink"}},
		{Title: "chrome hearts", Category: "edgy", ImagePath: "b.png", Tags: []string{"silver"}},
		{Title: "rose garden", Category: "floral", ImagePath: "c.png", Tags: []string{"red"}},
	}
	for _, params := range seed {
		if _, err := store.Create(ctx, "artist-1", params); err != nil {
			t.Fatalf("Create %s: %v", params.Title, err)
		}
	}

	images, total, err := store.List(ctx, "artist-1", ListParams{Category: "floral"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(images) != 2 {
		t.Errorf("expected 2 floral images, got total=%d len=%d", total, len(images))
	}

	images, total, err = store.List(ctx, "artist-1", ListParams{Search: "ch"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 {
		t.Errorf("expected 2 title matches for 'ch', got %d", total)
	}

	// Tag substrings match too.
	_, total, err = store.List(ctx, "artist-1", ListParams{Search: "silver"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 {
		t.Errorf("expected 1 tag match, got %d", total)
	}
}

func TestListScopedToOwner(t *testing.T) {
	store := newTestStore(t, false)
	ctx := context.Background()

	if _, err := store.Create(ctx, "artist-1", CreateParams{Title: "mine", ImagePath: "a.png"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, total, err := store.List(ctx, "artist-2", ListParams{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 0 {
		t.Errorf("expected no images for other artist, got %d", total)
	}
}

func TestSemanticSearchFallsBackWithoutIndex(t *testing.T) {
	store := newTestStore(t, false)
	ctx := context.Background()

	if _, err := store.Create(ctx, "artist-1", CreateParams{Title: "ocean waves", ImagePath: "a.png"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	images, err := store.SemanticSearch(ctx, "artist-1", "ocean", 5)
	if err != nil {
		t.Fatalf("SemanticSearch: %v", err)
	}
	if len(images) != 1 || images[0].Title != "ocean waves" {
		t.Errorf("expected substring fallback match, got %+v", images)
	}
}

func TestSemanticSearchWithIndex(t *testing.T) {
	store := newTestStore(t, true)
	ctx := context.Background()

	if _, err := store.Create(ctx, "artist-1", CreateParams{Title: "ocean waves", ImagePath: "a.png"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Create(ctx, "artist-1", CreateParams{Title: "gold leaf accent", ImagePath: "b.png"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Identical text embeds identically, so the exact title ranks first.
	images, err := store.SemanticSearch(ctx, "artist-1", "ocean waves", 1)
	if err != nil {
		t.Fatalf("SemanticSearch: %v", err)
	}
	if len(images) != 1 || images[0].Title != "ocean waves" {
		t.Errorf("expected semantic match, got %+v", images)
	}
}

func TestSemanticSearchEmptyIndex(t *testing.T) {
	store := newTestStore(t, true)

	images, err := store.SemanticSearch(context.Background(), "artist-1", "anything", 5)
	if err != nil {
		t.Fatalf("SemanticSearch: %v", err)
	}
	if len(images) != 0 {
		t.Errorf("expected no results from empty index, got %d", len(images))
	}
}
