package customers

import (
	"context"
	"errors"
	"testing"

	"github.com/salonkit/salonkit/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	customer, err := store.Create(ctx, "artist-1", CreateParams{
		Name:  "王小花",
		Phone: "13800138000",
		Notes: "prefers short appointments",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	detail, err := store.Get(ctx, customer.ID, "artist-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if detail.Name != "王小花" || detail.Phone != "13800138000" {
		t.Errorf("unexpected customer: %+v", detail.Customer)
	}
	if detail.Profile != nil {
		t.Error("expected no profile for a new customer")
	}
}

func TestCreateDuplicatePhone(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, "artist-1", CreateParams{Name: "A", Phone: "13800138000"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := store.Create(ctx, "artist-2", CreateParams{Name: "B", Phone: "13800138000"})
	if !errors.Is(err, ErrPhoneInUse) {
		t.Errorf("expected ErrPhoneInUse, got %v", err)
	}
}

func TestGetScopedToOwner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	customer, err := store.Create(ctx, "artist-1", CreateParams{Name: "A", Phone: "13800138001"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := store.Get(ctx, customer.ID, "artist-2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign owner, got %v", err)
	}
}

func TestSearchByNameAndPhone(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	names := []struct{ name, phone string }{
		{"王小花", "13800138001"},
		{"王大明", "13800138002"},
		{"李丽", "13912345678"},
	}
	for _, n := range names {
		if _, err := store.Create(ctx, "artist-1", CreateParams{Name: n.name, Phone: n.phone}); err != nil {
			t.Fatalf("Create %s: %v", n.name, err)
		}
	}

	matches, total, err := store.Search(ctx, "artist-1", "王", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total != 2 || len(matches) != 2 {
		t.Errorf("expected 2 name matches, got total=%d len=%d", total, len(matches))
	}

	matches, total, err = store.Search(ctx, "artist-1", "139", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total != 1 || matches[0].Name != "李丽" {
		t.Errorf("expected phone match for 李丽, got total=%d matches=%+v", total, matches)
	}
}

func TestSearchLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		if _, err := store.Create(ctx, "artist-1", CreateParams{
			Name:  "customer",
			Phone: "1380013900" + string(rune('0'+i)),
		}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	matches, total, err := store.Search(ctx, "artist-1", "customer", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total != 8 {
		t.Errorf("expected total 8, got %d", total)
	}
	if len(matches) != 5 {
		t.Errorf("expected 5 results, got %d", len(matches))
	}
}

func TestUpsertProfile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	customer, err := store.Create(ctx, "artist-1", CreateParams{Name: "A", Phone: "13800138001"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	err = store.UpsertProfile(ctx, customer.ID, "artist-1", Profile{
		NailShape:        "almond",
		ColorPreferences: "pink, nude",
		Allergies:        "acrylate",
	})
	if err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}

	// Second upsert replaces fields.
	err = store.UpsertProfile(ctx, customer.ID, "artist-1", Profile{
		NailShape:        "square",
		ColorPreferences: "red",
	})
	if err != nil {
		t.Fatalf("UpsertProfile again: %v", err)
	}

	detail, err := store.Get(ctx, customer.ID, "artist-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if detail.Profile == nil {
		t.Fatal("expected a profile")
	}
	if detail.Profile.NailShape != "square" || detail.Profile.ColorPreferences != "red" {
		t.Errorf("profile not replaced: %+v", detail.Profile)
	}
	if detail.Profile.Allergies != "" {
		t.Errorf("expected allergies cleared by full replace, got %q", detail.Profile.Allergies)
	}
}

func TestUpsertProfileUnknownCustomer(t *testing.T) {
	store := newTestStore(t)

	err := store.UpsertProfile(context.Background(), "missing", "artist-1", Profile{})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
