package msglog

import (
	"os"
	"testing"

	"github.com/salonkit/salonkit/internal/llm"
)

func TestAppendAndReadStepOrder(t *testing.T) {
	store := NewStore(t.TempDir())

	store.Append("conv-1", Entry{Step: "greeting", Role: llm.RoleUser, Content: "hi"})
	store.Append("conv-1", Entry{Step: "greeting", Role: llm.RoleAssistant, Content: "hello"})
	store.Append("conv-1", Entry{Step: "greeting", Role: llm.RoleUser, Content: "ok"})

	entries := store.ReadStep("conv-1", "greeting")
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Content != "hi" || entries[1].Content != "hello" || entries[2].Content != "ok" {
		t.Errorf("entries out of append order: %+v", entries)
	}
	if entries[0].Timestamp == "" {
		t.Error("expected timestamp to be stamped on append")
	}
}

func TestReadStepFiltersOtherSteps(t *testing.T) {
	store := NewStore(t.TempDir())

	store.Append("conv-1", Entry{Step: "greeting", Role: llm.RoleUser, Content: "hi"})
	store.Append("conv-1", Entry{Step: "customer", Role: llm.RoleUser, Content: "I am new"})

	entries := store.ReadStep("conv-1", "customer")
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Content != "I am new" {
		t.Errorf("wrong entry: %+v", entries[0])
	}
}

func TestArchiveStepHidesEntries(t *testing.T) {
	store := NewStore(t.TempDir())

	store.Append("conv-1", Entry{Step: "greeting", Role: llm.RoleUser, Content: "hi"})
	store.Append("conv-1", Entry{Step: "greeting", Role: llm.RoleAssistant, Content: "hello"})

	store.ArchiveStep("conv-1", "greeting")

	if entries := store.ReadStep("conv-1", "greeting"); len(entries) != 0 {
		t.Fatalf("expected archived step to read empty, got %d entries", len(entries))
	}

	full := store.ReadFull("conv-1")
	if len(full) != 3 {
		t.Fatalf("expected 2 entries plus marker, got %d", len(full))
	}
	if !full[0].Archived || !full[1].Archived {
		t.Error("expected original entries to be marked archived")
	}
	if !full[2].ArchiveMarker {
		t.Error("expected final entry to be the archive marker")
	}
}

func TestArchiveStepIdempotent(t *testing.T) {
	store := NewStore(t.TempDir())

	store.Append("conv-1", Entry{Step: "greeting", Role: llm.RoleUser, Content: "hi"})

	store.ArchiveStep("conv-1", "greeting")
	store.ArchiveStep("conv-1", "greeting")

	if entries := store.ReadStep("conv-1", "greeting"); len(entries) != 0 {
		t.Fatalf("expected archived step to stay empty, got %d entries", len(entries))
	}

	// New entries for the same step after archival are live again.
	store.Append("conv-1", Entry{Step: "greeting", Role: llm.RoleUser, Content: "back"})
	entries := store.ReadStep("conv-1", "greeting")
	if len(entries) != 1 || entries[0].Content != "back" {
		t.Fatalf("expected only post-archive entry, got %+v", entries)
	}
}

func TestArchiveStepMissingFile(t *testing.T) {
	store := NewStore(t.TempDir())

	// Must not create a file or panic.
	store.ArchiveStep("conv-missing", "greeting")

	if _, err := os.Stat(store.FilePath("conv-missing")); !os.IsNotExist(err) {
		t.Error("expected no log file to be created")
	}
}

func TestReadStepSkipsCorruptLines(t *testing.T) {
	store := NewStore(t.TempDir())

	store.Append("conv-1", Entry{Step: "greeting", Role: llm.RoleUser, Content: "hi"})

	f, err := os.OpenFile(store.FilePath("conv-1"), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("{not json\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	store.Append("conv-1", Entry{Step: "greeting", Role: llm.RoleAssistant, Content: "hello"})

	entries := store.ReadStep("conv-1", "greeting")
	if len(entries) != 2 {
		t.Fatalf("expected 2 valid entries, got %d", len(entries))
	}
}

func TestToolCallsRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	store.Append("conv-1", Entry{
		Step: "customer",
		Role: llm.RoleAssistant,
		ToolCalls: []llm.ToolCall{{
			ID:       "call_1",
			Type:     "function",
			Function: llm.FunctionCall{Name: "search_customer", Arguments: `{"query":"wang"}`},
		}},
	})
	store.Append("conv-1", Entry{
		Step:       "customer",
		Role:       llm.RoleTool,
		ToolCallID: "call_1",
		Name:       "search_customer",
		Content:    `{"customers":[]}`,
	})

	entries := store.ReadStep("conv-1", "customer")
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if len(entries[0].ToolCalls) != 1 || entries[0].ToolCalls[0].Function.Name != "search_customer" {
		t.Errorf("tool call did not round trip: %+v", entries[0])
	}
	if entries[1].ToolCallID != "call_1" {
		t.Errorf("tool call id did not round trip: %+v", entries[1])
	}
}
