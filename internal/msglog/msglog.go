// Package msglog persists per-conversation message logs as JSONL files,
// one line per turn, segmented by workflow step. The log is the audit
// trail of a conversation and the source of the bounded per-step replay
// window sent to the model.
package msglog

import (
	"bufio"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/salonkit/salonkit/internal/llm"
)

// Entry is one logged conversation turn. Entries are never mutated after
// append except to flip Archived when their step is closed out.
type Entry struct {
	Step       string          `json:"step"`
	Role       llm.Role        `json:"role,omitempty"`
	Content    string          `json:"content,omitempty"`
	ToolCalls  []llm.ToolCall  `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	Name       string          `json:"name,omitempty"`
	UIMetadata json.RawMessage `json:"ui_metadata,omitempty"`
	Archived   bool            `json:"archived"`
	// ArchiveMarker rows record that a step was closed, for replay/audit.
	ArchiveMarker bool   `json:"_archive_marker,omitempty"`
	Timestamp     string `json:"ts,omitempty"`
}

// Store manages the JSONL log files under a base directory. Archive performs
// a read-modify-write over the whole file, so all access to one
// conversation's file is serialized by a per-conversation lock.
type Store struct {
	baseDir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a Store rooted at the given directory.
func NewStore(baseDir string) *Store {
	return &Store{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

// FilePath returns the log file path for a conversation.
func (s *Store) FilePath(conversationID string) string {
	return filepath.Join(s.baseDir, conversationID, "messages.jsonl")
}

func (s *Store) lockFor(conversationID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[conversationID] = l
	}
	return l
}

// Append writes one entry to the conversation's log, stamping a timestamp if
// absent. The write either lands fully or not at all (a single write of one
// complete line). I/O failures are logged and swallowed: a lost audit write
// must not abort the user-facing turn.
func (s *Store) Append(conversationID string, entry Entry) {
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	line, err := json.Marshal(entry)
	if err != nil {
		log.Printf("msglog: marshalling entry for %s: %v", conversationID, err)
		return
	}

	l := s.lockFor(conversationID)
	l.Lock()
	defer l.Unlock()

	path := s.FilePath(conversationID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Printf("msglog: creating log directory for %s: %v", conversationID, err)
		return
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("msglog: opening log for %s: %v", conversationID, err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		log.Printf("msglog: writing log for %s: %v", conversationID, err)
	}
}

// ReadStep returns, in append order, all non-archived entries for the given
// step, skipping archive markers. This is the replay window for LLM context.
func (s *Store) ReadStep(conversationID, step string) []Entry {
	l := s.lockFor(conversationID)
	l.Lock()
	defer l.Unlock()

	var result []Entry
	for _, entry := range s.readAll(conversationID) {
		if entry.ArchiveMarker {
			continue
		}
		if entry.Step == step && !entry.Archived {
			result = append(result, entry)
		}
	}
	return result
}

// ReadFull returns the complete log including archived entries and archive
// markers. For audit/replay only; never used to build LLM context.
func (s *Store) ReadFull(conversationID string) []Entry {
	l := s.lockFor(conversationID)
	l.Lock()
	defer l.Unlock()

	return s.readAll(conversationID)
}

// ArchiveStep flips Archived on every entry of the step and appends an
// archive marker. Archiving a step with no live entries is a no-op aside
// from the marker, so the operation is idempotent.
func (s *Store) ArchiveStep(conversationID, step string) {
	l := s.lockFor(conversationID)
	l.Lock()
	defer l.Unlock()

	path := s.FilePath(conversationID)
	if _, err := os.Stat(path); err != nil {
		return
	}

	entries := s.readAll(conversationID)
	for i := range entries {
		if entries[i].Step == step && !entries[i].ArchiveMarker {
			entries[i].Archived = true
		}
	}

	entries = append(entries, Entry{
		Step:          step,
		ArchiveMarker: true,
		Archived:      true,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	})

	if err := s.rewrite(conversationID, entries); err != nil {
		log.Printf("msglog: archiving step %s for %s: %v", step, conversationID, err)
	}
}

// readAll loads every parseable line of the log. Callers hold the
// per-conversation lock.
func (s *Store) readAll(conversationID string) []Entry {
	path := s.FilePath(conversationID)
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("msglog: reading log for %s: %v", conversationID, err)
		}
		return nil
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			// Corrupt lines are skipped, not fatal.
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		log.Printf("msglog: scanning log for %s: %v", conversationID, err)
	}
	return entries
}

// rewrite replaces the log file with the given entries via a temp file and
// rename, so a crash mid-archive never leaves a truncated log.
func (s *Store) rewrite(conversationID string, entries []Entry) error {
	path := s.FilePath(conversationID)
	tmp, err := os.CreateTemp(filepath.Dir(path), "messages-*.jsonl")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, entry := range entries {
		line, err := json.Marshal(entry)
		if err != nil {
			tmp.Close()
			return err
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			tmp.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
