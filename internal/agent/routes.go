package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/salonkit/salonkit/internal/conversation"
)

// Handlers wires the orchestrator into the HTTP API.
type Handlers struct {
	orchestrator  *Orchestrator
	conversations *conversation.Store
	uploadsDir    string
}

// NewHandlers creates the HTTP handler set.
func NewHandlers(orchestrator *Orchestrator, conversations *conversation.Store, uploadsDir string) *Handlers {
	return &Handlers{
		orchestrator:  orchestrator,
		conversations: conversations,
		uploadsDir:    uploadsDir,
	}
}

// RegisterRoutes mounts the conversation API onto the given router.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/api/conversations", func(r chi.Router) {
		r.Post("/", h.createConversation)
		r.Get("/", h.listConversations)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getConversation)
			r.Delete("/", h.abandonConversation)
			r.Post("/messages", h.postMessage)
			r.Post("/uploads", h.postUpload)
			r.Get("/history", h.getHistory)
		})
	})
}

// ownerID identifies the calling artist. Auth proper is out of scope;
// the header is trusted as-is.
func ownerID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return "anonymous"
}

func (h *Handlers) createConversation(w http.ResponseWriter, r *http.Request) {
	conv, turn, err := h.orchestrator.CreateConversation(r.Context(), ownerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"conversation": conv,
		"message":      turn,
	})
}

func (h *Handlers) listConversations(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	conversations, total, err := h.conversations.List(r.Context(), ownerID(r), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	if conversations == nil {
		conversations = []conversation.Conversation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversations": conversations,
		"total":         total,
	})
}

func (h *Handlers) getConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := h.conversations.Get(r.Context(), chi.URLParam(r, "id"), ownerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *Handlers) abandonConversation(w http.ResponseWriter, r *http.Request) {
	err := h.conversations.Abandon(r.Context(), chi.URLParam(r, "id"), ownerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "abandoned"})
}

type messageRequest struct {
	Content    string   `json:"content"`
	ImagePaths []string `json:"image_paths,omitempty"`
}

func (h *Handlers) postMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "content is required"})
		return
	}

	turn, err := h.orchestrator.ProcessMessage(r.Context(), chi.URLParam(r, "id"), ownerID(r), req.Content, req.ImagePaths)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

func (h *Handlers) postUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	purpose := r.FormValue("purpose")
	if purpose != UploadInspiration && purpose != UploadActual {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("purpose must be %q or %q", UploadInspiration, UploadActual),
		})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file is required"})
		return
	}
	defer file.Close()

	savedPath, err := h.saveUpload(file, header.Filename, purpose)
	if err != nil {
		writeError(w, err)
		return
	}

	turn, err := h.orchestrator.HandleUpload(r.Context(), chi.URLParam(r, "id"), ownerID(r), savedPath, purpose)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"saved_path": savedPath,
		"message":    turn,
	})
}

func (h *Handlers) getHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.orchestrator.History(r.Context(), chi.URLParam(r, "id"), ownerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": entries,
		"total":    len(entries),
	})
}

func (h *Handlers) saveUpload(file io.Reader, filename, purpose string) (string, error) {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".png"
	}
	dir := filepath.Join(h.uploadsDir, purpose)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating upload directory: %w", err)
	}

	name := fmt.Sprintf("%s-%s%s", time.Now().UTC().Format("20060102"), uuid.New().String()[:8], ext)
	path := filepath.Join(dir, name)

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating upload file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("writing upload: %w", err)
	}
	return path, nil
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, conversation.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "conversation does not exist"})
	case errors.Is(err, conversation.ErrNotActive):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "conversation is not active"})
	default:
		log.Printf("agent: request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("agent: encoding response: %v", err)
	}
}
