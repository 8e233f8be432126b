package agent

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/salonkit/salonkit/internal/conversation"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is the incoming WebSocket message format.
type wsRequest struct {
	Type           string `json:"type"` // "start" or "message"
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

// wsResponse is the outgoing WebSocket message format.
type wsResponse struct {
	Type           string         `json:"type"` // "turn" or "error"
	ConversationID string         `json:"conversation_id"`
	Turn           *AssistantTurn `json:"turn,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// HandleWebSocket runs a live chat over one socket. Each "message"
// frame is a full turn; the reply carries the assistant's response.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("agent: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	owner := ownerID(r)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("agent: websocket read: %v", err)
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			h.sendWSError(conn, "", "invalid message format")
			continue
		}

		switch req.Type {
		case "start":
			conv, turn, err := h.orchestrator.CreateConversation(r.Context(), owner)
			if err != nil {
				h.sendWSError(conn, "", "failed to start conversation: "+err.Error())
				continue
			}
			h.sendWS(conn, wsResponse{Type: "turn", ConversationID: conv.ID, Turn: turn})

		case "message":
			if req.ConversationID == "" || req.Content == "" {
				h.sendWSError(conn, req.ConversationID, "conversation_id and content are required")
				continue
			}
			turn, err := h.orchestrator.ProcessMessage(r.Context(), req.ConversationID, owner, req.Content, nil)
			if err != nil {
				h.sendWSError(conn, req.ConversationID, wsErrorText(err))
				continue
			}
			h.sendWS(conn, wsResponse{Type: "turn", ConversationID: req.ConversationID, Turn: turn})

		default:
			h.sendWSError(conn, req.ConversationID, "unknown message type: "+req.Type)
		}
	}
}

func wsErrorText(err error) string {
	switch {
	case errors.Is(err, conversation.ErrNotFound):
		return "conversation does not exist"
	case errors.Is(err, conversation.ErrNotActive):
		return "conversation is not active"
	default:
		return err.Error()
	}
}

func (h *Handlers) sendWS(conn *websocket.Conn, resp wsResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		log.Printf("agent: websocket write: %v", err)
	}
}

func (h *Handlers) sendWSError(conn *websocket.Conn, conversationID, message string) {
	h.sendWS(conn, wsResponse{Type: "error", ConversationID: conversationID, Error: message})
}
