package feed

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"streak-bot/internal/logger"
	myMiddleware "streak-bot/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // callers are already authenticated by token
	},
}

type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// Subscribed is the first frame every client receives.
type Subscribed struct {
	Type   string `json:"type"`
	ChatID int64  `json:"chat_id"`
	Client string `json:"client"`
}

// ServeWs upgrades the request and streams registry events for ?chat=<id>
// (all chats when omitted).
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	var chatID int64
	if raw := r.URL.Query().Get("chat"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id == 0 {
			http.Error(w, "invalid chat id", http.StatusBadRequest)
			return
		}
		chatID = id
	}
	subject, _ := myMiddleware.Subject(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warning("[feed] upgrade: %v", err)
		return
	}

	client := NewClient(h.hub, conn, chatID, subject)
	hello, _ := json.Marshal(Subscribed{Type: "subscribed", ChatID: chatID, Client: client.ID.String()})
	client.Send <- hello

	if !h.hub.register(client) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}
	logger.Info("[feed] client %s (%s) watching chat %d", client.ID, subject, chatID)

	go client.WritePump()
	go client.ReadPump()
}
