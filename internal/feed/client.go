package feed

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"streak-bot/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must be less than pongWait
	maxMessageSize = 512
)

// Client is one websocket watching a single chat, or every chat when ChatID
// is zero.
type Client struct {
	ID      uuid.UUID
	ChatID  int64
	Subject string
	Hub     *Hub
	Conn    *websocket.Conn
	Send    chan []byte
}

func NewClient(hub *Hub, conn *websocket.Conn, chatID int64, subject string) *Client {
	return &Client{
		ID:      uuid.New(),
		ChatID:  chatID,
		Subject: subject,
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan []byte, 256),
	}
}

func (c *Client) Watches(chatID int64) bool {
	return c.ChatID == 0 || c.ChatID == chatID
}

// ReadPump only services control frames; the feed is one-way.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warning("[feed] client %s: %v", c.ID, err)
			}
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
