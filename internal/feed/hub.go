package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"streak-bot/internal/logger"
	"streak-bot/internal/registry"
)

const DefaultChannel = "registry-events"

type message struct {
	chatID  int64
	payload []byte
}

// Hub fans registry events out to websocket clients. Events travel through
// Redis so every instance behind the load balancer sees every mutation.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan message // From Redis -> Clients
	Register   chan *Client
	Unregister chan *Client
	done       chan struct{}
	redis      *redis.Client
	channel    string
}

func NewHub(redisClient *redis.Client, channel string) *Hub {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan message),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
		redis:      redisClient,
		channel:    channel,
	}
}

// Run owns the client set until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			return

		case client := <-h.Register:
			h.clients[client] = true

		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// deliver sends msg to every client watching its chat. A client whose
// buffer is full is dropped.
func (h *Hub) deliver(msg message) {
	for client := range h.clients {
		if !client.Watches(msg.chatID) {
			continue
		}
		select {
		case client.Send <- msg.payload:
		default:
			logger.Warning("[feed] dropping slow client %s", client.ID)
			close(client.Send)
			delete(h.clients, client)
		}
	}
}

// Publish implements registry.Notifier. Failures are logged, never returned:
// the registry write has already succeeded.
func (h *Hub) Publish(ctx context.Context, ev registry.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.Error("[feed] marshal event: %v", err)
		return
	}
	if err := h.redis.Publish(ctx, h.channel, payload).Err(); err != nil {
		logger.Warning("[feed] publish to %s: %v", h.channel, err)
	}
}

// SubscribeToRedis confirms the subscription, then forwards events to Run in
// the background until ctx is cancelled.
func (h *Hub) SubscribeToRedis(ctx context.Context) error {
	pubsub := h.redis.Subscribe(ctx, h.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("subscribe %s: %w", h.channel, err)
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev registry.Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					logger.Warning("[feed] ignoring malformed event: %v", err)
					continue
				}
				select {
				case h.broadcast <- message{chatID: ev.ChatID, payload: []byte(msg.Payload)}:
				case <-h.done:
					return
				}
			}
		}
	}()
	return nil
}

func (h *Hub) register(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}
