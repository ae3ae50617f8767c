package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"picturegram-sync/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 10 * time.Second

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type      string `json:"type"`
	Count     *int   `json:"count,omitempty"`
	PhotoID   string `json:"photo_id,omitempty"`
	Liked     *bool  `json:"liked,omitempty"`
	LikeCount *int   `json:"like_count,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Conn is the part of *websocket.Conn the hub writes to
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type wsClient struct {
	conn Conn
	mu   sync.Mutex
	sub  *Subscription
}

func (c *wsClient) send(message WSMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// WSHub manages WebSocket connections and keeps each one subscribed to its
// user's unread count
type WSHub struct {
	mu      sync.RWMutex
	clients map[string]*wsClient
	unread  *UnreadCounter
}

// NewWSHub creates a new WebSocket hub
func NewWSHub(unread *UnreadCounter) *WSHub {
	return &WSHub{
		clients: make(map[string]*wsClient),
		unread:  unread,
	}
}

// Register registers a connection for the principal and starts pushing
// unread_count messages to it. An older connection of the same user is closed.
func (h *WSHub) Register(ctx context.Context, p models.Principal, conn Conn) error {
	client := &wsClient{conn: conn}

	sub, err := h.unread.Subscribe(ctx, p.DisplayName, func(count int) {
		if err := client.send(WSMessage{Type: "unread_count", Count: &count}); err != nil {
			log.Debug().Err(err).Str("user_id", p.ID).Msg("Failed to push unread count")
		}
	})
	if err != nil {
		return err
	}
	client.sub = sub

	h.mu.Lock()
	previous := h.clients[p.ID]
	h.clients[p.ID] = client
	h.mu.Unlock()

	if previous != nil {
		previous.close()
	}

	log.Info().Str("user_id", p.ID).Msg("WebSocket connection registered")
	return nil
}

// Unregister removes conn if it is still the user's current connection
func (h *WSHub) Unregister(userID string, conn Conn) {
	h.mu.Lock()
	client, exists := h.clients[userID]
	if !exists || client.conn != conn {
		h.mu.Unlock()
		return
	}
	delete(h.clients, userID)
	h.mu.Unlock()

	client.close()
	log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")
}

// SendToUser sends a message to a specific user
func (h *WSHub) SendToUser(userID string, message WSMessage) error {
	h.mu.RLock()
	client, exists := h.clients[userID]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("user %s is not connected", userID)
	}

	if err := client.send(message); err != nil {
		h.Unregister(userID, client.conn)
		return err
	}
	return nil
}

// Close drops every connection
func (h *WSHub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*wsClient)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (c *wsClient) close() {
	if c.sub != nil {
		c.sub.Cancel()
	}
	c.conn.Close()
}
