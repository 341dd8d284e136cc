package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/pkg/logger"
)

const sendBufferSize = 64

// Event is the JSON frame pushed to store members.
type Event struct {
	Type    string      `json:"type"`
	StoreID uint        `json:"store_id"`
	Payload interface{} `json:"payload"`
	At      time.Time   `json:"at"`
}

// Client is one websocket session of a profile.
type Client struct {
	Hub       *Hub
	Conn      *Conn
	StoreID   uint
	ProfileID uint
	Role      model.ProfileRole
	Send      chan []byte
}

func NewClient(hub *Hub, conn *Conn, actor model.Actor) *Client {
	return &Client{
		Hub:       hub,
		Conn:      conn,
		StoreID:   actor.StoreID,
		ProfileID: actor.ProfileID,
		Role:      actor.Role,
		Send:      make(chan []byte, sendBufferSize),
	}
}

func (c *Client) actor() model.Actor {
	return model.Actor{StoreID: c.StoreID, ProfileID: c.ProfileID, Role: c.Role}
}

type broadcastMessage struct {
	storeID  uint
	audience model.Audience
	data     []byte
}

// Hub fans store events out to the sessions of that store in the event's
// audience.
type Hub struct {
	// storeID -> sessions
	rooms map[uint]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMessage
	done       chan struct{}

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uint]map[*Client]bool),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan *broadcastMessage, 1024),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.rooms[client.StoreID]; !ok {
				h.rooms[client.StoreID] = make(map[*Client]bool)
			}
			h.rooms[client.StoreID][client] = true
			sessions := len(h.rooms[client.StoreID])
			h.mu.Unlock()
			logger.Info("WebSocket client registered", map[string]interface{}{
				"store_id":   client.StoreID,
				"profile_id": client.ProfileID,
				"sessions":   sessions,
			})

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			var slow []*Client
			h.mu.RLock()
			for client := range h.rooms[message.storeID] {
				if !message.audience.Includes(client.actor()) {
					continue
				}
				select {
				case client.Send <- message.data:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()
			for _, client := range slow {
				logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
					"store_id":   client.StoreID,
					"profile_id": client.ProfileID,
				})
				h.removeClient(client)
			}
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.rooms[client.StoreID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.rooms, client.StoreID)
	}
	close(client.Send)

	logger.Info("WebSocket client unregistered", map[string]interface{}{
		"store_id":   client.StoreID,
		"profile_id": client.ProfileID,
	})
}

// Stop ends Run.
func (h *Hub) Stop() {
	close(h.done)
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Publish sends an event to the sessions of storeID that belong to the
// audience. Events are dropped when the broadcast queue is full.
func (h *Hub) Publish(storeID uint, to model.Audience, eventType string, payload interface{}) {
	data, err := json.Marshal(Event{
		Type:    eventType,
		StoreID: storeID,
		Payload: payload,
		At:      time.Now().UTC(),
	})
	if err != nil {
		logger.Error("Failed to marshal event", err, map[string]interface{}{
			"type": eventType,
		})
		return
	}

	select {
	case h.broadcast <- &broadcastMessage{storeID: storeID, audience: to, data: data}:
	default:
		logger.Warn("Broadcast channel full, event dropped", map[string]interface{}{
			"store_id": storeID,
			"type":     eventType,
		})
	}
}

// SessionCount returns the number of open sessions in a store.
func (h *Hub) SessionCount(storeID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[storeID])
}
