// Package websocket pushes a user's new notifications to the browser tabs
// that user has open.
package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"ecopoints/models"

	"github.com/apex/log"
)

// Message is the envelope written to clients.
type Message struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

type delivery struct {
	userID int64
	data   []byte
}

// Hub keeps the open connections of every user and routes messages to them.
type Hub struct {
	clients map[int64]map[*Client]bool
	mutex   sync.RWMutex

	Register   chan *Client
	Unregister chan *Client
	deliver    chan delivery
	done       chan struct{}
	stopOnce   sync.Once
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		deliver:    make(chan delivery, 256),
		done:       make(chan struct{}),
	}
}

// Run is the hub's main loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mutex.Lock()
			if h.clients[client.userID] == nil {
				h.clients[client.userID] = make(map[*Client]bool)
			}
			h.clients[client.userID][client] = true
			h.mutex.Unlock()
			log.Infof("WebSocket client registered for user %d", client.userID)

		case client := <-h.Unregister:
			h.mutex.Lock()
			h.removeLocked(client)
			h.mutex.Unlock()
			log.Infof("WebSocket client unregistered for user %d", client.userID)

		case d := <-h.deliver:
			h.mutex.Lock()
			for client := range h.clients[d.userID] {
				select {
				case client.send <- d.data:
				default:
					// slow reader
					h.removeLocked(client)
				}
			}
			h.mutex.Unlock()

		case <-h.done:
			h.mutex.Lock()
			for _, set := range h.clients {
				for client := range set {
					h.removeLocked(client)
				}
			}
			h.mutex.Unlock()
			return
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	set, ok := h.clients[client.userID]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	close(client.send)
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}
}

// Stop ends Run and closes every connection.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Notify pushes a notification to the user's open connections. It never
// blocks; the message is dropped when the hub is saturated.
func (h *Hub) Notify(userID int64, n *models.Notification) {
	data, err := json.Marshal(Message{Type: "notification", Data: n, Timestamp: time.Now().UTC()})
	if err != nil {
		log.Errorf("Failed to serialize notification: %v", err)
		return
	}
	select {
	case h.deliver <- delivery{userID: userID, data: data}:
	default:
		log.Warnf("WebSocket hub saturated, dropped notification for user %d", userID)
	}
}

// ConnectedClients returns the number of open connections of a user.
func (h *Hub) ConnectedClients(userID int64) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients[userID])
}

// TotalClients returns the number of open connections.
func (h *Hub) TotalClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	total := 0
	for _, set := range h.clients {
		total += len(set)
	}
	return total
}
