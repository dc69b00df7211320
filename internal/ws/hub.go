// Package ws is the notification sink: a websocket hub fanning out group
// change events to connected members. Publishing is fire-and-forget and sits
// outside the consistency boundary; a dropped event never rolls back a
// committed balance change.
package ws

import (
	"encoding/json"
	"sync"
)

// Event names pushed to group subscribers.
const (
	EventNewTransaction     = "newTransaction"
	EventTransactionUpdated = "transactionUpdated"
	EventTransactionDeleted = "transactionDeleted"
	EventNewLog             = "newLog"
)

type envelope struct {
	Event   string `json:"event"`
	GroupID string `json:"group_id"`
	Payload any    `json:"payload"`
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(groupID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[groupID] == nil {
		h.clients[groupID] = make(map[*Client]struct{})
	}
	h.clients[groupID][client] = struct{}{}
}

func (h *Hub) Unregister(groupID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[groupID] == nil {
		return
	}
	delete(h.clients[groupID], client)
	if len(h.clients[groupID]) == 0 {
		delete(h.clients, groupID)
	}
}

// Publish sends an event to every client subscribed to the group. Slow
// clients with a full send buffer are skipped rather than blocking the
// publishing request.
func (h *Hub) Publish(groupID, event string, payload any) {
	message, _ := json.Marshal(envelope{Event: event, GroupID: groupID, Payload: payload})
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[groupID] {
		select {
		case client.send <- message:
		default:
		}
	}
}
