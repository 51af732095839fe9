package monitor

import (
	"encoding/json"
	"log"
)

// Snapshot is one training-progress observation pushed to every attached
// viewer.
type Snapshot struct {
	Network   string  `json:"network"`
	Epoch     int     `json:"epoch"`
	Batch     int     `json:"batch"`
	Loss      float64 `json:"loss"`
	Accuracy  float64 `json:"accuracy"`
	Timestamp int64   `json:"timestamp"`
}

// Hub maintains the set of attached viewer clients and broadcasts training
// snapshots to them. Publishing never blocks the training loop: slow
// clients are dropped.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Inbound snapshots from the training loop.
	snapshots chan Snapshot

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		snapshots:  make(chan Snapshot, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Run processes registrations and broadcasts until the process exits.
// Start it on its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case snapshot := <-h.snapshots:
			h.broadcast(snapshot)
		}
	}
}

// Publish enqueues a snapshot for broadcast. It drops the snapshot instead
// of blocking when the hub is saturated.
func (h *Hub) Publish(s Snapshot) {
	select {
	case h.snapshots <- s:
	default:
	}
}

func (h *Hub) broadcast(s Snapshot) {
	payload, err := json.Marshal(s)
	if err != nil {
		log.Printf("monitor: error encoding snapshot: %v", err)
		return
	}
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			// Client cannot keep up; disconnect it.
			delete(h.clients, client)
			close(client.send)
		}
	}
}
