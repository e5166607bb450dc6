package stream

import "sync"

// Well-known topics.
const (
	TopicPending  = "pending"
	TopicTracking = "tracking"
)

// Hub fans committed state changes out to subscribers. Publishers re-derive
// the payload after every committed mutation, so a subscriber that misses an
// intermediate message still converges on the latest state. Sends never
// block: a slow subscriber drops messages instead of stalling a writer.
type Hub struct {
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

// Client is one subscription to a topic.
type Client struct {
	Topic string
	Send  chan []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: map[string]map[*Client]struct{}{},
	}
}

// Register subscribes to a topic and returns the client handle.
func (h *Hub) Register(topic string) *Client {
	client := &Client{
		Topic: topic,
		Send:  make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[topic] == nil {
		h.clients[topic] = map[*Client]struct{}{}
	}
	h.clients[topic][client] = struct{}{}
	return client
}

// Unregister removes a subscription and closes its channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if topicClients, ok := h.clients[client.Topic]; ok {
		if _, ok := topicClients[client]; !ok {
			return
		}
		delete(topicClients, client)
		if len(topicClients) == 0 {
			delete(h.clients, client.Topic)
		}
		close(client.Send)
	}
}

// Broadcast delivers a payload to every subscriber of the topic. The read
// lock is held across the sends: Unregister closes Send under the write lock,
// so a send can never race the close. Sends stay non-blocking, so holding the
// lock cannot stall on a slow subscriber.
func (h *Hub) Broadcast(topic string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[topic] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}
