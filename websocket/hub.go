package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/homeservices_backend/models"
)

// Bridge carries frames and presence between server instances
type Bridge interface {
	Publish(ctx context.Context, topics []string, frame []byte) error
	Listen(ctx context.Context, deliver func(topics []string, frame []byte) int) error
	MarkOnline(ctx context.Context, userID primitive.ObjectID) error
	MarkOffline(ctx context.Context, userID primitive.ObjectID) error
	Online(ctx context.Context, userID primitive.ObjectID) (bool, error)
}

// presenceRefresh keeps shared presence entries of local users alive
const presenceRefresh = PresenceTTL / 3

// Hub multiplexes events into topics. Delivery is best effort: a topic with
// no subscribers simply drops the event.
type Hub struct {
	registry *Registry
	bridge   Bridge

	mu     sync.RWMutex
	topics map[string]map[*Client]struct{}
	rooms  map[*Client]map[string]struct{}

	now func() time.Time
}

// NewHub creates a new Hub instance
func NewHub(registry *Registry) *Hub {
	return &Hub{
		registry: registry,
		topics:   make(map[string]map[*Client]struct{}),
		rooms:    make(map[*Client]map[string]struct{}),
		now:      time.Now,
	}
}

// UseBridge enables cross-instance fanout and shared presence
func (h *Hub) UseBridge(bridge Bridge) {
	h.bridge = bridge
}

// Registry exposes presence lookups
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Run relays events from other instances until ctx is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	if h.bridge != nil {
		go func() {
			if err := h.bridge.Listen(ctx, h.deliver); err != nil && ctx.Err() == nil {
				log.Printf("Realtime bridge stopped: %v", err)
			}
		}()
		go h.refreshPresence(ctx)
	}
	<-ctx.Done()
	h.closeAll()
}

func (h *Hub) refreshPresence(ctx context.Context) {
	ticker := time.NewTicker(presenceRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, userID := range h.registry.OnlineUsers() {
				h.setPresence(userID, true)
			}
		}
	}
}

// setPresence mirrors local presence to the bridge
func (h *Hub) setPresence(userID primitive.ObjectID, online bool) {
	if h.bridge == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var err error
	if online {
		err = h.bridge.MarkOnline(ctx, userID)
	} else {
		err = h.bridge.MarkOffline(ctx, userID)
	}
	if err != nil {
		log.Printf("Failed to update presence for %s: %v", userID.Hex(), err)
	}
}

// Authenticate binds a connection to a user and joins the user's own topic
func (h *Hub) Authenticate(client *Client, userID primitive.ObjectID) {
	prev := client.UserID()
	if prev != primitive.NilObjectID && prev != userID {
		h.Leave(client, models.UserTopic(prev))
	}
	client.setUser(userID)
	h.registry.Register(userID, client)
	h.Join(client, models.UserTopic(userID))

	h.setPresence(userID, true)
	if prev != primitive.NilObjectID && prev != userID && !h.registry.IsOnline(prev) {
		h.setPresence(prev, false)
	}
}

// Unregister removes a connection from the registry and from every topic
func (h *Hub) Unregister(client *Client) {
	if userID, offline := h.registry.Unregister(client); offline {
		h.setPresence(userID, false)
	}

	h.mu.Lock()
	for topic := range h.rooms[client] {
		h.removeLocked(topic, client)
	}
	delete(h.rooms, client)
	h.mu.Unlock()

	client.close()
}

// Join subscribes a connection to a topic
func (h *Hub) Join(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Client]struct{})
		h.topics[topic] = subs
	}
	subs[client] = struct{}{}

	rooms, ok := h.rooms[client]
	if !ok {
		rooms = make(map[string]struct{})
		h.rooms[client] = rooms
	}
	rooms[topic] = struct{}{}
}

// Leave unsubscribes a connection from a topic
func (h *Hub) Leave(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(topic, client)
	delete(h.rooms[client], topic)
}

func (h *Hub) removeLocked(topic string, client *Client) {
	subs := h.topics[topic]
	delete(subs, client)
	if len(subs) == 0 {
		delete(h.topics, topic)
	}
}

// Rooms returns the topics a connection is subscribed to
func (h *Hub) Rooms(client *Client) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rooms := make([]string, 0, len(h.rooms[client]))
	for topic := range h.rooms[client] {
		rooms = append(rooms, topic)
	}
	return rooms
}

// IsOnline reports whether the user has a connection on this instance or,
// with a bridge, on any instance
func (h *Hub) IsOnline(userID primitive.ObjectID) bool {
	if h.registry.IsOnline(userID) {
		return true
	}
	if h.bridge == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	online, err := h.bridge.Online(ctx, userID)
	if err != nil {
		log.Printf("Failed to read presence for %s: %v", userID.Hex(), err)
		return false
	}
	return online
}

// EmitToUser sends an event to every connection of a user
func (h *Hub) EmitToUser(userID primitive.ObjectID, payload models.EventPayload) error {
	return h.EmitToTopics([]string{models.UserTopic(userID)}, payload)
}

// EmitToTopic sends an event to every subscriber of a topic
func (h *Hub) EmitToTopic(topic string, payload models.EventPayload) error {
	return h.EmitToTopics([]string{topic}, payload)
}

// EmitToTopics sends one event to the union of subscribers of several topics.
// A connection subscribed to more than one of them receives it once.
func (h *Hub) EmitToTopics(topics []string, payload models.EventPayload) error {
	frame, err := json.Marshal(models.NewEvent(payload, h.now()))
	if err != nil {
		return err
	}

	h.deliver(topics, frame)

	if h.bridge != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return h.bridge.Publish(ctx, topics, frame)
	}
	return nil
}

// Send writes an event to a single connection
func (h *Hub) Send(client *Client, payload models.EventPayload) error {
	frame, err := json.Marshal(models.NewEvent(payload, h.now()))
	if err != nil {
		return err
	}
	client.enqueue(frame)
	return nil
}

// deliver fans a frame out to local subscribers and returns how many
// connections accepted it
func (h *Hub) deliver(topics []string, frame []byte) int {
	h.mu.RLock()
	targets := make(map[*Client]struct{})
	for _, topic := range topics {
		for client := range h.topics[topic] {
			targets[client] = struct{}{}
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for client := range targets {
		if client.enqueue(frame) {
			delivered++
		}
	}
	return delivered
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms))
	for client := range h.rooms {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		h.Unregister(client)
	}
}
