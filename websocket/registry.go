package websocket

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Registry tracks which users have live connections. A user may hold any
// number of connections at once (devices, tabs).
type Registry struct {
	mu     sync.RWMutex
	byUser map[primitive.ObjectID]map[*Client]struct{}
	owner  map[*Client]primitive.ObjectID
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[primitive.ObjectID]map[*Client]struct{}),
		owner:  make(map[*Client]primitive.ObjectID),
	}
}

// Register binds a connection to a user. Re-registering a connection under a
// different user moves it.
func (r *Registry) Register(userID primitive.ObjectID, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.owner[client]; ok {
		if prev == userID {
			return
		}
		r.removeLocked(prev, client)
	}

	conns, ok := r.byUser[userID]
	if !ok {
		conns = make(map[*Client]struct{})
		r.byUser[userID] = conns
	}
	conns[client] = struct{}{}
	r.owner[client] = userID
}

// Unregister removes a connection from whichever user owns it. It returns the
// owner and whether that user is now offline. Calling it twice is harmless.
func (r *Registry) Unregister(client *Client) (primitive.ObjectID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.owner[client]
	if !ok {
		return primitive.NilObjectID, false
	}
	return userID, r.removeLocked(userID, client)
}

func (r *Registry) removeLocked(userID primitive.ObjectID, client *Client) bool {
	delete(r.owner, client)
	conns := r.byUser[userID]
	delete(conns, client)
	if len(conns) == 0 {
		delete(r.byUser, userID)
		return true
	}
	return false
}

// IsOnline reports whether the user has at least one live connection
func (r *Registry) IsOnline(userID primitive.ObjectID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byUser[userID]) > 0
}

// OnlineUsers returns a snapshot of connected user ids
func (r *Registry) OnlineUsers() []primitive.ObjectID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]primitive.ObjectID, 0, len(r.byUser))
	for userID := range r.byUser {
		users = append(users, userID)
	}
	return users
}

// Connections returns a snapshot of the user's connections
func (r *Registry) Connections(userID primitive.ObjectID) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Client, 0, len(r.byUser[userID]))
	for c := range r.byUser[userID] {
		conns = append(conns, c)
	}
	return conns
}

// Count returns the number of registered connections
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.owner)
}
