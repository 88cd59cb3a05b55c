// Package push tracks live websocket channels per user and delivers serialized
// notification frames to them.
package push

import (
	"log/slog"
	"sync"
)

// Conn is a live push channel. Send must be safe for concurrent use and must return
// an error once the channel is dead or a write times out.
type Conn interface {
	Send(msg []byte) error
}

// Registry maps user ids to their set of live channels
type Registry struct {
	mu    sync.RWMutex
	conns map[uint64]map[Conn]struct{}
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{conns: make(map[uint64]map[Conn]struct{})}
}

// Register adds conn to the user's set. Registering the same conn twice is a no-op.
func (r *Registry) Register(conn Conn, userID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[userID]
	if !ok {
		set = make(map[Conn]struct{})
		r.conns[userID] = set
	}
	set[conn] = struct{}{}
	slog.Debug("push channel registered", "user_id", userID, "channels", len(set))
}

// Unregister removes conn and drops the user's entry once it is empty
func (r *Registry) Unregister(conn Conn, userID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(conn, userID)
}

func (r *Registry) removeLocked(conn Conn, userID uint64) {
	set, ok := r.conns[userID]
	if !ok {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(r.conns, userID)
	}
}

// Deliver sends msg to every channel of the user and returns how many sends
// succeeded. Channels whose send fails are evicted. A user with no channels is a no-op.
func (r *Registry) Deliver(msg []byte, userID uint64) int {
	r.mu.RLock()
	set := r.conns[userID]
	snapshot := make([]Conn, 0, len(set))
	for c := range set {
		snapshot = append(snapshot, c)
	}
	r.mu.RUnlock()

	if len(snapshot) == 0 {
		return 0
	}

	delivered := 0
	var dead []Conn
	for _, c := range snapshot {
		if err := c.Send(msg); err != nil {
			slog.Warn("push send failed, evicting channel", "user_id", userID, "error", err)
			dead = append(dead, c)
			continue
		}
		delivered++
	}

	if len(dead) > 0 {
		r.mu.Lock()
		for _, c := range dead {
			r.removeLocked(c, userID)
		}
		r.mu.Unlock()
	}
	return delivered
}

// Broadcast delivers msg to each listed user
func (r *Registry) Broadcast(msg []byte, userIDs []uint64) int {
	total := 0
	for _, id := range userIDs {
		total += r.Deliver(msg, id)
	}
	return total
}

// IsConnected reports whether the user has at least one live channel
func (r *Registry) IsConnected(userID uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID]) > 0
}

// Connections returns the total number of live channels
func (r *Registry) Connections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, set := range r.conns {
		n += len(set)
	}
	return n
}
