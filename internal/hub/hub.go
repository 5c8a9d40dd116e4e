// Package hub tracks which users currently hold a live websocket
// session and delivers push events to them. Delivery is best-effort
// and at-most-once: events for users without a session are dropped,
// and clients reconcile through the REST endpoints on reconnect.
package hub

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event is the wire frame in both directions:
// {"event": <name>, "data": <object>}.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Server-to-client event names.
const (
	EventFriendRequest      = "friend_request"
	EventFriendRemoved      = "friend_removed"
	EventRequestHandled     = "request_handled"
	EventChatCreated        = "chat_created"
	EventNewMessage         = "new_message"
	EventGroupCreated       = "group_created"
	EventGroupMessage       = "group_message"
	EventGroupMemberLeft    = "group_member_left"
	EventGroupDeleted       = "group_deleted"
	EventFriendOnline       = "friend_online"
	EventFriendOffline      = "friend_offline"
	EventGroupMemberOnline  = "group_member_online"
	EventGroupMemberOffline = "group_member_offline"
)

// EventUserOnline is the one client-to-server event: a session
// identifying which user it belongs to.
const EventUserOnline = "user_online"

// PresenceListener is told when a session binds to a username or when
// a bound session goes away. Both calls happen synchronously on the
// session's goroutine, so an explicit logout and a dropped TCP
// connection trigger the exact same offline fan-out.
type PresenceListener interface {
	UserOnline(username string)
	UserOffline(username string)
}

// Hub is the presence tracker: a live mapping from username to its
// active session, plus per-IP connection counts for admission control.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Client
	ipConns  map[string]int

	maxPerIP      int
	validUsername func(string) bool
	listener      PresenceListener
	logger        *zap.Logger

	wg     sync.WaitGroup
	closed bool
}

// New creates a hub. validUsername guards the user_online payload;
// sessions claiming a malformed username are disconnected outright.
func New(maxPerIP int, validUsername func(string) bool, logger *zap.Logger) *Hub {
	return &Hub{
		sessions:      make(map[string]*Client),
		ipConns:       make(map[string]int),
		maxPerIP:      maxPerIP,
		validUsername: validUsername,
		logger:        logger,
	}
}

// SetPresenceListener wires the fan-out dispatcher in. Set once during
// startup, before any connection is admitted.
func (h *Hub) SetPresenceListener(l PresenceListener) {
	h.listener = l
}

// Admit reserves a connection slot for the address. It returns false
// when the address already holds the maximum number of simultaneous
// sessions; the caller must refuse the upgrade.
func (h *Hub) Admit(addr string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	if h.ipConns[addr] >= h.maxPerIP {
		return false
	}
	h.ipConns[addr]++
	return true
}

// Release gives back the slot taken by Admit. Called directly only
// when the upgrade fails after admission; a served connection releases
// its own slot on disconnect.
func (h *Hub) Release(addr string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n := h.ipConns[addr]; n <= 1 {
		delete(h.ipConns, addr)
	} else {
		h.ipConns[addr] = n - 1
	}
}

// bind maps a username to its session. A newer session for the same
// username displaces the older mapping; the older socket stays open
// but no longer receives pushes.
func (h *Hub) bind(client *Client, username string) {
	h.mu.Lock()
	client.username = username
	h.sessions[username] = client
	count := len(h.sessions)
	h.mu.Unlock()

	h.logger.Info("user online",
		zap.String("username", username),
		zap.Int("online", count),
	)

	if h.listener != nil {
		h.listener.UserOnline(username)
	}
}

// drop removes a session. The offline fan-out fires only if this
// session is still the one mapped to its username.
func (h *Hub) drop(client *Client) {
	h.Release(client.addr)

	h.mu.Lock()
	username := client.username
	wasBound := username != "" && h.sessions[username] == client
	if wasBound {
		delete(h.sessions, username)
	}
	h.mu.Unlock()

	if wasBound {
		h.logger.Info("user offline", zap.String("username", username))
		if h.listener != nil {
			h.listener.UserOffline(username)
		}
	}
}

// IsOnline reports whether the user has a live session.
func (h *Hub) IsOnline(username string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.sessions[username]
	return ok
}

// OnlineCount returns the number of bound sessions.
func (h *Hub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.sessions)
}

// RenameUser follows an account rename: the session bound to oldName,
// if any, is re-keyed to newName. Part of the rename sweep.
func (h *Hub) RenameUser(oldName, newName string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, ok := h.sessions[oldName]; ok {
		delete(h.sessions, oldName)
		client.username = newName
		h.sessions[newName] = client
	}
}

// Push delivers one event to the user's session, if any. The send is
// non-blocking: a session whose buffer is full misses the event rather
// than stalling the caller.
func (h *Hub) Push(username, event string, data any) bool {
	h.mu.RLock()
	client, ok := h.sessions[username]
	h.mu.RUnlock()

	if !ok {
		return false
	}

	payload, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		h.logger.Error("failed to encode push event",
			zap.String("event", event),
			zap.Error(err),
		)
		return false
	}

	select {
	case client.send <- payload:
		return true
	default:
		h.logger.Warn("session send buffer full, dropping event",
			zap.String("username", username),
			zap.String("event", event),
		)
		return false
	}
}

// Shutdown closes every session and waits for the pump goroutines to
// finish, up to the timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.sessions))
	for _, client := range h.sessions {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		client.close()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.logger.Warn("hub shutdown timeout reached")
		return errShutdownTimeout
	}
}
