package service

import (
	"sync"

	"github.com/lalith-99/whisperline/internal/hub"
	"github.com/lalith-99/whisperline/internal/models"
	"github.com/lalith-99/whisperline/internal/repository"
	"go.uber.org/zap"
)

// Dispatcher computes the recipient set for each event and delivers it
// through the push channel, at most once per session per event.
// Delivery is fire-and-forget: recipients without a live session miss
// the event and resynchronize over the REST endpoints later.
//
// The Notify* methods assume the caller already holds the registry
// lock; UserOnline and UserOffline take it themselves because they are
// driven by the hub's session goroutines.
type Dispatcher struct {
	mu      *sync.Mutex
	pusher  Pusher
	friends repository.FriendRepository
	groups  repository.GroupRepository
	chats   repository.ConversationRepository
	logger  *zap.Logger
}

func NewDispatcher(
	mu *sync.Mutex,
	pusher Pusher,
	friends repository.FriendRepository,
	groups repository.GroupRepository,
	chats repository.ConversationRepository,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		mu:      mu,
		pusher:  pusher,
		friends: friends,
		groups:  groups,
		chats:   chats,
		logger:  logger,
	}
}

// Online reports whether the user currently holds a live session.
func (d *Dispatcher) Online(username string) bool {
	return d.pusher.IsOnline(username)
}

// RenameSession re-keys the presence entry during a username change.
func (d *Dispatcher) RenameSession(oldName, newName string) {
	d.pusher.RenameUser(oldName, newName)
}

// NotifyUser pushes one event to one user.
func (d *Dispatcher) NotifyUser(username, event string, data any) {
	d.pusher.Push(username, event, data)
}

// NotifyGroupMembers pushes an event to every current member of the
// group except the named sender ("" to reach everyone).
func (d *Dispatcher) NotifyGroupMembers(group models.Group, except, event string, data any) {
	for _, member := range group.Members {
		if member == except {
			continue
		}
		d.pusher.Push(member, event, data)
	}
}

// NotifyDirectPeer finds the other participant of a direct chat and
// pushes the event to them. The lookup scans all conversation lists.
func (d *Dispatcher) NotifyDirectPeer(chatID, sender, event string, data any) {
	peer, ok := d.chats.Peer(chatID, sender)
	if !ok {
		return
	}
	d.pusher.Push(peer, event, data)
}

// UserOnline fans a presence transition out to the user's friends and
// to every co-member of every shared group. A recipient who is both a
// friend and a co-member gets one notification per relationship; the
// fan-out is deliberately not deduplicated.
func (d *Dispatcher) UserOnline(username string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.presenceFanOut(username, hub.EventFriendOnline, hub.EventGroupMemberOnline)
}

// UserOffline mirrors UserOnline for disconnects, whether explicit
// logout or a dropped connection.
func (d *Dispatcher) UserOffline(username string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.presenceFanOut(username, hub.EventFriendOffline, hub.EventGroupMemberOffline)
}

func (d *Dispatcher) presenceFanOut(username, friendEvent, groupEvent string) {
	for _, edge := range d.friends.List(username) {
		d.pusher.Push(edge.Username, friendEvent, map[string]any{
			"username": username,
		})
	}

	for _, group := range d.groups.ForUser(username) {
		for _, member := range group.Members {
			if member == username {
				continue
			}
			d.pusher.Push(member, groupEvent, map[string]any{
				"groupId":  group.ID,
				"username": username,
			})
		}
	}
}
