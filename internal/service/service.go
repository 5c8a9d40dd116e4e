// Package service implements the registries and the fan-out
// dispatcher. Every multi-step mutation runs inside one shared mutex,
// so other operations always observe it as a whole: the symmetric
// friend edge, the per-member conversation views, and the group record
// never appear half-written to a concurrent reader.
package service

import (
	"github.com/lalith-99/whisperline/internal/repository"
)

// Pusher is the slice of the hub the services need: deliver one event
// to one user's live session, check presence, and follow a rename.
type Pusher interface {
	Push(username, event string, data any) bool
	IsOnline(username string) bool
	RenameUser(oldName, newName string)
}

// Repos bundles the repositories the registries operate on. All six
// are views over the same flat-file store.
type Repos struct {
	Users    repository.UserRepository
	Friends  repository.FriendRepository
	Chats    repository.ConversationRepository
	Messages repository.MessageRepository
	Requests repository.RequestRepository
	Groups   repository.GroupRepository
}
