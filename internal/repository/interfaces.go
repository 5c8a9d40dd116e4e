package repository

import (
	"time"

	"github.com/lalith-99/whisperline/internal/models"
)

// The repositories below are in-memory collections backed by the
// flat-file store. Methods return copies: callers never see
// the backing maps or slices. Single-step methods are safe on their
// own; multi-step registry operations (symmetric friend insertion,
// group creation, the rename sweep) are serialized by the service
// layer's lock on top of these.

// UserRepository holds accounts keyed by username.
type UserRepository interface {
	// Get returns a copy of the user. ok is false if unknown.
	Get(username string) (models.User, bool)

	// Put inserts or replaces the record stored under user.Username.
	Put(user models.User)

	Exists(username string) bool
	Count() int

	// Rename moves the record to a new username key and rewrites the
	// embedded Username field. No-op if oldName is unknown.
	Rename(oldName, newName string)
}

// FriendRepository holds each user's friend edges. The symmetric
// invariant (A lists B iff B lists A) is maintained by the identity
// service, not here.
type FriendRepository interface {
	List(username string) []models.FriendEdge
	Save(username string, edges []models.FriendEdge)
	Has(username, friend string) bool

	// TotalEdges counts edges across all users (directed, so a
	// friendship counts twice). Used by the health endpoint.
	TotalEdges() int

	// RenameUser renames both the queue key and every embedded peer
	// username.
	RenameUser(oldName, newName string)
}

// ConversationRepository holds per-user conversation views. Direct
// chats appear twice (one mirrored view per participant); group chats
// once per member.
type ConversationRepository interface {
	List(username string) []models.Conversation
	Save(username string, convos []models.Conversation)

	// FindDirect returns the non-group view username holds toward peer.
	FindDirect(username, peer string) (models.Conversation, bool)

	// Append adds a view to username's list, first dropping any stale
	// view with the same id (and, for direct chats, the same peer).
	Append(username string, convo models.Conversation)

	// RemoveByChatID drops username's view of the given chat.
	RemoveByChatID(username, chatID string)

	// Peer scans every user's list for a view of chatID whose WithUser
	// differs from sender and returns that list's owner. This is the
	// direct-chat recipient lookup: O(total conversations) per send.
	Peer(chatID, sender string) (string, bool)

	// Touch updates LastMessage and LastActivity on every view of
	// chatID across all users.
	Touch(chatID, preview string, at time.Time)

	// TouchForMembers is the group-path variant of Touch, limited to
	// the given members' lists.
	TouchForMembers(chatID string, members []string, preview string, at time.Time)

	Total() int

	// RenameUser renames the list key and every WithUser field that
	// references oldName.
	RenameUser(oldName, newName string)
}

// GroupRepository holds canonical group records keyed by group id.
type GroupRepository interface {
	Get(id string) (models.Group, bool)
	Put(group models.Group)
	Delete(id string)
	Exists(id string) bool
	Count() int

	// ForUser returns every group the username is a member of.
	ForUser(username string) []models.Group

	// RenameUser rewrites membership and creator fields.
	RenameUser(oldName, newName string)
}

// MessageRepository holds append-only message logs keyed by chat id.
type MessageRepository interface {
	List(chatID string) []models.Message
	Append(chatID string, msg models.Message)

	// Init creates an empty log (or replaces an existing one) so the
	// chat id becomes retrievable.
	Init(chatID string, seed ...models.Message)

	// Delete removes the whole log. Used only by group deletion.
	Delete(chatID string)
}

// RequestRepository holds pending requests in the target user's queue.
type RequestRepository interface {
	ListFor(username string) []models.PendingRequest
	Save(username string, reqs []models.PendingRequest)
	Add(username string, req models.PendingRequest)

	// HasFrom reports whether `to`'s queue already holds a request
	// from `from`. This is the idempotent-request guard.
	HasFrom(to, from string) bool

	// Take scans every queue for the request id and removes it exactly
	// once. Queues are small, so the scan is acceptable.
	Take(requestID string) (models.PendingRequest, bool)

	// RenameUser rewrites queue keys and from/to fields.
	RenameUser(oldName, newName string)
}

// Persister flushes every collection to durable storage.
type Persister interface {
	PersistAll() error
}
