package models

import (
	"encoding/json"
	"time"
)

// Sender name used for messages authored by the server itself
// (group created, member left, "you are now friends").
const SystemSender = "system"

// Message types. Direct messages are either plaintext ("text") or an
// opaque end-to-end encrypted payload ("encrypted") the server stores
// without ever decoding. Group traffic is always plaintext ("group").
const (
	MessageTypeText      = "text"
	MessageTypeEncrypted = "encrypted"
	MessageTypeGroup     = "group"
	MessageTypeSystem    = "system"
	MessageTypeFile      = "file"
)

// EncryptedPlaceholder is what a conversation preview (and the stored
// text field) shows for an encrypted message. The server never derives
// anything from the ciphertext itself.
const (
	EncryptedPlaceholder     = "🔒 Encrypted message"
	EncryptedFilePlaceholder = "🔒 Encrypted file"
)

// User is an account. Username is the primary key used throughout the
// other collections: friend edges, conversation views, and group
// membership all embed it as data, which is why a rename has to sweep
// every collection (see the identity service).
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"password,omitempty"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	LastLogin time.Time `json:"lastLogin"`
}

// Public returns a copy safe to hand to clients: same user, no
// credential hash.
func (u User) Public() User {
	u.Password = ""
	return u
}

// FriendEdge is one half of a symmetric friendship. If A's list holds
// an edge to B, B's list must hold an edge to A.
type FriendEdge struct {
	Username string    `json:"username"`
	Since    time.Time `json:"since"`
}

// FriendView is a FriendEdge enriched with live data for the friends
// listing: presence, current avatar, and last seen time.
type FriendView struct {
	FriendEdge
	Online   bool       `json:"online"`
	Avatar   string     `json:"avatar,omitempty"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

// PendingRequest lives only in the target user's queue and is removed
// exactly once when accepted or declined. At most one outstanding
// request per (FromUser, ToUser) pair.
type PendingRequest struct {
	ID        string    `json:"id"`
	FromUser  string    `json:"fromUser"`
	ToUser    string    `json:"toUser"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Conversation is a per-user summary of a chat, distinct from the
// message log itself. Direct chats have two mirrored views sharing one
// ID; group chats have one view per member derived from the canonical
// Group record.
type Conversation struct {
	ID           string    `json:"id"`
	WithUser     string    `json:"withUser"`
	Avatar       string    `json:"avatar,omitempty"`
	LastMessage  string    `json:"lastMessage,omitempty"`
	LastActivity time.Time `json:"lastActivity"`
	Pinned       bool      `json:"pinned"`
	Blocked      bool      `json:"blocked"`
	Encrypted    bool      `json:"encrypted"`
	IsGroup      bool      `json:"isGroup"`
	GroupID      string    `json:"groupId,omitempty"`
}

// Group is the single canonical record for a group chat. The creator
// is always present in Members.
type Group struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Creator      string    `json:"creator"`
	Members      []string  `json:"members"`
	CreatedAt    time.Time `json:"createdAt"`
	Avatar       string    `json:"avatar,omitempty"`
	LastActivity time.Time `json:"lastActivity"`
}

// IsMember reports whether username currently belongs to the group.
func (g *Group) IsMember(username string) bool {
	for _, m := range g.Members {
		if m == username {
			return true
		}
	}
	return false
}

// FileAttachment describes an uploaded file carried by a message. The
// stored blob is opaque; size and type were validated at intake.
type FileAttachment struct {
	OriginalName string `json:"originalname"`
	Filename     string `json:"filename"`
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	Type         string `json:"type"`
	Encrypted    bool   `json:"encrypted"`
}

// Message is one immutable entry in a conversation's append-only log.
// EncryptedData is kept as raw JSON: the server relays it untouched.
type Message struct {
	ID            string          `json:"id"`
	ChatID        string          `json:"chatId"`
	Sender        string          `json:"sender"`
	Text          string          `json:"text,omitempty"`
	EncryptedData json.RawMessage `json:"encryptedData,omitempty"`
	File          *FileAttachment `json:"file,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	Type          string          `json:"type"`
}
