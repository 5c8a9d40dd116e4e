package flatfile

import (
	"slices"
	"time"

	"github.com/lalith-99/whisperline/internal/models"
)

type ConversationStore struct {
	store *Store
}

func NewConversationStore(store *Store) *ConversationStore {
	return &ConversationStore{store: store}
}

func (s *ConversationStore) List(username string) []models.Conversation {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	return slices.Clone(s.store.chats[username])
}

func (s *ConversationStore) Save(username string, convos []models.Conversation) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	s.store.chats[username] = slices.Clone(convos)
}

func (s *ConversationStore) FindDirect(username, peer string) (models.Conversation, bool) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	for _, convo := range s.store.chats[username] {
		if !convo.IsGroup && convo.WithUser == peer {
			return convo, true
		}
	}
	return models.Conversation{}, false
}

// Append drops any stale view with the same id (and, for direct
// chats, any older view toward the same peer) before adding the new
// one. This keeps a user's list free of duplicate entries for one
// logical conversation.
func (s *ConversationStore) Append(username string, convo models.Conversation) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	existing := s.store.chats[username]
	filtered := existing[:0:0]
	for _, c := range existing {
		if c.ID == convo.ID {
			continue
		}
		if !convo.IsGroup && !c.IsGroup && c.WithUser == convo.WithUser {
			continue
		}
		filtered = append(filtered, c)
	}
	s.store.chats[username] = append(filtered, convo)
}

func (s *ConversationStore) RemoveByChatID(username, chatID string) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	existing := s.store.chats[username]
	filtered := existing[:0:0]
	for _, c := range existing {
		if c.ID != chatID {
			filtered = append(filtered, c)
		}
	}
	s.store.chats[username] = filtered
}

// Peer finds the other participant of a direct chat by scanning every
// user's conversation list for a view of chatID owned by someone other
// than sender. Linear in the total number of conversations; fine at
// the scale a flat-file store implies.
func (s *ConversationStore) Peer(chatID, sender string) (string, bool) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	for username, convos := range s.store.chats {
		if username == sender {
			continue
		}
		for _, c := range convos {
			if c.ID == chatID {
				return username, true
			}
		}
	}
	return "", false
}

func (s *ConversationStore) Touch(chatID, preview string, at time.Time) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	for username, convos := range s.store.chats {
		for i := range convos {
			if convos[i].ID == chatID {
				convos[i].LastMessage = preview
				convos[i].LastActivity = at
			}
		}
		s.store.chats[username] = convos
	}
}

func (s *ConversationStore) TouchForMembers(chatID string, members []string, preview string, at time.Time) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	for _, member := range members {
		convos := s.store.chats[member]
		for i := range convos {
			if convos[i].ID == chatID {
				convos[i].LastMessage = preview
				convos[i].LastActivity = at
			}
		}
		s.store.chats[member] = convos
	}
}

func (s *ConversationStore) Total() int {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	total := 0
	for _, convos := range s.store.chats {
		total += len(convos)
	}
	return total
}

func (s *ConversationStore) RenameUser(oldName, newName string) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	if convos, ok := s.store.chats[oldName]; ok {
		delete(s.store.chats, oldName)
		s.store.chats[newName] = convos
	}
	for username, convos := range s.store.chats {
		for i := range convos {
			if convos[i].WithUser == oldName {
				convos[i].WithUser = newName
			}
		}
		s.store.chats[username] = convos
	}
}
