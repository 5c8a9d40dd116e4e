package flatfile

import (
	"slices"

	"github.com/lalith-99/whisperline/internal/models"
)

type MessageStore struct {
	store *Store
}

func NewMessageStore(store *Store) *MessageStore {
	return &MessageStore{store: store}
}

func (s *MessageStore) List(chatID string) []models.Message {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	return slices.Clone(s.store.messages[chatID])
}

func (s *MessageStore) Append(chatID string, msg models.Message) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	s.store.messages[chatID] = append(s.store.messages[chatID], msg)
}

func (s *MessageStore) Init(chatID string, seed ...models.Message) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	s.store.messages[chatID] = slices.Clone(seed)
}

func (s *MessageStore) Delete(chatID string) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	delete(s.store.messages, chatID)
}
