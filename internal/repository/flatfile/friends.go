package flatfile

import (
	"slices"

	"github.com/lalith-99/whisperline/internal/models"
)

type FriendStore struct {
	store *Store
}

func NewFriendStore(store *Store) *FriendStore {
	return &FriendStore{store: store}
}

func (s *FriendStore) List(username string) []models.FriendEdge {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	return slices.Clone(s.store.friends[username])
}

func (s *FriendStore) Save(username string, edges []models.FriendEdge) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	s.store.friends[username] = slices.Clone(edges)
}

func (s *FriendStore) Has(username, friend string) bool {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	for _, edge := range s.store.friends[username] {
		if edge.Username == friend {
			return true
		}
	}
	return false
}

func (s *FriendStore) TotalEdges() int {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	total := 0
	for _, edges := range s.store.friends {
		total += len(edges)
	}
	return total
}

func (s *FriendStore) RenameUser(oldName, newName string) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	if edges, ok := s.store.friends[oldName]; ok {
		delete(s.store.friends, oldName)
		s.store.friends[newName] = edges
	}
	for username, edges := range s.store.friends {
		for i := range edges {
			if edges[i].Username == oldName {
				edges[i].Username = newName
			}
		}
		s.store.friends[username] = edges
	}
}
