package flatfile

import (
	"slices"

	"github.com/lalith-99/whisperline/internal/models"
)

type GroupStore struct {
	store *Store
}

func NewGroupStore(store *Store) *GroupStore {
	return &GroupStore{store: store}
}

func (s *GroupStore) Get(id string) (models.Group, bool) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	g, ok := s.store.groups[id]
	if !ok {
		return models.Group{}, false
	}
	g.Members = slices.Clone(g.Members)
	return g, true
}

func (s *GroupStore) Put(group models.Group) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	group.Members = slices.Clone(group.Members)
	s.store.groups[group.ID] = group
}

func (s *GroupStore) Delete(id string) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	delete(s.store.groups, id)
}

func (s *GroupStore) Exists(id string) bool {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	_, ok := s.store.groups[id]
	return ok
}

func (s *GroupStore) Count() int {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	return len(s.store.groups)
}

func (s *GroupStore) ForUser(username string) []models.Group {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	var result []models.Group
	for _, g := range s.store.groups {
		if g.IsMember(username) {
			g.Members = slices.Clone(g.Members)
			result = append(result, g)
		}
	}
	return result
}

func (s *GroupStore) RenameUser(oldName, newName string) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	for id, g := range s.store.groups {
		changed := false
		for i, m := range g.Members {
			if m == oldName {
				g.Members[i] = newName
				changed = true
			}
		}
		if g.Creator == oldName {
			g.Creator = newName
			changed = true
		}
		if changed {
			s.store.groups[id] = g
		}
	}
}
