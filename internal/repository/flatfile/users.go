package flatfile

import "github.com/lalith-99/whisperline/internal/models"

type UserStore struct {
	store *Store
}

func NewUserStore(store *Store) *UserStore {
	return &UserStore{store: store}
}

func (s *UserStore) Get(username string) (models.User, bool) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	u, ok := s.store.users[username]
	return u, ok
}

func (s *UserStore) Put(user models.User) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	s.store.users[user.Username] = user
}

func (s *UserStore) Exists(username string) bool {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	_, ok := s.store.users[username]
	return ok
}

func (s *UserStore) Count() int {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	return len(s.store.users)
}

func (s *UserStore) Rename(oldName, newName string) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	u, ok := s.store.users[oldName]
	if !ok {
		return
	}
	delete(s.store.users, oldName)
	u.Username = newName
	s.store.users[newName] = u
}
