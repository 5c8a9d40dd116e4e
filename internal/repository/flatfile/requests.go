package flatfile

import (
	"slices"

	"github.com/lalith-99/whisperline/internal/models"
)

type RequestStore struct {
	store *Store
}

func NewRequestStore(store *Store) *RequestStore {
	return &RequestStore{store: store}
}

func (s *RequestStore) ListFor(username string) []models.PendingRequest {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	return slices.Clone(s.store.requests[username])
}

func (s *RequestStore) Save(username string, reqs []models.PendingRequest) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	s.store.requests[username] = slices.Clone(reqs)
}

func (s *RequestStore) Add(username string, req models.PendingRequest) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	s.store.requests[username] = append(s.store.requests[username], req)
}

func (s *RequestStore) HasFrom(to, from string) bool {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	for _, req := range s.store.requests[to] {
		if req.FromUser == from {
			return true
		}
	}
	return false
}

// Take removes the request from whichever queue holds it. Requests are
// not globally indexed, so this scans every queue; queues stay small.
func (s *RequestStore) Take(requestID string) (models.PendingRequest, bool) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	for username, reqs := range s.store.requests {
		for i, req := range reqs {
			if req.ID == requestID {
				s.store.requests[username] = append(reqs[:i:i], reqs[i+1:]...)
				return req, true
			}
		}
	}
	return models.PendingRequest{}, false
}

func (s *RequestStore) RenameUser(oldName, newName string) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	if reqs, ok := s.store.requests[oldName]; ok {
		delete(s.store.requests, oldName)
		s.store.requests[newName] = reqs
	}
	for username, reqs := range s.store.requests {
		for i := range reqs {
			if reqs[i].FromUser == oldName {
				reqs[i].FromUser = newName
			}
			if reqs[i].ToUser == oldName {
				reqs[i].ToUser = newName
			}
		}
		s.store.requests[username] = reqs
	}
}
