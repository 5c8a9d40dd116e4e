package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/whisperline/internal/apperr"
	"github.com/lalith-99/whisperline/internal/hub"
	"github.com/lalith-99/whisperline/internal/models"
	"github.com/lalith-99/whisperline/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost        = 12
	requestMessageCap = 200
)

// IdentityService owns accounts, friendships, and the pending-request
// queues.
type IdentityService struct {
	mu        *sync.Mutex
	repos     Repos
	dispatch  *Dispatcher
	persister repository.Persister
	logger    *zap.Logger
}

func NewIdentityService(
	mu *sync.Mutex,
	repos Repos,
	dispatch *Dispatcher,
	persister repository.Persister,
	logger *zap.Logger,
) *IdentityService {
	return &IdentityService{
		mu:        mu,
		repos:     repos,
		dispatch:  dispatch,
		persister: persister,
		logger:    logger,
	}
}

// persist flushes the store. A disk failure is logged, never surfaced:
// the in-memory mutation stands and the user-visible operation still
// succeeds.
func (s *IdentityService) persist() {
	if err := s.persister.PersistAll(); err != nil {
		s.logger.Error("failed to persist collections", zap.Error(err))
	}
}

// Register creates an account plus its empty friend list, conversation
// list, and request queue.
func (s *IdentityService) Register(username, password string) (models.User, error) {
	if !ValidUsername(username) {
		return models.User{}, apperr.ErrInvalidUsername
	}
	if !validPassword(password) {
		return models.User{}, apperr.ErrInvalidPassword
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repos.Users.Exists(username) {
		return models.User{}, apperr.ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return models.User{}, apperr.Wrap(apperr.CodeInternal, "registration failed", err)
	}

	now := time.Now()
	user := models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Password:  string(hash),
		CreatedAt: now,
		LastLogin: now,
	}

	s.repos.Users.Put(user)
	s.repos.Friends.Save(username, nil)
	s.repos.Chats.Save(username, nil)
	s.repos.Requests.Save(username, nil)

	s.persist()

	s.logger.Info("user registered", zap.String("username", username))
	return user.Public(), nil
}

// Authenticate verifies credentials and stamps lastLogin.
func (s *IdentityService) Authenticate(username, password string) (models.User, error) {
	if !ValidUsername(username) {
		return models.User{}, apperr.ErrInvalidUsername
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.repos.Users.Get(username)
	if !ok {
		return models.User{}, apperr.ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return models.User{}, apperr.ErrWrongPassword
	}

	user.LastLogin = time.Now()
	s.repos.Users.Put(user)
	s.persist()

	return user.Public(), nil
}

// RequestFriend queues a friend request in the target's queue. At most
// one outstanding request per (from, to) pair; a duplicate attempt is
// a conflict, not a second request.
func (s *IdentityService) RequestFriend(from, to, message string) error {
	if !ValidUsername(from) || !ValidUsername(to) {
		return apperr.ErrInvalidUsername
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.repos.Users.Exists(from) || !s.repos.Users.Exists(to) {
		return apperr.ErrUserNotFound
	}
	if from == to {
		return apperr.ErrSelfFriend
	}
	if s.repos.Friends.Has(from, to) {
		return apperr.ErrAlreadyFriends
	}
	if s.repos.Requests.HasFrom(to, from) {
		return apperr.ErrRequestPending
	}

	req := models.PendingRequest{
		ID:        uuid.NewString(),
		FromUser:  from,
		ToUser:    to,
		Type:      "friend",
		Status:    "pending",
		Message:   sanitize(truncateRunes(message, requestMessageCap)),
		CreatedAt: time.Now(),
	}
	s.repos.Requests.Add(to, req)

	s.persist()

	notice := fmt.Sprintf("%s sent you a friend request", from)
	if req.Message != "" {
		notice = fmt.Sprintf("%s sent you a friend request: %q", from, req.Message)
	}
	s.dispatch.NotifyUser(to, hub.EventFriendRequest, map[string]any{
		"from":    from,
		"message": notice,
	})

	return nil
}

// RemoveFriend deletes the edge from both sides. Removing a
// non-friend is a no-op, not an error.
func (s *IdentityService) RemoveFriend(username, friend string) error {
	if !ValidUsername(username) || !ValidUsername(friend) {
		return apperr.ErrInvalidUsername
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropEdge(username, friend)
	s.dropEdge(friend, username)

	s.persist()

	s.dispatch.NotifyUser(username, hub.EventFriendRemoved, map[string]any{
		"friendUsername": friend,
	})
	s.dispatch.NotifyUser(friend, hub.EventFriendRemoved, map[string]any{
		"friendUsername": username,
	})

	return nil
}

func (s *IdentityService) dropEdge(owner, peer string) {
	edges := s.repos.Friends.List(owner)
	filtered := edges[:0:0]
	for _, edge := range edges {
		if edge.Username != peer {
			filtered = append(filtered, edge)
		}
	}
	s.repos.Friends.Save(owner, filtered)
}

// ResolveRequest consumes a pending request exactly once. Accepting a
// friend request establishes the symmetric edge on both sides
// (idempotently, so a duplicate accept cannot double an edge) and
// creates a direct conversation between the pair if none exists yet.
func (s *IdentityService) ResolveRequest(requestID, action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.repos.Requests.Take(requestID)
	if !ok {
		return apperr.ErrRequestNotFound
	}

	if action == "accept" && req.Type == "friend" {
		now := time.Now()
		s.addEdge(req.FromUser, req.ToUser, now)
		s.addEdge(req.ToUser, req.FromUser, now)

		if _, exists := s.repos.Chats.FindDirect(req.FromUser, req.ToUser); !exists {
			s.createDirectChat(req.FromUser, req.ToUser, now)
		}
	}

	s.persist()

	s.dispatch.NotifyUser(req.FromUser, hub.EventRequestHandled, map[string]any{
		"requestId": requestID,
		"action":    action,
		"fromUser":  req.ToUser,
	})

	return nil
}

func (s *IdentityService) addEdge(owner, peer string, at time.Time) {
	if s.repos.Friends.Has(owner, peer) {
		return
	}
	edges := s.repos.Friends.List(owner)
	edges = append(edges, models.FriendEdge{Username: peer, Since: at})
	s.repos.Friends.Save(owner, edges)
}

// createDirectChat inserts the two mirrored views and seeds the log
// with one system message. Caller holds the lock.
func (s *IdentityService) createDirectChat(from, to string, at time.Time) {
	chatID := uuid.NewString()

	fromUser, _ := s.repos.Users.Get(from)
	toUser, _ := s.repos.Users.Get(to)

	s.repos.Chats.Append(from, models.Conversation{
		ID:           chatID,
		WithUser:     to,
		Avatar:       toUser.Avatar,
		LastMessage:  fmt.Sprintf("You are now friends with %s", to),
		LastActivity: at,
		Encrypted:    true,
	})
	s.repos.Chats.Append(to, models.Conversation{
		ID:           chatID,
		WithUser:     from,
		Avatar:       fromUser.Avatar,
		LastMessage:  fmt.Sprintf("You are now friends with %s", from),
		LastActivity: at,
		Encrypted:    true,
	})

	s.repos.Messages.Init(chatID, models.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Sender:    models.SystemSender,
		Text:      fmt.Sprintf("You are now friends! Start chatting with %s", from),
		Timestamp: at,
		Type:      models.MessageTypeSystem,
	})
}

// ListFriends returns the user's edges enriched with presence, current
// avatar, and last seen time.
func (s *IdentityService) ListFriends(username string) ([]models.FriendView, error) {
	if !ValidUsername(username) {
		return nil, apperr.ErrInvalidUsername
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	edges := s.repos.Friends.List(username)
	views := make([]models.FriendView, 0, len(edges))
	for _, edge := range edges {
		view := models.FriendView{
			FriendEdge: edge,
			Online:     s.dispatch.Online(edge.Username),
		}
		if friend, ok := s.repos.Users.Get(edge.Username); ok {
			view.Avatar = friend.Avatar
			lastSeen := friend.LastLogin
			view.LastSeen = &lastSeen
		}
		views = append(views, view)
	}
	return views, nil
}

// PendingRequests returns the user's queue.
func (s *IdentityService) PendingRequests(username string) ([]models.PendingRequest, error) {
	if !ValidUsername(username) {
		return nil, apperr.ErrInvalidUsername
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.repos.Requests.ListFor(username), nil
}

// ProfileUpdate carries the optional changes of an update call.
type ProfileUpdate struct {
	NewUsername     string
	CurrentPassword string
	NewPassword     string
	AvatarPath      string
}

// UpdateProfile applies a rename, a password change, an avatar change,
// or any combination.
//
// A rename sweeps every collection that embeds usernames as data:
// accounts, friend edges, conversation views, group members and
// creators, request from/to fields, and the presence key. The sweep is
// NOT atomic: each collection is rewritten independently and there is
// no rollback, so a crash mid-sweep can leave the old and new names
// visible in different collections until manually reconciled.
func (s *IdentityService) UpdateProfile(username string, update ProfileUpdate) (models.User, error) {
	if !ValidUsername(username) {
		return models.User{}, apperr.ErrInvalidUsername
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.repos.Users.Get(username)
	if !ok {
		return models.User{}, apperr.ErrUserNotFound
	}

	if update.NewUsername != "" && update.NewUsername != username {
		if !ValidUsername(update.NewUsername) {
			return models.User{}, apperr.ErrInvalidUsername
		}
		if s.repos.Users.Exists(update.NewUsername) {
			return models.User{}, apperr.ErrUsernameTaken
		}

		oldName, newName := username, update.NewUsername
		s.repos.Users.Rename(oldName, newName)
		s.repos.Friends.RenameUser(oldName, newName)
		s.repos.Chats.RenameUser(oldName, newName)
		s.repos.Groups.RenameUser(oldName, newName)
		s.repos.Requests.RenameUser(oldName, newName)
		s.dispatch.RenameSession(oldName, newName)

		username = newName
		user, _ = s.repos.Users.Get(username)
		s.logger.Info("user renamed",
			zap.String("from", oldName),
			zap.String("to", newName),
		)
	}

	if update.NewPassword != "" {
		if update.CurrentPassword == "" {
			return models.User{}, apperr.Validation("current password required")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(update.CurrentPassword)); err != nil {
			return models.User{}, apperr.InvalidCredential("current password is wrong")
		}
		if !validPassword(update.NewPassword) {
			return models.User{}, apperr.ErrInvalidPassword
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(update.NewPassword), bcryptCost)
		if err != nil {
			return models.User{}, apperr.Wrap(apperr.CodeInternal, "password update failed", err)
		}
		user.Password = string(hash)
	}

	if update.AvatarPath != "" {
		user.Avatar = update.AvatarPath
	}

	s.repos.Users.Put(user)
	s.persist()

	return user.Public(), nil
}
