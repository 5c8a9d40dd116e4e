package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/whisperline/internal/apperr"
	"github.com/lalith-99/whisperline/internal/hub"
	"github.com/lalith-99/whisperline/internal/models"
	"github.com/lalith-99/whisperline/internal/repository"
	"go.uber.org/zap"
)

const descriptionCap = 200

// ConversationService owns direct chats, groups, and their message
// logs.
type ConversationService struct {
	mu        *sync.Mutex
	repos     Repos
	dispatch  *Dispatcher
	persister repository.Persister
	logger    *zap.Logger
}

func NewConversationService(
	mu *sync.Mutex,
	repos Repos,
	dispatch *Dispatcher,
	persister repository.Persister,
	logger *zap.Logger,
) *ConversationService {
	return &ConversationService{
		mu:        mu,
		repos:     repos,
		dispatch:  dispatch,
		persister: persister,
		logger:    logger,
	}
}

func (s *ConversationService) persist() {
	if err := s.persister.PersistAll(); err != nil {
		s.logger.Error("failed to persist collections", zap.Error(err))
	}
}

// OpenDirectChat returns the existing direct chat between the pair or
// creates one: two mirrored views sharing one id plus an empty log.
// Opening twice yields the same id.
func (s *ConversationService) OpenDirectChat(fromUser, toUser string) (string, bool, error) {
	if !ValidUsername(fromUser) || !ValidUsername(toUser) {
		return "", false, apperr.ErrInvalidUsername
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	from, fromOK := s.repos.Users.Get(fromUser)
	to, toOK := s.repos.Users.Get(toUser)
	if !fromOK || !toOK {
		return "", false, apperr.ErrUserNotFound
	}
	if fromUser == toUser {
		return "", false, apperr.ErrSelfChat
	}

	if existing, ok := s.repos.Chats.FindDirect(fromUser, toUser); ok {
		return existing.ID, true, nil
	}

	chatID := uuid.NewString()
	now := time.Now()

	s.repos.Chats.Append(fromUser, models.Conversation{
		ID:           chatID,
		WithUser:     toUser,
		Avatar:       to.Avatar,
		LastActivity: now,
		Encrypted:    true,
	})
	s.repos.Chats.Append(toUser, models.Conversation{
		ID:           chatID,
		WithUser:     fromUser,
		Avatar:       from.Avatar,
		LastActivity: now,
		Encrypted:    true,
	})
	s.repos.Messages.Init(chatID)

	s.persist()

	s.dispatch.NotifyUser(fromUser, hub.EventChatCreated, map[string]any{
		"with":   toUser,
		"chatId": chatID,
	})
	s.dispatch.NotifyUser(toUser, hub.EventChatCreated, map[string]any{
		"with":   fromUser,
		"chatId": chatID,
	})

	return chatID, false, nil
}

// CreateGroup creates the canonical record, one group-flagged view per
// member, and a log seeded with a system message listing all members.
// Membership is deduplicated and always includes the creator.
func (s *ConversationService) CreateGroup(name, description, creator string, members []string) (string, error) {
	nameLen := len([]rune(name))
	if nameLen < 2 || nameLen > 30 {
		return "", apperr.ErrInvalidGroupName
	}
	if !ValidUsername(creator) {
		return "", apperr.ErrInvalidUsername
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.repos.Users.Exists(creator) {
		return "", apperr.ErrUserNotFound
	}
	for _, member := range members {
		if !ValidUsername(member) {
			return "", apperr.Validation(fmt.Sprintf("invalid member username: %s", member))
		}
		if !s.repos.Users.Exists(member) {
			return "", apperr.NotFound(fmt.Sprintf("user not found: %s", member))
		}
	}

	allMembers := dedupeMembers(creator, members)
	groupID := uuid.NewString()
	now := time.Now()

	group := models.Group{
		ID:           groupID,
		Name:         sanitize(name),
		Description:  sanitize(truncateRunes(description, descriptionCap)),
		Creator:      creator,
		Members:      allMembers,
		CreatedAt:    now,
		LastActivity: now,
	}
	s.repos.Groups.Put(group)

	for _, member := range allMembers {
		s.repos.Chats.Append(member, models.Conversation{
			ID:           groupID,
			WithUser:     group.Name,
			LastMessage:  fmt.Sprintf("Group %q created by %s", group.Name, creator),
			LastActivity: now,
			IsGroup:      true,
			GroupID:      groupID,
		})
	}

	s.repos.Messages.Init(groupID, models.Message{
		ID:     uuid.NewString(),
		ChatID: groupID,
		Sender: models.SystemSender,
		Text: fmt.Sprintf("Group %q was created by %s. Members: %s",
			group.Name, creator, strings.Join(allMembers, ", ")),
		Timestamp: now,
		Type:      models.MessageTypeSystem,
	})

	s.persist()

	s.dispatch.NotifyGroupMembers(group, "", hub.EventGroupCreated, map[string]any{
		"groupId":   groupID,
		"groupName": group.Name,
		"creator":   creator,
	})

	s.logger.Info("group created",
		zap.String("group_id", groupID),
		zap.String("creator", creator),
		zap.Int("members", len(allMembers)),
	)
	return groupID, nil
}

func dedupeMembers(creator string, members []string) []string {
	seen := map[string]bool{creator: true}
	all := []string{creator}
	for _, m := range members {
		if !seen[m] {
			seen[m] = true
			all = append(all, m)
		}
	}
	return all
}

// GroupsFor lists every group the user belongs to.
func (s *ConversationService) GroupsFor(username string) ([]models.Group, error) {
	if !ValidUsername(username) {
		return nil, apperr.ErrInvalidUsername
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	groups := s.repos.Groups.ForUser(username)
	if groups == nil {
		groups = []models.Group{}
	}
	return groups, nil
}

// LeaveGroup removes one member and that member's view. The departure
// is recorded in the shared log, which persists. Creators cannot
// leave; they delete instead.
func (s *ConversationService) LeaveGroup(groupID, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.repos.Groups.Get(groupID)
	if !ok {
		return apperr.ErrGroupNotFound
	}
	if !group.IsMember(username) {
		return apperr.ErrNotInGroup
	}
	if group.Creator == username {
		return apperr.ErrCreatorLeave
	}

	remaining := group.Members[:0:0]
	for _, m := range group.Members {
		if m != username {
			remaining = append(remaining, m)
		}
	}
	now := time.Now()
	group.Members = remaining
	group.LastActivity = now
	s.repos.Groups.Put(group)

	s.repos.Chats.RemoveByChatID(username, groupID)

	s.repos.Messages.Append(groupID, models.Message{
		ID:        uuid.NewString(),
		ChatID:    groupID,
		Sender:    models.SystemSender,
		Text:      fmt.Sprintf("%s left the group", username),
		Timestamp: now,
		Type:      models.MessageTypeSystem,
	})

	s.persist()

	s.dispatch.NotifyGroupMembers(group, "", hub.EventGroupMemberLeft, map[string]any{
		"groupId":   groupID,
		"groupName": group.Name,
		"username":  username,
	})

	return nil
}

// DeleteGroup removes the record, every member's view, and the whole
// message log. Creator only.
func (s *ConversationService) DeleteGroup(groupID, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.repos.Groups.Get(groupID)
	if !ok {
		return apperr.ErrGroupNotFound
	}
	if group.Creator != username {
		return apperr.ErrNotCreator
	}

	for _, member := range group.Members {
		s.repos.Chats.RemoveByChatID(member, groupID)
	}
	s.repos.Groups.Delete(groupID)
	s.repos.Messages.Delete(groupID)

	s.persist()

	s.dispatch.NotifyGroupMembers(group, "", hub.EventGroupDeleted, map[string]any{
		"groupId":   groupID,
		"groupName": group.Name,
	})

	s.logger.Info("group deleted",
		zap.String("group_id", groupID),
		zap.String("creator", username),
	)
	return nil
}

// PostMessage appends to the log and fans the event out. A group chat
// requires current membership and stores plaintext; a direct chat
// stores either plaintext or the opaque encrypted payload, whose
// preview is always the placeholder, never the ciphertext.
func (s *ConversationService) PostMessage(chatID, sender, text string, encrypted json.RawMessage) (models.Message, error) {
	if !ValidUsername(sender) {
		return models.Message{}, apperr.ErrInvalidUsername
	}
	if text == "" && len(encrypted) == 0 {
		return models.Message{}, apperr.ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	if group, ok := s.repos.Groups.Get(chatID); ok {
		if !group.IsMember(sender) {
			return models.Message{}, apperr.ErrNotGroupMember
		}

		msg := models.Message{
			ID:        uuid.NewString(),
			ChatID:    chatID,
			Sender:    sender,
			Text:      sanitize(text),
			Timestamp: now,
			Type:      models.MessageTypeGroup,
		}
		s.appendGroupMessage(group, msg, preview(msg.Text), now)
		s.persist()

		s.dispatch.NotifyGroupMembers(group, sender, hub.EventNewMessage, msg)
		return msg, nil
	}

	msg := models.Message{
		ID:            uuid.NewString(),
		ChatID:        chatID,
		Sender:        sender,
		Text:          sanitize(text),
		EncryptedData: encrypted,
		Timestamp:     now,
		Type:          models.MessageTypeText,
	}
	summary := preview(msg.Text)
	if len(encrypted) > 0 {
		msg.Type = models.MessageTypeEncrypted
		if msg.Text == "" {
			msg.Text = models.EncryptedPlaceholder
		}
		summary = models.EncryptedPlaceholder
	}

	s.repos.Messages.Append(chatID, msg)
	s.repos.Chats.Touch(chatID, summary, now)
	s.persist()

	s.dispatch.NotifyDirectPeer(chatID, sender, hub.EventNewMessage, msg)
	return msg, nil
}

// GroupMessageEvent is the group_message payload: the message plus the
// group it belongs to.
type GroupMessageEvent struct {
	models.Message
	GroupID   string `json:"groupId"`
	GroupName string `json:"groupName"`
}

// PostGroupMessage is the group-only send path; it emits group_message
// where PostMessage emits new_message.
func (s *ConversationService) PostGroupMessage(groupID, sender, text string) (models.Message, error) {
	if !ValidUsername(sender) {
		return models.Message{}, apperr.ErrInvalidUsername
	}
	if text == "" {
		return models.Message{}, apperr.ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.repos.Groups.Get(groupID)
	if !ok {
		return models.Message{}, apperr.ErrGroupNotFound
	}
	if !group.IsMember(sender) {
		return models.Message{}, apperr.ErrNotGroupMember
	}

	now := time.Now()
	msg := models.Message{
		ID:        uuid.NewString(),
		ChatID:    groupID,
		Sender:    sender,
		Text:      sanitize(text),
		Timestamp: now,
		Type:      models.MessageTypeGroup,
	}
	s.appendGroupMessage(group, msg, preview(msg.Text), now)
	s.persist()

	s.dispatch.NotifyGroupMembers(group, sender, hub.EventGroupMessage, GroupMessageEvent{
		Message:   msg,
		GroupID:   groupID,
		GroupName: group.Name,
	})

	return msg, nil
}

// appendGroupMessage writes the message, refreshes every member's
// summary, and bumps the group's lastActivity. Caller holds the lock.
func (s *ConversationService) appendGroupMessage(group models.Group, msg models.Message, summary string, now time.Time) {
	s.repos.Messages.Append(group.ID, msg)
	s.repos.Chats.TouchForMembers(group.ID, group.Members, summary, now)
	group.LastActivity = now
	s.repos.Groups.Put(group)
}

// PostFile has the same contract as PostMessage, with the payload
// carrying a file descriptor. The stored blob was validated and
// written by the intake layer; here it is opaque.
func (s *ConversationService) PostFile(chatID, sender, fileType string, encrypted json.RawMessage, file models.FileAttachment) (models.Message, error) {
	if !ValidUsername(sender) {
		return models.Message{}, apperr.ErrInvalidUsername
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	file.Encrypted = len(encrypted) > 0

	text := fmt.Sprintf("Sent a %s", fileType)
	if file.Encrypted {
		text = models.EncryptedFilePlaceholder
	}
	summary := fmt.Sprintf("%s sent a %s", sender, fileType)

	msg := models.Message{
		ID:            uuid.NewString(),
		ChatID:        chatID,
		Sender:        sender,
		Text:          text,
		EncryptedData: encrypted,
		File:          &file,
		Timestamp:     now,
	}

	if group, ok := s.repos.Groups.Get(chatID); ok {
		if !group.IsMember(sender) {
			return models.Message{}, apperr.ErrNotGroupMember
		}
		msg.Type = models.MessageTypeGroup
		s.appendGroupMessage(group, msg, summary, now)
		s.persist()

		s.dispatch.NotifyGroupMembers(group, sender, hub.EventNewMessage, msg)
		return msg, nil
	}

	msg.Type = models.MessageTypeFile
	if file.Encrypted {
		msg.Type = models.MessageTypeEncrypted
	}

	s.repos.Messages.Append(chatID, msg)
	s.repos.Chats.Touch(chatID, summary, now)
	s.persist()

	s.dispatch.NotifyDirectPeer(chatID, sender, hub.EventNewMessage, msg)
	return msg, nil
}

// Messages returns the full log for a chat id. Unknown ids yield an
// empty log, matching the read side of the append-only contract.
func (s *ConversationService) Messages(chatID string) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.repos.Messages.List(chatID)
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs
}

// ChatsFor returns the user's conversation views.
func (s *ConversationService) ChatsFor(username string) ([]models.Conversation, error) {
	if !ValidUsername(username) {
		return nil, apperr.ErrInvalidUsername
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	convos := s.repos.Chats.List(username)
	if convos == nil {
		convos = []models.Conversation{}
	}
	return convos, nil
}
