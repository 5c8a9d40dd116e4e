package api

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/whisperline/internal/apperr"
	"github.com/lalith-99/whisperline/internal/models"
	"github.com/lalith-99/whisperline/internal/service"
	"go.uber.org/zap"
)

// ChatHandler covers direct chats, the shared send path, and file
// attachments.
type ChatHandler struct {
	convo     *service.ConversationService
	uploadDir string
	logger    *zap.Logger
}

func NewChatHandler(convo *service.ConversationService, uploadDir string, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{convo: convo, uploadDir: uploadDir, logger: logger}
}

type startChatRequest struct {
	FromUser string `json:"fromUser"`
	ToUser   string `json:"toUser"`
}

// Start handles POST /api/chats/start
func (h *ChatHandler) Start(c *gin.Context) {
	var req startChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FromUser == "" || req.ToUser == "" {
		failMsg(c, apperr.CodeValidation, "both users required")
		return
	}

	chatID, _, err := h.convo.OpenDirectChat(req.FromUser, req.ToUser)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	ok(c, gin.H{
		"chatExists": true,
		"chatId":     chatID,
	})
}

type sendMessageRequest struct {
	ChatID        string          `json:"chatId"`
	Sender        string          `json:"sender"`
	Text          string          `json:"text"`
	EncryptedData json.RawMessage `json:"encryptedData"`
}

// Message handles POST /api/chats/message
func (h *ChatHandler) Message(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ChatID == "" || req.Sender == "" {
		failMsg(c, apperr.CodeValidation, "chat id and sender required")
		return
	}
	if req.Text == "" && len(req.EncryptedData) == 0 {
		failMsg(c, apperr.CodeValidation, "either text or encrypted data required")
		return
	}

	if _, err := h.convo.PostMessage(req.ChatID, req.Sender, req.Text, req.EncryptedData); err != nil {
		fail(c, h.logger, err)
		return
	}

	ok(c, gin.H{"message": "message sent"})
}

type groupMessageRequest struct {
	GroupID string `json:"groupId"`
	Sender  string `json:"sender"`
	Text    string `json:"text"`
}

// GroupMessage handles POST /api/chats/group-message
func (h *ChatHandler) GroupMessage(c *gin.Context) {
	var req groupMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.GroupID == "" || req.Sender == "" || req.Text == "" {
		failMsg(c, apperr.CodeValidation, "Group ID, sender, and text are required")
		return
	}

	if _, err := h.convo.PostGroupMessage(req.GroupID, req.Sender, req.Text); err != nil {
		fail(c, h.logger, err)
		return
	}

	ok(c, gin.H{"message": "Group message sent"})
}

// File handles POST /api/chats/file (multipart: file, chatId, sender,
// fileType, optional encryptedData).
func (h *ChatHandler) File(c *gin.Context) {
	chatID := c.PostForm("chatId")
	sender := c.PostForm("sender")
	fileType := c.PostForm("fileType")

	header, err := c.FormFile("file")
	if chatID == "" || sender == "" || err != nil {
		failMsg(c, apperr.CodeValidation, "chat id, sender, and file required")
		return
	}

	storedName, err := saveUpload(c, header, h.uploadDir)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	var encrypted json.RawMessage
	if raw := c.PostForm("encryptedData"); raw != "" {
		encrypted = json.RawMessage(raw)
	}

	attachment := models.FileAttachment{
		OriginalName: header.Filename,
		Filename:     storedName,
		Path:         "/uploads/" + storedName,
		Size:         header.Size,
		Type:         fileType,
	}

	if _, err := h.convo.PostFile(chatID, sender, fileType, encrypted, attachment); err != nil {
		fail(c, h.logger, err)
		return
	}

	ok(c, gin.H{"message": "file sent"})
}

// Messages handles GET /api/chats/:id/messages
func (h *ChatHandler) Messages(c *gin.Context) {
	ok(c, gin.H{"messages": h.convo.Messages(c.Param("id"))})
}

// List handles GET /api/chats/:id, where :id is a username.
func (h *ChatHandler) List(c *gin.Context) {
	chats, err := h.convo.ChatsFor(c.Param("id"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	ok(c, gin.H{"chats": chats})
}
