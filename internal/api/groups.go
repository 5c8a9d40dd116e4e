package api

import (
	"github.com/gin-gonic/gin"
	"github.com/lalith-99/whisperline/internal/apperr"
	"github.com/lalith-99/whisperline/internal/service"
	"go.uber.org/zap"
)

// GroupHandler covers group lifecycle and the group message log.
type GroupHandler struct {
	convo  *service.ConversationService
	logger *zap.Logger
}

func NewGroupHandler(convo *service.ConversationService, logger *zap.Logger) *GroupHandler {
	return &GroupHandler{convo: convo, logger: logger}
}

type createGroupRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Creator     string   `json:"creator"`
	Members     []string `json:"members"`
}

// Create handles POST /api/groups/create
func (h *GroupHandler) Create(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" || req.Creator == "" || req.Members == nil {
		failMsg(c, apperr.CodeValidation, "Group name, creator, and members are required")
		return
	}

	groupID, err := h.convo.CreateGroup(req.Name, req.Description, req.Creator, req.Members)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	ok(c, gin.H{
		"message": "Group created successfully",
		"groupId": groupID,
	})
}

// List handles GET /api/groups/:id, where :id is a username. The
// param shares its name with the message route below so both can hang
// off the same tree.
func (h *GroupHandler) List(c *gin.Context) {
	groups, err := h.convo.GroupsFor(c.Param("id"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	ok(c, gin.H{"groups": groups})
}

type groupActionRequest struct {
	GroupID  string `json:"groupId"`
	Username string `json:"username"`
}

// Leave handles POST /api/groups/leave
func (h *GroupHandler) Leave(c *gin.Context) {
	var req groupActionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.GroupID == "" || req.Username == "" {
		failMsg(c, apperr.CodeValidation, "Group ID and username are required")
		return
	}

	if err := h.convo.LeaveGroup(req.GroupID, req.Username); err != nil {
		fail(c, h.logger, err)
		return
	}

	ok(c, gin.H{"message": "Successfully left the group"})
}

// Delete handles POST /api/groups/delete
func (h *GroupHandler) Delete(c *gin.Context) {
	var req groupActionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.GroupID == "" || req.Username == "" {
		failMsg(c, apperr.CodeValidation, "Group ID and username are required")
		return
	}

	if err := h.convo.DeleteGroup(req.GroupID, req.Username); err != nil {
		fail(c, h.logger, err)
		return
	}

	ok(c, gin.H{"message": "Group deleted successfully"})
}

// Messages handles GET /api/groups/:id/messages
func (h *GroupHandler) Messages(c *gin.Context) {
	ok(c, gin.H{"messages": h.convo.Messages(c.Param("id"))})
}
