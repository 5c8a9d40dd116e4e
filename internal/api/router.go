package api

import (
	"github.com/gin-gonic/gin"
	"github.com/lalith-99/whisperline/internal/middleware"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth     *AuthHandler
	Friends  *FriendHandler
	Requests *RequestHandler
	Groups   *GroupHandler
	Chats    *ChatHandler
	Profile  *ProfileHandler
	Health   *HealthHandler
	WS       *WSHandler
}

// NewRouter builds the gin engine with all routes mounted.
//
// List-by-username and lookup-by-id routes share the :id param name;
// gin requires one wildcard name per position, so the handlers decide
// what the segment means.
func NewRouter(h Handlers, jwtSecret, uploadDir string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.MaxMultipartMemory = maxUploadBytes

	r.GET("/ws", h.WS.Serve)
	r.Static("/uploads", uploadDir)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", h.Health.Check)

		apiGroup.POST("/register", h.Auth.Register)
		apiGroup.POST("/login", h.Auth.Login)

		apiGroup.POST("/friends/request", h.Friends.Request)
		apiGroup.POST("/friends/remove", h.Friends.Remove)
		apiGroup.GET("/friends/:username", h.Friends.List)

		apiGroup.GET("/requests/:username", h.Requests.List)
		apiGroup.POST("/requests/handle", h.Requests.Handle)

		apiGroup.POST("/groups/create", h.Groups.Create)
		apiGroup.POST("/groups/leave", h.Groups.Leave)
		apiGroup.POST("/groups/delete", h.Groups.Delete)
		apiGroup.GET("/groups/:id", h.Groups.List)
		apiGroup.GET("/groups/:id/messages", h.Groups.Messages)

		apiGroup.POST("/chats/start", h.Chats.Start)
		apiGroup.POST("/chats/message", h.Chats.Message)
		apiGroup.POST("/chats/group-message", h.Chats.GroupMessage)
		apiGroup.POST("/chats/file", h.Chats.File)
		apiGroup.GET("/chats/:id", h.Chats.List)
		apiGroup.GET("/chats/:id/messages", h.Chats.Messages)

		apiGroup.POST("/profile/update", middleware.AuthMiddleware(jwtSecret), h.Profile.Update)
	}

	return r
}
