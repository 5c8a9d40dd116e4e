package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/whisperline/internal/hub"
	"github.com/lalith-99/whisperline/internal/repository/flatfile"
	"github.com/lalith-99/whisperline/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	store, err := flatfile.New(t.TempDir(), 10, logger)
	require.NoError(t, err)

	repos := service.Repos{
		Users:    flatfile.NewUserStore(store),
		Friends:  flatfile.NewFriendStore(store),
		Chats:    flatfile.NewConversationStore(store),
		Messages: flatfile.NewMessageStore(store),
		Requests: flatfile.NewRequestStore(store),
		Groups:   flatfile.NewGroupStore(store),
	}

	mu := &sync.Mutex{}
	sessions := hub.New(10, service.ValidUsername, logger)
	dispatcher := service.NewDispatcher(mu, sessions, repos.Friends, repos.Groups, repos.Chats, logger)
	sessions.SetPresenceListener(dispatcher)

	identity := service.NewIdentityService(mu, repos, dispatcher, store, logger)
	convo := service.NewConversationService(mu, repos, dispatcher, store, logger)

	uploadDir := t.TempDir()
	const secret = "test-secret"

	return NewRouter(Handlers{
		Auth:     NewAuthHandler(identity, secret, logger),
		Friends:  NewFriendHandler(identity, logger),
		Requests: NewRequestHandler(identity, logger),
		Groups:   NewGroupHandler(convo, logger),
		Chats:    NewChatHandler(convo, uploadDir, logger),
		Profile:  NewProfileHandler(identity, uploadDir, logger),
		Health:   NewHealthHandler(repos, sessions),
		WS:       NewWSHandler(sessions, logger),
	}, secret, uploadDir)
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed), "body: %s", w.Body.String())
	return w.Code, parsed
}

func register(t *testing.T, r *gin.Engine, username string) map[string]any {
	t.Helper()
	code, resp := doJSON(t, r, http.MethodPost, "/api/register", gin.H{
		"username": username,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, resp["success"], "register %s: %v", username, resp)
	return resp
}

func TestRegisterEndpoint(t *testing.T) {
	r := newTestServer(t)

	resp := register(t, r, "alice")
	assert.NotEmpty(t, resp["token"])
	user := resp["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])
	assert.NotEmpty(t, user["id"])

	t.Run("duplicate stays HTTP 200 with a conflict code", func(t *testing.T) {
		code, resp := doJSON(t, r, http.MethodPost, "/api/register", gin.H{
			"username": "alice",
			"password": "password123",
		})
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, false, resp["success"])
		assert.Equal(t, "CONFLICT", resp["code"])
	})

	t.Run("missing fields", func(t *testing.T) {
		code, resp := doJSON(t, r, http.MethodPost, "/api/register", gin.H{"username": "bob"})
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, false, resp["success"])
		assert.Equal(t, "VALIDATION", resp["code"])
	})
}

func TestLoginEndpoint(t *testing.T) {
	r := newTestServer(t)
	register(t, r, "alice")

	t.Run("happy path", func(t *testing.T) {
		code, resp := doJSON(t, r, http.MethodPost, "/api/login", gin.H{
			"username": "alice",
			"password": "password123",
		})
		require.Equal(t, http.StatusOK, code)
		require.Equal(t, true, resp["success"])
		assert.NotEmpty(t, resp["token"])

		user := resp["user"].(map[string]any)
		assert.Equal(t, "alice", user["username"])
		_, hasPassword := user["password"]
		assert.False(t, hasPassword, "credential must never be echoed")
	})

	t.Run("wrong password", func(t *testing.T) {
		code, resp := doJSON(t, r, http.MethodPost, "/api/login", gin.H{
			"username": "alice",
			"password": "wrong-password",
		})
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, false, resp["success"])
		assert.Equal(t, "INVALID_CREDENTIAL", resp["code"])
	})
}

// End-to-end friendship flow over the HTTP surface: request, accept,
// mutual listing, and the automatically created conversation.
func TestFriendshipFlow(t *testing.T) {
	r := newTestServer(t)
	register(t, r, "alice")
	register(t, r, "bob")

	_, resp := doJSON(t, r, http.MethodPost, "/api/friends/request", gin.H{
		"username":       "alice",
		"friendUsername": "bob",
		"message":        "hi!",
	})
	require.Equal(t, true, resp["success"])

	_, resp = doJSON(t, r, http.MethodGet, "/api/requests/bob", nil)
	require.Equal(t, true, resp["success"])
	requests := resp["requests"].([]any)
	require.Len(t, requests, 1)
	requestID := requests[0].(map[string]any)["id"].(string)

	_, resp = doJSON(t, r, http.MethodPost, "/api/requests/handle", gin.H{
		"requestId": requestID,
		"action":    "accept",
	})
	require.Equal(t, true, resp["success"])

	_, resp = doJSON(t, r, http.MethodGet, "/api/friends/alice", nil)
	require.Equal(t, true, resp["success"])
	friends := resp["friends"].([]any)
	require.Len(t, friends, 1)
	assert.Equal(t, "bob", friends[0].(map[string]any)["username"])

	// Accepting created one shared conversation.
	_, resp = doJSON(t, r, http.MethodGet, "/api/chats/alice", nil)
	require.Equal(t, true, resp["success"])
	aliceChats := resp["chats"].([]any)
	require.Len(t, aliceChats, 1)
	chatID := aliceChats[0].(map[string]any)["id"].(string)

	_, resp = doJSON(t, r, http.MethodGet, "/api/chats/bob", nil)
	bobChats := resp["chats"].([]any)
	require.Len(t, bobChats, 1)
	assert.Equal(t, chatID, bobChats[0].(map[string]any)["id"])

	// An encrypted message surfaces only as the placeholder.
	_, resp = doJSON(t, r, http.MethodPost, "/api/chats/message", gin.H{
		"chatId":        chatID,
		"sender":        "alice",
		"encryptedData": gin.H{"iv": "abc", "payload": "blob"},
	})
	require.Equal(t, true, resp["success"])

	_, resp = doJSON(t, r, http.MethodGet, "/api/chats/bob", nil)
	bobChats = resp["chats"].([]any)
	assert.Equal(t, "🔒 Encrypted message", bobChats[0].(map[string]any)["lastMessage"])

	_, resp = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/chats/%s/messages", chatID), nil)
	require.Equal(t, true, resp["success"])
	messages := resp["messages"].([]any)
	require.Len(t, messages, 2, "system greeting plus the encrypted message")
	last := messages[1].(map[string]any)
	assert.Equal(t, "🔒 Encrypted message", last["text"])
	assert.NotNil(t, last["encryptedData"])
}

func TestGroupFlow(t *testing.T) {
	r := newTestServer(t)
	register(t, r, "alice")
	register(t, r, "bob")
	register(t, r, "carol")

	_, resp := doJSON(t, r, http.MethodPost, "/api/groups/create", gin.H{
		"name":    "weekend crew",
		"creator": "alice",
		"members": []string{"bob", "carol"},
	})
	require.Equal(t, true, resp["success"], "%v", resp)
	groupID := resp["groupId"].(string)

	_, resp = doJSON(t, r, http.MethodGet, "/api/groups/bob", nil)
	require.Equal(t, true, resp["success"])
	groups := resp["groups"].([]any)
	require.Len(t, groups, 1)
	assert.Equal(t, "weekend crew", groups[0].(map[string]any)["name"])

	_, resp = doJSON(t, r, http.MethodPost, "/api/chats/group-message", gin.H{
		"groupId": groupID,
		"sender":  "bob",
		"text":    "anyone around?",
	})
	require.Equal(t, true, resp["success"])

	_, resp = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/groups/%s/messages", groupID), nil)
	messages := resp["messages"].([]any)
	require.Len(t, messages, 2, "creation notice plus the message")

	t.Run("membership is enforced", func(t *testing.T) {
		register(t, r, "dave")
		_, resp := doJSON(t, r, http.MethodPost, "/api/chats/group-message", gin.H{
			"groupId": groupID,
			"sender":  "dave",
			"text":    "hello",
		})
		assert.Equal(t, false, resp["success"])
		assert.Equal(t, "PERMISSION_DENIED", resp["code"])
	})

	t.Run("leave and delete", func(t *testing.T) {
		_, resp := doJSON(t, r, http.MethodPost, "/api/groups/leave", gin.H{
			"groupId":  groupID,
			"username": "bob",
		})
		require.Equal(t, true, resp["success"])

		_, resp = doJSON(t, r, http.MethodPost, "/api/groups/leave", gin.H{
			"groupId":  groupID,
			"username": "alice",
		})
		assert.Equal(t, false, resp["success"], "creator cannot leave")

		_, resp = doJSON(t, r, http.MethodPost, "/api/groups/delete", gin.H{
			"groupId":  groupID,
			"username": "alice",
		})
		require.Equal(t, true, resp["success"])

		_, resp = doJSON(t, r, http.MethodGet, "/api/groups/carol", nil)
		assert.Empty(t, resp["groups"])
	})
}

func TestStartChatEndpoint(t *testing.T) {
	r := newTestServer(t)
	register(t, r, "alice")
	register(t, r, "bob")

	_, resp := doJSON(t, r, http.MethodPost, "/api/chats/start", gin.H{
		"fromUser": "alice",
		"toUser":   "bob",
	})
	require.Equal(t, true, resp["success"])
	chatID := resp["chatId"].(string)
	require.NotEmpty(t, chatID)

	_, resp = doJSON(t, r, http.MethodPost, "/api/chats/start", gin.H{
		"fromUser": "bob",
		"toUser":   "alice",
	})
	require.Equal(t, true, resp["success"])
	assert.Equal(t, chatID, resp["chatId"], "same pair, same chat")
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestServer(t)
	register(t, r, "alice")

	code, resp := doJSON(t, r, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, float64(1), resp["users"])
}

func TestProfileUpdateEndpoint(t *testing.T) {
	r := newTestServer(t)
	token := register(t, r, "alice")["token"].(string)

	buildForm := func(fields map[string]string) (*bytes.Buffer, string) {
		body := &bytes.Buffer{}
		form := multipart.NewWriter(body)
		for k, v := range fields {
			require.NoError(t, form.WriteField(k, v))
		}
		require.NoError(t, form.Close())
		return body, form.FormDataContentType()
	}

	t.Run("requires a token", func(t *testing.T) {
		body, contentType := buildForm(map[string]string{"username": "alice"})
		req := httptest.NewRequest(http.MethodPost, "/api/profile/update", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("token must belong to the account", func(t *testing.T) {
		otherToken := register(t, r, "mallory")["token"].(string)

		body, contentType := buildForm(map[string]string{"username": "alice"})
		req := httptest.NewRequest(http.MethodPost, "/api/profile/update", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+otherToken)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, false, resp["success"])
		assert.Equal(t, "PERMISSION_DENIED", resp["code"])
	})

	t.Run("happy path - rename carries over to login", func(t *testing.T) {
		body, contentType := buildForm(map[string]string{
			"username":    "alice",
			"newUsername": "alicia",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/profile/update", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, true, resp["success"], "%v", resp)
		assert.Equal(t, "alicia", resp["user"].(map[string]any)["username"])

		_, login := doJSON(t, r, http.MethodPost, "/api/login", gin.H{
			"username": "alicia",
			"password": "password123",
		})
		assert.Equal(t, true, login["success"])
	})
}

func TestUnknownErrorsStayInsideEnvelope(t *testing.T) {
	r := newTestServer(t)
	register(t, r, "alice")

	code, resp := doJSON(t, r, http.MethodPost, "/api/groups/leave", gin.H{
		"groupId":  "does-not-exist",
		"username": "alice",
	})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "NOT_FOUND", resp["code"])
}
