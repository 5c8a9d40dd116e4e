package hub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func acceptAll(string) bool { return true }

func newBoundClient(h *Hub, username string) *Client {
	client := &Client{hub: h, send: make(chan []byte, sendBuffer), addr: "198.51.100.7"}
	h.bind(client, username)
	return client
}

func TestAdmitEnforcesPerAddressCap(t *testing.T) {
	h := New(2, acceptAll, zap.NewNop())

	assert.True(t, h.Admit("203.0.113.9"))
	assert.True(t, h.Admit("203.0.113.9"))
	assert.False(t, h.Admit("203.0.113.9"), "cap reached")
	assert.True(t, h.Admit("203.0.113.10"), "other addresses unaffected")

	h.Release("203.0.113.9")
	assert.True(t, h.Admit("203.0.113.9"), "slot freed")
}

func TestPushDeliversFrame(t *testing.T) {
	h := New(10, acceptAll, zap.NewNop())
	client := newBoundClient(h, "alice")

	require.True(t, h.IsOnline("alice"))
	require.True(t, h.Push("alice", "friend_online", map[string]any{"username": "bob"}))

	raw := <-client.send
	var frame struct {
		Event string            `json:"event"`
		Data  map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &frame))
	assert.Equal(t, "friend_online", frame.Event)
	assert.Equal(t, "bob", frame.Data["username"])
}

func TestPushWithoutSessionIsDropped(t *testing.T) {
	h := New(10, acceptAll, zap.NewNop())

	assert.False(t, h.Push("nobody", "new_message", nil))
}

func TestPushFullBufferDropsEvent(t *testing.T) {
	h := New(10, acceptAll, zap.NewNop())
	client := &Client{hub: h, send: make(chan []byte, 1), addr: "198.51.100.7"}
	h.bind(client, "alice")

	require.True(t, h.Push("alice", "new_message", nil))
	assert.False(t, h.Push("alice", "new_message", nil), "second push finds the buffer full")
}

func TestNewerSessionDisplacesOlder(t *testing.T) {
	h := New(10, acceptAll, zap.NewNop())
	old := newBoundClient(h, "alice")
	newer := newBoundClient(h, "alice")

	require.True(t, h.Push("alice", "ping", nil))
	select {
	case <-newer.send:
	default:
		t.Fatal("newer session should receive the push")
	}
	select {
	case <-old.send:
		t.Fatal("displaced session should not receive pushes")
	default:
	}

	// The displaced session going away must not unbind the newer one.
	h.drop(old)
	assert.True(t, h.IsOnline("alice"))

	h.drop(newer)
	assert.False(t, h.IsOnline("alice"))
}

func TestRenameUserMovesSession(t *testing.T) {
	h := New(10, acceptAll, zap.NewNop())
	newBoundClient(h, "alice")

	h.RenameUser("alice", "alicia")

	assert.False(t, h.IsOnline("alice"))
	assert.True(t, h.IsOnline("alicia"))
	assert.True(t, h.Push("alicia", "ping", nil))
}

type recordingListener struct {
	online  []string
	offline []string
}

func (l *recordingListener) UserOnline(username string)  { l.online = append(l.online, username) }
func (l *recordingListener) UserOffline(username string) { l.offline = append(l.offline, username) }

func TestPresenceListenerFiresOnBindAndDrop(t *testing.T) {
	h := New(10, acceptAll, zap.NewNop())
	listener := &recordingListener{}
	h.SetPresenceListener(listener)

	client := newBoundClient(h, "alice")
	assert.Equal(t, []string{"alice"}, listener.online)

	h.drop(client)
	assert.Equal(t, []string{"alice"}, listener.offline)
}
