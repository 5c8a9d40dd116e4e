package service

import (
	"sync"
	"testing"

	"github.com/lalith-99/whisperline/internal/repository/flatfile"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pushRecord struct {
	user  string
	event string
	data  any
}

// fakePusher records every push instead of delivering it. Presence is
// whatever the test sets in online.
type fakePusher struct {
	mu     sync.Mutex
	online map[string]bool
	pushes []pushRecord
}

func newFakePusher() *fakePusher {
	return &fakePusher{online: make(map[string]bool)}
}

func (f *fakePusher) Push(username, event string, data any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pushes = append(f.pushes, pushRecord{user: username, event: event, data: data})
	return f.online[username]
}

func (f *fakePusher) IsOnline(username string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.online[username]
}

func (f *fakePusher) RenameUser(oldName, newName string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.online[oldName] {
		delete(f.online, oldName)
		f.online[newName] = true
	}
}

func (f *fakePusher) setOnline(username string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.online[username] = true
}

// eventsFor lists the event names pushed to one user, in order.
func (f *fakePusher) eventsFor(username string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var events []string
	for _, p := range f.pushes {
		if p.user == username {
			events = append(events, p.event)
		}
	}
	return events
}

func (f *fakePusher) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pushes = nil
}

type testEnv struct {
	identity *IdentityService
	convo    *ConversationService
	dispatch *Dispatcher
	pusher   *fakePusher
	repos    Repos
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := flatfile.New(t.TempDir(), 10, zap.NewNop())
	require.NoError(t, err)

	repos := Repos{
		Users:    flatfile.NewUserStore(store),
		Friends:  flatfile.NewFriendStore(store),
		Chats:    flatfile.NewConversationStore(store),
		Messages: flatfile.NewMessageStore(store),
		Requests: flatfile.NewRequestStore(store),
		Groups:   flatfile.NewGroupStore(store),
	}

	mu := &sync.Mutex{}
	pusher := newFakePusher()
	dispatch := NewDispatcher(mu, pusher, repos.Friends, repos.Groups, repos.Chats, zap.NewNop())

	return &testEnv{
		identity: NewIdentityService(mu, repos, dispatch, store, zap.NewNop()),
		convo:    NewConversationService(mu, repos, dispatch, store, zap.NewNop()),
		dispatch: dispatch,
		pusher:   pusher,
		repos:    repos,
	}
}

const testPassword = "password123"

func (e *testEnv) register(t *testing.T, usernames ...string) {
	t.Helper()
	for _, username := range usernames {
		_, err := e.identity.Register(username, testPassword)
		require.NoError(t, err)
	}
}

// befriend runs the full request/accept cycle between two users.
func (e *testEnv) befriend(t *testing.T, a, b string) {
	t.Helper()
	require.NoError(t, e.identity.RequestFriend(a, b, ""))
	requests, err := e.identity.PendingRequests(b)
	require.NoError(t, err)
	require.NotEmpty(t, requests)
	require.NoError(t, e.identity.ResolveRequest(requests[len(requests)-1].ID, "accept"))
}
