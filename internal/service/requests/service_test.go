package requests

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/vovakirdan/chatroom-server/internal/core"
	"github.com/vovakirdan/chatroom-server/internal/store"
	"github.com/vovakirdan/chatroom-server/internal/store/sqlite"
)

type notification struct {
	members []string
	kind    core.EventKind
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *fakeNotifier) Fanout(members []string, event *core.Event) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{members: members, kind: event.Kind})
	return len(members)
}

func newTestService(t *testing.T) (*Service, store.Store, *fakeNotifier) {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.Migrate)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	notifier := &fakeNotifier{}
	return New(st, notifier), st, notifier
}

func createUser(t *testing.T, st store.Store, name string) *store.User {
	t.Helper()
	u, err := st.CreateUser(context.Background(), &store.User{Name: name, Username: name, PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func TestSendRequest(t *testing.T) {
	svc, st, notifier := newTestService(t)
	ctx := context.Background()
	alice := createUser(t, st, "alice")
	bob := createUser(t, st, "bob")

	if _, err := svc.SendRequest(ctx, alice.ID, alice.ID); !errors.Is(err, ErrCannotRequestSelf) {
		t.Fatalf("expected ErrCannotRequestSelf, got %v", err)
	}
	if _, err := svc.SendRequest(ctx, alice.ID, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	req, err := svc.SendRequest(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("send request: %v", err)
	}
	if req.SenderID != alice.ID || req.ReceiverID != bob.ID {
		t.Fatalf("unexpected request: %+v", req)
	}

	if len(notifier.sent) != 1 || notifier.sent[0].kind != core.EventNewRequest || notifier.sent[0].members[0] != bob.ID {
		t.Fatalf("expected new-request to bob, got %+v", notifier.sent)
	}

	// Either direction counts as a duplicate.
	if _, err := svc.SendRequest(ctx, bob.ID, alice.ID); !errors.Is(err, ErrRequestAlreadyExists) {
		t.Fatalf("expected ErrRequestAlreadyExists, got %v", err)
	}
}

func TestRespondAcceptCreatesDirectChat(t *testing.T) {
	svc, st, notifier := newTestService(t)
	ctx := context.Background()
	alice := createUser(t, st, "alice")
	bob := createUser(t, st, "bob")

	req, err := svc.SendRequest(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("send request: %v", err)
	}

	if _, _, err := svc.Respond(ctx, alice.ID, req.ID, true); !errors.Is(err, ErrNotReceiver) {
		t.Fatalf("expected ErrNotReceiver, got %v", err)
	}

	_, chat, err := svc.Respond(ctx, bob.ID, req.ID, true)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if chat == nil || chat.GroupChat || chat.Name != "alice-bob" || len(chat.Members) != 2 {
		t.Fatalf("unexpected chat: %+v", chat)
	}

	last := notifier.sent[len(notifier.sent)-1]
	if last.kind != core.EventRefetchChats || len(last.members) != 2 {
		t.Fatalf("expected refetch-chats to both members, got %+v", last)
	}

	if _, err := st.GetRequestByID(ctx, req.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("accepted request should be deleted, got %v", err)
	}

	friends, err := svc.Friends(ctx, alice.ID, "")
	if err != nil {
		t.Fatalf("friends: %v", err)
	}
	if len(friends) != 1 || friends[0].ID != bob.ID {
		t.Fatalf("expected bob as friend, got %+v", friends)
	}

	friends, err = svc.Friends(ctx, alice.ID, chat.ID)
	if err != nil {
		t.Fatalf("friends with chat: %v", err)
	}
	if len(friends) != 0 {
		t.Fatalf("bob is already in the chat, got %+v", friends)
	}

	if _, err := svc.SendRequest(ctx, alice.ID, bob.ID); !errors.Is(err, ErrAlreadyFriends) {
		t.Fatalf("expected ErrAlreadyFriends, got %v", err)
	}
}

func TestRespondRejectDeletesRequest(t *testing.T) {
	svc, st, notifier := newTestService(t)
	ctx := context.Background()
	alice := createUser(t, st, "alice")
	bob := createUser(t, st, "bob")

	req, err := svc.SendRequest(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("send request: %v", err)
	}

	incoming, err := svc.Incoming(ctx, bob.ID)
	if err != nil {
		t.Fatalf("incoming: %v", err)
	}
	if len(incoming) != 1 || incoming[0].Sender.ID != alice.ID {
		t.Fatalf("unexpected incoming: %+v", incoming)
	}

	_, chat, err := svc.Respond(ctx, bob.ID, req.ID, false)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if chat != nil {
		t.Fatalf("rejecting must not create a chat")
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("reject should not notify, got %+v", notifier.sent)
	}

	if _, _, err := svc.Respond(ctx, bob.ID, req.ID, false); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
}
