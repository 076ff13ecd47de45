package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vovakirdan/chatroom-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewWithSetup(":memory:", Migrate)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustUser(t *testing.T, s *SQLiteStore, name, username string) *store.User {
	t.Helper()

	u, err := s.CreateUser(context.Background(), &store.User{Name: name, Username: username, PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return u
}

func TestUserLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := mustUser(t, s, "Alice", "alice")
	if alice.ID == "" {
		t.Fatalf("expected generated id")
	}

	byName, err := s.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if byName.ID != alice.ID || byName.Name != "Alice" {
		t.Fatalf("unexpected user: %+v", byName)
	}

	if _, err := s.GetUserByID(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := s.CreateUser(ctx, &store.User{Name: "Other", Username: "alice", PasswordHash: "x"}); err == nil {
		t.Fatalf("expected duplicate username to fail")
	}
}

func TestSearchUsersExcludesSelfAndDirectPartners(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := mustUser(t, s, "Alice", "alice")
	alex := mustUser(t, s, "Alex", "alex")
	alan := mustUser(t, s, "Alan", "alan")
	mustUser(t, s, "Bob", "bob")

	if _, err := s.CreateChat(ctx, &store.Chat{Name: "Alice-Alex", Members: []string{alice.ID, alex.ID}}); err != nil {
		t.Fatalf("CreateChat: %v", err)
	}

	tests := []struct {
		name     string
		query    string
		expected []string
	}{
		{name: "prefix", query: "Al", expected: []string{alan.ID}},
		{name: "no match", query: "z", expected: []string{}},
		{name: "like wildcard is literal", query: "%", expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := s.SearchUsers(ctx, alice.ID, tt.query)
			if err != nil {
				t.Fatalf("SearchUsers failed: %v", err)
			}
			if len(results) != len(tt.expected) {
				t.Fatalf("expected %d results, got %d", len(tt.expected), len(results))
			}
			for i, u := range results {
				if u.ID != tt.expected[i] {
					t.Fatalf("result %d: expected %s, got %s", i, tt.expected[i], u.ID)
				}
			}
		})
	}
}

func TestChatsAndMembership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := mustUser(t, s, "Alice", "alice")
	bob := mustUser(t, s, "Bob", "bob")
	carol := mustUser(t, s, "Carol", "carol")

	direct, err := s.CreateChat(ctx, &store.Chat{Name: "Alice-Bob", Members: []string{alice.ID, bob.ID}})
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	if direct.GroupChat || len(direct.Members) != 2 {
		t.Fatalf("unexpected direct chat: %+v", direct)
	}

	time.Sleep(2 * time.Millisecond)
	group, err := s.CreateChat(ctx, &store.Chat{
		Name:      "team",
		GroupChat: true,
		CreatorID: alice.ID,
		Members:   []string{alice.ID, bob.ID, carol.ID, alice.ID},
	})
	if err != nil {
		t.Fatalf("CreateChat group: %v", err)
	}
	if len(group.Members) != 3 {
		t.Fatalf("duplicate members should collapse, got %v", group.Members)
	}

	chats, err := s.ListChats(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListChats: %v", err)
	}
	if len(chats) != 2 || chats[0].ID != group.ID {
		t.Fatalf("expected group chat first, got %+v", chats)
	}

	ok, err := s.IsMember(ctx, carol.ID, direct.ID)
	if err != nil || ok {
		t.Fatalf("carol must not be a member of the direct chat (ok=%v err=%v)", ok, err)
	}
}

func TestMessagesPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := range 5 {
		msg := &store.Message{ChatID: "c1", SenderID: "u1", Content: string(rune('a' + i)), CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if err := s.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("SaveMessage: %v", err)
		}
		if msg.ID == "" {
			t.Fatalf("expected store-assigned id")
		}
	}

	page, err := s.ListMessages(ctx, "c1", 2, 0)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(page) != 2 || page[0].Content != "e" || page[1].Content != "d" {
		t.Fatalf("unexpected first page: %+v", page)
	}

	n, err := s.CountMessages(ctx, "c1")
	if err != nil || n != 5 {
		t.Fatalf("expected 5 messages, got %d (%v)", n, err)
	}
}

func TestRequests(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := mustUser(t, s, "Alice", "alice")
	bob := mustUser(t, s, "Bob", "bob")

	req, err := s.CreateRequest(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if req.Status != store.RequestStatusPending {
		t.Fatalf("expected pending, got %s", req.Status)
	}

	found, err := s.FindRequestBetween(ctx, bob.ID, alice.ID)
	if err != nil || found.ID != req.ID {
		t.Fatalf("expected to find request in reverse direction: %v", err)
	}

	incoming, err := s.ListIncomingRequests(ctx, bob.ID)
	if err != nil || len(incoming) != 1 {
		t.Fatalf("expected one incoming request, got %d (%v)", len(incoming), err)
	}

	if err := s.DeleteRequest(ctx, req.ID); err != nil {
		t.Fatalf("DeleteRequest: %v", err)
	}
	if err := s.DeleteRequest(ctx, req.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
