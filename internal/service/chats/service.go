package chats

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/vovakirdan/chatroom-server/internal/core"
	"github.com/vovakirdan/chatroom-server/internal/store"
)

// PageSize is the number of messages returned per history page.
const PageSize = 20

// Common errors for chat operations.
var (
	ErrInvalidName      = errors.New("chat name is required")
	ErrNotEnoughMembers = errors.New("group chat must have at least 3 members")
	ErrUserNotFound     = errors.New("user not found")
	ErrChatNotFound     = errors.New("chat not found")
	ErrNotMember        = errors.New("not a member of this chat")
)

// MessagePage is one page of persisted history.
type MessagePage struct {
	Messages   []*store.Message
	TotalPages int
}

// Service provides chat business logic.
type Service struct {
	store    store.Store
	notifier core.Notifier
}

// New creates a chat service. notifier may be nil.
func New(st store.Store, notifier core.Notifier) *Service {
	return &Service{
		store:    st,
		notifier: notifier,
	}
}

// CreateGroup creates a group chat owned by creatorID and notifies every member
// with refetch-chats.
func (s *Service) CreateGroup(ctx context.Context, creatorID, name string, members []string) (*store.Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	others := lo.Without(lo.Uniq(lo.Compact(members)), creatorID)
	if len(others) < 2 {
		return nil, ErrNotEnoughMembers
	}

	for _, id := range others {
		if _, err := s.store.GetUserByID(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
			}
			return nil, fmt.Errorf("get member: %w", err)
		}
	}

	all := append([]string{creatorID}, others...)
	chat, err := s.store.CreateChat(ctx, &store.Chat{
		Name:      name,
		GroupChat: true,
		CreatorID: creatorID,
		Members:   all,
	})
	if err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}

	if s.notifier != nil {
		s.notifier.Fanout(all, &core.Event{Kind: core.EventRefetchChats})
	}
	return chat, nil
}

// List returns the chats userID belongs to.
func (s *Service) List(ctx context.Context, userID string) ([]*store.Chat, error) {
	chats, err := s.store.ListChats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return chats, nil
}

// Messages returns one page of history, newest first. Pages start at 1.
func (s *Service) Messages(ctx context.Context, userID, chatID string, page int) (*MessagePage, error) {
	if _, err := s.store.GetChatByID(ctx, chatID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("get chat: %w", err)
	}

	member, err := s.store.IsMember(ctx, userID, chatID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return nil, ErrNotMember
	}

	if page < 1 {
		page = 1
	}

	total, err := s.store.CountMessages(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}

	msgs, err := s.store.ListMessages(ctx, chatID, PageSize, (page-1)*PageSize)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	return &MessagePage{
		Messages:   msgs,
		TotalPages: (total + PageSize - 1) / PageSize,
	}, nil
}
