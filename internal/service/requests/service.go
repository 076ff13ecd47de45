package requests

import (
	"context"
	"errors"
	"fmt"

	"github.com/vovakirdan/chatroom-server/internal/core"
	"github.com/vovakirdan/chatroom-server/internal/store"
)

// Common errors for friend request operations.
var (
	ErrCannotRequestSelf    = errors.New("cannot send friend request to yourself")
	ErrAlreadyFriends       = errors.New("already friends")
	ErrRequestAlreadyExists = errors.New("request already sent")
	ErrRequestNotFound      = errors.New("request not found")
	ErrNotReceiver          = errors.New("not authorized to answer this request")
	ErrUserNotFound         = errors.New("user not found")
	ErrChatNotFound         = errors.New("chat not found")
)

// Incoming is a pending request together with its sender.
type Incoming struct {
	Request *store.Request
	Sender  *store.User
}

// Service provides friend request business logic.
type Service struct {
	store    store.Store
	notifier core.Notifier
}

// New creates a request service. notifier may be nil.
func New(st store.Store, notifier core.Notifier) *Service {
	return &Service{
		store:    st,
		notifier: notifier,
	}
}

// SendRequest creates a pending request and notifies the receiver with new-request.
func (s *Service) SendRequest(ctx context.Context, senderID, receiverID string) (*store.Request, error) {
	if senderID == receiverID {
		return nil, ErrCannotRequestSelf
	}

	if _, err := s.store.GetUserByID(ctx, receiverID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get receiver: %w", err)
	}

	// A request in either direction blocks a new one.
	_, err := s.store.FindRequestBetween(ctx, senderID, receiverID)
	if err == nil {
		return nil, ErrRequestAlreadyExists
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("find request: %w", err)
	}

	friends, err := s.friendIDs(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if _, ok := friends[receiverID]; ok {
		return nil, ErrAlreadyFriends
	}

	req, err := s.store.CreateRequest(ctx, senderID, receiverID)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.notify([]string{receiverID}, core.EventNewRequest)
	return req, nil
}

// Respond answers a request addressed to userID. Rejecting deletes it; accepting
// creates a direct chat between both users, deletes the request and notifies
// both members with refetch-chats. The returned chat is nil on rejection.
func (s *Service) Respond(ctx context.Context, userID, requestID string, accept bool) (*store.Request, *store.Chat, error) {
	req, err := s.store.GetRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrRequestNotFound
		}
		return nil, nil, fmt.Errorf("get request: %w", err)
	}

	if req.ReceiverID != userID {
		return nil, nil, ErrNotReceiver
	}

	if !accept {
		if err := s.store.DeleteRequest(ctx, req.ID); err != nil {
			return nil, nil, fmt.Errorf("reject request: %w", err)
		}
		return req, nil, nil
	}

	sender, err := s.store.GetUserByID(ctx, req.SenderID)
	if err != nil {
		return nil, nil, fmt.Errorf("get sender: %w", err)
	}
	receiver, err := s.store.GetUserByID(ctx, req.ReceiverID)
	if err != nil {
		return nil, nil, fmt.Errorf("get receiver: %w", err)
	}

	members := []string{sender.ID, receiver.ID}
	chat, err := s.store.CreateChat(ctx, &store.Chat{
		Name:      sender.Name + "-" + receiver.Name,
		GroupChat: false,
		CreatorID: sender.ID,
		Members:   members,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create chat: %w", err)
	}

	if err := s.store.DeleteRequest(ctx, req.ID); err != nil {
		return nil, nil, fmt.Errorf("delete request: %w", err)
	}

	s.notify(members, core.EventRefetchChats)
	return req, chat, nil
}

// Incoming lists pending requests addressed to userID with their senders.
func (s *Service) Incoming(ctx context.Context, userID string) ([]Incoming, error) {
	reqs, err := s.store.ListIncomingRequests(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}

	out := make([]Incoming, 0, len(reqs))
	for _, r := range reqs {
		sender, err := s.store.GetUserByID(ctx, r.SenderID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("get sender: %w", err)
		}
		out = append(out, Incoming{Request: r, Sender: sender})
	}
	return out, nil
}

// Friends lists the partners of userID's direct chats. When chatID is set,
// partners already in that chat are left out.
func (s *Service) Friends(ctx context.Context, userID, chatID string) ([]*store.User, error) {
	chats, err := s.store.ListChats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}

	exclude := map[string]struct{}{}
	if chatID != "" {
		chat, err := s.store.GetChatByID(ctx, chatID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrChatNotFound
			}
			return nil, fmt.Errorf("get chat: %w", err)
		}
		for _, m := range chat.Members {
			exclude[m] = struct{}{}
		}
	}

	seen := map[string]struct{}{}
	friends := make([]*store.User, 0)
	for _, chat := range chats {
		if chat.GroupChat {
			continue
		}
		for _, m := range chat.Members {
			if m == userID {
				continue
			}
			if _, skip := exclude[m]; skip {
				continue
			}
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}

			user, err := s.store.GetUserByID(ctx, m)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					continue
				}
				return nil, fmt.Errorf("get friend: %w", err)
			}
			friends = append(friends, user)
		}
	}
	return friends, nil
}

func (s *Service) friendIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	chats, err := s.store.ListChats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	ids := make(map[string]struct{})
	for _, chat := range chats {
		if chat.GroupChat {
			continue
		}
		for _, m := range chat.Members {
			if m != userID {
				ids[m] = struct{}{}
			}
		}
	}
	return ids, nil
}

func (s *Service) notify(members []string, kind core.EventKind) {
	if s.notifier == nil {
		return
	}
	s.notifier.Fanout(members, &core.Event{Kind: kind})
}
