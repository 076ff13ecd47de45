package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned (wrapped) when a record does not exist.
var ErrNotFound = errors.New("not found")

// User represents an account. ID is the stable identity used by the realtime core.
type User struct {
	ID           string
	Name         string
	Username     string
	Bio          string
	PasswordHash string
	CreatedAt    time.Time
}

// Chat is a direct (two members) or group conversation.
type Chat struct {
	ID        string
	Name      string
	GroupChat bool
	CreatorID string
	Members   []string
	CreatedAt time.Time
}

// Message represents a persisted chat message.
// ID is assigned by the store and is unrelated to the realtime event id.
type Message struct {
	ID        string
	ChatID    string
	SenderID  string
	Content   string
	CreatedAt time.Time
}

// RequestStatus is the lifecycle state of a friend request.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusRejected RequestStatus = "rejected"
)

// Request is a friend request from SenderID to ReceiverID.
type Request struct {
	ID         string
	SenderID   string
	ReceiverID string
	Status     RequestStatus
	CreatedAt  time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, user *User) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// SearchUsers finds users whose name contains query, excluding userID
	// and everyone already sharing a direct chat with userID.
	SearchUsers(ctx context.Context, userID, query string) ([]*User, error)
}

// ChatStore handles chat persistence.
type ChatStore interface {
	// CreateChat creates a chat and its membership rows atomically.
	CreateChat(ctx context.Context, chat *Chat) (*Chat, error)

	// GetChatByID retrieves a chat with its members.
	GetChatByID(ctx context.Context, id string) (*Chat, error)

	// ListChats lists chats userID is a member of, newest first.
	ListChats(ctx context.Context, userID string) ([]*Chat, error)

	// IsMember checks if user is a member of the chat.
	IsMember(ctx context.Context, userID, chatID string) (bool, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message, assigning ID and CreatedAt when empty.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListMessages returns messages of a chat newest first.
	ListMessages(ctx context.Context, chatID string, limit, offset int) ([]*Message, error)

	// CountMessages returns the number of messages stored for a chat.
	CountMessages(ctx context.Context, chatID string) (int, error)
}

// RequestStore handles friend request persistence.
type RequestStore interface {
	// CreateRequest creates a pending request.
	CreateRequest(ctx context.Context, senderID, receiverID string) (*Request, error)

	// GetRequestByID retrieves a request.
	GetRequestByID(ctx context.Context, id string) (*Request, error)

	// FindRequestBetween finds a request between two users in either direction.
	FindRequestBetween(ctx context.Context, userA, userB string) (*Request, error)

	// DeleteRequest removes a request.
	DeleteRequest(ctx context.Context, id string) error

	// ListIncomingRequests lists pending requests addressed to receiverID.
	ListIncomingRequests(ctx context.Context, receiverID string) ([]*Request, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ChatStore
	MessageStore
	RequestStore

	// Close closes the underlying database connection.
	Close() error
}
