package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/chatroom-server/internal/store"
)

//go:embed schema.sql
var schema string

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteStore)(nil)

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, Migrate)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema without touching disk.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; callers must not nest queries
	// while a *sql.Rows is open.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Migrate applies the embedded schema. It is idempotent.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func notFound(what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return fmt.Errorf("query %s: %w", what, err)
}

// ==== UserStore implementation ====

const userColumns = `id, name, username, bio, password_hash, created_at`

func scanUser(row interface{ Scan(...any) error }) (*store.User, error) {
	var u store.User
	if err := row.Scan(&u.ID, &u.Name, &u.Username, &u.Bio, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *store.User) (*store.User, error) {
	u := *user
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO users (id, name, username, bio, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, u.ID, u.Name, u.Username, u.Bio, u.PasswordHash, u.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetUserByID(ctx, u.ID)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	u, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound("user", err)
	}
	return u, nil
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	u, err := scanUser(s.db.QueryRowContext(ctx, query, username))
	if err != nil {
		return nil, notFound("user", err)
	}
	return u, nil
}

// SearchUsers finds users by name, excluding the caller and their direct-chat partners.
func (s *SQLiteStore) SearchUsers(ctx context.Context, userID, query string) ([]*store.User, error) {
	q := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id != ?
		  AND name LIKE ? ESCAPE '\'
		  AND id NOT IN (
			SELECT other.user_id
			FROM chats c
			JOIN chat_members me ON me.chat_id = c.id AND me.user_id = ?
			JOIN chat_members other ON other.chat_id = c.id
			WHERE c.group_chat = 0
		  )
		ORDER BY name ASC
	`
	rows, err := s.db.QueryContext(ctx, q, userID, "%"+escapeLike(query)+"%", userID)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	users := make([]*store.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ==== ChatStore implementation ====

// CreateChat creates a chat and its membership rows in one transaction.
func (s *SQLiteStore) CreateChat(ctx context.Context, chat *store.Chat) (*store.Chat, error) {
	c := *chat
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	var creator any
	if c.CreatorID != "" {
		creator = c.CreatorID
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chats (id, name, group_chat, creator_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.GroupChat, creator, c.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert chat: %w", err)
	}

	for _, member := range c.Members {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO chat_members (chat_id, user_id) VALUES (?, ?)`,
			c.ID, member,
		); err != nil {
			return nil, fmt.Errorf("add member %s: %w", member, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return s.GetChatByID(ctx, c.ID)
}

// GetChatByID retrieves a chat with its members.
func (s *SQLiteStore) GetChatByID(ctx context.Context, id string) (*store.Chat, error) {
	query := `
		SELECT id, name, group_chat, COALESCE(creator_id, ''), created_at
		FROM chats
		WHERE id = ?
	`
	var c store.Chat
	err := s.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.GroupChat, &c.CreatorID, &c.CreatedAt)
	if err != nil {
		return nil, notFound("chat", err)
	}

	members, err := s.listMembers(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Members = members
	return &c, nil
}

// ListChats lists chats the user belongs to, newest first.
func (s *SQLiteStore) ListChats(ctx context.Context, userID string) ([]*store.Chat, error) {
	query := `
		SELECT c.id, c.name, c.group_chat, COALESCE(c.creator_id, ''), c.created_at
		FROM chats c
		JOIN chat_members cm ON cm.chat_id = c.id
		WHERE cm.user_id = ?
		ORDER BY c.created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query chats: %w", err)
	}

	chats := make([]*store.Chat, 0)
	for rows.Next() {
		var c store.Chat
		if err := rows.Scan(&c.ID, &c.Name, &c.GroupChat, &c.CreatorID, &c.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		chats = append(chats, &c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// Release the single connection before loading members.
	rows.Close()

	for _, c := range chats {
		members, err := s.listMembers(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		c.Members = members
	}
	return chats, nil
}

// IsMember checks if user is a member of the chat.
func (s *SQLiteStore) IsMember(ctx context.Context, userID, chatID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM chat_members WHERE chat_id = ? AND user_id = ?`,
		chatID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query membership: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) listMembers(ctx context.Context, chatID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM chat_members WHERE chat_id = ? ORDER BY user_id`,
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	members := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, id)
	}
	return members, rows.Err()
}

// ==== MessageStore implementation ====

// SaveMessage persists a message to storage.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, chat_id, sender_id, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.ChatID, msg.SenderID, msg.Content, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListMessages retrieves messages newest first with limit/offset pagination.
func (s *SQLiteStore) ListMessages(ctx context.Context, chatID string, limit, offset int) ([]*store.Message, error) {
	query := `
		SELECT id, chat_id, sender_id, content, created_at
		FROM messages
		WHERE chat_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, chatID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0)
	for rows.Next() {
		var m store.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

// CountMessages returns the number of messages in a chat.
func (s *SQLiteStore) CountMessages(ctx context.Context, chatID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM messages WHERE chat_id = ?`, chatID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// ==== RequestStore implementation ====

const requestColumns = `id, sender_id, receiver_id, status, created_at`

func scanRequest(row interface{ Scan(...any) error }) (*store.Request, error) {
	var r store.Request
	if err := row.Scan(&r.ID, &r.SenderID, &r.ReceiverID, &r.Status, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRequest creates a pending friend request.
func (s *SQLiteStore) CreateRequest(ctx context.Context, senderID, receiverID string) (*store.Request, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO requests (id, sender_id, receiver_id, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, senderID, receiverID, store.RequestStatusPending, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert request: %w", err)
	}
	return s.GetRequestByID(ctx, id)
}

// GetRequestByID retrieves a request by ID.
func (s *SQLiteStore) GetRequestByID(ctx context.Context, id string) (*store.Request, error) {
	r, err := scanRequest(s.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = ?`, id))
	if err != nil {
		return nil, notFound("request", err)
	}
	return r, nil
}

// FindRequestBetween finds a request between two users in either direction.
func (s *SQLiteStore) FindRequestBetween(ctx context.Context, userA, userB string) (*store.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		LIMIT 1`
	r, err := scanRequest(s.db.QueryRowContext(ctx, query, userA, userB, userB, userA))
	if err != nil {
		return nil, notFound("request", err)
	}
	return r, nil
}

// DeleteRequest removes a request.
func (s *SQLiteStore) DeleteRequest(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM requests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("request: %w", store.ErrNotFound)
	}
	return nil
}

// ListIncomingRequests lists pending requests addressed to receiverID.
func (s *SQLiteStore) ListIncomingRequests(ctx context.Context, receiverID string) ([]*store.Request, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE receiver_id = ? AND status = ? ORDER BY created_at DESC`,
		receiverID, store.RequestStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	requests := make([]*store.Request, 0)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}
