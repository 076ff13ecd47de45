package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatroom-server/internal/service/chats"
	"github.com/vovakirdan/chatroom-server/internal/store"
)

// ChatHandlers provides HTTP handlers for chat operations.
type ChatHandlers struct {
	chats *chats.Service
	log   *zerolog.Logger
}

// NewChatHandlers creates a new chat handlers instance.
func NewChatHandlers(svc *chats.Service, logger *zerolog.Logger) *ChatHandlers {
	return &ChatHandlers{
		chats: svc,
		log:   logger,
	}
}

// NewGroupRequest represents the request body for creating a group chat.
type NewGroupRequest struct {
	Name    string   `json:"name" binding:"required"`
	Members []string `json:"members" binding:"required,min=2"`
}

// ChatResponse represents a chat in API responses.
type ChatResponse struct {
	ID        string   `json:"_id"`
	Name      string   `json:"name"`
	GroupChat bool     `json:"groupChat"`
	Creator   string   `json:"creator,omitempty"`
	Members   []string `json:"members"`
	CreatedAt string   `json:"createdAt"`
}

// StoredMessageResponse represents a persisted message.
type StoredMessageResponse struct {
	ID        string `json:"_id"`
	Content   string `json:"content"`
	Sender    string `json:"sender"`
	Chat      string `json:"chat"`
	CreatedAt string `json:"createdAt"`
}

// NewGroup handles group chat creation.
// POST /api/v1/chat/new
func (h *ChatHandlers) NewGroup(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req NewGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	chat, err := h.chats.CreateGroup(c.Request.Context(), userID, req.Name, req.Members)
	if err != nil {
		switch {
		case errors.Is(err, chats.ErrInvalidName), errors.Is(err, chats.ErrNotEnoughMembers):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		case errors.Is(err, chats.ErrUserNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		default:
			h.log.Error().Err(err).Str("user_id", userID).Msg("failed to create group chat")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	h.log.Info().Str("chat_id", chat.ID).Str("user_id", userID).Msg("group chat created")
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Group Created", "chat": chatResponse(chat)})
}

// MyChats lists the caller's chats.
// GET /api/v1/chat/my
func (h *ChatHandlers) MyChats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	list, err := h.chats.List(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to list chats")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]ChatResponse, 0, len(list))
	for _, chat := range list {
		response = append(response, chatResponse(chat))
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "chats": response})
}

// Messages returns one page of a chat's persisted history.
// GET /api/v1/chat/message/:id?page=1
func (h *ChatHandlers) Messages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	chatID := c.Param("id")
	page := 1
	if raw := c.Query("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
			return
		}
		page = p
	}

	result, err := h.chats.Messages(c.Request.Context(), userID, chatID, page)
	if err != nil {
		switch {
		case errors.Is(err, chats.ErrChatNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		case errors.Is(err, chats.ErrNotMember):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "you are not allowed to access this chat"})
		default:
			h.log.Error().Err(err).Str("chat_id", chatID).Msg("failed to load messages")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	messages := make([]StoredMessageResponse, 0, len(result.Messages))
	for _, m := range result.Messages {
		messages = append(messages, storedMessageResponse(m))
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"messages":   messages,
		"totalPages": result.TotalPages,
	})
}

func chatResponse(chat *store.Chat) ChatResponse {
	members := chat.Members
	if members == nil {
		members = []string{}
	}
	return ChatResponse{
		ID:        chat.ID,
		Name:      chat.Name,
		GroupChat: chat.GroupChat,
		Creator:   chat.CreatorID,
		Members:   members,
		CreatedAt: formatTime(chat.CreatedAt),
	}
}

func storedMessageResponse(m *store.Message) StoredMessageResponse {
	return StoredMessageResponse{
		ID:        m.ID,
		Content:   m.Content,
		Sender:    m.SenderID,
		Chat:      m.ChatID,
		CreatedAt: formatTime(m.CreatedAt),
	}
}
