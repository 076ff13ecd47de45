package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatroom-server/internal/service/requests"
	"github.com/vovakirdan/chatroom-server/internal/store"
)

// UserHandlers provides HTTP handlers for user search and friend requests.
type UserHandlers struct {
	store    store.Store
	requests *requests.Service
	log      *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(st store.Store, svc *requests.Service, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		store:    st,
		requests: svc,
		log:      logger,
	}
}

// SendRequestRequest represents the body of a friend request.
type SendRequestRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// AcceptRequestRequest represents the answer to a friend request.
type AcceptRequestRequest struct {
	RequestID string `json:"requestId" binding:"required"`
	Accept    *bool  `json:"accept" binding:"required"`
}

// NotificationResponse is one pending friend request.
type NotificationResponse struct {
	ID     string       `json:"_id"`
	Sender UserResponse `json:"sender"`
}

// Search handles searching for users not yet in a direct chat with the caller.
// GET /api/v1/user/search?name=query
func (h *UserHandlers) Search(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	query := strings.TrimSpace(c.Query("name"))
	users, err := h.store.SearchUsers(c.Request.Context(), userID, query)
	if err != nil {
		h.log.Error().Err(err).Str("query", query).Msg("failed to search users")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]UserResponse, 0, len(users))
	for _, u := range users {
		response = append(response, UserResponse{ID: u.ID, Name: u.Name})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "users": response})
}

// SendRequest handles sending a friend request.
// PUT /api/v1/user/sendrequest
func (h *UserHandlers) SendRequest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req SendRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "please enter user id"})
		return
	}

	if _, err := h.requests.SendRequest(c.Request.Context(), userID, req.UserID); err != nil {
		switch {
		case errors.Is(err, requests.ErrCannotRequestSelf):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		case errors.Is(err, requests.ErrUserNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		case errors.Is(err, requests.ErrRequestAlreadyExists), errors.Is(err, requests.ErrAlreadyFriends):
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		default:
			h.log.Error().Err(err).Str("user_id", userID).Msg("failed to send friend request")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "Friend Request Sent"})
}

// AcceptRequest handles accepting or rejecting a friend request.
// PUT /api/v1/user/acceptrequest
func (h *UserHandlers) AcceptRequest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req AcceptRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "please enter request id and accept"})
		return
	}

	request, chat, err := h.requests.Respond(c.Request.Context(), userID, req.RequestID, *req.Accept)
	if err != nil {
		switch {
		case errors.Is(err, requests.ErrRequestNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		case errors.Is(err, requests.ErrNotReceiver):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
		default:
			h.log.Error().Err(err).Str("user_id", userID).Msg("failed to answer friend request")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	if chat == nil {
		c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "Friend Request Rejected"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Friend Request Accepted",
		"senderId": request.SenderID,
		"chatId":   chat.ID,
	})
}

// Notifications lists pending friend requests addressed to the caller.
// GET /api/v1/user/notifications
func (h *UserHandlers) Notifications(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	incoming, err := h.requests.Incoming(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to list notifications")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]NotificationResponse, 0, len(incoming))
	for _, in := range incoming {
		response = append(response, NotificationResponse{
			ID:     in.Request.ID,
			Sender: UserResponse{ID: in.Sender.ID, Name: in.Sender.Name},
		})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "allRequests": response})
}

// Friends lists direct-chat partners, optionally only those not in chatId.
// GET /api/v1/user/friends?chatId=id
func (h *UserHandlers) Friends(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	friends, err := h.requests.Friends(c.Request.Context(), userID, c.Query("chatId"))
	if err != nil {
		if errors.Is(err, requests.ErrChatNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to list friends")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]UserResponse, 0, len(friends))
	for _, f := range friends {
		response = append(response, UserResponse{ID: f.ID, Name: f.Name})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "friends": response})
}
