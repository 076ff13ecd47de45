package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatroom-server/internal/auth"
	"github.com/vovakirdan/chatroom-server/internal/store"
)

// sessionCookie describes the cookie carrying the session token.
type sessionCookie struct {
	name   string
	maxAge int
	secure bool
}

// APIHandlers provides HTTP handlers for account endpoints.
type APIHandlers struct {
	authService *auth.Service
	cookie      sessionCookie
	log         *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(authService *auth.Service, cookie sessionCookie, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		authService: authService,
		cookie:      cookie,
		log:         logger,
	}
}

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Username string `json:"username" binding:"required,min=3,max=32"`
	Password string `json:"password" binding:"required,min=6"`
	Bio      string `json:"bio"`
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	Username  string `json:"username,omitempty"`
	Bio       string `json:"bio,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// AuthResponse represents the authentication response body.
type AuthResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
	Token   string       `json:"token"`
}

// MessageResponse is a bare acknowledgement.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Register handles user registration.
// POST /api/v1/user/new
func (h *APIHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid register request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user, token, err := h.authService.Register(c.Request.Context(), auth.Registration{
		Name:     req.Name,
		Username: req.Username,
		Password: req.Password,
		Bio:      req.Bio,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "user already exists"})
		case errors.Is(err, auth.ErrInvalidUsername), errors.Is(err, auth.ErrInvalidPassword), errors.Is(err, auth.ErrInvalidName):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			h.log.Error().Err(err).Str("username", req.Username).Msg("failed to register user")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	h.setSession(c, token)
	h.log.Info().Str("user_id", user.ID).Msg("user registered successfully")
	c.JSON(http.StatusCreated, AuthResponse{
		Success: true,
		Message: "User created",
		User:    userResponse(user),
		Token:   token,
	})
}

// Login handles user login.
// POST /api/v1/user/login
func (h *APIHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid login request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user, token, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid username or password"})
			return
		}
		h.log.Error().Err(err).Str("username", req.Username).Msg("failed to login user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.setSession(c, token)
	h.log.Info().Str("user_id", user.ID).Msg("user logged in successfully")
	c.JSON(http.StatusOK, AuthResponse{
		Success: true,
		Message: "Welcome Back, " + user.Name,
		User:    userResponse(user),
		Token:   token,
	})
}

// Logout clears the session cookie.
// GET /api/v1/user/logout
func (h *APIHandlers) Logout(c *gin.Context) {
	h.setSameSite(c)
	c.SetCookie(h.cookie.name, "", -1, "/", "", h.cookie.secure, true)
	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "Logged out successfully"})
}

// Me returns the authenticated user's profile.
// GET /api/v1/user/me
func (h *APIHandlers) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	user, err := h.authService.UserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to load profile")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": userResponse(user)})
}

func (h *APIHandlers) setSession(c *gin.Context, token string) {
	h.setSameSite(c)
	c.SetCookie(h.cookie.name, token, h.cookie.maxAge, "/", "", h.cookie.secure, true)
}

func (h *APIHandlers) setSameSite(c *gin.Context) {
	if h.cookie.secure {
		c.SetSameSite(http.SameSiteNoneMode)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
}

func userResponse(u *store.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Username:  u.Username,
		Bio:       u.Bio,
		CreatedAt: formatTime(u.CreatedAt),
	}
}
