package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatroom-server/internal/auth"
	"github.com/vovakirdan/chatroom-server/internal/config"
	"github.com/vovakirdan/chatroom-server/internal/core"
	"github.com/vovakirdan/chatroom-server/internal/service/chats"
	"github.com/vovakirdan/chatroom-server/internal/service/requests"
	"github.com/vovakirdan/chatroom-server/internal/store"
)

// Deps are the collaborators the HTTP layer routes to.
type Deps struct {
	Hub      *core.Hub
	Auth     *auth.Service
	Store    store.Store
	Requests *requests.Service
	Chats    *chats.Service
	Metrics  *core.Metrics
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// NewServer builds an HTTP server with all routes.
func NewServer(deps Deps, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	authenticator := auth.NewAuthenticator(deps.Auth, cfg.CookieName)

	router.GET("/health", healthHandler)
	if cfg.MetricsEnabled && deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	wsHandler := NewWSHandler(deps.Hub, authenticator, deps.Metrics, WSConfig{
		MaxMessageBytes:    cfg.MaxMessageBytes,
		OutboundQueueSize:  cfg.OutboundQueueSize,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		AllowedOrigins:     cfg.AllowedOrigins,
	}, logger)

	session := sessionCookie{
		name:   cfg.CookieName,
		maxAge: int(cfg.TokenTTL.Seconds()),
		secure: cfg.CookieSecure,
	}
	apiHandlers := NewAPIHandlers(deps.Auth, session, logger)
	userHandlers := NewUserHandlers(deps.Store, deps.Requests, logger)
	chatHandlers := NewChatHandlers(deps.Chats, logger)

	v1 := router.Group("/api/v1")

	user := v1.Group("/user")
	user.POST("/new", apiHandlers.Register)
	user.POST("/login", apiHandlers.Login)

	userAuth := user.Group("")
	userAuth.Use(AuthMiddleware(authenticator, logger))
	userAuth.GET("/logout", apiHandlers.Logout)
	userAuth.GET("/me", apiHandlers.Me)
	userAuth.GET("/search", userHandlers.Search)
	userAuth.PUT("/sendrequest", userHandlers.SendRequest)
	userAuth.PUT("/acceptrequest", userHandlers.AcceptRequest)
	userAuth.GET("/notifications", userHandlers.Notifications)
	userAuth.GET("/friends", userHandlers.Friends)

	chat := v1.Group("/chat")
	chat.Use(AuthMiddleware(authenticator, logger))
	chat.POST("/new", chatHandlers.NewGroup)
	chat.GET("/my", chatHandlers.MyChats)
	chat.GET("/message/:id", chatHandlers.Messages)

	// The upgrade hijacks the connection, which gin refuses once the
	// handshake response has been written, so /ws stays off the router.
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", wsHandler)
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
