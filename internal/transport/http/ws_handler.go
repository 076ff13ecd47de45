package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatroom-server/internal/auth"
	"github.com/vovakirdan/chatroom-server/internal/core"
	"github.com/vovakirdan/chatroom-server/internal/proto"
	"github.com/vovakirdan/chatroom-server/internal/utils"
)

const writeTimeout = 10 * time.Second

// WSConfig tunes each admitted connection.
type WSConfig struct {
	MaxMessageBytes    int64
	OutboundQueueSize  int
	RateLimitPerMinute int
	AllowedOrigins     []string
}

// WSHandler authenticates and upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub           *core.Hub
	authenticator *auth.Authenticator
	metrics       *core.Metrics
	cfg           WSConfig
	log           *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, authenticator *auth.Authenticator, metrics *core.Metrics, cfg WSConfig, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		hub:           hub,
		authenticator: authenticator,
		metrics:       metrics,
		cfg:           cfg,
		log:           logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	// Credentials are checked before the upgrade; a refused client never reaches the hub.
	identity, err := h.authenticator.Authenticate(r)
	if err != nil {
		h.log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("ws authentication failed")
		stdhttp.Error(w, "please login to access this route", stdhttp.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.cfg.AllowedOrigins,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	client := core.NewClient(utils.NewID(), identity.UserID, identity.Name, h.cfg.OutboundQueueSize)
	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	limiter := newRateLimiter(h.cfg.RateLimitPerMinute)

	for {
		typ, frame, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		if typ != websocket.MessageText {
			h.dropFrame(client, "binary frame", nil)
			continue
		}
		if !limiter.allow() {
			h.dropFrame(client, "rate limit exceeded", nil)
			continue
		}

		inbound, err := proto.ParseInbound(frame)
		if err != nil {
			h.dropFrame(client, "malformed frame", err)
			continue
		}

		cmd, err := inboundToCommand(inbound)
		if err != nil {
			if errors.Is(err, proto.ErrUnknownEvent) {
				h.log.Debug().Str("client_id", client.ID).Str("event", inbound.Type).Msg("ignoring unknown event")
				continue
			}
			h.dropFrame(client, "invalid payload", err)
			continue
		}

		if err := h.hub.Handle(client, cmd); err != nil {
			if errors.Is(err, core.ErrClientClosed) {
				return nil
			}
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("dispatch failed")
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event := <-client.Events:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, outboundFromEvent(event))
			cancel()
			if err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-client.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) dropFrame(client *core.Client, reason string, err error) {
	h.metrics.ProtocolViolation()
	h.log.Warn().
		Err(err).
		Str("client_id", client.ID).
		Str("user_id", client.UserID).
		Str("reason", reason).
		Msg("dropping inbound frame")
}
