package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatroom-server/internal/utils"
)

// Notifier pushes events to the live connections of a set of users.
// REST handlers use it to emit refetch-chats and new-request.
type Notifier interface {
	Fanout(members []string, event *Event) int
}

// Hub routes client commands to the connections of the users they target.
// Registry and presence are owned by the hub and shared by every connection task.
type Hub struct {
	registry  *Registry
	presence  *Presence
	persister Persister
	metrics   *Metrics
	log       *zerolog.Logger

	now     func() time.Time
	eventID func() string
}

var _ Notifier = (*Hub)(nil)

// NewHub creates a hub. Every argument may be nil: without a persister
// messages are only delivered, without metrics nothing is counted.
func NewHub(persister Persister, metrics *Metrics, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		registry:  NewRegistry(),
		presence:  NewPresence(),
		persister: persister,
		metrics:   metrics,
		log:       logger,
		now:       func() time.Time { return time.Now().UTC() },
		eventID:   utils.NewID,
	}
}

// Registry exposes the connection registry.
func (h *Hub) Registry() *Registry { return h.registry }

// Presence exposes the presence set.
func (h *Hub) Presence() *Presence { return h.presence }

// Run blocks until ctx is done, then closes every live client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	clients := h.registry.All()
	for _, c := range clients {
		c.Close()
	}
	h.log.Info().Int("clients", len(clients)).Msg("hub stopped")
}

// RegisterClient admits an authenticated client.
func (h *Hub) RegisterClient(c *Client) {
	h.registry.Admit(c.UserID, c)
	h.metrics.connectionOpened()
	h.log.Debug().
		Str("client_id", c.ID).
		Str("user_id", c.UserID).
		Int("connections", h.registry.Len()).
		Msg("client registered")
}

// UnregisterClient removes c, marks its user offline and broadcasts the new
// online set to every remaining connection. The user goes offline even when
// other connections of the same user are still live.
func (h *Hub) UnregisterClient(c *Client) {
	removed := h.registry.Remove(c.UserID, c)
	c.Close()
	if !removed {
		return
	}
	h.metrics.connectionClosed()

	online := h.presence.Leave(c.UserID)
	h.deliver(h.registry.All(), &Event{Kind: EventOnlineUsers, Online: online})

	h.log.Debug().
		Str("client_id", c.ID).
		Str("user_id", c.UserID).
		Int("online", len(online)).
		Msg("client unregistered")
}

// Handle dispatches one command issued by c.
func (h *Hub) Handle(c *Client, cmd Command) error {
	select {
	case <-c.Done():
		return ErrClientClosed
	default:
	}

	switch cmd.Kind {
	case CommandSendMessage:
		h.sendMessage(c, cmd)
	case CommandStartTyping:
		h.fanoutExcept(cmd.Members, c, &Event{Kind: EventStartTyping, ChatID: cmd.ChatID})
	case CommandStopTyping:
		h.fanoutExcept(cmd.Members, c, &Event{Kind: EventStopTyping, ChatID: cmd.ChatID})
	case CommandChatJoined:
		online := h.presence.Join(cmd.UserID)
		h.Fanout(cmd.Members, &Event{Kind: EventOnlineUsers, Online: online})
	case CommandChatLeft:
		online := h.presence.Leave(cmd.UserID)
		h.Fanout(cmd.Members, &Event{Kind: EventOnlineUsers, Online: online})
	default:
		return ErrUnknownCommand
	}
	return nil
}

// Fanout delivers event to every live connection of members and returns how
// many connections accepted it. Members without connections are skipped.
func (h *Hub) Fanout(members []string, event *Event) int {
	return h.deliver(h.registry.Resolve(members), event)
}

func (h *Hub) sendMessage(c *Client, cmd Command) {
	msg := &Message{
		ID:      h.eventID(),
		ChatID:  cmd.ChatID,
		Content: cmd.Content,
		Sender: Sender{
			ID:   c.UserID,
			Name: c.Name,
		},
		CreatedAt: h.now(),
	}

	targets := h.registry.Resolve(cmd.Members)
	h.deliver(targets, &Event{Kind: EventNewMessage, ChatID: cmd.ChatID, Message: msg})
	h.deliver(targets, &Event{Kind: EventNewMessageAlert, ChatID: cmd.ChatID})

	if h.persister != nil {
		h.persister.Submit(PersistRequest{
			ChatID:   cmd.ChatID,
			SenderID: c.UserID,
			Content:  cmd.Content,
			SentAt:   msg.CreatedAt,
		})
	}
}

func (h *Hub) fanoutExcept(members []string, sender *Client, event *Event) {
	targets := h.registry.Resolve(members)
	recipients := targets[:0]
	for _, t := range targets {
		if t != sender {
			recipients = append(recipients, t)
		}
	}
	h.deliver(recipients, event)
}

func (h *Hub) deliver(targets []*Client, event *Event) int {
	delivered := 0
	for _, t := range targets {
		if t.Deliver(event) {
			delivered++
			h.metrics.eventDelivered(event.Kind)
			continue
		}
		h.metrics.eventDropped(event.Kind)
		h.log.Debug().
			Str("client_id", t.ID).
			Str("user_id", t.UserID).
			Str("event", event.Kind.String()).
			Msg("event dropped")
	}
	return delivered
}
