package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeNewMessage  = "new-message"
	InboundTypeStartTyping = "start-typing"
	InboundTypeStopTyping  = "stop-typing"
	InboundTypeChatJoined  = "chat-joined"
	InboundTypeChatLeaved  = "chat-leaved"

	EventNewMessage      = "new-message"
	EventNewMessageAlert = "new-message-alert"
	EventStartTyping     = "start-typing"
	EventStopTyping      = "stop-typing"
	EventOnlineUsers     = "online-users"
	EventRefetchChats    = "refetch-chats"
	EventNewRequest      = "new-request"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// NewMessageData is sent by a client to deliver a message to the chat members.
type NewMessageData struct {
	ChatID  string   `json:"chatId" validate:"required"`
	Members []string `json:"members" validate:"required,min=1,dive,required"`
	Content string   `json:"content" validate:"required"`
}

// TypingData carries start-typing and stop-typing.
type TypingData struct {
	ChatID  string   `json:"chatId" validate:"required"`
	Members []string `json:"members" validate:"required,dive,required"`
}

// PresenceData carries chat-joined and chat-leaved.
type PresenceData struct {
	UserID  string   `json:"userId" validate:"required"`
	Members []string `json:"members" validate:"omitempty,dive,required"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// SenderData identifies the author of a message.
type SenderData struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// MessageData is the realtime message body.
type MessageData struct {
	ID        string     `json:"_id"`
	Content   string     `json:"content"`
	Sender    SenderData `json:"sender"`
	Chat      string     `json:"chat"`
	CreatedAt string     `json:"createdAt"`
}

// EventNewMessageData is the payload of new-message.
type EventNewMessageData struct {
	ChatID  string      `json:"chatId"`
	Message MessageData `json:"message"`
}

// EventChatData is the payload of new-message-alert, start-typing and stop-typing.
type EventChatData struct {
	ChatID string `json:"chatId"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
