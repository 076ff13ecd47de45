package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventNewMessage carries a full chat message.
	EventNewMessage EventKind = iota
	// EventNewMessageAlert carries only the chat id so clients can bump unread badges.
	EventNewMessageAlert
	// EventStartTyping tells members someone is typing in a chat.
	EventStartTyping
	// EventStopTyping tells members someone stopped typing in a chat.
	EventStopTyping
	// EventOnlineUsers carries the current presence snapshot.
	EventOnlineUsers
	// EventRefetchChats asks clients to reload their chat list.
	EventRefetchChats
	// EventNewRequest tells a user a friend request arrived.
	EventNewRequest
)

var eventNames = [...]string{
	EventNewMessage:      "new-message",
	EventNewMessageAlert: "new-message-alert",
	EventStartTyping:     "start-typing",
	EventStopTyping:      "stop-typing",
	EventOnlineUsers:     "online-users",
	EventRefetchChats:    "refetch-chats",
	EventNewRequest:      "new-request",
}

// String returns the wire name of the event.
func (k EventKind) String() string {
	if int(k) < 0 || int(k) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[k]
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind    EventKind
	ChatID  string
	Message *Message // EventNewMessage
	Online  []string // EventOnlineUsers
}
