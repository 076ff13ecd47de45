package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandSendMessage delivers a chat message to the listed members.
	CommandSendMessage CommandKind = iota
	// CommandStartTyping relays a typing indicator to the other members.
	CommandStartTyping
	// CommandStopTyping clears a typing indicator for the other members.
	CommandStopTyping
	// CommandChatJoined marks UserID online and pushes the presence snapshot.
	CommandChatJoined
	// CommandChatLeft marks UserID offline and pushes the presence snapshot.
	CommandChatLeft
)

// Command represents an action requested by a client.
// Members are the recipients named by the client; they are resolved on every dispatch.
type Command struct {
	Kind    CommandKind
	ChatID  string
	Members []string
	Content string
	UserID  string
}
