package core

import "time"

// Sender identifies who sent a message. It is always taken from the bound connection.
type Sender struct {
	ID   string
	Name string
}

// Message is the realtime form of a chat message.
// ID is generated for delivery and is never the id later assigned by storage.
type Message struct {
	ID        string
	ChatID    string
	Content   string
	Sender    Sender
	CreatedAt time.Time
}
