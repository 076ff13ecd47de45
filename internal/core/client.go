package core

import "sync"

// DefaultQueueSize is the outbound queue length used when none is configured.
const DefaultQueueSize = 64

// Client is one live connection as seen by the core layer.
// UserID is bound at admission and never changes.
type Client struct {
	ID     string
	UserID string
	Name   string
	Events chan *Event

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs a client with an outbound queue of queueSize events.
func NewClient(id, userID, name string, queueSize int) *Client {
	if name == "" {
		name = userID
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Client{
		ID:     id,
		UserID: userID,
		Name:   name,
		Events: make(chan *Event, queueSize),
		done:   make(chan struct{}),
	}
}

// Deliver enqueues an event without blocking. It reports false when the
// client is closed or its queue is full; the event is dropped in both cases.
// Events is never closed, so concurrent Deliver calls cannot panic.
func (c *Client) Deliver(event *Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.Events <- event:
		return true
	default:
		return false
	}
}

// Close marks the client as closed. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Done is closed once the client has been closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}
