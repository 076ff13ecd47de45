package core

import "errors"

var (
	// ErrUnknownCommand is returned for command kinds the hub does not handle.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrClientClosed is returned when a command arrives for a closed client.
	ErrClientClosed = errors.New("client closed")
)
