package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrHandshake is returned when a connection closes or fails before it sent a username.
	ErrHandshake = errors.New("chat: connection closed before handshake")

	// ErrPeerExists is returned by Register when the peer id is already registered.
	ErrPeerExists = errors.New("chat: peer already registered")

	// ErrMailboxFull and ErrMailboxClosed describe a failed delivery to a peer.
	ErrMailboxFull   = errors.New("chat: mailbox full")
	ErrMailboxClosed = errors.New("chat: mailbox closed")

	// ErrServerClosed is returned by Start after Stop.
	ErrServerClosed = errors.New("chat: server closed")

	// ErrLineTooLong is returned when a client sends a line above the configured limit.
	ErrLineTooLong = errors.New("chat: line too long")
)

// BindError reports that the listener could not acquire its address.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("chat: bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }
