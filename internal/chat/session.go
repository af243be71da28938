package chat

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
)

// UsernamePrompt is the first line sent to every new connection.
const UsernamePrompt = "Enter your username:"

// HandleSession runs one connection until it ends: username handshake,
// registration, then the read loop. Outbound traffic is written by a separate
// writer goroutine fed from the peer's mailbox. The connection is closed when
// HandleSession returns.
//
// A nil error means the client went away cleanly. Errors are confined to this
// connection.
func HandleSession(conn LineConn, reg *Registry, logger *slog.Logger) error {
	defer func() {
		_ = conn.Close()
	}()
	if logger == nil {
		logger = slog.Default()
	}
	id := PeerID(conn.RemoteAddr())

	if err := conn.WriteLine(UsernamePrompt); err != nil {
		return fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	username, err := conn.ReadLine()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHandshake, err)
	}

	peer, err := reg.Register(id, username)
	if err != nil {
		return err
	}
	logger = logger.With("username", username)

	writerDone := StartOutboundWriter(conn, peer.Messages(), logger)

	logger.Debug("handshake complete")
	reg.Broadcast(id, Joined(username))

	readErr := readLoop(conn, reg, id, username)

	// The entry may already be gone if a broadcast evicted this peer; in that
	// case the evicting broadcast has sent Left.
	if _, ok := reg.Unregister(id); ok {
		reg.Broadcast(id, Left(username))
	}

	<-writerDone
	return readErr
}

func readLoop(conn LineConn, reg *Registry, id PeerID, username string) error {
	for {
		line, err := conn.ReadLine()
		if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}
		reg.Broadcast(id, Chat(username, line))
	}
}
