package chat

import "log/slog"

// StartOutboundWriter drains msgs onto conn in a new goroutine. The returned
// channel is closed once the writer has stopped. The writer closes conn on
// exit, which also unblocks a reader still waiting on it.
func StartOutboundWriter(conn LineConn, msgs <-chan *Message, logger *slog.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer conn.Close()
		for msg := range msgs {
			if err := conn.WriteLine(msg.String()); err != nil {
				logger.Warn("write failed, stopping writer", "error", err)
				return
			}
		}
		logger.Debug("mailbox closed, writer done")
	}()
	return done
}
