package chat

import "sync"

// DefaultMailboxSize is the capacity of a peer's outbound queue.
const DefaultMailboxSize = 128

// mailbox is a bounded queue feeding one writer goroutine. Producers never
// block: a full queue is reported to the caller instead.
type mailbox struct {
	mu     sync.RWMutex
	closed bool
	ch     chan *Message
}

func newMailbox(size int) *mailbox {
	if size <= 0 {
		size = DefaultMailboxSize
	}
	return &mailbox{ch: make(chan *Message, size)}
}

func (m *mailbox) offer(msg *Message) error {
	// close holds the write lock, so no send can hit a closed channel.
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrMailboxClosed
	}
	select {
	case m.ch <- msg:
		return nil
	default:
		return ErrMailboxFull
	}
}

// close is safe to call more than once.
func (m *mailbox) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.ch)
}

// messages is the receive side, drained by the writer until closed.
func (m *mailbox) messages() <-chan *Message {
	return m.ch
}
