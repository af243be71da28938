package chat

import "fmt"

// Kind identifies which variant a Message holds.
type Kind int

const (
	KindJoined Kind = iota
	KindLeft
	KindChat
)

func (k Kind) String() string {
	switch k {
	case KindJoined:
		return "joined"
	case KindLeft:
		return "left"
	case KindChat:
		return "chat"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Message is one chat event. It is never mutated after construction, so a
// single *Message is handed to every mailbox during a broadcast.
type Message struct {
	kind     Kind
	username string
	content  string
}

func Joined(username string) *Message {
	return &Message{kind: KindJoined, username: username}
}

func Left(username string) *Message {
	return &Message{kind: KindLeft, username: username}
}

func Chat(sender, content string) *Message {
	return &Message{kind: KindChat, username: sender, content: content}
}

func (m *Message) Kind() Kind { return m.kind }

// Username is the joining/leaving user, or the sender of a chat line.
func (m *Message) Username() string { return m.username }

func (m *Message) Content() string { return m.content }

// String renders the message as a single wire line, without the newline.
func (m *Message) String() string {
	switch m.kind {
	case KindJoined:
		return "[" + m.username + " has joined the chat]"
	case KindLeft:
		return "[" + m.username + " has left the chat :(]"
	case KindChat:
		return m.username + ": " + m.content
	default:
		panic(fmt.Sprintf("chat: unknown message kind %d", int(m.kind)))
	}
}
