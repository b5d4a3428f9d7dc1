package teams

import (
	"sync"
	"time"

	"github.com/armatrix/orchestra-go/internal/ids"
)

// MessageKind distinguishes direct messages from broadcast copies.
type MessageKind string

const (
	MessageDirect    MessageKind = "direct"
	MessageBroadcast MessageKind = "broadcast"
)

// Message is a single communication between teammates. A broadcast is stored
// as one Message per recipient.
type Message struct {
	ID        string
	Kind      MessageKind
	From      string
	To        string
	Content   string
	Timestamp time.Time
	Read      bool
}

// NewMessage creates a message with generated ID and timestamp.
func NewMessage(kind MessageKind, from, to, content string) *Message {
	return &Message{
		ID:        ids.New(ids.PrefixMessage),
		Kind:      kind,
		From:      from,
		To:        to,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func (m *Message) clone() *Message {
	cp := *m
	return &cp
}

// Mailbox is an append-only log of messages between teammates. Only the read
// flag of a stored message ever changes.
type Mailbox struct {
	mu       sync.RWMutex
	messages []*Message
	byID     map[string]*Message

	obs observers
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{byID: make(map[string]*Message)}
}

// Subscribe registers fn for message-sent events.
func (m *Mailbox) Subscribe(fn Listener) func() {
	return m.obs.subscribe(fn)
}

// SendMessage stores a direct message from one agent to another.
func (m *Mailbox) SendMessage(from, to, content string) *Message {
	msg := NewMessage(MessageDirect, from, to, content)
	m.append(msg)
	return msg.clone()
}

// Broadcast stores one message per recipient, skipping the sender and
// duplicate recipients.
func (m *Mailbox) Broadcast(from string, recipients []string, content string) []*Message {
	seen := make(map[string]bool, len(recipients))
	var sent []*Message
	for _, to := range recipients {
		if to == from || seen[to] {
			continue
		}
		seen[to] = true
		msg := NewMessage(MessageBroadcast, from, to, content)
		m.append(msg)
		sent = append(sent, msg.clone())
	}
	return sent
}

func (m *Mailbox) append(msg *Message) {
	m.mu.Lock()
	m.messages = append(m.messages, msg)
	m.byID[msg.ID] = msg
	snap := msg.clone()
	m.mu.Unlock()

	m.obs.emit(Event{Type: EventMessageSent, Message: snap, Time: snap.Timestamp})
}

// Messages returns every message addressed to agentID, oldest first.
func (m *Mailbox) Messages(agentID string) []*Message {
	return m.filter(func(msg *Message) bool { return msg.To == agentID })
}

// UnreadMessages returns unread messages addressed to agentID, oldest first.
func (m *Mailbox) UnreadMessages(agentID string) []*Message {
	return m.filter(func(msg *Message) bool { return msg.To == agentID && !msg.Read })
}

// UnreadCount returns the number of unread messages addressed to agentID.
func (m *Mailbox) UnreadCount(agentID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, msg := range m.messages {
		if msg.To == agentID && !msg.Read {
			n++
		}
	}
	return n
}

// MarkRead sets the read flag of a message. It reports whether the message
// exists; marking an already-read message is a no-op.
func (m *Mailbox) MarkRead(messageID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.byID[messageID]
	if ok {
		msg.Read = true
	}
	return ok
}

// Conversation returns the messages exchanged between a and b in either
// direction, oldest first.
func (m *Mailbox) Conversation(a, b string) []*Message {
	return m.filter(func(msg *Message) bool {
		return (msg.From == a && msg.To == b) || (msg.From == b && msg.To == a)
	})
}

// Len returns the number of stored messages.
func (m *Mailbox) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages)
}

// Clear removes every message. Subscribers stay registered.
func (m *Mailbox) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
	m.byID = make(map[string]*Message)
}

func (m *Mailbox) filter(keep func(*Message) bool) []*Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Message
	for _, msg := range m.messages {
		if keep(msg) {
			out = append(out, msg.clone())
		}
	}
	return out
}
