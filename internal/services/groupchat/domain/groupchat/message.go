package groupchat

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

// Message is a text message posted to a group chat.
type Message struct {
	ID        MessageID
	SenderID  UserAccountID
	Text      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewMessage validates text and stamps both timestamps with at.
func NewMessage(id MessageID, sender UserAccountID, text string, at time.Time) (Message, error) {
	return RestoreMessage(id, sender, text, at, at)
}

// RestoreMessage rebuilds a message with explicit timestamps.
func RestoreMessage(id MessageID, sender UserAccountID, text string, createdAt, updatedAt time.Time) (Message, error) {
	if id == "" || sender == "" {
		return Message{}, ErrIDEmpty
	}
	text, err := normalizeText(text)
	if err != nil {
		return Message{}, err
	}
	return Message{
		ID:        id,
		SenderID:  sender,
		Text:      text,
		CreatedAt: createdAt.UTC().Truncate(time.Millisecond),
		UpdatedAt: updatedAt.UTC().Truncate(time.Millisecond),
	}, nil
}

// Edit returns a copy with new text and UpdatedAt, keeping ID and CreatedAt.
func (m Message) Edit(text string, at time.Time) (Message, error) {
	return RestoreMessage(m.ID, m.SenderID, text, m.CreatedAt, at)
}

func normalizeText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if err := validate.Var(text, messageTextRule); err != nil {
		return "", ErrMessageInvalid
	}
	return text, nil
}

// Messages is an ordered, copy-on-write message list. The zero value is empty.
type Messages struct {
	items []Message
}

// MessagesOf copies items into a message list.
func MessagesOf(items ...Message) Messages {
	return Messages{items: append([]Message(nil), items...)}
}

// All returns a copy of the messages in posting order.
func (m Messages) All() []Message {
	return append([]Message(nil), m.items...)
}

// Len returns the message count.
func (m Messages) Len() int { return len(m.items) }

// Find returns the message with id.
func (m Messages) Find(id MessageID) (Message, bool) {
	return lo.Find(m.items, func(item Message) bool { return item.ID == id })
}

func (m Messages) add(message Message) (Messages, error) {
	if _, exists := m.Find(message.ID); exists {
		return m, ErrMessageAlreadyExists
	}
	items := make([]Message, 0, len(m.items)+1)
	items = append(items, m.items...)
	return Messages{items: append(items, message)}, nil
}

func (m Messages) replace(message Message) (Messages, error) {
	_, idx, ok := lo.FindIndexOf(m.items, func(item Message) bool { return item.ID == message.ID })
	if !ok {
		return m, ErrMessageNotFound
	}
	items := m.All()
	items[idx] = message
	return Messages{items: items}, nil
}

func (m Messages) remove(id MessageID) (Messages, error) {
	if _, ok := m.Find(id); !ok {
		return m, ErrMessageNotFound
	}
	return Messages{items: lo.Reject(m.items, func(item Message, _ int) bool { return item.ID == id })}, nil
}
