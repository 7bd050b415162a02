package groupchat

import (
	"encoding/json"
	"fmt"

	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/event"
)

type snapshotMember struct {
	ID            string `json:"id"`
	UserAccountID string `json:"userAccountId"`
	Role          string `json:"role"`
}

type snapshotMessage struct {
	ID        string `json:"id"`
	SenderID  string `json:"senderId"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

type snapshotState struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Members  []snapshotMember  `json:"members"`
	Messages []snapshotMessage `json:"messages"`
	SeqNr    uint64            `json:"seqNr"`
	Version  uint64            `json:"version"`
	Deleted  bool              `json:"deleted"`
}

// MarshalSnapshot encodes the full aggregate state.
func MarshalSnapshot(g GroupChat) ([]byte, error) {
	if g.IsEmpty() {
		return nil, fmt.Errorf("snapshot of empty group chat")
	}
	state := snapshotState{
		ID:       string(g.id),
		Name:     g.name.String(),
		Members:  make([]snapshotMember, 0, g.members.Len()),
		Messages: make([]snapshotMessage, 0, g.messages.Len()),
		SeqNr:    g.seqNr,
		Version:  g.version,
		Deleted:  g.deleted,
	}
	for _, m := range g.members.items {
		state.Members = append(state.Members, snapshotMember{
			ID:            string(m.ID),
			UserAccountID: string(m.UserAccountID),
			Role:          m.Role.String(),
		})
	}
	for _, m := range g.messages.items {
		state.Messages = append(state.Messages, snapshotMessage{
			ID:        string(m.ID),
			SenderID:  string(m.SenderID),
			Text:      m.Text,
			CreatedAt: event.ToMillis(m.CreatedAt),
			UpdatedAt: event.ToMillis(m.UpdatedAt),
		})
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot decodes a state written by MarshalSnapshot.
func UnmarshalSnapshot(data []byte) (GroupChat, error) {
	var state snapshotState
	if err := json.Unmarshal(data, &state); err != nil {
		return GroupChat{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	chatID, err := ParseID(state.ID)
	if err != nil {
		return GroupChat{}, fmt.Errorf("snapshot id: %w", err)
	}
	name, err := NewName(state.Name)
	if err != nil {
		return GroupChat{}, fmt.Errorf("snapshot name: %w", err)
	}
	members := make([]Member, 0, len(state.Members))
	for _, m := range state.Members {
		role, err := ParseRole(m.Role)
		if err != nil {
			return GroupChat{}, fmt.Errorf("snapshot member %s: %w", m.ID, err)
		}
		members = append(members, Member{ID: MemberID(m.ID), UserAccountID: UserAccountID(m.UserAccountID), Role: role})
	}
	messages := make([]Message, 0, len(state.Messages))
	for _, m := range state.Messages {
		msg, err := RestoreMessage(MessageID(m.ID), UserAccountID(m.SenderID), m.Text,
			event.FromMillis(m.CreatedAt), event.FromMillis(m.UpdatedAt))
		if err != nil {
			return GroupChat{}, fmt.Errorf("snapshot message %s: %w", m.ID, err)
		}
		messages = append(messages, msg)
	}
	if state.SeqNr == 0 {
		return GroupChat{}, fmt.Errorf("snapshot seq nr must be positive")
	}
	return Restore(chatID, name, MembersOf(members...), MessagesOf(messages...), state.SeqNr, state.Version, state.Deleted), nil
}
