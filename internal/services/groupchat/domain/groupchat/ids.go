package groupchat

import (
	"strings"

	"github.com/louisbranch/groupchat/internal/platform/id"
	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/event"
)

// AggregateKind is the aggregate id kind used for group chat streams.
const AggregateKind = "GroupChatId"

// ID identifies a group chat.
type ID string

// MemberID identifies a membership entry.
type MemberID string

// MessageID identifies a message within a group chat.
type MessageID string

// UserAccountID identifies a user account. Executors and senders are user
// accounts.
type UserAccountID string

// NewID returns a fresh group chat id.
func NewID() ID { return ID(id.MustNewID()) }

// NewMemberID returns a fresh member id.
func NewMemberID() MemberID { return MemberID(id.MustNewID()) }

// NewMessageID returns a fresh message id.
func NewMessageID() MessageID { return MessageID(id.MustNewID()) }

// ParseID validates a group chat id.
func ParseID(v string) (ID, error) {
	v, err := requireID(v)
	return ID(v), err
}

// ParseMemberID validates a member id.
func ParseMemberID(v string) (MemberID, error) {
	v, err := requireID(v)
	return MemberID(v), err
}

// ParseMessageID validates a message id.
func ParseMessageID(v string) (MessageID, error) {
	v, err := requireID(v)
	return MessageID(v), err
}

// ParseUserAccountID validates a user account id.
func ParseUserAccountID(v string) (UserAccountID, error) {
	v, err := requireID(v)
	return UserAccountID(v), err
}

func requireID(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", ErrIDEmpty
	}
	return v, nil
}

// AggregateID returns the stream id for the group chat.
func (i ID) AggregateID() event.AggregateID {
	return event.AggregateID{Kind: AggregateKind, Value: string(i)}
}

// IDFromAggregate converts a stream id back into a group chat id.
func IDFromAggregate(aid event.AggregateID) (ID, error) {
	if aid.Kind != AggregateKind {
		return "", ErrIDEmpty
	}
	return ParseID(aid.Value)
}
