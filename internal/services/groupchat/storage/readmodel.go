package storage

import (
	"context"
	"time"
)

// DefaultListLimit applies when a list query passes a non-positive limit.
const DefaultListLimit = 100

// GroupChatRecord is the summary row of a group chat.
type GroupChatRecord struct {
	ID           string
	Name         string
	OwnerID      string
	MemberCount  int
	MessageCount int
	Deleted      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MemberRecord is one membership row.
type MemberRecord struct {
	ID            string
	GroupChatID   string
	UserAccountID string
	Role          string
	JoinedAt      time.Time
}

// MessageRecord is one message row. Deleted messages are kept with Deleted set.
type MessageRecord struct {
	ID          string
	GroupChatID string
	SenderID    string
	Text        string
	Deleted     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// GroupChatDetail is a summary row with its members and messages.
type GroupChatDetail struct {
	GroupChatRecord
	Members  []MemberRecord
	Messages []MessageRecord
}

// ReadModelTx mutates the read model inside one ApplyOnce unit.
type ReadModelTx interface {
	InsertGroupChat(ctx context.Context, rec GroupChatRecord) error
	RenameGroupChat(ctx context.Context, id, name string, at time.Time) error
	MarkGroupChatDeleted(ctx context.Context, id string, at time.Time) error
	// InsertMember adds the row and increments member_count.
	InsertMember(ctx context.Context, rec MemberRecord) error
	// DeleteMember removes the row and decrements member_count.
	DeleteMember(ctx context.Context, groupChatID, userAccountID string, at time.Time) error
	// InsertMessage adds the row and increments message_count.
	InsertMessage(ctx context.Context, rec MessageRecord) error
	UpdateMessage(ctx context.Context, groupChatID, messageID, text string, at time.Time) error
	// MarkMessageDeleted soft-deletes the row and decrements message_count.
	MarkMessageDeleted(ctx context.Context, groupChatID, messageID string, at time.Time) error
}

// ReadModelStore applies projected changes exactly once per event id.
type ReadModelStore interface {
	// ApplyOnce runs fn and records eventID in a single unit of work. If
	// eventID was already recorded, fn is not run and applied is false.
	ApplyOnce(ctx context.Context, eventID string, fn func(context.Context, ReadModelTx) error) (applied bool, err error)
	// Reset drops every projected row and applied-event marker.
	Reset(ctx context.Context) error
}

// GroupChatQuery serves read-model queries.
type GroupChatQuery interface {
	// Get returns a chat with members and messages (oldest first), or ErrNotFound.
	Get(ctx context.Context, id string) (GroupChatDetail, error)
	// List returns non-deleted chats, newest first.
	List(ctx context.Context, limit, offset int) ([]GroupChatRecord, error)
	// ListByMember returns non-deleted chats userAccountID belongs to, newest first.
	ListByMember(ctx context.Context, userAccountID string, limit, offset int) ([]GroupChatRecord, error)
}

// NormalizePage applies the default limit and clamps a negative offset.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ReadModel is the full surface a read model backend provides.
type ReadModel interface {
	ReadModelStore
	GroupChatQuery
	CheckpointStore
	Close() error
}
