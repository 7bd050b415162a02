package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/groupchat/internal/services/groupchat/storage"
)

type chatRow struct {
	record   storage.GroupChatRecord
	members  map[string]storage.MemberRecord
	messages map[string]storage.MessageRecord
}

func (c *chatRow) clone() *chatRow {
	return &chatRow{
		record:   c.record,
		members:  maps.Clone(c.members),
		messages: maps.Clone(c.messages),
	}
}

type readModelState struct {
	chats   map[string]*chatRow
	applied map[string]bool
}

func (s readModelState) clone() readModelState {
	out := readModelState{
		chats:   make(map[string]*chatRow, len(s.chats)),
		applied: maps.Clone(s.applied),
	}
	for id, chat := range s.chats {
		out.chats[id] = chat.clone()
	}
	return out
}

// ReadModel is an in-memory read model and checkpoint store.
type ReadModel struct {
	mu          sync.Mutex
	state       readModelState
	checkpoints map[string]uint64
}

// NewReadModel creates an empty in-memory read model.
func NewReadModel() *ReadModel {
	return &ReadModel{
		state: readModelState{
			chats:   make(map[string]*chatRow),
			applied: make(map[string]bool),
		},
		checkpoints: make(map[string]uint64),
	}
}

func (m *ReadModel) ready(ctx context.Context) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if m == nil {
		return errors.New("read model is not configured")
	}
	return nil
}

// ApplyOnce runs fn against a working copy and publishes it when fn succeeds.
func (m *ReadModel) ApplyOnce(ctx context.Context, eventID string, fn func(context.Context, storage.ReadModelTx) error) (bool, error) {
	if err := m.ready(ctx); err != nil {
		return false, err
	}
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.applied[eventID] {
		return false, nil
	}
	work := m.state.clone()
	if err := fn(ctx, &readModelTx{state: work}); err != nil {
		return false, err
	}
	work.applied[eventID] = true
	m.state = work
	return true, nil
}

// Reset drops every projected row and applied-event marker.
func (m *ReadModel) Reset(ctx context.Context) error {
	if err := m.ready(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = readModelState{
		chats:   make(map[string]*chatRow),
		applied: make(map[string]bool),
	}
	return nil
}

// Get returns the chat with its members and messages.
func (m *ReadModel) Get(ctx context.Context, id string) (storage.GroupChatDetail, error) {
	if err := m.ready(ctx); err != nil {
		return storage.GroupChatDetail{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	chat, ok := m.state.chats[id]
	if !ok {
		return storage.GroupChatDetail{}, storage.ErrNotFound
	}
	detail := storage.GroupChatDetail{GroupChatRecord: chat.record}
	for _, member := range chat.members {
		detail.Members = append(detail.Members, member)
	}
	sort.Slice(detail.Members, func(a, b int) bool {
		x, y := detail.Members[a], detail.Members[b]
		if !x.JoinedAt.Equal(y.JoinedAt) {
			return x.JoinedAt.Before(y.JoinedAt)
		}
		return x.ID < y.ID
	})
	for _, msg := range chat.messages {
		detail.Messages = append(detail.Messages, msg)
	}
	sort.Slice(detail.Messages, func(a, b int) bool {
		x, y := detail.Messages[a], detail.Messages[b]
		if !x.CreatedAt.Equal(y.CreatedAt) {
			return x.CreatedAt.Before(y.CreatedAt)
		}
		return x.ID < y.ID
	})
	return detail, nil
}

// List returns non-deleted chats, newest first.
func (m *ReadModel) List(ctx context.Context, limit, offset int) ([]storage.GroupChatRecord, error) {
	if err := m.ready(ctx); err != nil {
		return nil, err
	}
	return m.list(func(*chatRow) bool { return true }, limit, offset), nil
}

// ListByMember returns non-deleted chats userAccountID belongs to, newest first.
func (m *ReadModel) ListByMember(ctx context.Context, userAccountID string, limit, offset int) ([]storage.GroupChatRecord, error) {
	if err := m.ready(ctx); err != nil {
		return nil, err
	}
	return m.list(func(chat *chatRow) bool {
		_, ok := chat.members[userAccountID]
		return ok
	}, limit, offset), nil
}

func (m *ReadModel) list(match func(*chatRow) bool, limit, offset int) []storage.GroupChatRecord {
	limit, offset = storage.NormalizePage(limit, offset)
	m.mu.Lock()
	defer m.mu.Unlock()

	records := make([]storage.GroupChatRecord, 0)
	for _, chat := range m.state.chats {
		if !chat.record.Deleted && match(chat) {
			records = append(records, chat.record)
		}
	}
	sort.Slice(records, func(a, b int) bool {
		x, y := records[a], records[b]
		if !x.CreatedAt.Equal(y.CreatedAt) {
			return x.CreatedAt.After(y.CreatedAt)
		}
		return x.ID > y.ID
	})
	if offset >= len(records) {
		return records[:0]
	}
	return records[offset:min(offset+limit, len(records))]
}

// GetCheckpoint returns the saved feed position for name, or 0.
func (m *ReadModel) GetCheckpoint(ctx context.Context, name string) (uint64, error) {
	if err := m.ready(ctx); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkpoints[name], nil
}

// SaveCheckpoint stores the feed position for name.
func (m *ReadModel) SaveCheckpoint(ctx context.Context, name string, position uint64) error {
	if err := m.ready(ctx); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("checkpoint name is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoints[name] = position
	return nil
}

// Close is a no-op.
func (m *ReadModel) Close() error {
	return nil
}

// readModelTx mutates a working copy. Members are keyed by user account id.
type readModelTx struct {
	state readModelState
}

func (tx *readModelTx) chat(id string) (*chatRow, error) {
	chat, ok := tx.state.chats[id]
	if !ok {
		return nil, fmt.Errorf("group chat %s: %w", id, storage.ErrNotFound)
	}
	return chat, nil
}

func (tx *readModelTx) InsertGroupChat(_ context.Context, rec storage.GroupChatRecord) error {
	if _, exists := tx.state.chats[rec.ID]; exists {
		return fmt.Errorf("insert group chat: %s already exists", rec.ID)
	}
	rec.MemberCount, rec.MessageCount, rec.Deleted = 0, 0, false
	tx.state.chats[rec.ID] = &chatRow{
		record:   rec,
		members:  make(map[string]storage.MemberRecord),
		messages: make(map[string]storage.MessageRecord),
	}
	return nil
}

func (tx *readModelTx) RenameGroupChat(_ context.Context, id, name string, at time.Time) error {
	chat, err := tx.chat(id)
	if err != nil {
		return err
	}
	chat.record.Name = name
	chat.record.UpdatedAt = at
	return nil
}

func (tx *readModelTx) MarkGroupChatDeleted(_ context.Context, id string, at time.Time) error {
	chat, err := tx.chat(id)
	if err != nil {
		return err
	}
	chat.record.Deleted = true
	chat.record.UpdatedAt = at
	return nil
}

func (tx *readModelTx) InsertMember(_ context.Context, rec storage.MemberRecord) error {
	chat, err := tx.chat(rec.GroupChatID)
	if err != nil {
		return err
	}
	if _, exists := chat.members[rec.UserAccountID]; exists {
		return fmt.Errorf("insert member: %s already in %s", rec.UserAccountID, rec.GroupChatID)
	}
	chat.members[rec.UserAccountID] = rec
	chat.record.MemberCount++
	chat.record.UpdatedAt = rec.JoinedAt
	return nil
}

func (tx *readModelTx) DeleteMember(_ context.Context, groupChatID, userAccountID string, at time.Time) error {
	chat, err := tx.chat(groupChatID)
	if err != nil {
		return err
	}
	if _, exists := chat.members[userAccountID]; !exists {
		return nil
	}
	delete(chat.members, userAccountID)
	chat.record.MemberCount--
	chat.record.UpdatedAt = at
	return nil
}

func (tx *readModelTx) InsertMessage(_ context.Context, rec storage.MessageRecord) error {
	chat, err := tx.chat(rec.GroupChatID)
	if err != nil {
		return err
	}
	if _, exists := chat.messages[rec.ID]; exists {
		return fmt.Errorf("insert message: %s already in %s", rec.ID, rec.GroupChatID)
	}
	rec.Deleted = false
	chat.messages[rec.ID] = rec
	chat.record.MessageCount++
	chat.record.UpdatedAt = rec.CreatedAt
	return nil
}

func (tx *readModelTx) UpdateMessage(_ context.Context, groupChatID, messageID, text string, at time.Time) error {
	chat, err := tx.chat(groupChatID)
	if err != nil {
		return err
	}
	msg, ok := chat.messages[messageID]
	if !ok {
		return nil
	}
	msg.Text = text
	msg.UpdatedAt = at
	chat.messages[messageID] = msg
	return nil
}

func (tx *readModelTx) MarkMessageDeleted(_ context.Context, groupChatID, messageID string, at time.Time) error {
	chat, err := tx.chat(groupChatID)
	if err != nil {
		return err
	}
	msg, ok := chat.messages[messageID]
	if !ok || msg.Deleted {
		return nil
	}
	msg.Deleted = true
	msg.UpdatedAt = at
	chat.messages[messageID] = msg
	chat.record.MessageCount--
	chat.record.UpdatedAt = at
	return nil
}
