package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/groupchat/internal/services/groupchat/storage"
)

const groupChatColumns = `id, name, owner_id, member_count, message_count, deleted, created_at, updated_at`

// Get returns the chat with its members and messages.
func (s *Store) Get(ctx context.Context, id string) (storage.GroupChatDetail, error) {
	if err := s.ready(ctx); err != nil {
		return storage.GroupChatDetail{}, err
	}

	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+groupChatColumns+` FROM group_chats WHERE id = ?`, id)
	rec, err := scanGroupChat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.GroupChatDetail{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.GroupChatDetail{}, fmt.Errorf("get group chat: %w", err)
	}
	detail := storage.GroupChatDetail{GroupChatRecord: rec}

	members, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, group_chat_id, user_account_id, role, joined_at FROM group_chat_members
		 WHERE group_chat_id = ? ORDER BY joined_at, id`, id)
	if err != nil {
		return storage.GroupChatDetail{}, fmt.Errorf("list members: %w", err)
	}
	defer members.Close()
	for members.Next() {
		var (
			m        storage.MemberRecord
			joinedAt int64
		)
		if err := members.Scan(&m.ID, &m.GroupChatID, &m.UserAccountID, &m.Role, &joinedAt); err != nil {
			return storage.GroupChatDetail{}, fmt.Errorf("scan member: %w", err)
		}
		m.JoinedAt = fromMillis(joinedAt)
		detail.Members = append(detail.Members, m)
	}
	if err := members.Err(); err != nil {
		return storage.GroupChatDetail{}, fmt.Errorf("list members: %w", err)
	}

	messages, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, group_chat_id, sender_id, text, deleted, created_at, updated_at FROM group_chat_messages
		 WHERE group_chat_id = ? ORDER BY created_at, id`, id)
	if err != nil {
		return storage.GroupChatDetail{}, fmt.Errorf("list messages: %w", err)
	}
	defer messages.Close()
	for messages.Next() {
		var (
			m                    storage.MessageRecord
			deleted              int
			createdAt, updatedAt int64
		)
		if err := messages.Scan(&m.ID, &m.GroupChatID, &m.SenderID, &m.Text, &deleted, &createdAt, &updatedAt); err != nil {
			return storage.GroupChatDetail{}, fmt.Errorf("scan message: %w", err)
		}
		m.Deleted = deleted != 0
		m.CreatedAt = fromMillis(createdAt)
		m.UpdatedAt = fromMillis(updatedAt)
		detail.Messages = append(detail.Messages, m)
	}
	if err := messages.Err(); err != nil {
		return storage.GroupChatDetail{}, fmt.Errorf("list messages: %w", err)
	}
	return detail, nil
}

// List returns non-deleted chats, newest first.
func (s *Store) List(ctx context.Context, limit, offset int) ([]storage.GroupChatRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	limit, offset = storage.NormalizePage(limit, offset)
	return s.listGroupChats(ctx,
		`SELECT `+groupChatColumns+` FROM group_chats WHERE deleted = 0
		 ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
}

// ListByMember returns non-deleted chats userAccountID belongs to, newest first.
func (s *Store) ListByMember(ctx context.Context, userAccountID string, limit, offset int) ([]storage.GroupChatRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	limit, offset = storage.NormalizePage(limit, offset)
	return s.listGroupChats(ctx,
		`SELECT `+prefixed("c", groupChatColumns)+` FROM group_chats c
		 JOIN group_chat_members m ON m.group_chat_id = c.id
		 WHERE m.user_account_id = ? AND c.deleted = 0
		 ORDER BY c.created_at DESC, c.id DESC LIMIT ? OFFSET ?`,
		userAccountID, limit, offset,
	)
}

func (s *Store) listGroupChats(ctx context.Context, query string, args ...any) ([]storage.GroupChatRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list group chats: %w", err)
	}
	defer rows.Close()

	records := make([]storage.GroupChatRecord, 0)
	for rows.Next() {
		rec, err := scanGroupChat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group chat: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list group chats: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroupChat(row rowScanner) (storage.GroupChatRecord, error) {
	var (
		rec                  storage.GroupChatRecord
		deleted              int
		createdAt, updatedAt int64
	)
	if err := row.Scan(&rec.ID, &rec.Name, &rec.OwnerID, &rec.MemberCount, &rec.MessageCount, &deleted, &createdAt, &updatedAt); err != nil {
		return storage.GroupChatRecord{}, err
	}
	rec.Deleted = deleted != 0
	rec.CreatedAt = fromMillis(createdAt)
	rec.UpdatedAt = fromMillis(updatedAt)
	return rec, nil
}

func prefixed(alias, columns string) string {
	return alias + "." + strings.ReplaceAll(columns, ", ", ", "+alias+".")
}
