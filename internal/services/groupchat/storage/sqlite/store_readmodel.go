package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/louisbranch/groupchat/internal/services/groupchat/storage"
)

// ApplyOnce records eventID in applied_events and runs fn in the same
// transaction. A duplicate eventID skips fn.
func (s *Store) ApplyOnce(ctx context.Context, eventID string, fn func(context.Context, storage.ReadModelTx) error) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	if eventID == "" {
		return false, fmt.Errorf("event id is required")
	}

	applied := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO applied_events (event_id, applied_at) VALUES (?, ?) ON CONFLICT (event_id) DO NOTHING`,
			eventID, toMillis(s.now()),
		)
		if err != nil {
			return fmt.Errorf("mark applied event: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("mark applied event: %w", err)
		}
		if rows == 0 {
			return nil
		}
		if err := fn(ctx, readModelTx{tx: tx}); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// Reset clears every projected row and applied-event marker.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"group_chat_messages", "group_chat_members", "group_chats", "applied_events"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return fmt.Errorf("reset %s: %w", table, err)
			}
		}
		return nil
	})
}

type readModelTx struct {
	tx *sql.Tx
}

func (r readModelTx) InsertGroupChat(ctx context.Context, rec storage.GroupChatRecord) error {
	_, err := r.tx.ExecContext(ctx,
		`INSERT INTO group_chats (id, name, owner_id, member_count, message_count, deleted, created_at, updated_at)
		 VALUES (?, ?, ?, 0, 0, 0, ?, ?)`,
		rec.ID, rec.Name, rec.OwnerID, toMillis(rec.CreatedAt), toMillis(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert group chat: %w", err)
	}
	return nil
}

func (r readModelTx) RenameGroupChat(ctx context.Context, id, name string, at time.Time) error {
	return r.exec(ctx, "rename group chat",
		`UPDATE group_chats SET name = ?, updated_at = ? WHERE id = ?`,
		name, toMillis(at), id,
	)
}

func (r readModelTx) MarkGroupChatDeleted(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx, "delete group chat",
		`UPDATE group_chats SET deleted = 1, updated_at = ? WHERE id = ?`,
		toMillis(at), id,
	)
}

func (r readModelTx) InsertMember(ctx context.Context, rec storage.MemberRecord) error {
	if _, err := r.tx.ExecContext(ctx,
		`INSERT INTO group_chat_members (id, group_chat_id, user_account_id, role, joined_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.GroupChatID, rec.UserAccountID, rec.Role, toMillis(rec.JoinedAt),
	); err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return r.exec(ctx, "increment member count",
		`UPDATE group_chats SET member_count = member_count + 1, updated_at = ? WHERE id = ?`,
		toMillis(rec.JoinedAt), rec.GroupChatID,
	)
}

func (r readModelTx) DeleteMember(ctx context.Context, groupChatID, userAccountID string, at time.Time) error {
	res, err := r.tx.ExecContext(ctx,
		`DELETE FROM group_chat_members WHERE group_chat_id = ? AND user_account_id = ?`,
		groupChatID, userAccountID,
	)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if rows, err := res.RowsAffected(); err != nil || rows == 0 {
		return err
	}
	return r.exec(ctx, "decrement member count",
		`UPDATE group_chats SET member_count = member_count - 1, updated_at = ? WHERE id = ?`,
		toMillis(at), groupChatID,
	)
}

func (r readModelTx) InsertMessage(ctx context.Context, rec storage.MessageRecord) error {
	if _, err := r.tx.ExecContext(ctx,
		`INSERT INTO group_chat_messages (id, group_chat_id, sender_id, text, deleted, created_at, updated_at) VALUES (?, ?, ?, ?, 0, ?, ?)`,
		rec.ID, rec.GroupChatID, rec.SenderID, rec.Text, toMillis(rec.CreatedAt), toMillis(rec.UpdatedAt),
	); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return r.exec(ctx, "increment message count",
		`UPDATE group_chats SET message_count = message_count + 1, updated_at = ? WHERE id = ?`,
		toMillis(rec.CreatedAt), rec.GroupChatID,
	)
}

func (r readModelTx) UpdateMessage(ctx context.Context, groupChatID, messageID, text string, at time.Time) error {
	return r.exec(ctx, "update message",
		`UPDATE group_chat_messages SET text = ?, updated_at = ? WHERE group_chat_id = ? AND id = ?`,
		text, toMillis(at), groupChatID, messageID,
	)
}

func (r readModelTx) MarkMessageDeleted(ctx context.Context, groupChatID, messageID string, at time.Time) error {
	res, err := r.tx.ExecContext(ctx,
		`UPDATE group_chat_messages SET deleted = 1, updated_at = ? WHERE group_chat_id = ? AND id = ? AND deleted = 0`,
		toMillis(at), groupChatID, messageID,
	)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if rows, err := res.RowsAffected(); err != nil || rows == 0 {
		return err
	}
	return r.exec(ctx, "decrement message count",
		`UPDATE group_chats SET message_count = message_count - 1, updated_at = ? WHERE id = ?`,
		toMillis(at), groupChatID,
	)
}

func (r readModelTx) exec(ctx context.Context, op, query string, args ...any) error {
	if _, err := r.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
