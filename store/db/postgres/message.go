package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/tzefoong/relaybot/store"
)

func (d *DB) CreateMessage(ctx context.Context, create *store.Message) (*store.Message, error) {
	fields := []string{"uid", "conversation_id", "role", "content", "parts_json", "sender_label", "token_count", "counted_for", "created_ts"}
	args := []any{create.UID, create.ConversationID, string(create.Role), create.Content, create.PartsJSON, create.SenderLabel, create.TokenCount, create.CountedFor, create.CreatedTs}

	stmt := `INSERT INTO message (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	return create, nil
}

func (d *DB) ListMessages(ctx context.Context, find *store.FindMessage) ([]*store.Message, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.ConversationID != nil {
		where, args = append(where, "conversation_id = "+placeholder(len(args)+1)), append(args, *find.ConversationID)
	}
	if find.Role != nil {
		where, args = append(where, "role = "+placeholder(len(args)+1)), append(args, string(*find.Role))
	}

	// Newest-first so LIMIT keeps the most recent window; reversed below
	// into chronological order.
	query := `SELECT id, uid, conversation_id, role, content, parts_json, sender_label, token_count, counted_for, created_ts
		FROM message WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC, id DESC`
	if find.Limit != nil {
		query += fmt.Sprintf(" LIMIT %d", *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Message, 0)
	for rows.Next() {
		m := &store.Message{}
		if err := rows.Scan(&m.ID, &m.UID, &m.ConversationID, &m.Role, &m.Content, &m.PartsJSON, &m.SenderLabel, &m.TokenCount, &m.CountedFor, &m.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	return list, nil
}

func (d *DB) CountMessages(ctx context.Context, conversationID string) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM message WHERE conversation_id = `+placeholder(1), conversationID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

func (d *DB) GetMessageStats(ctx context.Context, conversationID string) (*store.MessageStats, error) {
	stats := &store.MessageStats{}
	stmt := `SELECT COUNT(*), COALESCE(SUM(token_count), 0), COALESCE(MIN(created_ts), 0), COALESCE(MAX(created_ts), 0)
		FROM message WHERE conversation_id = ` + placeholder(1)
	if err := d.db.QueryRowContext(ctx, stmt, conversationID).Scan(&stats.Count, &stats.TotalTokens, &stats.FirstTs, &stats.LastTs); err != nil {
		return nil, fmt.Errorf("failed to aggregate message stats: %w", err)
	}
	return stats, nil
}

func (d *DB) DeleteMessages(ctx context.Context, delete *store.DeleteMessage) (int64, error) {
	if delete.ID != nil {
		result, err := d.db.ExecContext(ctx, `DELETE FROM message WHERE id = `+placeholder(1), *delete.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to delete message: %w", err)
		}
		return result.RowsAffected()
	}

	if delete.ConversationID == nil {
		return 0, fmt.Errorf("conversation id is required")
	}

	if delete.KeepRecent > 0 {
		stmt := `DELETE FROM message WHERE conversation_id = $1 AND id NOT IN (
			SELECT id FROM message WHERE conversation_id = $1
			ORDER BY created_ts DESC, id DESC LIMIT $2)`
		result, err := d.db.ExecContext(ctx, stmt, *delete.ConversationID, delete.KeepRecent)
		if err != nil {
			return 0, fmt.Errorf("failed to prune messages: %w", err)
		}
		return result.RowsAffected()
	}

	result, err := d.db.ExecContext(ctx, `DELETE FROM message WHERE conversation_id = `+placeholder(1), *delete.ConversationID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete messages: %w", err)
	}
	return result.RowsAffected()
}
