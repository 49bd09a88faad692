package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tzefoong/relaybot/store"
)

func (d *DB) UpsertConversation(ctx context.Context, upsert *store.Conversation) (*store.Conversation, error) {
	stmt := `INSERT INTO conversation (id, kind, personality, model_override, created_ts, updated_ts)
		VALUES (` + placeholders(6) + `)
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			personality = EXCLUDED.personality,
			model_override = EXCLUDED.model_override,
			updated_ts = EXCLUDED.updated_ts`
	args := []any{upsert.ID, string(upsert.Kind), upsert.Personality, upsert.ModelOverride, upsert.CreatedTs, upsert.UpdatedTs}
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, fmt.Errorf("failed to upsert conversation: %w", err)
	}
	return upsert, nil
}

func (d *DB) GetConversation(ctx context.Context, find *store.FindConversation) (*store.Conversation, error) {
	list, err := d.ListConversations(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (d *DB) ListConversations(ctx context.Context, find *store.FindConversation) ([]*store.Conversation, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.Kind != nil {
		where, args = append(where, "kind = ?"), append(args, string(*find.Kind))
	}

	query := `SELECT id, kind, personality, model_override, created_ts, updated_ts
		FROM conversation WHERE ` + strings.Join(where, " AND ") + ` ORDER BY updated_ts DESC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Conversation, 0)
	for rows.Next() {
		c := &store.Conversation{}
		if err := rows.Scan(&c.ID, &c.Kind, &c.Personality, &c.ModelOverride, &c.CreatedTs, &c.UpdatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}
	return list, nil
}

func (d *DB) UpdateConversation(ctx context.Context, update *store.UpdateConversation) (*store.Conversation, error) {
	set, args := []string{}, []any{}

	if update.Personality != nil {
		set, args = append(set, "personality = ?"), append(args, *update.Personality)
	}
	if update.ModelOverride != nil {
		set, args = append(set, "model_override = ?"), append(args, *update.ModelOverride)
	}
	if update.UpdatedTs != nil {
		set, args = append(set, "updated_ts = ?"), append(args, *update.UpdatedTs)
	}

	if len(set) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE conversation SET ` + strings.Join(set, ", ") + ` WHERE id = ?
		RETURNING id, kind, personality, model_override, created_ts, updated_ts`
	result := &store.Conversation{}
	err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&result.ID, &result.Kind, &result.Personality, &result.ModelOverride, &result.CreatedTs, &result.UpdatedTs,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("conversation not found")
		}
		return nil, fmt.Errorf("failed to update conversation: %w", err)
	}
	return result, nil
}
