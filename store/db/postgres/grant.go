package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/tzefoong/relaybot/store"
)

func (d *DB) UpsertGrant(ctx context.Context, upsert *store.Grant) (*store.Grant, error) {
	stmt := `INSERT INTO grant_list (user_id, display_name, granted_by, created_ts)
		VALUES (` + placeholders(4) + `)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			granted_by = EXCLUDED.granted_by`
	args := []any{upsert.UserID, upsert.DisplayName, upsert.GrantedBy, upsert.CreatedTs}
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, fmt.Errorf("failed to upsert grant: %w", err)
	}
	return upsert, nil
}

func (d *DB) ListGrants(ctx context.Context, find *store.FindGrant) ([]*store.Grant, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}

	query := `SELECT user_id, display_name, granted_by, created_ts
		FROM grant_list WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Grant, 0)
	for rows.Next() {
		g := &store.Grant{}
		if err := rows.Scan(&g.UserID, &g.DisplayName, &g.GrantedBy, &g.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		list = append(list, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate grants: %w", err)
	}
	return list, nil
}

func (d *DB) DeleteGrant(ctx context.Context, delete *store.DeleteGrant) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM grant_list WHERE user_id = `+placeholder(1), delete.UserID)
	if err != nil {
		return fmt.Errorf("failed to delete grant: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("grant not found")
	}
	return nil
}
