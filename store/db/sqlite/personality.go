package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/tzefoong/relaybot/store"
)

func (d *DB) UpsertPersonality(ctx context.Context, upsert *store.Personality) (*store.Personality, error) {
	stmt := `INSERT INTO personality (name, prompt, created_ts, updated_ts)
		VALUES (` + placeholders(4) + `)
		ON CONFLICT (name) DO UPDATE SET
			prompt = EXCLUDED.prompt,
			updated_ts = EXCLUDED.updated_ts`
	args := []any{upsert.Name, upsert.Prompt, upsert.CreatedTs, upsert.UpdatedTs}
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, fmt.Errorf("failed to upsert personality: %w", err)
	}
	return upsert, nil
}

func (d *DB) ListPersonalities(ctx context.Context, find *store.FindPersonality) ([]*store.Personality, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.Name != nil {
		where, args = append(where, "name = ?"), append(args, *find.Name)
	}

	query := `SELECT name, prompt, created_ts, updated_ts
		FROM personality WHERE ` + strings.Join(where, " AND ") + ` ORDER BY name ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list personalities: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Personality, 0)
	for rows.Next() {
		p := &store.Personality{}
		if err := rows.Scan(&p.Name, &p.Prompt, &p.CreatedTs, &p.UpdatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan personality: %w", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate personalities: %w", err)
	}
	return list, nil
}

func (d *DB) DeletePersonality(ctx context.Context, delete *store.DeletePersonality) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM personality WHERE name = ?`, delete.Name)
	if err != nil {
		return fmt.Errorf("failed to delete personality: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("personality not found")
	}
	return nil
}
