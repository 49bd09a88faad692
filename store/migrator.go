package store

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

//go:embed migration
var migrationFS embed.FS

// LatestSchemaFileName holds the full schema for fresh installations.
const LatestSchemaFileName = "LATEST.sql"

// Migrate applies the schema to an uninitialized database. Already
// initialized databases are left untouched; there is no incremental
// versioning at this scale.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check initialization state")
	}
	if initialized {
		return nil
	}

	filePath := fmt.Sprintf("migration/%s/%s", s.profile.Driver, LatestSchemaFileName)
	bytes, err := migrationFS.ReadFile(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to read schema file %q", filePath)
	}

	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	// The schema contains no quoted semicolons, so a plain split is enough.
	for _, stmt := range strings.Split(string(bytes), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to execute statement: %s", stmt)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit schema")
	}
	return nil
}
