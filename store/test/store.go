// Package test provides store fixtures for package-level tests. SQLite
// in-memory keeps the suite self-contained; set POSTGRES_TEST_DSN to run
// the same tests against PostgreSQL.
package test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tzefoong/relaybot/internal/profile"
	"github.com/tzefoong/relaybot/store"
	"github.com/tzefoong/relaybot/store/db"
)

// NewTestingStore creates a migrated store backed by an in-memory SQLite
// database (or PostgreSQL when POSTGRES_TEST_DSN is set).
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()

	p := &profile.Profile{
		Mode:                "dev",
		Driver:              "sqlite",
		DSN:                 ":memory:",
		Provider:            "openai",
		Model:               "gpt-4o-mini",
		APIKey:              "test-key",
		MaxContextTokens:    16000,
		TextReserveTokens:   1000,
		ImageReserveTokens:  2000,
		RequestTimeout:      time.Minute,
		HistoryFetchLimit:   500,
		RetentionKeepRecent: 100,
	}
	if dsn := os.Getenv("POSTGRES_TEST_DSN"); dsn != "" {
		p.Driver = "postgres"
		p.DSN = dsn
	}

	driver, err := db.NewDBDriver(p)
	require.NoError(t, err)

	st := store.New(driver, p)
	require.NoError(t, st.Migrate(ctx))

	t.Cleanup(func() { st.Close() })
	return st
}
