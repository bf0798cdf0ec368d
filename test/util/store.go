// Package util provides test utilities for pgstore's integration tests.
package util

import (
	"context"
	"crypto/rand"
	stdsql "database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/nubaeon/empirica/pkg/sessionstore/pgstore"
)

var (
	sharedConnStr string
	containerOnce sync.Once
	containerErr  error
)

// SetupTestStore starts (or reuses) a shared Postgres testcontainer, creates
// a unique schema for t, runs pgstore's embedded migrations into it, and
// returns a ready *pgstore.Store. The schema is dropped on test cleanup.
//
// Mirrors SetupTestDatabase's shared-container-plus-per-test-schema shape,
// generalized from ent's migration runner to pgstore's golang-migrate one.
func SetupTestStore(t *testing.T) *pgstore.Store {
	t.Helper()
	ctx := context.Background()

	connStr := getOrCreateSharedContainer(t)
	schemaName := generateSchemaName(t)

	db, err := stdsql.Open("pgx", connStr)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA %s", schemaName))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	store, err := pgstore.New(ctx, pgstore.Config{
		DSNOverride: addSearchPath(connStr, schemaName),
		MaxConns:    5,
		MinConns:    1,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()

		cleanupDB, err := stdsql.Open("pgx", connStr)
		if err != nil {
			t.Logf("failed to reopen connection to drop schema %s: %v", schemaName, err)
			return
		}
		defer cleanupDB.Close()
		if _, err := cleanupDB.ExecContext(context.Background(), fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schemaName)); err != nil {
			t.Logf("failed to drop schema %s: %v", schemaName, err)
		}
	})

	return store
}

func getOrCreateSharedContainer(t *testing.T) string {
	t.Helper()

	containerOnce.Do(func() {
		ctx := context.Background()
		t.Log("starting shared PostgreSQL testcontainer for pgstore tests")

		pgContainer, err := postgres.Run(ctx,
			"postgres:17-alpine",
			postgres.WithDatabase("empirica_test"),
			postgres.WithUsername("empirica"),
			postgres.WithPassword("empirica"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			containerErr = fmt.Errorf("failed to start postgres container: %w", err)
			return
		}

		connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			containerErr = fmt.Errorf("failed to get connection string: %w", err)
			return
		}
		sharedConnStr = connStr
	})

	require.NoError(t, containerErr, "failed to set up shared postgres testcontainer")
	return sharedConnStr
}

// generateSchemaName mirrors GenerateSchemaName's sanitize-and-suffix shape.
func generateSchemaName(t *testing.T) string {
	t.Helper()
	name := strings.ToLower(t.Name())
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, name)
	if len(name) > 40 {
		name = name[:40]
	}

	suffix := make([]byte, 4)
	_, err := rand.Read(suffix)
	require.NoError(t, err)

	return fmt.Sprintf("test_%s_%s", name, hex.EncodeToString(suffix))
}

func addSearchPath(connStr, schemaName string) string {
	separator := "?"
	if strings.Contains(connStr, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%ssearch_path=%s", connStr, separator, schemaName)
}
