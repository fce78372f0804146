// Package testutil provides a PostgreSQL test database with the plans schema
// applied.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cory-johannsen/blocks/internal/config"
	"github.com/cory-johannsen/blocks/internal/storage/postgres"
)

// PostgresContainer wraps a PostgreSQL instance for integration tests:
// either a testcontainers container or the database named by TEST_DSN.
type PostgresContainer struct {
	container testcontainers.Container
	Pool      *postgres.Pool
	RawPool   *pgxpool.Pool
	dsn       string
}

// NewPostgresContainer connects to TEST_DSN when set, and otherwise starts a
// PostgreSQL test container.
//
// Precondition: Docker must be available unless TEST_DSN is set.
// Postcondition: Returns a connected pool, or skips the test under -short or
// when no Docker provider is healthy.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in -short mode")
	}
	if dsn := os.Getenv("TEST_DSN"); dsn != "" {
		return connect(t, dsn, nil)
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	start := time.Now()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v [%s]", err, time.Since(start))
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("getting container host: %v", err)
	}
	mappedPort, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("getting mapped port: %v", err)
	}

	dbCfg := config.DatabaseConfig{
		Host:     host,
		Port:     mappedPort.Int(),
		User:     "test",
		Password: "test",
		Name:     "test",
		SSLMode:  "disable",
	}
	t.Logf("postgres container started [%s]", time.Since(start))
	return connect(t, dbCfg.DSN(), container)
}

func connect(t *testing.T, dsn string, container testcontainers.Container) *PostgresContainer {
	t.Helper()
	ctx := context.Background()
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parsing test DSN: %v", err)
	}
	dbCfg := config.DatabaseConfig{
		Host:            poolCfg.ConnConfig.Host,
		Port:            int(poolCfg.ConnConfig.Port),
		User:            poolCfg.ConnConfig.User,
		Password:        poolCfg.ConnConfig.Password,
		Name:            poolCfg.ConnConfig.Database,
		SSLMode:         "disable",
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
	}
	pool, err := postgres.NewPool(ctx, dbCfg)
	if err != nil {
		t.Fatalf("connecting to test postgres: %v", err)
	}
	t.Cleanup(pool.Close)
	return &PostgresContainer{container: container, Pool: pool, RawPool: pool.DB(), dsn: dsn}
}

// MigrationsDir returns the absolute path of the repository's migrations
// directory.
func MigrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

// ApplyMigrations runs every up migration in MigrationsDir against the test
// database and empties the plans table.
//
// Precondition: Pool must be connected.
// Postcondition: The plans table exists and is empty.
func (pc *PostgresContainer) ApplyMigrations(t *testing.T) {
	t.Helper()
	start := time.Now()

	m, err := migrate.New("file://"+filepath.ToSlash(MigrationsDir()), pc.dsn)
	if err != nil {
		t.Fatalf("creating migrator: %v", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("applying migrations: %v", err)
	}
	if _, err := pc.RawPool.Exec(context.Background(), `TRUNCATE plans`); err != nil {
		t.Fatalf("truncating plans: %v", err)
	}
	t.Logf("migrations applied [%s]", time.Since(start))
}

// DSN returns the connection string for the test database.
func (pc *PostgresContainer) DSN() string {
	return pc.dsn
}

// String identifies the backing database in test logs.
func (pc *PostgresContainer) String() string {
	if pc.container != nil {
		return fmt.Sprintf("container %s", pc.container.GetContainerID())
	}
	return "TEST_DSN"
}
