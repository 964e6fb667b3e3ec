//go:build integration

// Package testinfra starts the external services integration tests run
// against. Everything here needs a Docker daemon and the integration
// build tag:
//
//	go test -tags integration ./internal/repository/...
package testinfra

import (
	"context"
	"database/sql"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/iliyamo/tour-booking-api/internal/database"
)

const (
	DefaultMySQLImage = "mysql:8.4"
	mysqlPort         = "3306"
	mysqlDatabase     = "natours_test"
	mysqlPassword     = "test"
)

// SkipIfNoDocker skips the test when no Docker daemon is reachable.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()
	if !IsDockerAvailable() {
		t.Skip("Skipping test: Docker not available")
	}
}

// IsDockerAvailable reports whether `docker info` succeeds.
func IsDockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, "docker", "info").Run() == nil
}

// MySQLContainer is a running MySQL server with the application schema
// applied.
type MySQLContainer struct {
	Container testcontainers.Container
	DB        *sql.DB
	Options   database.Options
}

// NewMySQLContainer starts image (DefaultMySQLImage when empty), waits
// until it accepts connections and creates the tables.
func NewMySQLContainer(ctx context.Context, image string) (*MySQLContainer, error) {
	if image == "" {
		image = DefaultMySQLImage
	}
	req := testcontainers.ContainerRequest{
		Image:        image,
		ExposedPorts: []string{mysqlPort + "/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": mysqlPassword,
			"MYSQL_DATABASE":      mysqlDatabase,
			"TZ":                  "UTC",
		},
		// the entrypoint starts a temporary server first; the second
		// "ready for connections" line belongs to the real one
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(mysqlPort+"/tcp"),
			wait.ForLog("ready for connections").WithOccurrence(2),
		).WithStartupTimeout(2 * time.Minute),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create mysql container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, mysqlPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped port: %w", err)
	}

	opts := database.Options{
		User:            "root",
		Password:        mysqlPassword,
		Host:            host,
		Port:            port.Port(),
		Name:            mysqlDatabase,
		MultiStatements: true,
	}
	db, err := openWithRetry(ctx, opts, 30*time.Second)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if err := database.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &MySQLContainer{Container: container, DB: db, Options: opts}, nil
}

// openWithRetry polls database.Open until the server answers a ping.
func openWithRetry(ctx context.Context, opts database.Options, timeout time.Duration) (*sql.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := database.Open(opts)
		if err == nil {
			return db, nil
		}
		if time.Now().After(deadline) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// Truncate empties every application table, children first.
func (c *MySQLContainer) Truncate(ctx context.Context) error {
	for _, table := range []string{"reviews", "tour_guides", "tour_start_dates", "tours", "users"} {
		if _, err := c.DB.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

// Terminate closes the pool and stops the container.
func (c *MySQLContainer) Terminate(ctx context.Context) error {
	_ = c.DB.Close()
	return c.Container.Terminate(ctx)
}
