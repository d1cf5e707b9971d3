//go:build integration

// Package dbtest provisions a throwaway Postgres database for integration tests.
// Set TEST_DB_DSN to use an existing server instead of a container.
package dbtest

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/nekogravitycat/futsal-booking-backend/internal/db"
)

const (
	testUser     = "test"
	testPassword = "testpass"
)

var (
	serverOnce sync.Once
	serverDSN  string
	serverErr  error
)

func adminDSN(t *testing.T) string {
	t.Helper()
	if dsn := os.Getenv("TEST_DB_DSN"); dsn != "" {
		return dsn
	}

	serverOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		dsnFor := func(host string, port nat.Port) string {
			return fmt.Sprintf("postgres://%s:%s@%s:%s/postgres?sslmode=disable", testUser, testPassword, host, port.Port())
		}
		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "postgres:16",
				ExposedPorts: []string{"5432/tcp"},
				Env: map[string]string{
					"POSTGRES_USER":     testUser,
					"POSTGRES_PASSWORD": testPassword,
					"POSTGRES_DB":       "postgres",
				},
				Tmpfs: map[string]string{"/var/lib/postgresql/data": "rw,size=256m"},
				Cmd:   []string{"postgres", "-c", "fsync=off", "-c", "max_connections=200"},
				WaitingFor: wait.ForSQL("5432/tcp", "pgx", dsnFor).
					WithStartupTimeout(60 * time.Second),
			},
			Started: true,
		})
		if err != nil {
			serverErr = err
			return
		}

		host, err := container.Host(ctx)
		if err != nil {
			serverErr = err
			return
		}
		port, err := container.MappedPort(ctx, "5432/tcp")
		if err != nil {
			serverErr = err
			return
		}
		serverDSN = dsnFor(host, port)
	})
	require.NoError(t, serverErr, "start postgres container")
	return serverDSN
}

// NewPool creates an empty database with the application schema and returns a pool on it.
// The database is dropped when the test ends.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin := adminDSN(t)
	adminPool, err := pgxpool.New(ctx, admin)
	require.NoError(t, err)
	defer adminPool.Close()

	name := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	_, err = adminPool.Exec(ctx, "CREATE DATABASE "+name)
	require.NoError(t, err, "create test database")

	cfg, err := pgxpool.ParseConfig(admin)
	require.NoError(t, err)
	cfg.ConnConfig.Database = name
	cfg.MaxConns = 32

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, db.ApplySchema(ctx, pool))

	t.Cleanup(func() {
		pool.Close()
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		conn, err := pgx.Connect(cleanupCtx, admin)
		if err != nil {
			t.Logf("drop %s: %v", name, err)
			return
		}
		defer conn.Close(cleanupCtx)
		if _, err := conn.Exec(cleanupCtx, "DROP DATABASE IF EXISTS "+name+" WITH (FORCE)"); err != nil {
			t.Logf("drop %s: %v", name, err)
		}
	})
	return pool
}

// CreateUser inserts an account and returns its id.
func CreateUser(t *testing.T, pool *pgxpool.Pool, role string) string {
	t.Helper()
	var id string
	err := pool.QueryRow(context.Background(),
		`INSERT INTO public.users (email, password_hash, role) VALUES ($1, 'x', $2) RETURNING id`,
		uuid.NewString()+"@example.com", role,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateCourt inserts an active court priced in minor units and returns its id.
func CreateCourt(t *testing.T, pool *pgxpool.Pool, vendorID string, priceCents int64) string {
	t.Helper()
	var id string
	err := pool.QueryRow(context.Background(),
		`INSERT INTO public.courts (vendor_id, name, price_cents, opening_time, closing_time)
		 VALUES ($1, 'Arena', $2, '06:00', '22:00') RETURNING id`,
		vendorID, priceCents,
	).Scan(&id)
	require.NoError(t, err)
	return id
}
