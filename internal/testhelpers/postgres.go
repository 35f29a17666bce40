// Package testhelpers starts disposable infrastructure for integration tests.
package testhelpers

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/septivank/civic-kiosk/internal/db"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap/zaptest"
)

const (
	postgresImage    = "postgres:16-alpine"
	postgresUser     = "kiosk"
	postgresPassword = "kiosk"
	postgresDB       = "kiosk"
)

// SetupPostgres starts a PostgreSQL container, applies every migration and
// returns a pool connected to it. The pool and container are released when
// the test completes.
//
// Container tests are skipped in short mode:
//
//	func TestRepository(t *testing.T) {
//	    if testing.Short() {
//	        t.Skip("Skipping container-based test in short mode")
//	    }
//	    pool := testhelpers.SetupPostgres(t)
//	    // ... test code ...
//	}
func SetupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     postgresUser,
			"POSTGRES_PASSWORD": postgresPassword,
			"POSTGRES_DB":       postgresDB,
		},
		// the server logs readiness once for the init run and once for the real start
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get postgres host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("Failed to get postgres port: %v", err)
	}

	url := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable",
		postgresUser, postgresPassword, net.JoinHostPort(host, port.Port()), postgresDB)

	lc := fxtest.NewLifecycle(t)
	pool, err := db.NewPool(lc, zaptest.NewLogger(t), db.PoolConfig{URL: url, MaxConns: 4})
	if err != nil {
		t.Fatalf("Failed to create pool: %v", err)
	}
	lc.RequireStart()
	t.Cleanup(func() { lc.RequireStop() })

	applyMigrations(ctx, t, pool)
	t.Logf("postgres started: %s", net.JoinHostPort(host, port.Port()))

	return pool
}

func applyMigrations(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, self, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to locate migrations directory")
	}
	files, err := filepath.Glob(filepath.Join(filepath.Dir(self), "..", "..", "migrations", "*.sql"))
	if err != nil || len(files) == 0 {
		t.Fatalf("No migrations found: %v", err)
	}
	sort.Strings(files)

	for _, file := range files {
		sql, err := os.ReadFile(file)
		if err != nil {
			t.Fatalf("Failed to read %s: %v", filepath.Base(file), err)
		}
		// no arguments, so pgx runs the file over the simple protocol
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			t.Fatalf("Failed to apply %s: %v", filepath.Base(file), err)
		}
	}
}
