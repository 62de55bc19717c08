package db

import (
	"errors"
	"os"
	"os/exec"
	"testing"

	"storefront-be/internal/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(name string) *config.Config {
	return &config.Config{
		DBHost:     "db.internal",
		DBUser:     "storefront",
		DBPassword: "secret",
		DBName:     name,
		DBPort:     "5432",
	}
}

// expectDatabase registers a sqlmock connection under the DSN built from cfg
// so newDatabaseWithDriver reaches it through the otelsql wrapper.
func expectDatabase(t *testing.T, cfg *config.Config) sqlmock.Sqlmock {
	t.Helper()
	raw, mock, err := sqlmock.NewWithDSN(buildDSN(cfg), sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return mock
}

func TestBuildDSN(t *testing.T) {
	got := buildDSN(testConfig("storefront"))
	assert.Equal(t, "host=db.internal user=storefront password=secret dbname=storefront port=5432 sslmode=disable", got)
}

func TestNewDatabaseWithDriver(t *testing.T) {
	t.Run("Pings through the instrumented driver", func(t *testing.T) {
		cfg := testConfig("ping_ok")
		mock := expectDatabase(t, cfg)
		mock.ExpectPing()

		db, err := newDatabaseWithDriver(cfg, "sqlmock")
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })

		assert.Equal(t, 50, db.Stats().MaxOpenConnections)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Ping failure", func(t *testing.T) {
		cfg := testConfig("ping_refused")
		mock := expectDatabase(t, cfg)
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		db, err := newDatabaseWithDriver(cfg, "sqlmock")
		assert.Nil(t, db)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to ping DB")
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("Unknown driver", func(t *testing.T) {
		db, err := newDatabaseWithDriver(testConfig("none"), "cockroach")
		assert.Nil(t, db)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to DB")
	})
}

func TestNewDatabase_Unreachable(t *testing.T) {
	cfg := &config.Config{DBHost: "invalid_host", DBPort: "5432"}

	db, err := NewDatabase(cfg)
	assert.Nil(t, db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping DB")
}

func TestInitDB_ExitsWhenUnreachable(t *testing.T) {
	if os.Getenv("DB_INIT_CRASH") == "1" {
		InitDB(&config.Config{DBHost: "invalid_host", DBPort: "5432"})
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestInitDB_ExitsWhenUnreachable")
	cmd.Env = append(os.Environ(), "DB_INIT_CRASH=1")
	err := cmd.Run()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && !exitErr.Success() {
		return
	}
	t.Fatalf("process ran with err %v, want non-zero exit", err)
}
