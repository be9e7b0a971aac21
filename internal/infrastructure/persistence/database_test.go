package persistence

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/postgres"

	"github.com/erp/portal/internal/infrastructure/config"
)

// newMockDatabase opens a Database over a mocked postgres connection
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	mock.ExpectPing()
	db, err := OpenDialector(dialector, "postgres", Options{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	return db, mock, mockDB
}

func TestOpen(t *testing.T) {
	t.Run("opens in-memory sqlite", func(t *testing.T) {
		cfg := &config.SessionConfig{Driver: "sqlite", SQLitePath: "file::memory:?cache=shared"}

		db, err := Open(cfg, Options{Logger: zaptest.NewLogger(t)})
		require.NoError(t, err)
		defer db.Close()

		assert.NoError(t, db.Ping())
	})

	t.Run("rejects non-sql drivers", func(t *testing.T) {
		for _, driver := range []string{"memory", "redis", ""} {
			_, err := Open(&config.SessionConfig{Driver: driver}, Options{})
			assert.Error(t, err, driver)
		}
	})

	t.Run("registers tracing plugin", func(t *testing.T) {
		cfg := &config.SessionConfig{Driver: "sqlite", SQLitePath: "file::memory:"}

		db, err := Open(cfg, Options{Tracing: true})
		require.NoError(t, err)
		defer db.Close()

		_, ok := db.DB.Config.Plugins["otelgorm"]
		assert.True(t, ok)
	})
}

func TestDatabase_Ping(t *testing.T) {
	t.Run("successful ping", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectPing()

		assert.NoError(t, db.Ping())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed ping", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectPing().WillReturnError(assert.AnError)

		assert.Error(t, db.Ping())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDatabase_Close(t *testing.T) {
	t.Run("successful close", func(t *testing.T) {
		db, mock, _ := newMockDatabase(t)

		mock.ExpectClose()

		assert.NoError(t, db.Close())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
