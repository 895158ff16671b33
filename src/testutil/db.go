package testutil

import (
	"testing"

	"github.com/BookHut/BookHut-Backend/src/config"
	"github.com/BookHut/BookHut-Backend/src/db"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB returns a migrated in-memory SQLite database that lives for the test.
// The pool holds a single connection, so concurrent callers queue on it the
// same way concurrent writers queue on a row lock in PostgreSQL.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := db.Connect(&config.Config{DBDriver: config.DriverSQLite, DBDSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	t.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}
