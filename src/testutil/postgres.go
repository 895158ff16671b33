package testutil

import (
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/BookHut/BookHut-Backend/src/config"
	"github.com/BookHut/BookHut-Backend/src/db"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// PostgresDSNEnv names the variable holding a PostgreSQL DSN for tests.
const PostgresDSNEnv = "TEST_DATABASE_DSN"

// NewPostgresDB returns a migrated PostgreSQL database in a fresh schema that
// is dropped after the test. Unlike NewDB the pool is not limited, so
// transactions from concurrent goroutines really overlap. The test is skipped
// when TEST_DATABASE_DSN is unset.
func NewPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set, skipping PostgreSQL test", PostgresDSNEnv)
	}

	admin, err := db.Connect(&config.Config{DBDriver: config.DriverPostgres, DBDSN: dsn})
	require.NoError(t, err)

	schema := "bookhut_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	require.NoError(t, admin.Exec("CREATE SCHEMA "+schema).Error)
	t.Cleanup(func() {
		_ = admin.Exec("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Error
		_ = db.Close(admin)
	})

	gdb, err := db.Connect(&config.Config{DBDriver: config.DriverPostgres, DBDSN: withSearchPath(dsn, schema)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })

	require.NoError(t, db.Migrate(gdb))
	return gdb
}

// withSearchPath points a URL or keyword/value DSN at schema.
func withSearchPath(dsn, schema string) string {
	if strings.Contains(dsn, "://") {
		if u, err := url.Parse(dsn); err == nil {
			q := u.Query()
			q.Set("search_path", schema)
			u.RawQuery = q.Encode()
			return u.String()
		}
	}
	return dsn + " search_path=" + schema
}
