package migration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := logOut
	logOut = &buf
	t.Cleanup(func() { logOut = orig })
	return &buf
}

func events(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry["event"].(string))
	}
	return out
}

func TestEnsureMigrated(t *testing.T) {
	ctx := context.Background()

	t.Run("runs all steps when table is missing", func(t *testing.T) {
		buf := captureLogs(t)
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(regexp.QuoteMeta(sentinelQuery)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS certificates").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_certificates_created_at").WillReturnResult(sqlmock.NewResult(0, 0))

		err = EnsureMigrated(ctx, db, time.UTC, "db.local")

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.Equal(t, []string{
			"db_migration_check",
			"db_migration_start",
			"db_migration_step",
			"db_migration_step",
			"db_migration_success",
		}, events(t, buf))
	})

	t.Run("skips when table exists", func(t *testing.T) {
		buf := captureLogs(t)
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(regexp.QuoteMeta(sentinelQuery)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		err = EnsureMigrated(ctx, db, time.UTC, "db.local")

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.Equal(t, []string{"db_migration_check", "db_migration_skip"}, events(t, buf))
	})

	t.Run("step failure", func(t *testing.T) {
		buf := captureLogs(t)
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(regexp.QuoteMeta(sentinelQuery)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS certificates").WillReturnError(errors.New("permission denied"))

		err = EnsureMigrated(ctx, db, time.UTC, "db.local")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "migration step create_table_certificates failed")
		assert.Contains(t, buf.String(), `"level":"error"`)
	})

	t.Run("sentinel failure", func(t *testing.T) {
		captureLogs(t)
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(regexp.QuoteMeta(sentinelQuery)).WillReturnError(errors.New("timeout"))

		err = EnsureMigrated(ctx, db, time.UTC, "db.local")

		assert.ErrorContains(t, err, "failed to check sentinel table: timeout")
	})
}
