package database

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"testing"
	"time"

	"certapi/internal/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubOpen(t *testing.T, db *sql.DB, err error) *string {
	t.Helper()
	var gotDSN string
	orig := sqlOpen
	sqlOpen = func(_, dsn string) (*sql.DB, error) {
		gotDSN = dsn
		return db, err
	}
	t.Cleanup(func() { sqlOpen = orig })
	return &gotDSN
}

func TestBuildPostgresDSN_FromEnvDefaults(t *testing.T) {
	t.Setenv("DB_HOST", "records.internal")
	t.Setenv("DB_USER", "certapi")
	t.Setenv("DB_PASSWORD", "p@ss/word")
	t.Setenv("DB_NAME", "certificates")

	dsn, err := BuildPostgresDSN(config.Load().Database)
	require.NoError(t, err)

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "records.internal:5432", u.Host)
	assert.Equal(t, "/certificates", u.Path)
	pass, _ := u.User.Password()
	assert.Equal(t, "p@ss/word", pass)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	assert.Equal(t, ApplicationName, u.Query().Get("application_name"))
	assert.Equal(t, "5", u.Query().Get("connect_timeout"))
}

func TestBuildPostgresDSN_Invalid(t *testing.T) {
	valid := config.DatabaseConfig{Host: "localhost", Port: "5432", User: "certapi", Name: "certificates"}

	tests := []struct {
		name   string
		mutate func(c *config.DatabaseConfig)
	}{
		{"DB_HOST unset", func(c *config.DatabaseConfig) { c.Host = "" }},
		{"DB_NAME unset", func(c *config.DatabaseConfig) { c.Name = "" }},
		{"DB_PORT not numeric", func(c *config.DatabaseConfig) { c.Port = "postgres" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			_, err := BuildPostgresDSN(c)
			assert.Error(t, err)
		})
	}

	dsn, err := BuildPostgresDSN(valid)
	require.NoError(t, err)
	assert.NotContains(t, dsn, "sslmode")
	assert.Contains(t, dsn, "postgres://certapi@localhost:5432/certificates?")
}

func TestNewPostgres(t *testing.T) {
	conf := config.DatabaseConfig{
		Host:         "localhost",
		Port:         "5432",
		User:         "certapi",
		Name:         "certificates",
		MaxOpenConns: 4,
		MaxIdleConns: 9,
	}

	t.Run("pings and sizes the pool", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		dsn := stubOpen(t, db, nil)
		mock.ExpectPing()

		gotDB, err := NewPostgres(context.Background(), conf)

		require.NoError(t, err)
		assert.Equal(t, 4, gotDB.Stats().MaxOpenConnections)
		assert.Contains(t, *dsn, "application_name=certapi")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("open error", func(t *testing.T) {
		stubOpen(t, nil, errors.New("open error"))

		gotDB, err := NewPostgres(context.Background(), conf)
		assert.ErrorContains(t, err, "sql open: open error")
		assert.Nil(t, gotDB)
	})

	t.Run("ping error names the host", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		stubOpen(t, db, nil)
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		gotDB, err := NewPostgres(context.Background(), conf)
		assert.ErrorContains(t, err, "db ping localhost:5432: connection refused")
		assert.Nil(t, gotDB)
	})

	t.Run("ping honours caller context", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		stubOpen(t, db, nil)
		mock.ExpectPing().WillDelayFor(2 * time.Second)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		start := time.Now()

		gotDB, err := NewPostgres(ctx, conf)

		assert.Error(t, err)
		assert.Nil(t, gotDB)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("invalid config never opens", func(t *testing.T) {
		stubOpen(t, nil, errors.New("must not be called"))
		_, err := NewPostgres(context.Background(), config.DatabaseConfig{})
		assert.ErrorContains(t, err, "invalid database config")
	})
}
