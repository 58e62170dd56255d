// Package database opens the certificate record store and the optional Redis used for issuance locks.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/jackc/pgx/v5/stdlib"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"certapi/internal/config"
)

var sqlOpen = sql.Open

const (
	// ApplicationName tags certapi sessions in pg_stat_activity.
	ApplicationName = "certapi"

	pingTimeout = 5 * time.Second
)

// BuildPostgresDSN builds the record store URL from the DB_* settings.
// Sessions are tagged with ApplicationName and the server connect is bounded by pingTimeout.
func BuildPostgresDSN(c config.DatabaseConfig) (string, error) {
	var missing []string
	for name, v := range map[string]string{"DB_HOST": c.Host, "DB_PORT": c.Port, "DB_USER": c.User, "DB_NAME": c.Name} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("invalid database config: %d of DB_HOST, DB_PORT, DB_USER, DB_NAME unset", len(missing))
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return "", fmt.Errorf("invalid database config: DB_PORT %q is not a number", c.Port)
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   c.Host + ":" + c.Port,
		Path:   c.Name,
		User:   url.User(c.User),
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}

	q := url.Values{}
	q.Set("application_name", ApplicationName)
	q.Set("connect_timeout", strconv.Itoa(int(pingTimeout/time.Second)))
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// NewPostgres opens the record store through the otelsql-wrapped pgx driver and pings it.
// The ping is bounded by ctx and by pingTimeout, whichever ends first.
func NewPostgres(ctx context.Context, c config.DatabaseConfig) (*sql.DB, error) {
	dsn, err := BuildPostgresDSN(c)
	if err != nil {
		return nil, err
	}

	driverName, err := otelsql.Register("pgx",
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL, semconv.DBName(c.Name)),
		otelsql.WithSQLCommenter(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register otelsql: %w", err)
	}

	db, err := sqlOpen(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	applyPool(db, c)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping %s:%s: %w", c.Host, c.Port, err)
	}

	return db, nil
}

// applyPool sizes the pool. Idle connections never exceed open ones.
func applyPool(db *sql.DB, c config.DatabaseConfig) {
	if c.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.MaxOpenConns)
	}
	idle := c.MaxIdleConns
	if c.MaxOpenConns > 0 && idle > c.MaxOpenConns {
		idle = c.MaxOpenConns
	}
	if idle > 0 {
		db.SetMaxIdleConns(idle)
	}
	if c.ConnMaxLifetimeSec > 0 {
		db.SetConnMaxLifetime(time.Duration(c.ConnMaxLifetimeSec) * time.Second)
	}
}
