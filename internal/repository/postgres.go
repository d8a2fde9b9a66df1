package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/liftwatch/liftwatch/internal/domain"
)

// pqUniqueViolation is the SQLSTATE for a unique constraint failure.
const pqUniqueViolation = "23505"

// openPostgres opens the pro tier store.
func openPostgres(cfg domain.RepositoryConfig) (*sql.DB, error) {
	connector, err := pq.NewConnector(postgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("invalid postgres settings: %w", err)
	}
	db := sql.OpenDB(connector)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	return db, nil
}

func postgresDSN(cfg domain.RepositoryConfig) string {
	host := cfg.PostgresHost
	if host == "" {
		host = "localhost"
	}
	port := cfg.PostgresPort
	if port == 0 {
		port = 5432
	}
	dbname := cfg.PostgresDB
	if dbname == "" {
		dbname = "liftwatch"
	}
	sslmode := cfg.PostgresSSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	// Empty values are left out: pq would read the next key as the value.
	parts := []string{"host=" + host, fmt.Sprintf("port=%d", port)}
	if cfg.PostgresUser != "" {
		parts = append(parts, "user="+cfg.PostgresUser)
	}
	if cfg.PostgresPassword != "" {
		parts = append(parts, "password="+cfg.PostgresPassword)
	}
	parts = append(parts, "dbname="+dbname, "sslmode="+sslmode)
	return strings.Join(parts, " ")
}

func isPostgresUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
