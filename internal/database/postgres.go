package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// ConnectOptions bounds how long startup waits for the database to accept
// connections.
type ConnectOptions struct {
	Attempts int
	Backoff  time.Duration
}

// NewPostgresConnection opens dbURL and pings it until it answers or the
// attempts run out.
func NewPostgresConnection(ctx context.Context, dbURL string, opts ConnectOptions, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("could not connect to postgres: %w", err)
	}

	attempts := opts.Attempts
	if attempts < 1 {
		attempts = 1
	}
	for i := 1; i <= attempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			logger.Info("Connected to database", zap.Int("attempt", i))
			return db, nil
		}
		logger.Warn("Database not reachable",
			zap.Int("attempt", i),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(opts.Backoff):
		}
	}

	db.Close()
	return nil, fmt.Errorf("could not ping the database after %d attempts: %w", attempts, err)
}
