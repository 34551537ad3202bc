package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cdr_api/internal/logger"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// OpenSQL opens a pooled database/sql handle for driver ("postgres" or "sqlite")
// and pings it.
func OpenSQL(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is empty")
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if driver == "sqlite" && strings.Contains(dsn, ":memory:") {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}

	logger.GetAppLogger().WithField("driver", driver).Info("Successfully connected to SQL database")
	return db, nil
}
