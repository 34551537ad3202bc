// Package store persists call detail records. Each backend translates
// query.Predicate values into its own query language.
package store

import (
	"context"

	"cdr_api/config"
	"cdr_api/internal/api/cdr/models"
	"cdr_api/internal/api/cdr/query"
)

// Store is the record persistence contract used by the service layer.
type Store interface {
	// InsertMany stores records in one call. A duplicate reference fails the call.
	InsertMany(ctx context.Context, records []models.CallDetailRecord) error
	// FindOne returns common.ErrNotFound when nothing matches.
	FindOne(ctx context.Context, filter query.Predicate) (*models.CallDetailRecord, error)
	// Find never returns a nil slice on success.
	Find(ctx context.Context, filter query.Predicate, opts query.FindOptions) ([]models.CallDetailRecord, error)
	Statistics(ctx context.Context, filter query.Predicate) (models.CallStatistics, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Factory opens a Store from configuration. Factories are registered by driver name.
type Factory func(ctx context.Context, cfg *config.Configuration) (Store, error)
