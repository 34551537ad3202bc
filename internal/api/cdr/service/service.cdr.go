// Package cdrsvc orchestrates CSV ingestion and record queries over a store.
package cdrsvc

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"cdr_api/internal/api/cdr/csvparse"
	cdrdto "cdr_api/internal/api/cdr/dto"
	"cdr_api/internal/api/cdr/mapper"
	"cdr_api/internal/api/cdr/models"
	"cdr_api/internal/api/cdr/query"
	"cdr_api/internal/api/cdr/store"
	"cdr_api/internal/common"
	"cdr_api/internal/logger"
)

// RecordCache is a read-through cache for lookups by reference.
type RecordCache interface {
	// Get returns nil, nil on a miss.
	Get(ctx context.Context, reference string) (*models.CallDetailRecord, error)
	Set(ctx context.Context, rec *models.CallDetailRecord) error
}

// UploadArchive keeps a copy of every ingested upload.
type UploadArchive interface {
	Store(ctx context.Context, body []byte) (string, error)
}

// Config holds the optional collaborators of CdrService. Zero values disable them.
type Config struct {
	Now     func() time.Time
	Cache   RecordCache
	Archive UploadArchive
}

// CdrService implements the record operations on top of a store.Store.
type CdrService struct {
	store   store.Store
	now     func() time.Time
	cache   RecordCache
	archive UploadArchive
}

func NewCdrService(s store.Store, cfg Config) *CdrService {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &CdrService{
		store:   s,
		now:     now,
		cache:   cfg.Cache,
		archive: cfg.Archive,
	}
}

// UploadCsv parses r, keeps the rows that map to a record and inserts them in
// one call. It returns false, without touching the store, when no row is valid.
func (s *CdrService) UploadCsv(ctx context.Context, r io.Reader, size int64) (bool, error) {
	if r == nil || size <= 0 {
		return false, common.InvalidArgument("file", msgEmptyFile)
	}

	var raw *bytes.Buffer
	if s.archive != nil {
		raw = bytes.NewBuffer(make([]byte, 0, size))
		r = io.TeeReader(r, raw)
	}

	rows, err := csvparse.Parse(r)
	if err != nil {
		return false, err
	}

	var records []models.CallDetailRecord
	for row, err := range rows {
		if err != nil {
			return false, err
		}
		if rec := mapper.Map(row); rec != nil {
			records = append(records, *rec)
		}
	}

	log := logger.WithContext(ctx).WithField("module", "cdr")
	if len(records) == 0 {
		log.Warn("Upload contained no valid records")
		return false, nil
	}

	if err := s.store.InsertMany(ctx, records); err != nil {
		return false, err
	}
	log.WithField("count", len(records)).Info("Inserted call detail records")

	if s.archive != nil {
		if key, err := s.archive.Store(ctx, raw.Bytes()); err != nil {
			log.WithError(err).Error("Failed to archive upload")
		} else {
			log.WithField("key", key).Debug("Archived upload")
		}
	}
	return true, nil
}

// GetByReference returns nil, nil when no record has the reference.
func (s *CdrService) GetByReference(ctx context.Context, reference string) (*models.CallDetailRecord, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, common.InvalidArgument("reference", msgBlankReference)
	}

	if s.cache != nil {
		rec, err := s.cache.Get(ctx, reference)
		if err != nil {
			logger.WithContext(ctx).WithError(err).Warn("Cache read failed, using store")
		} else if rec != nil {
			return rec, nil
		}
	}

	rec, err := s.store.FindOne(ctx, query.ByReference(reference))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, rec); err != nil {
			logger.WithContext(ctx).WithError(err).Warn("Cache write failed")
		}
	}
	return rec, nil
}

// GetStatistics counts the calls in the window and sums their durations.
func (s *CdrService) GetStatistics(ctx context.Context, req *cdrdto.CallStatisticsRequest) (models.CallStatistics, error) {
	if req == nil {
		return models.CallStatistics{}, common.NullArgument("request")
	}
	if err := validateDates(s.now(), req.StartDate, req.EndDate); err != nil {
		return models.CallStatistics{}, err
	}
	return s.store.Statistics(ctx, query.BuildStatisticsFilter(req.StartDate, req.EndDate, req.Type))
}

// GetByCaller returns a caller's calls in the window, in store order.
func (s *CdrService) GetByCaller(ctx context.Context, req *cdrdto.CdrsRequest) ([]models.CallDetailRecord, error) {
	if req == nil {
		return nil, common.NullArgument("request")
	}
	if err := validateCaller(req.CallerID); err != nil {
		return nil, err
	}
	if err := validateDates(s.now(), req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	return s.store.Find(ctx, query.BuildRangeFilter(req.CallerID, req.StartDate, req.EndDate, req.Type), query.FindOptions{})
}

// GetMostExpensive returns up to Take of a caller's calls, most expensive first.
// Order among equal costs is up to the store.
func (s *CdrService) GetMostExpensive(ctx context.Context, req *cdrdto.MostExpensiveCallsRequest) ([]models.CallDetailRecord, error) {
	if req == nil {
		return nil, common.NullArgument("request")
	}
	if err := validateCaller(req.CallerID); err != nil {
		return nil, err
	}
	if req.Take < 1 {
		return nil, common.InvalidArgument("take", msgBadTake)
	}
	if err := validateDates(s.now(), req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	return s.store.Find(ctx,
		query.BuildRangeFilter(req.CallerID, req.StartDate, req.EndDate, req.Type),
		query.FindOptions{SortBy: query.FieldCost, Descending: true, Limit: int64(req.Take)},
	)
}

// Ping reports whether the store is reachable.
func (s *CdrService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
