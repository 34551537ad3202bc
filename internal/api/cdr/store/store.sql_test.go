package store

import (
	"context"
	"testing"
	"time"

	"cdr_api/internal/api/cdr/models"
	"cdr_api/internal/api/cdr/query"
	"cdr_api/internal/common"
	"cdr_api/internal/database"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	t.Setenv("LOG_OUTPUT", "stdout")
	ctx := context.Background()

	db, err := database.OpenSQL(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	s, err := NewSQLStore(ctx, db, "call_records", SQLite)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(ctx) })
	return s
}

func record(ref, caller string, date time.Time, duration int, cost string, typ models.CallType) models.CallDetailRecord {
	return models.CallDetailRecord{
		Reference: ref,
		CallerID:  caller,
		Recipient: "448000096481",
		CallDate:  date,
		EndTime:   models.NewTimeOfDay(14, 21, 33),
		Currency:  "GBP",
		Duration:  duration,
		Cost:      decimal.RequireFromString(cost),
		Type:      typ,
	}
}

var day = time.Date(2016, 8, 1, 0, 0, 0, 0, time.UTC)

func seed(t *testing.T, s Store) {
	t.Helper()
	require.NoError(t, s.InsertMany(context.Background(), []models.CallDetailRecord{
		record("R1", "441", day, 10, "0.045", models.Domestic),
		record("R2", "441", day.Add(24*time.Hour), 20, "1.5", models.International),
		record("R3", "441", day.Add(10*24*time.Hour), 30, "0.2", models.Domestic),
		record("R4", "442", day.Add(2*24*time.Hour), 40, "3.25", models.International),
	}))
}

func TestSQLStoreFindOne(t *testing.T) {
	s := newSQLiteStore(t)
	seed(t, s)
	ctx := context.Background()

	rec, err := s.FindOne(ctx, query.ByReference("R2"))
	require.NoError(t, err)
	assert.Equal(t, "441", rec.CallerID)
	assert.True(t, rec.CallDate.Equal(day.Add(24*time.Hour)))
	assert.Equal(t, time.UTC, rec.CallDate.Location())
	assert.Equal(t, "14:21:33", rec.EndTime.String())
	assert.True(t, decimal.RequireFromString("1.5").Equal(rec.Cost))
	assert.Equal(t, models.International, rec.Type)
	assert.Equal(t, 20, rec.Duration)

	_, err = s.FindOne(ctx, query.ByReference("missing"))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLStoreFindRange(t *testing.T) {
	s := newSQLiteStore(t)
	seed(t, s)
	ctx := context.Background()

	got, err := s.Find(ctx, query.BuildRangeFilter("441", day, day.Add(10*24*time.Hour), nil), query.FindOptions{})
	require.NoError(t, err)
	refs := make([]string, 0, len(got))
	for _, r := range got {
		refs = append(refs, r.Reference)
	}
	assert.ElementsMatch(t, []string{"R1", "R2"}, refs)

	domestic := models.Domestic
	got, err = s.Find(ctx, query.BuildRangeFilter("441", day, day.Add(30*24*time.Hour), &domestic), query.FindOptions{})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.Find(ctx, query.BuildRangeFilter("999", day, day.Add(24*time.Hour), nil), query.FindOptions{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSQLStoreMostExpensive(t *testing.T) {
	s := newSQLiteStore(t)
	seed(t, s)

	got, err := s.Find(context.Background(),
		query.BuildRangeFilter("441", day, day.Add(30*24*time.Hour), nil),
		query.FindOptions{SortBy: query.FieldCost, Descending: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "R2", got[0].Reference)
	assert.Equal(t, "R3", got[1].Reference)
}

func TestSQLStoreStatistics(t *testing.T) {
	s := newSQLiteStore(t)
	seed(t, s)
	ctx := context.Background()

	stats, err := s.Statistics(ctx, query.BuildStatisticsFilter(day, day.Add(3*24*time.Hour), nil))
	require.NoError(t, err)
	assert.Equal(t, models.CallStatistics{Count: 3, TotalDuration: 70}, stats)

	intl := models.International
	stats, err = s.Statistics(ctx, query.BuildStatisticsFilter(day, day.Add(30*24*time.Hour), &intl))
	require.NoError(t, err)
	assert.Equal(t, models.CallStatistics{Count: 2, TotalDuration: 60}, stats)

	stats, err = s.Statistics(ctx, query.BuildStatisticsFilter(day.AddDate(1, 0, 0), day.AddDate(1, 0, 1), nil))
	require.NoError(t, err)
	assert.Equal(t, models.CallStatistics{}, stats)
}

func TestSQLStoreDuplicateReference(t *testing.T) {
	s := newSQLiteStore(t)
	seed(t, s)
	ctx := context.Background()

	err := s.InsertMany(ctx, []models.CallDetailRecord{
		record("R9", "443", day, 1, "0.1", models.Domestic),
		record("R1", "443", day, 1, "0.1", models.Domestic),
	})
	assert.ErrorIs(t, err, common.ErrDuplicate)

	// the batch is rolled back as a whole
	_, err = s.FindOne(ctx, query.ByReference("R9"))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLStoreCostKeepsScaleAndPrecision(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertMany(ctx, []models.CallDetailRecord{
		record("S1", "441", day, 1, "0.050", models.Domestic),
		record("S2", "441", day, 1, "12345678901234567.123456789", models.Domestic),
	}))

	rec, err := s.FindOne(ctx, query.ByReference("S1"))
	require.NoError(t, err)
	assert.Equal(t, "0.050", rec.Cost.StringFixed(-rec.Cost.Exponent()))

	rec, err = s.FindOne(ctx, query.ByReference("S2"))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("12345678901234567.123456789").Equal(rec.Cost), rec.Cost.String())
}

func TestSQLStoreOrdersCostNumerically(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertMany(ctx, []models.CallDetailRecord{
		record("C1", "441", day, 1, "9.5", models.Domestic),
		record("C2", "441", day, 1, "10.25", models.Domestic),
		record("C3", "441", day, 1, "0.75", models.Domestic),
	}))

	got, err := s.Find(ctx, query.BuildRangeFilter("441", day, day.Add(time.Hour), nil),
		query.FindOptions{SortBy: query.FieldCost, Descending: true})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"C2", "C1", "C3"}, []string{got[0].Reference, got[1].Reference, got[2].Reference})
}

func TestDecimalText(t *testing.T) {
	assert.Equal(t, "0.050", decimalText(decimal.RequireFromString("0.050")))
	assert.Equal(t, "12", decimalText(decimal.RequireFromString("12")))
	assert.Equal(t, "-1.10", decimalText(decimal.RequireFromString("-1.10")))
}

func TestSQLStoreInsertEmpty(t *testing.T) {
	s := newSQLiteStore(t)
	assert.NoError(t, s.InsertMany(context.Background(), nil))
}
