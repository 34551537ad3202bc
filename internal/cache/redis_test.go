package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"cdr_api/internal/api/cdr/models"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memClient struct {
	data map[string]string
	ttl  map[string]time.Duration
	err  error
}

func newMemClient() *memClient {
	return &memClient{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (m *memClient) Get(ctx context.Context, key string) *redis.StringCmd {
	if m.err != nil {
		return redis.NewStringResult("", m.err)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = string(value.([]byte))
	m.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *memClient) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *memClient) Close() error { return nil }

func TestRecordCacheRoundTrip(t *testing.T) {
	client := newMemClient()
	c := NewRecordCache(client, time.Minute)
	ctx := context.Background()

	rec := &models.CallDetailRecord{
		Reference: "R1",
		CallerID:  "441",
		Recipient: "442",
		CallDate:  time.Date(2016, 8, 1, 0, 0, 0, 0, time.UTC),
		EndTime:   models.NewTimeOfDay(1, 2, 3),
		Currency:  "GBP",
		Duration:  5,
		Cost:      decimal.RequireFromString("0.045"),
		Type:      models.Domestic,
	}
	require.NoError(t, c.Set(ctx, rec))
	assert.Equal(t, time.Minute, client.ttl["cdr:ref:R1"])

	got, err := c.Get(ctx, "R1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, rec.Cost.Equal(got.Cost))
	assert.Equal(t, rec.EndTime, got.EndTime)
	assert.True(t, rec.CallDate.Equal(got.CallDate))
	assert.Equal(t, rec.Type, got.Type)
}

func TestRecordCacheMiss(t *testing.T) {
	c := NewRecordCache(newMemClient(), time.Minute)
	got, err := c.Get(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecordCacheError(t *testing.T) {
	client := newMemClient()
	client.err = errors.New("connection refused")
	_, err := NewRecordCache(client, time.Minute).Get(context.Background(), "R1")
	assert.Error(t, err)
}
