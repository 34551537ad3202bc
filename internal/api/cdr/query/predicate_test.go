package query

import (
	"testing"
	"time"

	"cdr_api/internal/api/cdr/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	start = time.Date(2016, 8, 1, 0, 0, 0, 0, time.UTC)
	end   = time.Date(2016, 8, 15, 0, 0, 0, 0, time.UTC)
)

func typePtr(t models.CallType) *models.CallType { return &t }

func TestBuildRangeFilterTerms(t *testing.T) {
	p := BuildRangeFilter("441215598896", start, end, typePtr(models.Domestic))
	c, ok := p.(Conjunction)
	require.True(t, ok)
	assert.Equal(t, []Predicate{
		Eq(FieldCallerID, "441215598896"),
		Gte(FieldCallDate, start),
		Lt(FieldCallDate, end),
		Eq(FieldType, models.Domestic),
	}, c.Terms)
}

func TestBuildRangeFilterIgnoresUndefinedType(t *testing.T) {
	for _, typ := range []*models.CallType{nil, typePtr(0), typePtr(3), typePtr(-1)} {
		c := BuildRangeFilter("4412", start, end, typ).(Conjunction)
		assert.Len(t, c.Terms, 3)
		for _, term := range c.Terms {
			assert.NotEqual(t, FieldType, term.(Comparison).Field)
		}
	}
}

func TestBuildStatisticsFilterOmitsCaller(t *testing.T) {
	c := BuildStatisticsFilter(start, end, typePtr(models.International)).(Conjunction)
	assert.Equal(t, []Predicate{
		Gte(FieldCallDate, start),
		Lt(FieldCallDate, end),
		Eq(FieldType, models.International),
	}, c.Terms)
}

func TestRangeFilterIsHalfOpen(t *testing.T) {
	p := BuildRangeFilter("4412", start, end, nil)
	rec := models.CallDetailRecord{CallerID: "4412", Type: models.Domestic}

	rec.CallDate = start
	assert.True(t, Match(p, rec), "start is inclusive")

	rec.CallDate = end
	assert.False(t, Match(p, rec), "end is exclusive")

	rec.CallDate = end.Add(-time.Nanosecond)
	assert.True(t, Match(p, rec))

	rec.CallDate = start.Add(-time.Second)
	assert.False(t, Match(p, rec))
}

func TestMatchCallerAndType(t *testing.T) {
	p := BuildRangeFilter("4412", start, end, typePtr(models.International))
	rec := models.CallDetailRecord{CallerID: "4412", CallDate: start, Type: models.International}
	assert.True(t, Match(p, rec))

	rec.Type = models.Domestic
	assert.False(t, Match(p, rec))

	rec.Type = models.International
	rec.CallerID = "4413"
	assert.False(t, Match(p, rec))

	assert.True(t, Match(ByReference("R1"), models.CallDetailRecord{Reference: "R1"}))
	assert.True(t, Match(And(), rec))
}
