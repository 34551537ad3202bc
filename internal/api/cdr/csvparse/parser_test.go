package csvparse

import (
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"cdr_api/internal/api/cdr/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "caller_id,recipient,call_date,end_time,duration,cost,reference,currency\n"

func collect(t *testing.T, input string) ([]CsvCallDetailRecord, error) {
	t.Helper()
	rows, err := Parse(strings.NewReader(input))
	if err != nil {
		return nil, err
	}
	var out []CsvCallDetailRecord
	for rec, err := range rows {
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func TestParseValidRows(t *testing.T) {
	input := header +
		"441215598896,448000096481,16/08/2016,14:21:33,43,0,C5DA9724701EEBBA95CA2CC5617BA93E4,GBP\n" +
		"442036000000,491234567890,2016-08-17,09:00:00,120,1.250,C50B5A7BDB8D68B8512BB14A9D363CAA1,GBP\n"

	recs, err := collect(t, input)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	first := recs[0]
	assert.Equal(t, "441215598896", first.CallerID)
	assert.Equal(t, "448000096481", first.Recipient)
	assert.Equal(t, time.Date(2016, 8, 16, 0, 0, 0, 0, time.UTC), first.CallDate)
	assert.Equal(t, models.NewTimeOfDay(14, 21, 33), first.EndTime)
	assert.Equal(t, 43, first.Duration)
	assert.True(t, decimal.Zero.Equal(first.Cost))
	assert.Equal(t, "C5DA9724701EEBBA95CA2CC5617BA93E4", first.Reference)
	assert.Equal(t, "GBP", first.Currency)

	assert.Equal(t, time.Date(2016, 8, 17, 0, 0, 0, 0, time.UTC), recs[1].CallDate)
	assert.True(t, decimal.RequireFromString("1.25").Equal(recs[1].Cost))
}

func TestParseColumnOrderAndCase(t *testing.T) {
	input := "\ufeffReference,Currency,Cost,Duration,End_Time,Call_Date,Recipient,Caller_Id\n" +
		"REF1,EUR,2.5,10,10:00:00,01/02/2020,4412,4413\n"

	recs, err := collect(t, input)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "REF1", recs[0].Reference)
	assert.Equal(t, "4413", recs[0].CallerID)
	// day-first: 1 February
	assert.Equal(t, time.February, recs[0].CallDate.Month())
	assert.Equal(t, 1, recs[0].CallDate.Day())
}

func TestParseHeaderOnly(t *testing.T) {
	recs, err := collect(t, header)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestParseEmptyStream(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, ErrEmptyStream)
}

func TestParseMissingColumn(t *testing.T) {
	_, err := Parse(strings.NewReader("caller_id,recipient,call_date\n"))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.Equal(t, ColEndTime, pe.Column)
}

func TestParseRaggedRow(t *testing.T) {
	input := header +
		"441215598896,448000096481,16/08/2016,14:21:33,43,0,REF1,GBP\n" +
		"441215598896,448000096481,16/08/2016\n"

	recs, err := collect(t, input)
	assert.Len(t, recs, 1)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.True(t, errors.Is(err, csv.ErrFieldCount))
	assert.Equal(t, 3, pe.Line)
}

func TestParseBadFields(t *testing.T) {
	cases := map[string]string{
		ColCallDate: "4412,4413,not-a-date,14:21:33,43,0,REF,GBP\n",
		ColEndTime:  "4412,4413,16/08/2016,late,43,0,REF,GBP\n",
		ColDuration: "4412,4413,16/08/2016,14:21:33,forty,0,REF,GBP\n",
		ColCost:     "4412,4413,16/08/2016,14:21:33,43,cheap,REF,GBP\n",
	}
	for col, row := range cases {
		t.Run(col, func(t *testing.T) {
			_, err := collect(t, header+row)
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, col, pe.Column)
			assert.Equal(t, 2, pe.Line)
		})
	}
}

func TestParseIsLazy(t *testing.T) {
	input := header +
		"4412,4413,16/08/2016,14:21:33,43,0,REF1,GBP\n" +
		"4412,4413,16/08/2016,14:21:33,43,broken,REF2,GBP\n"

	rows, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	for rec, err := range rows {
		require.NoError(t, err)
		assert.Equal(t, "REF1", rec.Reference)
		break
	}
}

func TestParseCallDateFallbacks(t *testing.T) {
	cases := map[string]time.Time{
		"16/08/2016":                time.Date(2016, 8, 16, 0, 0, 0, 0, time.UTC),
		"2016-08-16T10:30:00Z":      time.Date(2016, 8, 16, 10, 30, 0, 0, time.UTC),
		"2016-08-16T12:30:00+02:00": time.Date(2016, 8, 16, 10, 30, 0, 0, time.UTC),
		"2016-08-16 07:05:09":       time.Date(2016, 8, 16, 7, 5, 9, 0, time.UTC),
		"16/08/2016 07:05:09":       time.Date(2016, 8, 16, 7, 5, 9, 0, time.UTC),
	}
	for in, want := range cases {
		got, err := ParseCallDate(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s: got %s", in, got)
		assert.Equal(t, time.UTC, got.Location(), in)
	}

	// 13 is not a month, so the day-first rule is the only match
	got, err := ParseCallDate("13/01/2020")
	require.NoError(t, err)
	assert.Equal(t, 13, got.Day())
}

func TestParseCallDateUnpaddedMonthFirst(t *testing.T) {
	cases := map[string]time.Time{
		"1/2/2016":  time.Date(2016, 1, 2, 0, 0, 0, 0, time.UTC),
		"8/16/2016": time.Date(2016, 8, 16, 0, 0, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, err := ParseCallDate(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s: got %s", in, got)
		assert.Equal(t, time.UTC, got.Location(), in)
	}

	recs, err := collect(t, header+"4412,4413,8/16/2016,14:21:33,43,0.5,R1,GBP\n")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, time.August, recs[0].CallDate.Month())
	assert.Equal(t, 16, recs[0].CallDate.Day())
}
