// Package csvparse decodes CDR CSV uploads into intermediate rows.
package csvparse

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"
	"time"

	"cdr_api/internal/api/cdr/models"

	"github.com/araddon/dateparse"
	"github.com/shopspring/decimal"
)

// Column names expected in the header row.
const (
	ColCallerID  = "caller_id"
	ColRecipient = "recipient"
	ColCallDate  = "call_date"
	ColEndTime   = "end_time"
	ColDuration  = "duration"
	ColCost      = "cost"
	ColReference = "reference"
	ColCurrency  = "currency"
)

var columns = []string{ColCallerID, ColRecipient, ColCallDate, ColEndTime, ColDuration, ColCost, ColReference, ColCurrency}

// CsvCallDetailRecord mirrors one CSV row. It only lives during ingestion.
type CsvCallDetailRecord struct {
	CallerID  string
	Recipient string
	CallDate  time.Time
	EndTime   models.TimeOfDay
	Duration  int
	Cost      decimal.Decimal
	Reference string
	Currency  string
}

// ParseError reports where and why a CSV stream could not be decoded.
// Line is 1-based; Column is empty for stream-level failures.
type ParseError struct {
	Line   int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("csv line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("csv line %d, column %s: %v", e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	ErrEmptyStream   = errors.New("empty stream")
	ErrMissingColumn = errors.New("missing header column")
)

// dayFirstLayouts are tried before the generic parser, so "01/02/2016" is
// the 1st of February.
var dayFirstLayouts = []string{
	"02/01/2006",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
}

// ParseCallDate applies the day-first rule, then the generic date parser.
// Values without a zone are taken as UTC; the result is always UTC.
func ParseCallDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised date %q", s)
	}
	return t.UTC(), nil
}

// Parse reads the header row and returns a lazy, single-use sequence of rows.
// Header problems are returned immediately; row problems are yielded as
// *ParseError and end the sequence.
func Parse(r io.Reader) (iter.Seq2[CsvCallDetailRecord, error], error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ParseError{Line: 1, Err: ErrEmptyStream}
	}
	if err != nil {
		return nil, &ParseError{Line: 1, Err: err}
	}

	index, err := headerIndex(header)
	if err != nil {
		return nil, err
	}

	return func(yield func(CsvCallDetailRecord, error) bool) {
		for {
			row, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				line := 0
				var pe *csv.ParseError
				if errors.As(err, &pe) {
					line = pe.Line
				}
				yield(CsvCallDetailRecord{}, &ParseError{Line: line, Err: err})
				return
			}
			line, _ := reader.FieldPos(0)

			rec, err := decodeRow(row, index, line)
			if err != nil {
				yield(CsvCallDetailRecord{}, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}, nil
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range columns {
		if _, ok := index[col]; !ok {
			return nil, &ParseError{Line: 1, Column: col, Err: ErrMissingColumn}
		}
	}
	return index, nil
}

func decodeRow(row []string, index map[string]int, line int) (CsvCallDetailRecord, error) {
	field := func(col string) string {
		return strings.TrimSpace(row[index[col]])
	}
	fail := func(col string, err error) (CsvCallDetailRecord, error) {
		return CsvCallDetailRecord{}, &ParseError{Line: line, Column: col, Err: err}
	}

	callDate, err := ParseCallDate(field(ColCallDate))
	if err != nil {
		return fail(ColCallDate, err)
	}
	endTime, err := models.ParseTimeOfDay(field(ColEndTime))
	if err != nil {
		return fail(ColEndTime, err)
	}
	duration, err := strconv.Atoi(field(ColDuration))
	if err != nil {
		return fail(ColDuration, err)
	}
	cost, err := decimal.NewFromString(field(ColCost))
	if err != nil {
		return fail(ColCost, err)
	}

	return CsvCallDetailRecord{
		CallerID:  field(ColCallerID),
		Recipient: field(ColRecipient),
		CallDate:  callDate,
		EndTime:   endTime,
		Duration:  duration,
		Cost:      cost,
		Reference: field(ColReference),
		Currency:  field(ColCurrency),
	}, nil
}
