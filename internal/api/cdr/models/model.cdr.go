// Package models holds the call detail record domain types.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CallType classifies a call by the numbers involved.
type CallType int

const (
	Domestic      CallType = 1
	International CallType = 2
)

// IsDefined reports whether t is one of the declared call types.
func (t CallType) IsDefined() bool {
	return t == Domestic || t == International
}

func (t CallType) String() string {
	switch t {
	case Domestic:
		return "Domestic"
	case International:
		return "International"
	default:
		return strconv.Itoa(int(t))
	}
}

// ParseCallType accepts the numeric value or the case-insensitive name.
// Numbers outside the declared set are returned as-is; callers decide what
// an undefined type means.
func ParseCallType(s string) (CallType, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return CallType(n), nil
	}
	switch strings.ToLower(s) {
	case "domestic":
		return Domestic, nil
	case "international":
		return International, nil
	}
	return 0, fmt.Errorf("unknown call type %q", s)
}

// TimeOfDay is a time-of-day offset from midnight, rendered hh:mm:ss.
type TimeOfDay time.Duration

// NewTimeOfDay builds a TimeOfDay from its components.
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second)
}

// ParseTimeOfDay parses hh:mm:ss or hh:mm.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewTimeOfDay(t.Hour(), t.Minute(), t.Second()), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

func (t TimeOfDay) String() string {
	d := time.Duration(t)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	sec := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// CallDetailRecord is one billable call. Records are immutable once stored.
type CallDetailRecord struct {
	Reference string          `json:"reference"`
	CallerID  string          `json:"callerId"`
	Recipient string          `json:"recipient"`
	CallDate  time.Time       `json:"callDate"` // UTC
	EndTime   TimeOfDay       `json:"endTime"`
	Currency  string          `json:"currency"`
	Duration  int             `json:"duration"` // seconds
	Cost      decimal.Decimal `json:"cost"`
	Type      CallType        `json:"type"`
}

// CallStatistics aggregates the calls matching a filter.
type CallStatistics struct {
	Count         int64 `json:"count"`
	TotalDuration int64 `json:"totalDuration"` // seconds
}
