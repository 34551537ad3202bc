// Package cdrdto holds request and response shapes for the CDR endpoints.
package cdrdto

import (
	"time"

	"cdr_api/internal/api/cdr/models"
)

// CdrsRequest selects a caller's calls in [StartDate, EndDate).
type CdrsRequest struct {
	CallerID  string           `json:"callerId"`
	StartDate time.Time        `json:"startDate"`
	EndDate   time.Time        `json:"endDate"`
	Type      *models.CallType `json:"type,omitempty"`
}

// CallStatisticsRequest selects every call in [StartDate, EndDate).
type CallStatisticsRequest struct {
	StartDate time.Time        `json:"startDate"`
	EndDate   time.Time        `json:"endDate"`
	Type      *models.CallType `json:"type,omitempty"`
}

// MostExpensiveCallsRequest selects a caller's Take most expensive calls.
type MostExpensiveCallsRequest struct {
	CallerID  string           `json:"callerId"`
	Take      int              `json:"take"`
	StartDate time.Time        `json:"startDate"`
	EndDate   time.Time        `json:"endDate"`
	Type      *models.CallType `json:"type,omitempty"`
}

// CdrRequest echoes a lookup by reference.
type CdrRequest struct {
	Reference string `json:"reference"`
}

// Query-string bindings. Dates and type stay strings so the handler can
// report format errors itself.

type CdrsQuery struct {
	CallerID  string `query:"callerId"`
	StartDate string `query:"startDate" validate:"required"`
	EndDate   string `query:"endDate" validate:"required"`
	Type      string `query:"type" validate:"omitempty,calltype"`
}

type CallStatisticsQuery struct {
	StartDate string `query:"startDate" validate:"required"`
	EndDate   string `query:"endDate" validate:"required"`
	Type      string `query:"type" validate:"omitempty,calltype"`
}

type MostExpensiveCallsQuery struct {
	CallerID  string `query:"callerId"`
	Take      string `query:"take" validate:"omitempty,number"`
	StartDate string `query:"startDate" validate:"required"`
	EndDate   string `query:"endDate" validate:"required"`
	Type      string `query:"type" validate:"omitempty,calltype"`
}

// DateLayouts are the accepted query date formats, tried in order.
var DateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}
