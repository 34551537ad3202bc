package cdrsvc

import (
	"strings"
	"time"

	"cdr_api/internal/common"
)

// MaxDateRange is the widest [start, end) window a query may cover.
const MaxDateRange = 30 * 24 * time.Hour

const (
	msgStartInFuture  = "Start date cannot be in the future."
	msgEndInFuture    = "End date cannot be in the future."
	msgEndBeforeStart = "End date must be greater than or equal to start date."
	msgRangeTooWide   = "The date range cannot exceed 30 days."
	msgBlankCaller    = "Caller identifier can't be null or whitespace."
	msgBadTake        = "The take value must be 1 or higher."
	msgBlankReference = "The reference can't be null or whitespace"
	msgEmptyFile      = "File can't be null or empty"
)

// validateDates runs the range checks in order; the first failure wins.
func validateDates(now, start, end time.Time) error {
	now = now.UTC()
	if start.After(now) {
		return common.InvalidArgument("startDate", msgStartInFuture)
	}
	if end.After(now) {
		return common.InvalidArgument("endDate", msgEndInFuture)
	}
	if end.Before(start) {
		return common.InvalidArgument("endDate", msgEndBeforeStart)
	}
	if end.Sub(start) > MaxDateRange {
		return common.InvalidArgument("endDate", msgRangeTooWide)
	}
	return nil
}

func validateCaller(callerID string) error {
	if strings.TrimSpace(callerID) == "" {
		return common.InvalidArgument("callerId", msgBlankCaller)
	}
	return nil
}
