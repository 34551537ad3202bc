// Package mapper turns parsed CSV rows into call detail records.
package mapper

import (
	"strings"

	"cdr_api/internal/api/cdr/csvparse"
	"cdr_api/internal/api/cdr/models"
)

// DomesticPrefix is the country code both parties need for a domestic call.
const DomesticPrefix = "44"

// Classify returns Domestic when both numbers start with DomesticPrefix.
func Classify(caller, recipient string) models.CallType {
	if strings.HasPrefix(caller, DomesticPrefix) && strings.HasPrefix(recipient, DomesticPrefix) {
		return models.Domestic
	}
	return models.International
}

// Map converts a parsed row. It returns nil for rows without a caller or recipient.
func Map(row csvparse.CsvCallDetailRecord) *models.CallDetailRecord {
	if strings.TrimSpace(row.CallerID) == "" || strings.TrimSpace(row.Recipient) == "" {
		return nil
	}

	return &models.CallDetailRecord{
		Reference: row.Reference,
		CallerID:  row.CallerID,
		Recipient: row.Recipient,
		CallDate:  row.CallDate,
		EndTime:   row.EndTime,
		Currency:  row.Currency,
		Duration:  row.Duration,
		Cost:      row.Cost,
		Type:      Classify(row.CallerID, row.Recipient),
	}
}
