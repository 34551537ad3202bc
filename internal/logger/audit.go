package logger

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// AuditAction is one audited operation.
type AuditAction struct {
	Action     string                 `json:"action"` // e.g. "cdr_upload"
	ResourceID string                 `json:"resource_id"`
	IP         string                 `json:"ip"`
	UserAgent  string                 `json:"user_agent"`
	RequestID  string                 `json:"request_id"`
	Details    map[string]interface{} `json:"details"`
	Timestamp  time.Time              `json:"timestamp"`
}

// LogAction writes an audit record for an HTTP-triggered action.
func LogAction(action string, c fiber.Ctx, details map[string]interface{}) {
	if details == nil {
		details = make(map[string]interface{})
	}
	writeAudit(AuditAction{
		Action:    action,
		IP:        c.IP(),
		UserAgent: c.Get("User-Agent"),
		RequestID: RequestID(c),
		Details:   details,
		Timestamp: time.Now(),
	})
}

// LogSystemAction writes an audit record for an action with no HTTP request,
// such as an inbox ingestion.
func LogSystemAction(action, resourceID string, details map[string]interface{}) {
	if details == nil {
		details = make(map[string]interface{})
	}
	writeAudit(AuditAction{
		Action:     action,
		ResourceID: resourceID,
		Details:    details,
		Timestamp:  time.Now(),
	})
}

func writeAudit(a AuditAction) {
	GetAuditLogger().WithFields(logrus.Fields{
		"action":      a.Action,
		"resource_id": a.ResourceID,
		"ip":          a.IP,
		"user_agent":  a.UserAgent,
		"request_id":  a.RequestID,
		"details":     a.Details,
		"timestamp":   a.Timestamp,
	}).Info("Audit log")
}
