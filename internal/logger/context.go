package logger

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// ContextKey is the type of values this package reads from a context.
type ContextKey string

const (
	RequestIDKey ContextKey = "requestID"
	SourceKey    ContextKey = "source" // http, inbox
)

// WithContext returns an app logger entry carrying the request id and source stored in ctx.
func WithContext(ctx context.Context) *logrus.Entry {
	entry := GetAppLogger().WithContext(ctx)

	if requestID := ctx.Value(RequestIDKey); requestID != nil {
		entry = entry.WithField("request_id", requestID)
	}
	if source := ctx.Value(SourceKey); source != nil {
		entry = entry.WithField("source", source)
	}
	return entry
}

// RequestID reads the id set by the requestid middleware, falling back to the headers.
func RequestID(c fiber.Ctx) string {
	if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
		return rid
	}
	if rid := c.Get("X-Request-ID"); rid != "" {
		return rid
	}
	return c.GetRespHeader("X-Request-ID")
}

// RequestContext derives the context handed to services from the request,
// carrying its request id and source "http" for WithContext.
func RequestContext(c fiber.Ctx) context.Context {
	ctx := context.WithValue(c.Context(), SourceKey, "http")
	if requestID := RequestID(c); requestID != "" {
		ctx = context.WithValue(ctx, RequestIDKey, requestID)
	}
	return ctx
}

// WithRequest returns an app logger entry with request id, method, path and ip.
func WithRequest(c fiber.Ctx) *logrus.Entry {
	entry := GetAppLogger().WithContext(context.Background())

	if requestID := RequestID(c); requestID != "" {
		entry = entry.WithField("request_id", requestID)
	}

	return entry.WithFields(logrus.Fields{
		"method": c.Method(),
		"path":   c.Path(),
		"ip":     c.IP(),
	})
}

func WithFields(fields map[string]interface{}) *logrus.Entry {
	return GetAppLogger().WithFields(logrus.Fields(fields))
}

func WithError(err error) *logrus.Entry {
	return GetAppLogger().WithError(err)
}

// WithModule tags the entry with a module name such as "cdr" or "inbox".
func WithModule(module string) *logrus.Entry {
	return GetAppLogger().WithField("module", module)
}

// WithCollection tags the entry with the backing collection or table.
func WithCollection(collection string) *logrus.Entry {
	return GetAppLogger().WithField("collection", collection)
}
