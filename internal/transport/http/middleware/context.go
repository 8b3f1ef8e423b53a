package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arklim/anon-inbox/internal/core/domain"
)

const (
	// TraceIDHeader carries the per-request trace identifier.
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey is the gin context key for the trace identifier.
	TraceIDKey = "trace_id"

	callerKey = "caller"
)

// EnrichContext assigns a trace identifier to each request and echoes it back.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if _, err := uuid.Parse(traceID); err != nil {
			traceID = uuid.NewString()
		}

		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		c.Next()
	}
}

// GetTraceID retrieves the trace ID from the context.
func GetTraceID(c *gin.Context) string {
	return c.GetString(TraceIDKey)
}

// SetCaller stores the authenticated principal for downstream handlers.
func SetCaller(c *gin.Context, caller domain.Caller) {
	c.Set(callerKey, caller)
}

// CallerFrom returns the principal resolved by RequireAuth.
func CallerFrom(c *gin.Context) (domain.Caller, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return domain.Caller{}, false
	}
	caller, ok := v.(domain.Caller)
	if !ok || caller.IsZero() {
		return domain.Caller{}, false
	}
	return caller, true
}
