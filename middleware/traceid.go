package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	TraceIDKey    = "trace_id"
	TraceIDHeader = "X-Trace-ID"
)

// audit_logs.trace_id is a 36-char column.
const maxTraceIDLen = 36

// TraceID tags each request with an id, echoed in X-Trace-ID. A caller's own
// id is kept when it is short and made of [A-Za-z0-9._-]; anything else is
// replaced with a fresh UUID so it is safe to log and store.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(TraceIDHeader)
		if !validTraceID(id) {
			id = uuid.NewString()
		}
		c.Set(TraceIDKey, id)
		c.Header(TraceIDHeader, id)
		c.Next()
	}
}

func validTraceID(id string) bool {
	if id == "" || len(id) > maxTraceIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		switch b := id[i]; {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		case b == '-', b == '_', b == '.':
		default:
			return false
		}
	}
	return true
}

// GetTraceID returns the id set by TraceID, or "" outside that middleware.
func GetTraceID(c *gin.Context) string {
	return c.GetString(TraceIDKey)
}
