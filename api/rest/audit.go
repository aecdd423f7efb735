package rest

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/magicitems/audit"
	mw "github.com/kasuganosora/magicitems/middleware"
)

// recorder writes one audit entry per mutating request. The operator is
// empty when token auth is disabled.
type recorder struct {
	svc *audit.Service
}

func (r recorder) record(c *gin.Context, action string, start time.Time, itemID, charID *int64, req, resp interface{}, err error) {
	entry := audit.Entry{
		TraceID:     mw.GetTraceID(c),
		Action:      action,
		Operator:    mw.GetSubject(c),
		ItemID:      itemID,
		CharacterID: charID,
		Request:     req,
		Response:    resp,
		IP:          c.ClientIP(),
		DurationMs:  int(time.Since(start).Milliseconds()),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	r.svc.Log(entry)
}

func ptr(v int64) *int64 { return &v }
