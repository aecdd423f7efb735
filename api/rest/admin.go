package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/magicitems/audit"
	"github.com/kasuganosora/magicitems/cache"
	"github.com/kasuganosora/magicitems/config"
	mw "github.com/kasuganosora/magicitems/middleware"
	"github.com/kasuganosora/magicitems/scheduler"
	"go.uber.org/zap"
)

// AdminHandler handles operator endpoints.
// Routes should be protected by the AdminAuth middleware.
type AdminHandler struct {
	cache     cache.Cache
	sec       config.SecurityConfig
	audit     *audit.Service
	retention time.Duration
	sched     *scheduler.Scheduler
	logger    *zap.Logger
}

// NewAdminHandler creates an AdminHandler. auditSvc may be nil.
func NewAdminHandler(
	c cache.Cache,
	sec config.SecurityConfig,
	auditSvc *audit.Service,
	retention time.Duration,
	sched *scheduler.Scheduler,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{cache: c, sec: sec, audit: auditSvc, retention: retention, sched: sched, logger: logger}
}

type issueTokenRequest struct {
	Subject string `json:"subject" binding:"required,min=1,max=64"`
}

// IssueToken signs an API token for an operator and records its session.
// POST /api/admin/tokens
func (h *AdminHandler) IssueToken(c *gin.Context) {
	if h.sec.JWTSecret == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "token auth disabled: set security.jwt_secret in config"})
		return
	}
	var req issueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := mw.GenerateToken(req.Subject, h.sec.JWTSecret, h.sec.JWTTTLH)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if err := h.cache.Set(c.Request.Context(), mw.SessionKey(token), req.Subject, h.sec.JWTTTLH); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	h.logger.Info("api token issued", zap.String("subject", req.Subject), zap.String("ip", c.ClientIP()))
	c.JSON(http.StatusCreated, gin.H{
		"token":      token,
		"subject":    req.Subject,
		"expires_at": time.Now().Add(h.sec.JWTTTLH).UTC(),
	})
}

type revokeTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// RevokeToken drops the session of a token so it is refused from now on.
// DELETE /api/admin/tokens
func (h *AdminHandler) RevokeToken(c *gin.Context) {
	var req revokeTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.cache.Del(c.Request.Context(), mw.SessionKey(req.Token)); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Status(http.StatusNoContent)
}

// PruneAudit deletes audit rows older than the configured retention.
// POST /api/admin/audit/prune
func (h *AdminHandler) PruneAudit(c *gin.Context) {
	if h.audit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit disabled"})
		return
	}
	n, err := h.audit.Prune(c.Request.Context(), time.Now().Add(-h.retention))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// ListSchedulerTasks returns names of all registered ticker tasks.
// GET /api/admin/scheduler
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.ListTickers()})
}
