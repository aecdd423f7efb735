package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/kasuganosora/magicitems/api/rest"
	"github.com/kasuganosora/magicitems/audit"
	"github.com/kasuganosora/magicitems/cache"
	"github.com/kasuganosora/magicitems/config"
	"github.com/kasuganosora/magicitems/inventory"
	mw "github.com/kasuganosora/magicitems/middleware"
	"github.com/kasuganosora/magicitems/repository"
	"github.com/kasuganosora/magicitems/scheduler"
	"github.com/kasuganosora/magicitems/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// AdminKey is the X-Admin-Key accepted by every TestServer.
const AdminKey = "integration-admin-key"

// TestServer wraps a real HTTP server with every subsystem wired together.
type TestServer struct {
	DB     *gorm.DB
	Cache  cache.Cache
	Audit  *audit.Service
	Sched  *scheduler.Scheduler
	Server *httptest.Server
	URL    string // http://127.0.0.1:<port>
	Sec    config.SecurityConfig
}

// NewTestServer creates a fully wired server for integration testing.
// It mirrors the dependency wiring in main.go.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// ---- Infrastructure ----
	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	logger := zap.NewNop()

	sec := config.SecurityConfig{
		JWTSecret:      "integration-test-secret",
		JWTTTLH:        72 * time.Hour,
		RateLimitRPS:   1000,
		RateLimitBurst: 2000,
		AdminIPs:       []string{"127.0.0.1", "::1"},
	}
	keyHash, err := bcrypt.GenerateFromPassword([]byte(AdminKey), bcrypt.MinCost)
	require.NoError(t, err)

	auditSvc := audit.New(db, logger)
	sched := scheduler.New(logger)

	// ---- Services ----
	itemRepo := repository.NewItemRepository(db)
	charRepo := repository.NewCharacterRepository(db)
	stats := inventory.NewStatsCache(c, time.Minute, logger)
	itemSvc := inventory.NewItemService(itemRepo, charRepo, stats, logger)
	charSvc := inventory.NewCharacterService(charRepo, itemRepo, stats, logger)

	// ---- Gin HTTP Server ----
	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(sec.RateLimitRPS), sec.RateLimitBurst))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apirest.Routes{
		Items:      apirest.NewItemHandler(itemSvc, auditSvc),
		Characters: apirest.NewCharacterHandler(charSvc, auditSvc),
		Admin:      apirest.NewAdminHandler(c, sec, auditSvc, 720*time.Hour, sched, logger),
		Auth:       mw.Auth(sec, c),
		AdminGuards: []gin.HandlerFunc{
			mw.IPWhitelist(sec.AdminIPs),
			mw.AdminAuth(string(keyHash)),
		},
	}.Register(r.Group("/api"))

	server := httptest.NewServer(r)
	return &TestServer{
		DB:     db,
		Cache:  c,
		Audit:  auditSvc,
		Sched:  sched,
		Server: server,
		URL:    server.URL,
		Sec:    sec,
	}
}

// Close shuts the server down and flushes pending audit entries.
func (ts *TestServer) Close() {
	ts.Server.Close()
	ts.Sched.Stop()
	ts.Audit.Stop(context.Background())
}

// --- HTTP helpers ---

func (ts *TestServer) do(t *testing.T, method, path string, body interface{}, token string, header http.Header) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, bodyReader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// PostJSON sends a POST request with JSON body and optional Bearer token.
func (ts *TestServer) PostJSON(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	return ts.do(t, http.MethodPost, path, body, token, nil)
}

// Get sends a GET request with optional Bearer token.
func (ts *TestServer) Get(t *testing.T, path string, token string) *http.Response {
	t.Helper()
	return ts.do(t, http.MethodGet, path, nil, token, nil)
}

// Delete sends a DELETE request with optional JSON body and Bearer token.
func (ts *TestServer) Delete(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	return ts.do(t, http.MethodDelete, path, body, token, nil)
}

// Put sends a PUT request with JSON body and optional Bearer token.
func (ts *TestServer) Put(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	return ts.do(t, http.MethodPut, path, body, token, nil)
}

// ReadJSON reads and decodes a JSON response body into the given target.
func ReadJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target), "body: %s", string(data))
}

// Drain closes a response whose body is not needed.
func Drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// --- Domain helpers ---

// IssueToken asks the admin endpoint for an API token.
func (ts *TestServer) IssueToken(t *testing.T, subject string) string {
	t.Helper()
	header := http.Header{}
	header.Set(mw.AdminKeyHeader, AdminKey)
	resp := ts.do(t, http.MethodPost, "/api/admin/tokens", map[string]string{"subject": subject}, "", header)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var result map[string]interface{}
	ReadJSON(t, resp, &result)
	return result["token"].(string)
}

// RevokeToken drops an API token through the admin endpoint.
func (ts *TestServer) RevokeToken(t *testing.T, token string) {
	t.Helper()
	header := http.Header{}
	header.Set(mw.AdminKeyHeader, AdminKey)
	resp := ts.do(t, http.MethodDelete, "/api/admin/tokens", map[string]string{"token": token}, "", header)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	Drain(resp)
}

// CreateCharacter creates a character and returns its ID.
func (ts *TestServer) CreateCharacter(t *testing.T, token, name string, class string) int64 {
	t.Helper()
	resp := ts.PostJSON(t, "/api/characters", map[string]interface{}{
		"name":            name,
		"adventurer_name": name + " the Wanderer",
		"class":           class,
		"attack":          10,
		"defense":         10,
	}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var result map[string]interface{}
	ReadJSON(t, resp, &result)
	return int64(result["id"].(float64))
}

// CreateItem creates an item and returns the response, leaving status checks to the caller.
func (ts *TestServer) CreateItem(t *testing.T, token, typ string, attack, defense int) *http.Response {
	t.Helper()
	return ts.PostJSON(t, "/api/items", map[string]interface{}{
		"name":    UniqueID(typ),
		"type":    typ,
		"attack":  attack,
		"defense": defense,
	}, token)
}

// MustCreateItem creates an item and returns its ID.
func (ts *TestServer) MustCreateItem(t *testing.T, token, typ string, attack, defense int) int64 {
	t.Helper()
	resp := ts.CreateItem(t, token, typ, attack, defense)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var result map[string]interface{}
	ReadJSON(t, resp, &result)
	return int64(result["id"].(float64))
}

// UniqueID returns a short unique string suitable for names.
var testCounter uint64

func UniqueID(prefix string) string {
	n := atomic.AddUint64(&testCounter, 1)
	return fmt.Sprintf("%s_%d_%d", prefix, time.Now().UnixNano()%100000, n)
}
