package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/magicitems/api/rest"
	"github.com/kasuganosora/magicitems/audit"
	"github.com/kasuganosora/magicitems/cache"
	"github.com/kasuganosora/magicitems/config"
	"github.com/kasuganosora/magicitems/inventory"
	mw "github.com/kasuganosora/magicitems/middleware"
	"github.com/kasuganosora/magicitems/repository"
	"github.com/kasuganosora/magicitems/scheduler"
	"github.com/kasuganosora/magicitems/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() { gin.SetMode(gin.TestMode) }

type apiEnv struct {
	r     *gin.Engine
	db    *gorm.DB
	cache cache.Cache
	audit *audit.Service
	sched *scheduler.Scheduler
}

type apiOptions struct {
	sec          config.SecurityConfig
	adminKeyHash string
	audit        bool
}

func newAPI(t *testing.T, opts apiOptions) *apiEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	logger := testutil.NopLogger()

	var auditSvc *audit.Service
	if opts.audit {
		auditSvc = audit.New(db, logger)
		t.Cleanup(func() { auditSvc.Stop(context.Background()) })
	}
	sched := scheduler.New(logger)
	t.Cleanup(sched.Stop)

	itemRepo := repository.NewItemRepository(db)
	charRepo := repository.NewCharacterRepository(db)
	stats := inventory.NewStatsCache(c, time.Minute, logger)

	r := gin.New()
	rest.Routes{
		Items:       rest.NewItemHandler(inventory.NewItemService(itemRepo, charRepo, stats, logger), auditSvc),
		Characters:  rest.NewCharacterHandler(inventory.NewCharacterService(charRepo, itemRepo, stats, logger), auditSvc),
		Admin:       rest.NewAdminHandler(c, opts.sec, auditSvc, time.Hour, sched, logger),
		Auth:        mw.Auth(opts.sec, c),
		AdminGuards: []gin.HandlerFunc{mw.AdminAuth(opts.adminKeyHash)},
	}.Register(r.Group("/api"))

	return &apiEnv{r: r, db: db, cache: c, audit: auditSvc, sched: sched}
}

func doRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var b []byte
	if body != nil {
		b, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func postJSON(r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	return doRequest(r, http.MethodPost, path, body, "")
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// createItem posts an item and returns its id.
func createItem(t *testing.T, r *gin.Engine, typ string, atk, def int) int64 {
	t.Helper()
	w := postJSON(r, "/api/items", map[string]interface{}{"type": typ, "attack": atk, "defense": def})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return int64(decode(t, w)["id"].(float64))
}

// createCharacter posts a warrior and returns its id.
func createCharacter(t *testing.T, r *gin.Engine, name string) int64 {
	t.Helper()
	w := postJSON(r, "/api/characters", map[string]interface{}{
		"name": name, "adventurer_name": name + " the Bold", "class": "WARRIOR", "attack": 10, "defense": 5,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return int64(decode(t, w)["id"].(float64))
}
