package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/kasuganosora/magicitems/api/rest"
	"github.com/kasuganosora/magicitems/audit"
	"github.com/kasuganosora/magicitems/cache"
	"github.com/kasuganosora/magicitems/config"
	dbadapter "github.com/kasuganosora/magicitems/db"
	"github.com/kasuganosora/magicitems/inventory"
	mw "github.com/kasuganosora/magicitems/middleware"
	"github.com/kasuganosora/magicitems/model"
	"github.com/kasuganosora/magicitems/repository"
	"github.com/kasuganosora/magicitems/scheduler"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("config: %s not found, using defaults", cfgPath)
		cfg, err = config.Default(), nil
	}
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Server.AdminKeyHash == "" {
		logger.Warn("server.admin_key_hash is not set; admin endpoints are disabled")
	}
	if cfg.Security.JWTSecret == "" {
		logger.Warn("security.jwt_secret is not set; mutating routes are unauthenticated")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Cache ----
	c, err := cache.NewCache(cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
	})
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	defer c.Close()
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	// ---- Audit ----
	var auditSvc *audit.Service
	if cfg.Audit.Enabled {
		auditSvc = audit.New(db, logger)
		defer auditSvc.Stop(context.Background())

		prune := func(ctx context.Context) {
			n, err := auditSvc.Prune(ctx, time.Now().Add(-cfg.Audit.Retention))
			if err != nil {
				logger.Error("audit prune failed", zap.Error(err))
				return
			}
			if n > 0 {
				logger.Info("audit rows pruned", zap.Int64("rows", n))
			}
		}
		sched.AddDelay("audit_prune_boot", 10*time.Second, prune)
		sched.AddTicker("audit_prune", cfg.Audit.PruneInterval, prune)
	}

	// ---- Services ----
	itemRepo := repository.NewItemRepository(db)
	charRepo := repository.NewCharacterRepository(db)
	stats := inventory.NewStatsCache(c, cfg.Cache.StatsTTL, logger)
	itemSvc := inventory.NewItemService(itemRepo, charRepo, stats, logger)
	charSvc := inventory.NewCharacterService(charRepo, itemRepo, stats, logger)

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apirest.Routes{
		Items:      apirest.NewItemHandler(itemSvc, auditSvc),
		Characters: apirest.NewCharacterHandler(charSvc, auditSvc),
		Admin:      apirest.NewAdminHandler(c, cfg.Security, auditSvc, cfg.Audit.Retention, sched, logger),
		Auth:       mw.Auth(cfg.Security, c),
		AdminGuards: []gin.HandlerFunc{
			mw.IPWhitelist(cfg.Security.AdminIPs),
			mw.AdminAuth(cfg.Server.AdminKeyHash),
		},
	}.Register(r.Group("/api"))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}
