package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/AlexMuzzy/sample-crud-kotlin-app/internal/cache"
	"github.com/AlexMuzzy/sample-crud-kotlin-app/internal/config"
	"github.com/AlexMuzzy/sample-crud-kotlin-app/internal/db"
	"github.com/AlexMuzzy/sample-crud-kotlin-app/internal/middleware"
	"github.com/AlexMuzzy/sample-crud-kotlin-app/internal/repo"
	"github.com/AlexMuzzy/sample-crud-kotlin-app/internal/seed"
	"github.com/AlexMuzzy/sample-crud-kotlin-app/internal/service"
)

type App struct {
	cfg    config.Config
	logger *log.Logger
	gdb    *gorm.DB
	pool   *pgxpool.Pool
	redis  *redis.Client
	repo   repo.TodoRepo
	svc    *service.TodoService
	router *gin.Engine
}

// New connects the store and optional cache, applies migrations and seeds an
// empty table when cfg.Seed.OnStart is set.
func New(ctx context.Context, cfg config.Config, logger *log.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	gdb, err := db.Open(cfg.DB, logger)
	if err != nil {
		return nil, err
	}
	a.gdb = gdb

	m, err := db.NewMigrator(gdb, cfg.DB.Driver, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := m.Up(ctx); err != nil {
		a.Close()
		return nil, err
	}

	switch cfg.DB.Backend {
	case config.BackendPGX:
		pool, err := db.OpenPool(ctx, cfg.DB)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.pool = pool
		a.repo = repo.NewPGTodoRepo(pool)
	default:
		a.repo = repo.NewGormTodoRepo(gdb)
	}
	logger.Info("store ready", "driver", cfg.DB.Driver, "backend", cfg.DB.Backend)

	var todoCache *cache.TodoCache
	if cfg.Redis.Enabled() {
		rdb, err := newRedis(ctx, cfg.Redis)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = rdb
		todoCache = cache.NewTodoCache(rdb, cfg.Redis.DefaultTTL.Duration())
		logger.Info("cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.DefaultTTL.Duration())
	} else {
		logger.Info("cache disabled")
	}

	a.svc = service.NewTodoService(a.repo, todoCache, service.WithLogger(logger))

	if cfg.Seed.OnStart {
		if _, err := a.Seed(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.router = newRouter(a)
	return a, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// Seed inserts the sample rows into an empty table and drops cached results
// when it wrote anything.
func (a *App) Seed(ctx context.Context) (int, error) {
	n, err := seed.Run(ctx, a.repo, a.logger, time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		a.svc.InvalidateCache(ctx)
	}
	return n, nil
}

func (a *App) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.gdb != nil {
		_ = db.Close(a.gdb)
	}
}

// ping checks every backing service the app was started with.
func (a *App) ping(ctx context.Context) map[string]error {
	out := map[string]error{}
	if a.pool != nil {
		out["db"] = a.pool.Ping(ctx)
	} else {
		out["db"] = db.Ping(ctx, a.gdb)
	}
	if a.redis != nil {
		out["redis"] = a.redis.Ping(ctx).Err()
	}
	return out
}

func newRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return rdb, nil
}

func newRouter(a *App) *gin.Engine {
	if a.cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(a.logger),
		middleware.RecoveryWithLog(a.logger),
	)

	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Type", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	Setup(r, a)
	return r
}
