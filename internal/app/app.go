package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/AMYasserF/task-manager/internal/config"
	"github.com/AMYasserF/task-manager/internal/store"
)

// App wires the store, the optional Redis cache and the HTTP router together.
// The store is opened once here and its handle is passed by reference into
// the repositories; its lifetime is scoped to the process.
type App struct {
	cfg    config.Config
	store  *store.Store
	redis  *redis.Client
	router *gin.Engine
}

func New(cfg config.Config) (*App, error) {
	a := &App{cfg: cfg}

	st := store.New(cfg.Store.Path)
	if err := st.Open(context.Background()); err != nil {
		return nil, err
	}
	a.store = st
	log.Printf("store ready at %s", st.Path())

	if cfg.CacheEnabled() {
		rdb, err := newRedis(cfg.Redis)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		a.redis = rdb
		log.Printf("task list cache enabled (%s)", cfg.Redis.Addr)
	}

	a.router = newRouter(cfg, st, a.redis)
	return a, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// Close releases the cache connection and the live store instance. Every
// write already flushed before being acknowledged, so nothing is persisted
// here.
func (a *App) Close(ctx context.Context) error {
	_ = ctx
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

func newRedis(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
