package app

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/go-redis/redis/v8"
	"github.com/maudia1/site/config"
	"github.com/maudia1/site/internal/cart"
	"github.com/maudia1/site/internal/catalog"
	"github.com/maudia1/site/internal/mirror"
	"github.com/maudia1/site/internal/whatsapp"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// setupServices builds the domain services on top of the current database
func (a *Application) setupServices() error {
	cfg := a.appConfig

	if a.cartStore != nil {
		_ = a.cartStore.Close()
		a.cartStore = nil
	}
	if a.pool != nil {
		a.pool.Release()
	}

	workers := cfg.Mirror.Workers
	if workers <= 0 {
		workers = 8
	}
	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(p interface{}) {
		zap.L().Error("mirror task panic", zap.Any("panic", p), zap.String("namespace", "mirror"))
	}))
	if err != nil {
		return errors.Wrap(err, "create mirror pool")
	}
	a.pool = pool
	a.bus = EventBus.New()
	a.cache = newCache(cfg.Cache)
	a.catalog = catalog.NewService(a.gormDB, a.cache, a.bus)
	a.mirror = mirror.New(cfg.Mirror, nil)
	a.checkout = whatsapp.New(cfg.Checkout.WhatsappNumber)

	if err := os.MkdirAll(cfg.GetDataDir(), 0o755); err != nil {
		return errors.Wrap(err, "create data dir")
	}
	store, err := cart.OpenBoltStore(cfg.GetCartDBPath())
	if err != nil {
		return err
	}
	a.cartStore = store
	a.carts = cart.NewService(store, a.catalog)

	if err := a.subscribeMirror(); err != nil {
		return err
	}
	if a.mirror.Enabled() {
		zap.L().Info("mirror enabled", zap.String("table", cfg.Mirror.ProductsTable), zap.String("namespace", "mirror"))
	} else {
		zap.L().Info("mirror disabled", zap.String("namespace", "mirror"))
	}
	return nil
}

func newCache(cfg config.CacheConfig) catalog.Cache {
	ttl := time.Duration(cfg.TTL) * time.Second
	if ttl <= 0 {
		ttl = time.Minute
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "none", "off", "disabled":
		return catalog.NoopCache()
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			zap.L().Warn("redis unavailable, using memory cache", zap.String("addr", cfg.Addr), zap.Error(err), zap.String("namespace", "cache"))
			_ = client.Close()
			return catalog.NewMemoryCache(ttl)
		}
		return catalog.NewRedisCache(client, "iwanted:catalog", ttl)
	default:
		return catalog.NewMemoryCache(ttl)
	}
}
