package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/OrderTrack/config"
	"github.com/BearBump/OrderTrack/internal/broker/kafka"
	"github.com/BearBump/OrderTrack/internal/cache"
	"github.com/BearBump/OrderTrack/internal/cache/memcache"
	"github.com/BearBump/OrderTrack/internal/cache/rediscache"
	"github.com/BearBump/OrderTrack/internal/integrations/carrier"
	"github.com/BearBump/OrderTrack/internal/integrations/carrier/fake"
	"github.com/BearBump/OrderTrack/internal/integrations/carrier/track17http"
	"github.com/BearBump/OrderTrack/internal/integrations/commerce/shophttp"
	"github.com/BearBump/OrderTrack/internal/integrations/translate/googlehttp"
	"github.com/BearBump/OrderTrack/internal/services/acquisition"
	"github.com/BearBump/OrderTrack/internal/services/reconcile"
	"github.com/BearBump/OrderTrack/internal/services/translation"
)

type app struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   serverOpts
	svc    *reconcile.Service
	engine *acquisition.Engine
}

func mustBootstrap() *app {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	httpAddr := cfg.OrderTrack.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	cacheTTL := time.Duration(cfg.OrderTrack.TrackCacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	var carrierClient carrier.Client
	if cfg.Carrier.APIKey != "" {
		carrierClient = track17http.New(cfg.Carrier.BaseURL, cfg.Carrier.APIKey, cfg.Carrier.AlreadyRegisteredCodes)
	} else {
		slog.Warn("no carrier api key configured, using fake carrier client")
		carrierClient = fake.New()
	}

	var bc cache.BytesCache
	if cfg.Redis.Host != "" {
		bc = rediscache.New(fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port))
	} else {
		bc = memcache.New()
	}

	engine := acquisition.New(carrierClient).
		WithCache(bc, cacheTTL).
		WithRetryPolicy(policyFromConfig(cfg.Carrier.PollDelaysSeconds))

	if cfg.Carrier.SettleSeconds > 0 {
		engine = engine.WithSettleDelay(time.Duration(cfg.Carrier.SettleSeconds) * time.Second)
	}
	if cfg.Redis.Host != "" {
		rl := rediscache.NewRateLimiter(fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port))
		engine = engine.WithRateLimiter(rl, int64(cfg.Carrier.RateLimitPerMinute))
	}
	if cfg.Kafka.Host != "" {
		topic := cfg.Kafka.TrackingUpdatedTopicName
		if topic == "" {
			topic = "tracking.updated"
		}
		producer := kafka.NewProducer([]string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)})
		engine = engine.WithProducer(producer, topic)
	}

	shop := shophttp.New(cfg.Commerce.BaseURL, cfg.Commerce.Token, cfg.Commerce.APIVersion)
	enricher := translation.NewEnricher(googlehttp.New(cfg.Translate.BaseURL, cfg.Translate.APIKey))

	svc := reconcile.New(shop, engine, enricher)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &app{
		ctx:    ctx,
		cancel: cancel,
		opts:   serverOpts{httpAddr: httpAddr},
		svc:    svc,
		engine: engine,
	}
}

func policyFromConfig(delaysSeconds []int) acquisition.RetryPolicy {
	if len(delaysSeconds) == 0 {
		return acquisition.DefaultRetryPolicy()
	}
	p := acquisition.RetryPolicy{}
	for _, s := range delaysSeconds {
		if s > 0 {
			p.Delays = append(p.Delays, time.Duration(s)*time.Second)
		}
	}
	if len(p.Delays) == 0 {
		return acquisition.DefaultRetryPolicy()
	}
	return p
}

func (a *app) Run() error {
	return runServer(a.ctx, a.opts, a.svc, a.engine)
}

func (a *app) Canceled(err error) bool {
	return err == context.Canceled
}

func (a *app) Close() {
	if a.cancel != nil {
		a.cancel()
	}
}
