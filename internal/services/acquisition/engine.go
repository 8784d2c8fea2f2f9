// Package acquisition drives the register → poll → materialize protocol
// against the carrier aggregator. A number the aggregator has never seen
// has no data yet, so a first lookup registers it and polls a bounded
// schedule before giving up with a "come back later" placeholder.
package acquisition

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/BearBump/OrderTrack/internal/broker/messages"
	"github.com/BearBump/OrderTrack/internal/cache"
	"github.com/BearBump/OrderTrack/internal/integrations/carrier"
	"github.com/BearBump/OrderTrack/internal/models"
	"github.com/pkg/errors"
)

// MockTrackingNumber short-circuits to canned data without touching the
// network. Lets integration tests run without live carrier credentials.
const MockTrackingNumber = "TEST123_MOCK"

// User-facing terminal messages. Never a raw error or stack trace.
const (
	msgNotConfigured      = "Tracking service is not configured"
	msgServiceError       = "Service Error"
	msgRegistrationFailed = "Tracking number not found and could not be registered"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type Engine struct {
	client carrier.Client

	cache    cache.BytesCache
	cacheTTL time.Duration

	producer Producer
	topic    string

	rl            RateLimiter
	ratePerMinute int64

	policy      RetryPolicy
	settleDelay time.Duration
	sleep       func(ctx context.Context, d time.Duration) error

	totalRequests atomic.Int64
	cacheHits     atomic.Int64
	registrations atomic.Int64
	pollExhausted atomic.Int64
	failures      atomic.Int64
}

func New(client carrier.Client) *Engine {
	return &Engine{
		client:        client,
		policy:        DefaultRetryPolicy(),
		settleDelay:   1 * time.Second,
		sleep:         sleepCtx,
		ratePerMinute: 120,
	}
}

// WithCache enables the short-TTL read-through cache over materialized
// results. Optimization only, correctness never depends on it.
func (e *Engine) WithCache(c cache.BytesCache, ttl time.Duration) *Engine {
	e.cache = c
	e.cacheTTL = ttl
	return e
}

func (e *Engine) WithProducer(p Producer, topic string) *Engine {
	e.producer = p
	e.topic = topic
	return e
}

func (e *Engine) WithRateLimiter(rl RateLimiter, perMinute int64) *Engine {
	e.rl = rl
	if perMinute > 0 {
		e.ratePerMinute = perMinute
	}
	return e
}

func (e *Engine) WithRetryPolicy(p RetryPolicy) *Engine {
	if len(p.Delays) > 0 {
		e.policy = p
	}
	return e
}

func (e *Engine) WithSettleDelay(d time.Duration) *Engine {
	if d >= 0 {
		e.settleDelay = d
	}
	return e
}

type Stats struct {
	TotalRequests int64 `json:"totalRequests"`
	CacheHits     int64 `json:"cacheHits"`
	Registrations int64 `json:"registrations"`
	PollExhausted int64 `json:"pollExhausted"`
	Failures      int64 `json:"failures"`
}

func (e *Engine) Stats() Stats {
	return Stats{
		TotalRequests: e.totalRequests.Load(),
		CacheHits:     e.cacheHits.Load(),
		Registrations: e.registrations.Load(),
		PollExhausted: e.pollExhausted.Load(),
		Failures:      e.failures.Load(),
	}
}

// GetTrackingInfo resolves one tracking number into a TrackingResult. It
// never returns an error: every failure is folded into an ok:false result
// with a user-facing message.
func (e *Engine) GetTrackingInfo(ctx context.Context, trackingNumber, targetLanguage string) models.TrackingResult {
	e.totalRequests.Add(1)

	if trackingNumber == MockTrackingNumber {
		return mockResult()
	}

	if res, ok := e.cachedResult(ctx, trackingNumber, targetLanguage); ok {
		e.cacheHits.Add(1)
		return res
	}

	if targetLanguage != "" {
		// Смена языка на стороне агрегатора асинхронная: принял/отклонил
		// и всё. Даём короткую паузу перед чтением, без ретраев.
		if err := e.client.ChangeLanguage(ctx, trackingNumber, targetLanguage); err != nil {
			slog.Warn("change carrier language", "tracking_number", trackingNumber, "error", err.Error())
		} else if err := e.sleep(ctx, e.settleDelay); err != nil {
			return e.failure(trackingNumber, msgServiceError)
		}
	}

	e.throttle(ctx)

	raw, err := e.client.GetTrackInfo(ctx, trackingNumber)
	switch {
	case err == nil:
		norm, nerr := normalizePayload(raw)
		if nerr != nil {
			slog.Error("normalize carrier payload", "tracking_number", trackingNumber, "error", nerr.Error())
			return e.failure(trackingNumber, msgServiceError)
		}
		if len(norm.Events) > 0 {
			return e.materialize(ctx, trackingNumber, targetLanguage, norm)
		}
		// Запись есть, событий ещё нет — регистрация идемпотентна, идём
		// тем же путём, что и при not found.
	case errors.Is(err, carrier.ErrNotConfigured):
		return e.failure(trackingNumber, msgNotConfigured)
	case errors.Is(err, carrier.ErrNotFound):
		// Not registered yet.
	default:
		slog.Error("carrier fetch", "tracking_number", trackingNumber, "error", err.Error())
		return e.failure(trackingNumber, msgServiceError)
	}

	return e.registerAndPoll(ctx, trackingNumber, targetLanguage)
}

func (e *Engine) registerAndPoll(ctx context.Context, trackingNumber, targetLanguage string) models.TrackingResult {
	if err := e.client.Register(ctx, trackingNumber); err != nil {
		var rej *carrier.RegistrationError
		switch {
		case errors.As(err, &rej):
			slog.Warn("carrier registration rejected", "tracking_number", trackingNumber, "code", rej.Code)
			return e.failure(trackingNumber, msgRegistrationFailed)
		case errors.Is(err, carrier.ErrNotConfigured):
			return e.failure(trackingNumber, msgNotConfigured)
		default:
			slog.Error("carrier register", "tracking_number", trackingNumber, "error", err.Error())
			return e.failure(trackingNumber, msgServiceError)
		}
	}
	e.registrations.Add(1)

	var found normalizedPayload
	done, err := e.policy.Run(ctx, e.sleep, func(ctx context.Context) (bool, error) {
		raw, err := e.client.GetTrackInfo(ctx, trackingNumber)
		if errors.Is(err, carrier.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		norm, nerr := normalizePayload(raw)
		if nerr != nil {
			return false, nerr
		}
		if len(norm.Events) == 0 {
			return false, nil
		}
		found = norm
		return true, nil
	})
	if err != nil {
		slog.Error("poll after register", "tracking_number", trackingNumber, "error", err.Error())
		return e.failure(trackingNumber, msgServiceError)
	}
	if done {
		return e.materialize(ctx, trackingNumber, targetLanguage, found)
	}

	e.pollExhausted.Add(1)
	// Легитимное терминальное состояние, не ошибка: трек зарегистрирован,
	// агрегатор ещё не получил данных от перевозчика.
	return models.TrackingResult{
		OK:             true,
		TrackingNumber: trackingNumber,
		Status:         "Registered",
		Carrier:        "Detecting...",
		Registration:   models.RegistrationNoData,
		Events: []models.TrackEvent{{
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
			Description: "Shipment registered, waiting for the carrier's first scan",
		}},
	}
}

func (e *Engine) materialize(ctx context.Context, trackingNumber, targetLanguage string, norm normalizedPayload) models.TrackingResult {
	res := models.TrackingResult{
		OK:             true,
		TrackingNumber: trackingNumber,
		Status:         norm.Status,
		Carrier:        norm.Carrier,
		Registration:   models.RegistrationWithData,
		Events:         norm.Events,
	}

	if e.cache != nil && e.cacheTTL > 0 {
		if b, err := json.Marshal(res); err == nil {
			_ = e.cache.Set(ctx, trackInfoKey(trackingNumber, targetLanguage), b, e.cacheTTL)
		}
	}
	e.publish(ctx, res)
	return res
}

func (e *Engine) cachedResult(ctx context.Context, trackingNumber, targetLanguage string) (models.TrackingResult, bool) {
	if e.cache == nil || e.cacheTTL <= 0 {
		return models.TrackingResult{}, false
	}
	b, ok, err := e.cache.Get(ctx, trackInfoKey(trackingNumber, targetLanguage))
	if err != nil || !ok {
		return models.TrackingResult{}, false
	}
	var res models.TrackingResult
	if json.Unmarshal(b, &res) != nil {
		return models.TrackingResult{}, false
	}
	return res, true
}

func (e *Engine) publish(ctx context.Context, res models.TrackingResult) {
	if e.producer == nil {
		return
	}
	msg := messages.TrackingUpdated{
		TrackingNumber: res.TrackingNumber,
		CheckedAt:      time.Now().UTC(),
		Status:         res.Status,
		Carrier:        res.Carrier,
		Events:         res.Events,
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := e.producer.Publish(ctx, e.topic, []byte(res.TrackingNumber), b); err != nil {
		slog.Warn("publish tracking update", "tracking_number", res.TrackingNumber, "error", err.Error())
	}
}

// throttle is best-effort: over-limit waits briefly, limiter errors are
// logged and ignored. The aggregator enforces the real quota anyway.
func (e *Engine) throttle(ctx context.Context) {
	if e.rl == nil || e.ratePerMinute <= 0 {
		return
	}
	now := time.Now().UTC()
	minuteKey := fmt.Sprintf("rl:carrier:%s", now.Format("200601021504"))
	allowed, n, err := e.rl.Allow(ctx, minuteKey, e.ratePerMinute, 70*time.Second)
	if err != nil {
		slog.Warn("carrier rate limiter", "error", err.Error())
		return
	}
	if !allowed {
		slog.Warn("carrier rate limit exceeded", "count", n)
		_ = e.sleep(ctx, 500*time.Millisecond)
	}
}

func (e *Engine) failure(trackingNumber, msg string) models.TrackingResult {
	e.failures.Add(1)
	return models.TrackingResult{
		OK:             false,
		TrackingNumber: trackingNumber,
		Error:          msg,
	}
}

func mockResult() models.TrackingResult {
	return models.TrackingResult{
		OK:             true,
		TrackingNumber: MockTrackingNumber,
		Status:         "In transit",
		Carrier:        "DemoCarrier",
		Registration:   models.RegistrationWithData,
		Events: []models.TrackEvent{
			{Timestamp: "2024-05-01T09:12:00Z", Description: "Shipment information received", Location: "Shenzhen"},
			{Timestamp: "2024-05-03T18:40:00Z", Description: "Departed from origin facility", Location: "Shenzhen"},
			{Timestamp: "2024-05-06T07:25:00Z", Description: "Arrived at sorting center", Location: "Hamburg"},
		},
	}
}

func trackInfoKey(trackingNumber, targetLanguage string) string {
	if targetLanguage == "" {
		return fmt.Sprintf("trackinfo:%s", trackingNumber)
	}
	return fmt.Sprintf("trackinfo:%s:%s", trackingNumber, targetLanguage)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
