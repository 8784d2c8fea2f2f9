package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BearBump/OrderTrack/internal/integrations/commerce"
	"github.com/BearBump/OrderTrack/internal/models"
	"github.com/BearBump/OrderTrack/internal/services/reconcile"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type stubShop struct {
	order *commerce.Order
	err   error
}

func (s *stubShop) OrderByName(context.Context, string) (*commerce.Order, error) {
	return s.order, s.err
}

func (s *stubShop) OrderByTracking(context.Context, string) (*commerce.Order, error) {
	return s.order, s.err
}

func (s *stubShop) ProductImages(context.Context, []uint64) (map[uint64]commerce.ProductImages, error) {
	return nil, nil
}

type stubTracker struct{}

func (stubTracker) GetTrackingInfo(_ context.Context, trackingNumber, _ string) models.TrackingResult {
	return models.TrackingResult{
		OK:             true,
		TrackingNumber: trackingNumber,
		Status:         "In transit",
		Carrier:        "DemoPost",
		Events:         []models.TrackEvent{{Timestamp: "2024-05-01T09:00:00Z", Description: "In transit"}},
	}
}

func testOrder() *commerce.Order {
	return &commerce.Order{
		ID:    1,
		Name:  "#1001",
		Email: "buyer@example.com",
		LineItems: []commerce.LineItem{
			{ID: 1, Name: "Mug", Quantity: 1},
		},
		Fulfillments: []commerce.Fulfillment{
			{ID: 11, TrackingNumber: "RB1", LineItems: []commerce.LineItem{{ID: 1, Quantity: 1}}},
		},
	}
}

func doReq(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestRouter_Health(t *testing.T) {
	svc := reconcile.New(&stubShop{order: testOrder()}, stubTracker{}, nil)
	h := newRouter(svc, nil)

	rec := doReq(t, h, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = doReq(t, h, "/readyz")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_Track(t *testing.T) {
	svc := reconcile.New(&stubShop{order: testOrder()}, stubTracker{}, nil)
	h := newRouter(svc, nil)

	rec := doReq(t, h, "/api/track?order=%231001&email=buyer@example.com")
	require.Equal(t, http.StatusOK, rec.Code)

	var view reconcile.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, "#1001", view.Order.Name)
	require.Len(t, view.Order.Packages, 1)
	require.Equal(t, "In transit", view.Order.Packages[0].Status)
}

func TestRouter_TrackMissingParams(t *testing.T) {
	svc := reconcile.New(&stubShop{order: testOrder()}, stubTracker{}, nil)
	h := newRouter(svc, nil)

	rec := doReq(t, h, "/api/track?order=%231001")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_TrackNotFound(t *testing.T) {
	svc := reconcile.New(&stubShop{err: commerce.ErrOrderNotFound}, stubTracker{}, nil)
	h := newRouter(svc, nil)

	rec := doReq(t, h, "/api/track?order=%239999&email=a@b.c")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doReq(t, h, "/api/track?num=UNKNOWN1")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_TrackUpstreamFailureIsOpaque(t *testing.T) {
	svc := reconcile.New(&stubShop{err: errors.New("tls handshake timeout")}, stubTracker{}, nil)
	h := newRouter(svc, nil)

	rec := doReq(t, h, "/api/track?order=%231001&email=a@b.c")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.JSONEq(t, `{"error":"Service Error"}`, rec.Body.String())
}

func TestRouter_Translate(t *testing.T) {
	svc := reconcile.New(&stubShop{order: testOrder()}, stubTracker{}, nil)
	h := newRouter(svc, nil)

	rec := doReq(t, h, "/api/translate?num=RB1&lang=en")
	require.Equal(t, http.StatusOK, rec.Code)

	var res models.TrackingResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.True(t, res.OK)
	require.Equal(t, "RB1", res.TrackingNumber)

	rec = doReq(t, h, "/api/translate?num=RB1")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_Stats(t *testing.T) {
	svc := reconcile.New(&stubShop{order: testOrder()}, stubTracker{}, nil)
	h := newRouter(svc, nil)

	_ = doReq(t, h, "/api/track?order=%231001&email=buyer@example.com")

	rec := doReq(t, h, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Reconcile reconcile.Stats `json:"reconcile"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.EqualValues(t, 1, out.Reconcile.Resolved)
}
