package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/BearBump/OrderTrack/internal/services/acquisition"
	"github.com/BearBump/OrderTrack/internal/services/reconcile"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

type serverOpts struct {
	httpAddr string
	onListen func(httpAddr string)
}

func runServer(ctx context.Context, opts serverOpts, svc *reconcile.Service, engine *acquisition.Engine) error {
	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	srv := &http.Server{Handler: newRouter(svc, engine)}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	slog.Info("HTTP server listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err == http.ErrServerClosed {
		return ctx.Err()
	} else {
		return err
	}
}

func newRouter(svc *reconcile.Service, engine *acquisition.Engine) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		out := map[string]any{
			"reconcile": svc.Stats(),
		}
		if engine != nil {
			out["acquisition"] = engine.Stats()
		}
		_ = json.NewEncoder(w).Encode(out)
	})

	r.Get("/api/track", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		req := reconcile.Request{
			OrderName:      q.Get("order"),
			Email:          q.Get("email"),
			TrackingNumber: q.Get("num"),
			Language:       q.Get("lang"),
		}
		view, err := svc.Resolve(r.Context(), req)
		if err != nil {
			writeResolveError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	})

	r.Get("/api/translate", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		num := q.Get("num")
		lang := q.Get("lang")
		if num == "" || lang == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "num and lang are required"})
			return
		}
		res := svc.TranslateTracking(r.Context(), num, lang)
		writeJSON(w, http.StatusOK, res)
	})

	return r
}

func writeResolveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reconcile.ErrOrderNotFound), errors.Is(err, reconcile.ErrTrackingUnknown):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, reconcile.ErrMissingParams):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		// Никаких сырых ошибок наружу.
		slog.Error("resolve", "error", err.Error())
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "Service Error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
