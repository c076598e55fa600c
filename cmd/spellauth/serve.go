package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/MrEthical07/spellauth"
	"github.com/MrEthical07/spellauth/internal/settings"
	"github.com/MrEthical07/spellauth/metrics/export/prometheus"
)

type principalView struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Confirmed   bool   `json:"confirmed"`
	Role        string `json:"role,omitempty"`
	Permissions uint64 `json:"permissions"`
	LastSeen    string `json:"last_seen"`
}

func newAdminRouter(engine *spellauth.Engine, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", prometheus.NewPrometheusExporter(engine).Handler())

	r.Get("/principals/{id}", func(w http.ResponseWriter, req *http.Request) {
		u, err := engine.LoadUser(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			logger.ErrorContext(req.Context(), "principal probe", slog.Any("error", err))
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		if u == nil {
			http.NotFound(w, req)
			return
		}

		view := principalView{
			ID:        u.ID,
			Username:  u.Username,
			Confirmed: u.Confirmed,
			Role:      u.RoleName(),
			LastSeen:  u.LastSeen.UTC().Format(time.RFC3339),
		}
		if u.Role != nil {
			view.Permissions = uint64(u.Role.Permissions)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(view); err != nil {
			logger.WarnContext(req.Context(), "encode principal", slog.Any("error", err))
		}
	})

	return r
}

func runServe(ctx context.Context, cfg *settings.Settings, logger *slog.Logger) error {
	rt, err := openRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	srv := &http.Server{
		Addr:              cfg.AdminAddr,
		Handler:           newAdminRouter(rt.engine, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("admin endpoint listening", slog.String("addr", cfg.AdminAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
