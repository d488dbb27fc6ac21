// Package httptransport assembles the HTTP surface: middleware chain, role
// groups and operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	awardHandler "badgehub/internal/award/handler"
	badgeHandler "badgehub/internal/badge/handler"
	checkinHandler "badgehub/internal/checkin/handler"
	jwttoken "badgehub/internal/jwt_token"
	"badgehub/internal/platform/tracing"
	rankingHandler "badgehub/internal/ranking/handler"
	dErrors "badgehub/pkg/domain-errors"
	"badgehub/pkg/platform/httputil"
	"badgehub/pkg/platform/middleware/auth"
	"badgehub/pkg/platform/middleware/metadata"
	"badgehub/pkg/platform/middleware/request"
	"badgehub/pkg/platform/middleware/requesttime"
)

const requestTimeout = 30 * time.Second

// Handlers are the domain handlers mounted on the router.
type Handlers struct {
	Badges   *badgeHandler.Handler
	Checkins *checkinHandler.Handler
	Awards   *awardHandler.Handler
	Rankings *rankingHandler.Handler
}

// Config carries the cross-cutting collaborators of the router.
type Config struct {
	Tokens  auth.TokenValidator
	Logger  *slog.Logger
	Metrics *request.Metrics
	// QRDir is served read-only under QRBaseURL when both are set.
	QRDir     string
	QRBaseURL string
	// Ready reports whether backing services are reachable.
	Ready func(ctx context.Context) error
}

// NewRouter wires every endpoint. Check-in endpoints accept scanner and admin
// tokens, rankings accept any valid token, everything else needs admin.
func NewRouter(cfg Config, h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(tracing.Middleware)
	r.Use(request.Recovery(cfg.Logger))
	r.Use(request.Logger(cfg.Logger))
	r.Use(request.Latency(cfg.Metrics))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil {
			if err := cfg.Ready(r.Context()); err != nil {
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "not ready"))
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	r.Handle("/metrics", promhttp.Handler())

	if cfg.QRDir != "" && cfg.QRBaseURL != "" {
		prefix := cfg.QRBaseURL
		r.Handle(prefix+"/*", http.StripPrefix(prefix+"/", http.FileServer(http.Dir(cfg.QRDir))))
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(cfg.Tokens, cfg.Logger, jwttoken.RoleScanner, jwttoken.RoleAdmin))
		h.Checkins.RegisterScanner(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(cfg.Tokens, cfg.Logger))
		h.Rankings.RegisterRankings(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(cfg.Tokens, cfg.Logger, jwttoken.RoleAdmin))
		h.Badges.Register(r)
		h.Checkins.RegisterAdmin(r)
		h.Awards.Register(r)
		h.Rankings.RegisterAdmin(r)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	return r
}
