package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"badgehub/internal/ranking/models"
	id "badgehub/pkg/domain"
	dErrors "badgehub/pkg/domain-errors"
	"badgehub/pkg/platform/httputil"
	"badgehub/pkg/requestcontext"
)

// Service defines the ranking reads exposed over HTTP.
type Service interface {
	Rank(ctx context.Context, q models.Query) ([]models.Entry, error)
	AwardRanking(ctx context.Context, limit int) ([]models.AwardEntry, error)
	EventStats(ctx context.Context, eventID id.EventID) (*models.EventStats, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRankings mounts the leaderboards.
func (h *Handler) RegisterRankings(r chi.Router) {
	r.Get("/rankings/checkins", h.HandleRank)
	r.Get("/rankings/awards", h.HandleAwardRanking)
}

// RegisterAdmin mounts event statistics.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/events/{id}/stats", h.HandleEventStats)
}

// HandleRank handles GET /rankings/checkins?limit&punctual.
func (h *Handler) HandleRank(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, err := parseLimit(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	q := models.Query{Limit: limit}
	if raw := r.URL.Query().Get("punctual"); raw != "" {
		q.PunctualOnly, err = strconv.ParseBool(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "punctual must be a boolean"))
			return
		}
	}
	q = q.Normalize()

	entries, err := h.service.Rank(ctx, q)
	if err != nil {
		h.fail(ctx, w, "ranking failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEntries(q, entries))
}

// HandleAwardRanking handles GET /rankings/awards?limit.
func (h *Handler) HandleAwardRanking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, err := parseLimit(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit = models.NormalizeLimit(limit)

	entries, err := h.service.AwardRanking(ctx, limit)
	if err != nil {
		h.fail(ctx, w, "award ranking failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAwardEntries(limit, entries))
}

// HandleEventStats handles GET /events/{id}/stats.
func (h *Handler) HandleEventStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := id.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	stats, err := h.service.EventStats(ctx, eventID)
	if err != nil {
		h.fail(ctx, w, "event stats failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEventStats(stats))
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "limit must be a non-negative integer")
	}
	return n, nil
}
